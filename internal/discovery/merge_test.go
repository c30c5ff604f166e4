package discovery

import (
	"testing"

	"github.com/svdh2/burnin-orchestrator/internal/dag"
)

func baseManifest() map[string]dag.Node {
	return map[string]dag.Node{
		"//p:existing_test": {Executable: "./bin/existing"},
	}
}

func TestMergeSkipsAlreadyPresentByNormalizedLabel(t *testing.T) {
	manifest := baseManifest()

	result := Merge(manifest, Discovery{
		Targets: []Target{{Label: "@@//p:existing_test"}},
	})

	if len(result.Manifest) != 1 {
		t.Fatalf("expected no new entry for already-present normalized label, got %+v", result.Manifest)
	}
}

func TestMergeAddsNewDiscoveredTarget(t *testing.T) {
	manifest := baseManifest()

	result := Merge(manifest, Discovery{
		Targets: []Target{{Label: "//p:new_test"}},
	})

	if len(result.Manifest) != 2 {
		t.Fatalf("expected new target added, got %+v", result.Manifest)
	}

	if _, ok := result.Manifest["//p:new_test"]; !ok {
		t.Fatalf("expected //p:new_test present")
	}
}

func TestMergeDoesNotMutateOriginal(t *testing.T) {
	manifest := baseManifest()

	Merge(manifest, Discovery{Targets: []Target{{Label: "//p:new_test"}}})

	if len(manifest) != 1 {
		t.Fatalf("expected original manifest untouched, got %+v", manifest)
	}
}

func TestMergeOrphanBucket(t *testing.T) {
	manifest := baseManifest()

	result := Merge(manifest, Discovery{
		Targets: []Target{{Label: "//p:orphan_test"}},
	})

	found := false

	for _, tree := range result.Trees {
		if tree.Label == orphanBucketLabel {
			found = true

			if len(tree.Children) != 1 || tree.Children[0].Label != "//p:orphan_test" {
				t.Fatalf("unexpected orphan bucket contents: %+v", tree.Children)
			}
		}
	}

	if !found {
		t.Fatalf("expected orphan bucket tree, got %+v", result.Trees)
	}
}

func TestMergeBuildsHierarchyAndPlacesDiscovered(t *testing.T) {
	manifest := baseManifest()

	result := Merge(manifest, Discovery{
		Targets: []Target{{Label: "//p:child_test"}},
		TestSets: map[string][]string{
			"//p:suite": {"//p:child_test"},
		},
	})

	if len(result.Trees) != 1 || result.Trees[0].Label != workspaceRootLabel {
		t.Fatalf("expected a single Workspace root, got %+v", result.Trees)
	}

	// child_test placed under the suite tree, so no orphan bucket should appear.
	for _, child := range result.Trees[0].Children {
		if child.Label == orphanBucketLabel {
			t.Fatalf("child_test should have been placed under //p:suite, not orphaned")
		}
	}
}

func TestMergeCycleProtection(t *testing.T) {
	manifest := baseManifest()

	result := Merge(manifest, Discovery{
		TestSets: map[string][]string{
			"//p:a": {"//p:b"},
			"//p:b": {"//p:a"},
		},
	})

	// Both reference each other, so neither is a root; trees should be empty
	// (no infinite loop, no panic).
	if len(result.Trees) != 0 {
		t.Fatalf("expected no roots when every test-set is referenced, got %+v", result.Trees)
	}
}

func TestMergeNoNewLabelsLeavesManifestStructureUntouched(t *testing.T) {
	manifest := baseManifest()

	result := Merge(manifest, Discovery{})

	if len(result.Trees) != 0 {
		t.Fatalf("expected no synthetic Workspace root when nothing new was added, got %+v", result.Trees)
	}
}

package inference

import (
	"testing"

	"github.com/svdh2/burnin-orchestrator/internal/dag"
)

func testManifest() *dag.Graph {
	return dag.New(map[string]dag.Node{
		"checkout_test":     {DependsOn: []string{"auth_test", "billing_test"}},
		"auth_test":         {Assertion: "validates auth tokens"},
		"billing_test":      {Assertion: "charges the customer"},
		"notification_test": {Assertion: "sends a notification"},
	})
}

func TestInferDependenciesScenario6(t *testing.T) {
	manifest := testManifest()

	edges := InferDependencies("checkout_test", []string{"notification", "auth"}, manifest, nil)

	if len(edges) != 1 {
		t.Fatalf("expected exactly one inferred edge, got %+v", edges)
	}

	if edges[0].Target != "notification_test" || edges[0].Feature != "notification" || !edges[0].Inferred {
		t.Fatalf("unexpected edge: %+v", edges[0])
	}
}

func TestInferDependenciesDropsSelfReference(t *testing.T) {
	manifest := dag.New(map[string]dag.Node{
		"auth_test": {Assertion: "auth feature under test"},
	})

	edges := InferDependencies("auth_test", []string{"auth"}, manifest, nil)

	if len(edges) != 0 {
		t.Fatalf("expected self-reference dropped, got %+v", edges)
	}
}

func TestInferDependenciesExplicitFeatureMapWins(t *testing.T) {
	manifest := testManifest()

	fm := FeatureMap{"notification": {"billing_test"}}

	edges := InferDependencies("checkout_test", []string{"notification"}, manifest, fm)

	// billing_test is already declared, so it's filtered out even though
	// the feature map names it explicitly.
	if len(edges) != 0 {
		t.Fatalf("expected declared dependency filtered, got %+v", edges)
	}
}

func TestInferDependenciesDeduplicatesAcrossFeatures(t *testing.T) {
	manifest := dag.New(map[string]dag.Node{
		"checkout_test":      {},
		"notification_test":  {Assertion: "handles notification delivery"},
	})

	edges := InferDependencies("checkout_test", []string{"notification", "notification"}, manifest, nil)

	if len(edges) != 1 {
		t.Fatalf("expected deduplicated target, got %+v", edges)
	}
}

func TestLoadFeatureMapMissingFileReturnsNil(t *testing.T) {
	if LoadFeatureMap("/no/such/file.json") != nil {
		t.Fatalf("expected nil for missing file")
	}
}

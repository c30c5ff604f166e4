// Package discovery merges workspace-wide discovered targets into a copy of
// the declared manifest, purely for reporting purposes — it never
// influences what the burn-in sweep schedules. Discovering the targets
// themselves (querying the build system) is outside this package's scope;
// it consumes an already-produced discovery result.
package discovery

import (
	"github.com/svdh2/burnin-orchestrator/internal/dag"
	"github.com/svdh2/burnin-orchestrator/internal/label"
)

const workspaceRootLabel = "Workspace"
const orphanBucketLabel = "Other workspace tests"

type (
	// Target is a single target found by workspace-wide discovery that may
	// or may not already be present in the manifest.
	Target struct {
		Label     string
		DependsOn []string
	}

	// Discovery is the external collaborator's output: newly found targets
	// plus hierarchical test-set groupings (test-set label -> member
	// labels, each member either another test-set or a leaf test).
	Discovery struct {
		Targets  []Target
		TestSets map[string][]string
	}

	// WorkspaceNode is a node in the hierarchical tree built for reporting.
	WorkspaceNode struct {
		Label    string
		Children []*WorkspaceNode
	}

	// Result is a merged manifest copy plus the workspace tree built over
	// discovered test-sets.
	Result struct {
		Manifest map[string]dag.Node
		Trees    []*WorkspaceNode
	}
)

// Merge deep-copies manifest, adds any discovered targets not already
// present (by normalized label), resolves their depends_on against the
// merged label set (preferring the original manifest's sigil form when a
// normalized label matches), builds hierarchical trees for the discovered
// test-sets, and buckets orphans. The original manifest is never mutated.
func Merge(manifest map[string]dag.Node, discovery Discovery) Result {
	merged := deepCopy(manifest)

	normalizedLookup := make(map[string]string, len(merged)) // normalized -> original key
	for k := range merged {
		normalizedLookup[label.Normalize(k)] = k
	}

	newLabels := make([]string, 0)

	for _, t := range discovery.Targets {
		normalized := label.Normalize(t.Label)
		if _, present := normalizedLookup[normalized]; present {
			continue
		}

		merged[t.Label] = dag.Node{
			Executable: "",
			Assertion:  "",
			DependsOn:  nil,
		}
		normalizedLookup[normalized] = t.Label
		newLabels = append(newLabels, t.Label)
	}

	for _, t := range discovery.Targets {
		resolvedKey, ok := normalizedLookup[label.Normalize(t.Label)]
		if !ok {
			continue
		}

		n := merged[resolvedKey]
		n.DependsOn = resolveDependsOn(t.DependsOn, normalizedLookup)
		merged[resolvedKey] = n
	}

	trees := buildTrees(discovery.TestSets, normalizedLookup)

	placed := make(map[string]bool)
	collectPlaced(trees, placed)

	orphans := make([]*WorkspaceNode, 0)

	for _, l := range newLabels {
		if !placed[l] {
			orphans = append(orphans, &WorkspaceNode{Label: l})
		}
	}

	if len(orphans) > 0 {
		trees = append(trees, &WorkspaceNode{Label: orphanBucketLabel, Children: orphans})
	}

	if len(newLabels) > 0 {
		trees = wrapUnderWorkspaceRoot(manifest, trees)
	}

	return Result{Manifest: merged, Trees: trees}
}

func resolveDependsOn(deps []string, normalizedLookup map[string]string) []string {
	resolved := make([]string, 0, len(deps))

	for _, d := range deps {
		if key, ok := normalizedLookup[label.Normalize(d)]; ok {
			resolved = append(resolved, key)
			continue
		}

		resolved = append(resolved, d)
	}

	return resolved
}

// buildTrees builds one tree per test-set root: a test-set referenced as a
// member by another test-set is not a root.
func buildTrees(testSets map[string][]string, normalizedLookup map[string]string) []*WorkspaceNode {
	if len(testSets) == 0 {
		return nil
	}

	referenced := make(map[string]bool)

	for _, members := range testSets {
		for _, m := range members {
			referenced[resolveAlias(m, testSets)] = true
		}
	}

	roots := make([]string, 0)

	for setLabel := range testSets {
		if !referenced[setLabel] {
			roots = append(roots, setLabel)
		}
	}

	trees := make([]*WorkspaceNode, 0, len(roots))

	for _, root := range roots {
		trees = append(trees, buildTree(root, testSets, normalizedLookup, make(map[string]bool)))
	}

	return trees
}

// buildTree recursively builds a tree for nodeLabel. Cycle protection: a
// visited-set shared by the whole tree tracks every label already reached
// and returns a stub empty node on revisit rather than recursing
// unboundedly.
func buildTree(nodeLabel string, testSets map[string][]string, normalizedLookup map[string]string, visited map[string]bool) *WorkspaceNode {
	if visited[nodeLabel] {
		return &WorkspaceNode{Label: nodeLabel}
	}

	visited[nodeLabel] = true

	members, isTestSet := testSets[nodeLabel]
	if !isTestSet {
		return &WorkspaceNode{Label: nodeLabel}
	}

	children := make([]*WorkspaceNode, 0, len(members))

	for _, m := range members {
		resolved := resolveAlias(m, testSets)
		children = append(children, buildTree(resolved, testSets, normalizedLookup, visited))
	}

	return &WorkspaceNode{Label: nodeLabel, Children: children}
}

// resolveAlias applies the "_test" (not "_tests") alias convention when
// resolving a subset reference: if member doesn't name a known test-set
// directly but its alias does, the alias is used.
func resolveAlias(member string, testSets map[string][]string) string {
	if _, ok := testSets[member]; ok {
		return member
	}

	if aliased, ok := label.Alias(member); ok {
		if _, ok := testSets[aliased]; ok {
			return aliased
		}
	}

	return member
}

func collectPlaced(trees []*WorkspaceNode, placed map[string]bool) {
	for _, t := range trees {
		placed[t.Label] = true
		collectPlaced(t.Children, placed)
	}
}

// wrapUnderWorkspaceRoot wraps the original manifest's roots and the new
// discovered trees as siblings under a synthetic Workspace root. Manifest
// roots are every label not referenced as someone else's dependency.
func wrapUnderWorkspaceRoot(manifest map[string]dag.Node, discoveredTrees []*WorkspaceNode) []*WorkspaceNode {
	referenced := make(map[string]bool)

	for _, n := range manifest {
		for _, d := range n.DependsOn {
			referenced[d] = true
		}
	}

	manifestRoots := make([]*WorkspaceNode, 0)

	for l := range manifest {
		if !referenced[l] {
			manifestRoots = append(manifestRoots, &WorkspaceNode{Label: l})
		}
	}

	children := append(manifestRoots, discoveredTrees...)

	return []*WorkspaceNode{{Label: workspaceRootLabel, Children: children}}
}

func deepCopy(manifest map[string]dag.Node) map[string]dag.Node {
	out := make(map[string]dag.Node, len(manifest))

	for k, n := range manifest {
		deps := make([]string, len(n.DependsOn))
		copy(deps, n.DependsOn)

		params := make(map[string]interface{}, len(n.Parameters))
		for pk, pv := range n.Parameters {
			params[pk] = pv
		}

		out[k] = dag.Node{
			Executable: n.Executable,
			Assertion:  n.Assertion,
			DependsOn:  deps,
			Parameters: params,
			Disabled:   n.Disabled,
		}
	}

	return out
}

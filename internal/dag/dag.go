// Package dag holds the declared mapping of test labels to their nodes and
// dependency edges, and provides cycle-safe traversal over it.
package dag

// Node is a single declared test target: its label is the map key it is
// stored under.
type Node struct {
	Executable string
	Assertion  string
	DependsOn  []string
	Parameters map[string]interface{}
	Disabled   bool
}

// Graph is a read-only (from the sweep's perspective) mapping of label to
// node. Unknown depends_on references are expected to have been filtered
// out at construction time; the zero value is an empty graph.
type Graph struct {
	nodes map[string]Node
}

// New builds a Graph from a label->Node mapping, dropping depends_on
// references to labels that are not themselves present as nodes, and
// dropping self-edges. Unknown references are discarded silently at
// construction, never surfaced as a runtime error.
func New(nodes map[string]Node) *Graph {
	g := &Graph{nodes: make(map[string]Node, len(nodes))}

	for label, n := range nodes {
		filtered := make([]string, 0, len(n.DependsOn))

		for _, dep := range n.DependsOn {
			if dep == label {
				continue
			}

			if _, exists := nodes[dep]; !exists {
				continue
			}

			filtered = append(filtered, dep)
		}

		n.DependsOn = filtered
		g.nodes[label] = n
	}

	return g
}

// Has reports whether label is a known node.
func (g *Graph) Has(label string) bool {
	_, ok := g.nodes[label]

	return ok
}

// Get returns a node and whether it exists.
func (g *Graph) Get(label string) (Node, bool) {
	n, ok := g.nodes[label]

	return n, ok
}

// Labels returns every label in the graph, in no particular order.
func (g *Graph) Labels() []string {
	out := make([]string, 0, len(g.nodes))
	for label := range g.nodes {
		out = append(out, label)
	}

	return out
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Walk visits label and its transitive dependencies exactly once each,
// calling visit for every node reached. A visited-set guards against
// cycles the manifest producer failed to avoid; Walk never recurses
// unboundedly regardless of the input's shape.
func (g *Graph) Walk(label string, visit func(string, Node)) {
	g.walk(label, visit, make(map[string]bool))
}

func (g *Graph) walk(label string, visit func(string, Node), visited map[string]bool) {
	if visited[label] {
		return
	}

	visited[label] = true

	n, ok := g.nodes[label]
	if !ok {
		return
	}

	visit(label, n)

	for _, dep := range n.DependsOn {
		g.walk(dep, visit, visited)
	}
}

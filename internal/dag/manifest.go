package dag

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// manifestNode is the YAML shape of one test entry in manifest.yaml.
type manifestNode struct {
	Executable string                 `yaml:"executable"`
	Assertion  string                 `yaml:"assertion"`
	DependsOn  []string               `yaml:"depends_on"`
	Parameters map[string]interface{} `yaml:"parameters"`
	Disabled   bool                   `yaml:"disabled"`
}

// manifestDocument is the top-level YAML shape: a single "tests" map keyed
// by label.
type manifestDocument struct {
	Tests map[string]manifestNode `yaml:"tests"`
}

// LoadManifest reads a hand-authored manifest.yaml and builds a Graph from
// it. Unlike the status store and co-occurrence graph, the manifest is
// version-controlled source of truth, so a missing or malformed file is a
// hard error rather than a silent default.
func LoadManifest(path string) (*Graph, []byte, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied, not request-derived
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var doc manifestDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	nodes := make(map[string]Node, len(doc.Tests))

	for label, n := range doc.Tests {
		nodes[label] = Node{
			Executable: n.Executable,
			Assertion:  n.Assertion,
			DependsOn:  n.DependsOn,
			Parameters: n.Parameters,
			Disabled:   n.Disabled,
		}
	}

	return New(nodes), data, nil
}

// Package inference derives advisory cross-test dependency edges from the
// features a test declares reliance on during its rigging phase, combining
// an optional explicit feature map with a case-insensitive substring
// naming convention.
package inference

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/svdh2/burnin-orchestrator/internal/dag"
)

// Edge is an advisory, never-hard dependency inferred from feature usage.
// The Inferred flag is always true and must survive any persisted or
// reported representation.
type Edge struct {
	Target   string `json:"target"`
	Feature  string `json:"feature"`
	Inferred bool   `json:"inferred"`
}

// FeatureMap is an explicit, authoritative feature-name to candidate-target
// list mapping, loaded from an optional JSON file. When present for a given
// feature it is used verbatim, bypassing the substring convention.
type FeatureMap map[string][]string

// candidatesForFeature resolves a single feature name to candidate target
// labels: an explicit feature_map entry wins outright; otherwise fall back
// to case-insensitive substring matching against target names, then
// against target assertion strings.
func candidatesForFeature(feature string, manifest *dag.Graph, featureMap FeatureMap) []string {
	if featureMap != nil {
		if targets, ok := featureMap[feature]; ok {
			return targets
		}
	}

	lowerFeature := strings.ToLower(feature)

	var byName, byAssertion []string

	for _, label := range manifest.Labels() {
		n, _ := manifest.Get(label)

		if strings.Contains(strings.ToLower(label), lowerFeature) {
			byName = append(byName, label)
			continue
		}

		if strings.Contains(strings.ToLower(n.Assertion), lowerFeature) {
			byAssertion = append(byAssertion, label)
		}
	}

	return append(byName, byAssertion...)
}

// InferDependencies computes the advisory edges for testLabel given the
// features observed in its rigging block. Self-references and edges
// already present in the test's declared depends_on are dropped; targets
// are deduplicated across features, preserving first-seen order.
func InferDependencies(testLabel string, riggingFeatures []string, manifest *dag.Graph, featureMap FeatureMap) []Edge {
	declared := make(map[string]bool)

	if n, ok := manifest.Get(testLabel); ok {
		for _, d := range n.DependsOn {
			declared[d] = true
		}
	}

	seen := make(map[string]bool)

	edges := make([]Edge, 0)

	for _, feature := range riggingFeatures {
		for _, target := range candidatesForFeature(feature, manifest, featureMap) {
			if target == testLabel {
				continue
			}

			if declared[target] {
				continue
			}

			if seen[target] {
				continue
			}

			seen[target] = true
			edges = append(edges, Edge{Target: target, Feature: feature, Inferred: true})
		}
	}

	return edges
}

// LoadFeatureMap loads a feature map from a JSON file of the form
// {"feature_name": ["target", ...]}. Returns nil, without error, when the
// file is missing or malformed — the caller falls back to the substring
// convention in that case.
func LoadFeatureMap(path string) FeatureMap {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		return nil
	}

	var fm FeatureMap
	if err := json.Unmarshal(data, &fm); err != nil {
		return nil
	}

	return fm
}

// Package cooccurrence builds and maintains a bipartite file↔commit graph
// from git history, used to estimate which tests are affected by changes to
// a given file via historical co-modification.
package cooccurrence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileClass is the classification of a tracked file.
type FileClass string

const (
	ClassSource  FileClass = "source"
	ClassTest    FileClass = "test"
	ClassIgnored FileClass = "ignored"
)

// DefaultSourceExtensions are the file extensions classified as source when
// no override is supplied.
var DefaultSourceExtensions = []string{".py", ".java", ".go", ".rs", ".ts", ".bzl"}

// DefaultTestPatterns are the basename glob patterns classified as test
// when no override is supplied. Checked before the source-extension rule.
var DefaultTestPatterns = []string{"*_test.*", "test_*.*", "*_spec.*", "*.test.*", "*.spec.*"}

// Classify determines whether path is source, test, or ignored. Test
// patterns are checked first: a file matching a test pattern is a test
// regardless of its extension.
func Classify(path string, sourceExtensions, testPatterns []string) FileClass {
	if sourceExtensions == nil {
		sourceExtensions = DefaultSourceExtensions
	}

	if testPatterns == nil {
		testPatterns = DefaultTestPatterns
	}

	base := filepath.Base(path)

	for _, pattern := range testPatterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return ClassTest
		}
	}

	ext := filepath.Ext(base)
	for _, sourceExt := range sourceExtensions {
		if ext == sourceExt {
			return ClassSource
		}
	}

	return ClassIgnored
}

type (
	// Commit is a single parsed history record: a hash, a timestamp, and
	// the files it touched.
	Commit struct {
		Hash      string
		Timestamp time.Time
		Files     []string
	}

	// CommitFiles partitions a retained commit's touched files by class
	// and records when it landed.
	CommitFiles struct {
		SourceFiles []string  `json:"source_files"`
		TestFiles   []string  `json:"test_files"`
		Timestamp   time.Time `json:"timestamp"`
	}

	// Metadata describes the provenance and classification rules used to
	// build a graph.
	Metadata struct {
		LastCommit            string   `json:"last_commit"`
		TotalCommitsAnalyzed  int      `json:"total_commits_analyzed"`
		SourceExtensions      []string `json:"source_extensions"`
		TestPatterns          []string `json:"test_patterns"`
	}

	// Graph is the bipartite file↔commit co-occurrence structure.
	Graph struct {
		FileCommits map[string][]string    `json:"file_commits"`
		CommitFiles map[string]CommitFiles `json:"commit_files"`
		Metadata    Metadata                `json:"metadata"`
	}
)

// Empty returns a freshly initialized Graph using the default
// classification rules.
func Empty() *Graph {
	return &Graph{
		FileCommits: make(map[string][]string),
		CommitFiles: make(map[string]CommitFiles),
		Metadata: Metadata{
			SourceExtensions: DefaultSourceExtensions,
			TestPatterns:     DefaultTestPatterns,
		},
	}
}

// Build constructs a graph from scratch given a list of commits.
func Build(commits []Commit, sourceExtensions, testPatterns []string) *Graph {
	g := Empty()

	if sourceExtensions != nil {
		g.Metadata.SourceExtensions = sourceExtensions
	}

	if testPatterns != nil {
		g.Metadata.TestPatterns = testPatterns
	}

	applyCommits(g, commits, sourceExtensions, testPatterns)

	return g
}

// Update incrementally applies new commits to an existing graph, skipping
// any commit hash already present. An empty newCommits list is a no-op.
func Update(g *Graph, newCommits []Commit) *Graph {
	if len(newCommits) == 0 {
		return g
	}

	sourceExtensions := g.Metadata.SourceExtensions
	testPatterns := g.Metadata.TestPatterns

	filtered := make([]Commit, 0, len(newCommits))

	for _, c := range newCommits {
		if _, seen := g.CommitFiles[c.Hash]; seen {
			continue
		}

		filtered = append(filtered, c)
	}

	applyCommits(g, filtered, sourceExtensions, testPatterns)

	return g
}

// applyCommits classifies and records each commit's files, skipping commits
// with zero source files entirely, and updates metadata counts.
func applyCommits(g *Graph, commits []Commit, sourceExtensions, testPatterns []string) {
	for _, c := range commits {
		var sourceFiles, testFiles []string

		for _, f := range c.Files {
			switch Classify(f, sourceExtensions, testPatterns) {
			case ClassSource:
				sourceFiles = append(sourceFiles, f)
			case ClassTest:
				testFiles = append(testFiles, f)
			case ClassIgnored:
				// not tracked.
			}
		}

		if len(sourceFiles) == 0 {
			continue
		}

		g.CommitFiles[c.Hash] = CommitFiles{
			SourceFiles: sourceFiles,
			TestFiles:   testFiles,
			Timestamp:   c.Timestamp,
		}

		for _, f := range c.Files {
			if !contains(g.FileCommits[f], c.Hash) {
				g.FileCommits[f] = append(g.FileCommits[f], c.Hash)
			}
		}

		g.Metadata.LastCommit = c.Hash
		g.Metadata.TotalCommitsAnalyzed++
	}
}

func contains(hashes []string, hash string) bool {
	for _, h := range hashes {
		if h == hash {
			return true
		}
	}

	return false
}

// ParseGitLog parses output in the "COMMIT <hash> <rfc3339 timestamp>\n\n<file>\n<file>\n\n"
// block format into a list of Commit records.
func ParseGitLog(output string) []Commit {
	commits := make([]Commit, 0)

	blocks := strings.Split(strings.TrimSpace(output), "COMMIT ")
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")
		header := strings.TrimSpace(lines[0])

		fields := strings.SplitN(header, " ", 2)
		if len(fields) < 2 {
			continue
		}

		hash := fields[0]

		ts, err := time.Parse(time.RFC3339, strings.TrimSpace(fields[1]))
		if err != nil {
			ts = time.Time{}
		}

		files := make([]string, 0)

		for _, line := range lines[1:] {
			trimmed := strings.TrimSpace(line)
			if trimmed != "" {
				files = append(files, trimmed)
			}
		}

		commits = append(commits, Commit{Hash: hash, Timestamp: ts, Files: files})
	}

	return commits
}

// Save serializes the graph as JSON to path, creating parent directories on
// demand.
func Save(g *Graph, path string) error {
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644) //nolint:gosec // graph is not secret material
}

// Load reads a graph from path. A missing file or malformed JSON returns
// nil (never an error) — callers treat this as "no graph yet, rebuild".
func Load(path string) *Graph {
	data, err := os.ReadFile(path) //nolint:gosec // path is operator-supplied
	if err != nil {
		return nil
	}

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil
	}

	return &g
}

package cooccurrence

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestClassifyTestPatternPriority(t *testing.T) {
	if got := Classify("checkout_test.go", nil, nil); got != ClassTest {
		t.Fatalf("Classify(checkout_test.go) = %s, want test", got)
	}
}

func TestClassifySource(t *testing.T) {
	if got := Classify("handler.go", nil, nil); got != ClassSource {
		t.Fatalf("Classify(handler.go) = %s, want source", got)
	}
}

func TestClassifyIgnored(t *testing.T) {
	cases := []string{"README.md", "config.yaml", "Dockerfile", "noext"}
	for _, f := range cases {
		if got := Classify(f, nil, nil); got != ClassIgnored {
			t.Fatalf("Classify(%q) = %s, want ignored", f, got)
		}
	}
}

func TestBuildSkipsCommitsWithoutSourceFiles(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	commits := []Commit{
		{Hash: "a", Timestamp: ts, Files: []string{"s.py", "t_test.py"}},
		{Hash: "b", Timestamp: ts, Files: []string{"README.md"}},
	}

	g := Build(commits, nil, nil)

	if len(g.CommitFiles) != 1 {
		t.Fatalf("expected only commit 'a' retained, got %+v", g.CommitFiles)
	}

	if _, ok := g.CommitFiles["a"]; !ok {
		t.Fatalf("expected commit 'a' present")
	}

	if got := g.FileCommits["s.py"]; len(got) != 1 || got[0] != "a" {
		t.Fatalf("unexpected file_commits[s.py]: %+v", got)
	}
}

func TestUpdateSkipsAlreadyProcessedCommits(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := Build([]Commit{{Hash: "a", Timestamp: ts, Files: []string{"s.py"}}}, nil, nil)

	Update(g, []Commit{
		{Hash: "a", Timestamp: ts, Files: []string{"other.py"}},
		{Hash: "b", Timestamp: ts, Files: []string{"s2.py"}},
	})

	if g.Metadata.TotalCommitsAnalyzed != 2 {
		t.Fatalf("expected 2 total commits analyzed, got %d", g.Metadata.TotalCommitsAnalyzed)
	}

	if len(g.FileCommits["other.py"]) != 0 {
		t.Fatalf("expected commit 'a' reprocessing skipped")
	}
}

func TestUpdateEmptyIsNoOp(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := Build([]Commit{{Hash: "a", Timestamp: ts, Files: []string{"s.py"}}}, nil, nil)

	before := g.Metadata.TotalCommitsAnalyzed
	Update(g, nil)

	if g.Metadata.TotalCommitsAnalyzed != before {
		t.Fatalf("expected no-op update to leave metadata unchanged")
	}
}

func TestParseGitLog(t *testing.T) {
	log := "COMMIT a 2026-01-01T00:00:00Z\n\ns.py\nt_test.py\n\nCOMMIT b 2026-01-02T00:00:00Z\n\nREADME.md\n"

	commits := ParseGitLog(log)

	if len(commits) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(commits))
	}

	if commits[0].Hash != "a" || len(commits[0].Files) != 2 {
		t.Fatalf("unexpected first commit: %+v", commits[0])
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ts := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g := Build([]Commit{{Hash: "a", Timestamp: ts, Files: []string{"s.py"}}}, nil, nil)

	path := filepath.Join(t.TempDir(), "nested", "graph.json")
	if err := Save(g, path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := Load(path)
	if loaded == nil {
		t.Fatalf("expected loaded graph, got nil")
	}

	if loaded.Metadata.TotalCommitsAnalyzed != g.Metadata.TotalCommitsAnalyzed {
		t.Fatalf("round-trip mismatch")
	}
}

func TestLoadMissingFileReturnsNil(t *testing.T) {
	if Load(filepath.Join(t.TempDir(), "missing.json")) != nil {
		t.Fatalf("expected nil for missing file")
	}
}

func TestLoadMalformedReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if Load(path) != nil {
		t.Fatalf("expected nil for malformed file")
	}
}

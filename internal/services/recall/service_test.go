package recall

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/logging"
	"github.com/Paintersrp/recall/internal/search"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func newFixture(t *testing.T) (config.Paths, *indexsvc.Service) {
	t.Helper()
	root := t.TempDir()
	workspace := filepath.Join(root, "workspace")
	paths := config.Paths{
		OpenClawHome:  root,
		Workspace:     workspace,
		Memory:        filepath.Join(workspace, "memory"),
		Conversations: filepath.Join(workspace, "conversations"),
		Sessions:      filepath.Join(root, "agents", "main", "sessions"),
	}
	files := indexsvc.NewService(paths, indexsvc.WithLogger(logging.Discard()))
	t.Cleanup(func() { _ = files.Close() })
	return paths, files
}

func TestSearchRebuildsOnlyWhenVersionChanges(t *testing.T) {
	paths, files := newFixture(t)
	writeTestFile(t, filepath.Join(paths.Memory, "2024-02-01.md"), "quarterly roadmap review")

	svc := NewService(files, nil, search.DefaultConfig(), logging.Discard())

	results, err := svc.Search(search.RawRequest{Query: "roadmap"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %+v", results)
	}

	if _, err := svc.Search(search.RawRequest{Query: "review"}); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if got := svc.Builds(); got != 1 {
		t.Fatalf("expected cached index to be reused, got %d builds", got)
	}

	writeTestFile(t, filepath.Join(paths.Memory, "2024-02-02.md"), "roadmap follow-up")
	if _, err := files.Rebuild(); err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}

	results, err = svc.Search(search.RawRequest{Query: "roadmap"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected new file to be searchable, got %+v", results)
	}
	if got := svc.Builds(); got != 2 {
		t.Fatalf("expected a rebuild after version change, got %d builds", got)
	}
}

func TestSearchValidationError(t *testing.T) {
	_, files := newFixture(t)
	svc := NewService(files, nil, search.DefaultConfig(), logging.Discard())

	_, err := svc.Search(search.RawRequest{Query: "x"})
	var verr *search.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := svc.Builds(); got != 0 {
		t.Fatalf("expected invalid request not to build an index, got %d", got)
	}
}

func TestStatsReportsCorpus(t *testing.T) {
	paths, files := newFixture(t)
	writeTestFile(t, filepath.Join(paths.Workspace, "MEMORY.md"), "long term")
	writeTestFile(t, filepath.Join(paths.Sessions, "s1.jsonl"),
		`{"type":"message","message":{"role":"user","content":"hello"}}`+"\n"+
			`{"type":"message","message":{"role":"assistant","content":"hi there"}}`+"\n")

	svc := NewService(files, nil, search.DefaultConfig(), logging.Discard())
	stats := svc.Stats()

	if stats.Files != 1 || stats.Sessions != 1 || stats.Documents != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.Version != files.Version() {
		t.Fatalf("expected version %d, got %d", files.Version(), stats.Version)
	}
	if len(stats.Categories) != 2 {
		t.Fatalf("expected Workspace and Sessions, got %v", stats.Categories)
	}
}

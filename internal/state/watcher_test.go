package state

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/logging"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
	seen  chan string
}

func (r *recorder) notify(path string) {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	select {
	case r.seen <- path:
	default:
	}
}

func waitFor(t *testing.T, r *recorder, want string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-r.seen:
			if got == want {
				return
			}
		case <-deadline:
			r.mu.Lock()
			defer r.mu.Unlock()
			t.Fatalf("timed out waiting for %s, saw %v", want, r.paths)
		}
	}
}

func TestRootWatcherForwardsEvents(t *testing.T) {
	root := t.TempDir()
	workspace := filepath.Join(root, "workspace")
	paths := config.Paths{
		Workspace: workspace,
		Memory:    filepath.Join(workspace, "memory"),
		Sessions:  filepath.Join(root, "sessions"),
	}
	if err := os.MkdirAll(paths.Memory, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	w, err := NewRootWatcher(paths, 4, logging.Discard())
	if err != nil {
		t.Fatalf("NewRootWatcher returned error: %v", err)
	}
	defer w.Close()

	rec := &recorder{seen: make(chan string, 64)}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Watch(ctx, rec.notify); err != nil {
		t.Fatalf("Watch returned error: %v", err)
	}

	report := filepath.Join(workspace, "report.md")
	if err := os.WriteFile(report, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, rec, report)

	nested := filepath.Join(paths.Memory, "projects")
	if err := os.Mkdir(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}
	waitFor(t, rec, nested)

	// Give the watcher a moment to register the new directory.
	time.Sleep(100 * time.Millisecond)
	note := filepath.Join(nested, "alpha.md")
	if err := os.WriteFile(note, []byte("alpha"), 0o644); err != nil {
		t.Fatalf("write nested: %v", err)
	}
	waitFor(t, rec, note)
}

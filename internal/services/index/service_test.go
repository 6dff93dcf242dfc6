package index

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Paintersrp/recall/internal/catalog"
	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/logging"
)

func writeTestFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func testPaths(t *testing.T) config.Paths {
	t.Helper()
	root := t.TempDir()
	workspace := filepath.Join(root, "workspace")
	return config.Paths{
		OpenClawHome:  root,
		Workspace:     workspace,
		Memory:        filepath.Join(workspace, "memory"),
		Conversations: filepath.Join(workspace, "conversations"),
		Sessions:      filepath.Join(root, "agents", "main", "sessions"),
	}
}

type countingScanner struct {
	calls atomic.Int32
	files []catalog.File
}

func (c *countingScanner) Scan() []catalog.File {
	c.calls.Add(1)
	return append([]catalog.File(nil), c.files...)
}

type fakeWatcher struct {
	mu     sync.Mutex
	notify func(string)
	closed bool
}

func (w *fakeWatcher) Watch(_ context.Context, notify func(string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notify = notify
	return nil
}

func (w *fakeWatcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWatcher) emit(path string) {
	w.mu.Lock()
	notify := w.notify
	w.mu.Unlock()
	notify(path)
}

func TestRebuildIncrementsVersion(t *testing.T) {
	paths := testPaths(t)
	svc := NewService(paths, WithScanner(&countingScanner{}), WithLogger(logging.Discard()))
	defer svc.Close()

	var last int64
	for i := 0; i < 3; i++ {
		snap, err := svc.Rebuild()
		if err != nil {
			t.Fatalf("Rebuild returned error: %v", err)
		}
		if snap.Version <= last {
			t.Fatalf("expected version to increase past %d, got %d", last, snap.Version)
		}
		last = snap.Version
	}
	if got := svc.Stats().Version; got != last {
		t.Fatalf("expected stats version %d, got %d", last, got)
	}
}

func TestSnapshotReturnsIndependentCopy(t *testing.T) {
	paths := testPaths(t)
	writeTestFile(t, filepath.Join(paths.Memory, "a.md"), "alpha")
	svc := NewService(paths, WithLogger(logging.Discard()))
	defer svc.Close()

	first := svc.Snapshot()
	if len(first.Files) != 1 {
		t.Fatalf("expected one file, got %+v", first.Files)
	}
	first.Files[0].Name = "mutated"
	first.Files = append(first.Files, catalog.File{Name: "extra"})

	second := svc.Snapshot()
	if len(second.Files) != 1 || second.Files[0].Name != "a.md" {
		t.Fatalf("expected snapshot to be unaffected by caller mutation, got %+v", second.Files)
	}
	if second.Version != first.Version {
		t.Fatalf("expected Snapshot not to rebuild, got versions %d and %d", first.Version, second.Version)
	}
}

func TestNotifyCoalescesBurstIntoOneRebuild(t *testing.T) {
	paths := testPaths(t)
	scanner := &countingScanner{}
	svc := NewService(paths,
		WithScanner(scanner),
		WithDebounce(100*time.Millisecond),
		WithLogger(logging.Discard()),
	)
	defer svc.Close()

	published := make(chan Snapshot, 8)
	unsubscribe := svc.Subscribe(func(s Snapshot) { published <- s })
	defer unsubscribe()

	target := filepath.Join(paths.Memory, "note.md")
	for i := 0; i < 5; i++ {
		if !svc.Notify(target) {
			t.Fatalf("expected event %d to be accepted", i)
		}
	}
	if got := svc.Stats().Pending; got != 5 {
		t.Fatalf("expected 5 pending events, got %d", got)
	}

	select {
	case snap := <-published:
		if snap.Version != 1 {
			t.Fatalf("expected first version, got %d", snap.Version)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for debounced rebuild")
	}

	select {
	case snap := <-published:
		t.Fatalf("expected a single rebuild, got another at version %d", snap.Version)
	case <-time.After(150 * time.Millisecond):
	}

	if got := scanner.calls.Load(); got != 1 {
		t.Fatalf("expected exactly one scan, got %d", got)
	}
	if got := svc.Stats().Pending; got != 0 {
		t.Fatalf("expected pending to reset, got %d", got)
	}
}

func TestNotifyIgnoresIrrelevantPaths(t *testing.T) {
	paths := testPaths(t)
	svc := NewService(paths, WithScanner(&countingScanner{}), WithLogger(logging.Discard()))
	defer svc.Close()

	for _, p := range []string{
		filepath.Join(paths.Memory, ".hidden.md"),
		filepath.Join(paths.Memory, "x.deleted.md"),
		filepath.Join(paths.Sessions, "sessions.json"),
		filepath.Join(paths.Workspace, "image.png"),
	} {
		if svc.Notify(p) {
			t.Fatalf("expected %s to be ignored", p)
		}
	}
	if got := svc.Stats().Pending; got != 0 {
		t.Fatalf("expected nothing pending, got %d", got)
	}
}

func TestStartWiresWatcherEvents(t *testing.T) {
	paths := testPaths(t)
	watcher := &fakeWatcher{}
	svc := NewService(paths,
		WithScanner(&countingScanner{}),
		WithWatcher(watcher),
		WithDebounce(10*time.Millisecond),
		WithLogger(logging.Discard()),
	)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	if got := svc.Version(); got != 1 {
		t.Fatalf("expected initial version 1, got %d", got)
	}

	done := make(chan struct{}, 1)
	svc.Subscribe(func(Snapshot) { done <- struct{}{} })
	watcher.emit(filepath.Join(paths.Sessions, "abc.jsonl"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for watcher-triggered rebuild")
	}

	if err := svc.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !watcher.closed {
		t.Fatalf("expected Close to stop the watcher")
	}
}

func TestChangesReportsVersionMovement(t *testing.T) {
	paths := testPaths(t)
	svc := NewService(paths, WithScanner(&countingScanner{}), WithLogger(logging.Discard()))
	defer svc.Close()

	snap, err := svc.Rebuild()
	if err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if change := svc.Changes(snap.Version); change.Changed {
		t.Fatalf("expected no change at current version, got %+v", change)
	}
	if change := svc.Changes(snap.Version - 1); !change.Changed || change.Version != snap.Version {
		t.Fatalf("expected change to version %d, got %+v", snap.Version, change)
	}
}

func TestReadFileConstrainedToRoots(t *testing.T) {
	paths := testPaths(t)
	inside := writeTestFile(t, filepath.Join(paths.Memory, "note.md"), "inside")
	outside := writeTestFile(t, filepath.Join(t.TempDir(), "secret.md"), "secret")

	svc := NewService(paths, WithLogger(logging.Discard()))
	defer svc.Close()

	content, err := svc.ReadFile(inside)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if content != "inside" {
		t.Fatalf("unexpected content %q", content)
	}

	for _, p := range []string{
		outside,
		filepath.Join(paths.Memory, "..", "..", "..", "etc", "passwd"),
		filepath.Join(paths.Memory, "..", "..", "missing-outside.md"),
	} {
		if _, err := svc.ReadFile(p); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden for %s, got %v", p, err)
		}
	}

	if _, err := svc.ReadFile(filepath.Join(paths.Memory, "missing.md")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected not-exist for a missing file inside roots, got %v", err)
	}
}

func TestReadFileRejectsSymlinkEscape(t *testing.T) {
	paths := testPaths(t)
	outside := writeTestFile(t, filepath.Join(t.TempDir(), "secret.md"), "secret")
	if err := os.MkdirAll(paths.Memory, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	link := filepath.Join(paths.Memory, "link.md")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	svc := NewService(paths, WithLogger(logging.Discard()))
	defer svc.Close()

	if _, err := svc.ReadFile(link); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for symlink escape, got %v", err)
	}
}

func TestCloseStopsService(t *testing.T) {
	paths := testPaths(t)
	svc := NewService(paths, WithScanner(&countingScanner{}), WithLogger(logging.Discard()))

	if err := svc.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if _, err := svc.Rebuild(); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
	if svc.Notify(filepath.Join(paths.Memory, "a.md")) {
		t.Fatalf("expected Notify to be ignored after Close")
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("expected repeated Close to succeed, got %v", err)
	}
}

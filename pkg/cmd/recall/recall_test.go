package recall

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/fzf"
	"github.com/Paintersrp/recall/internal/logging"
	"github.com/Paintersrp/recall/internal/search"
	"github.com/Paintersrp/recall/internal/state"
)

func newTestState(t *testing.T) *state.State {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	openclaw := t.TempDir()
	t.Setenv("OPENCLAW_HOME", openclaw)

	memory := filepath.Join(openclaw, "workspace", "memory")
	if err := os.MkdirAll(memory, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	note := "# Travel\n\nBooked the ferry to the island for Friday.\n"
	if err := os.WriteFile(filepath.Join(memory, "2024-07-01.md"), []byte(note), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}

	st, err := state.New(config.Default(), logging.Discard(), nil)
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func execute(t *testing.T, st *state.State, args ...string) string {
	t.Helper()
	cmd := NewCmdRecall(st)
	cmd.SetArgs(args)
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("recall returned error: %v\noutput: %s", err, output.String())
	}
	return output.String()
}

func TestRecallJSON(t *testing.T) {
	st := newTestState(t)
	out := execute(t, st, "ferry", "--json", "--category", "memory")

	var results []search.Result
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	if len(results) != 1 || results[0].Name != "2024-07-01.md" {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestRecallPrintsAndCopies(t *testing.T) {
	st := newTestState(t)

	var copied string
	original := writeClipboard
	writeClipboard = func(text string) error {
		copied = text
		return nil
	}
	t.Cleanup(func() { writeClipboard = original })

	out := execute(t, st, "fery", "--copy")
	if !strings.Contains(out, "2024-07-01.md") {
		t.Fatalf("expected result in output, got %q", out)
	}
	if !strings.Contains(copied, "ferry") {
		t.Fatalf("expected context on clipboard, got %q", copied)
	}
}

func TestRecallInteractiveUsesPicker(t *testing.T) {
	st := newTestState(t)

	original := picker
	picker = func(_ *state.State, results []search.Result, query string) (fzf.Item, error) {
		items := fzf.FromResults(results)
		return items[0], nil
	}
	t.Cleanup(func() { picker = original })

	out := execute(t, st, "island", "-i")
	if !strings.HasSuffix(strings.TrimSpace(out), "2024-07-01.md") {
		t.Fatalf("expected selected path, got %q", out)
	}
}

func TestRecallRejectsShortQuery(t *testing.T) {
	st := newTestState(t)
	cmd := NewCmdRecall(st)
	cmd.SetArgs([]string{"x"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected validation error")
	}
}

package show

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/logging"
	"github.com/Paintersrp/recall/internal/state"
)

func newTestState(t *testing.T) (*state.State, string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	openclaw := t.TempDir()
	t.Setenv("OPENCLAW_HOME", openclaw)

	memory := filepath.Join(openclaw, "workspace", "memory")
	if err := os.MkdirAll(memory, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(memory, "2024-05-06.md"), []byte("# Monday\n\n**ferry** booked\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(openclaw, "secret.md"), []byte("nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	st, err := state.New(config.Default(), logging.Discard(), nil)
	if err != nil {
		t.Fatalf("state.New: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, openclaw
}

func run(st *state.State, args ...string) (string, error) {
	c := NewCmdShow(st)
	c.SetArgs(args)
	var output bytes.Buffer
	c.SetOut(&output)
	c.SetErr(&output)
	err := c.Execute()
	return output.String(), err
}

func TestShowPrintsRawWhenNotTerminal(t *testing.T) {
	st, _ := newTestState(t)
	out, err := run(st, "2024-05-06.md", "--root", "memory")
	if err != nil {
		t.Fatalf("show returned error: %v", err)
	}
	if out != "# Monday\n\n**ferry** booked\n" {
		t.Fatalf("expected raw content, got %q", out)
	}
}

func TestShowRendersForTerminals(t *testing.T) {
	st, _ := newTestState(t)
	original := isTerminal
	isTerminal = func(io.Writer) bool { return true }
	t.Cleanup(func() { isTerminal = original })

	out, err := run(st, "memory/2024-05-06.md")
	if err != nil {
		t.Fatalf("show returned error: %v", err)
	}
	if strings.Contains(out, "**ferry**") || !strings.Contains(out, "ferry") {
		t.Fatalf("expected rendered markdown, got %q", out)
	}
}

func TestShowRefusesPathsOutsideRoots(t *testing.T) {
	st, openclaw := newTestState(t)
	if _, err := run(st, filepath.Join(openclaw, "secret.md")); err == nil {
		t.Fatalf("expected an error for a path outside the roots")
	}
}

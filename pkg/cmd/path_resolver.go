package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Paintersrp/recall/internal/pathutil"
	"github.com/Paintersrp/recall/internal/state"
)

// ResolvePath turns a command argument into an absolute path inside one of
// the configured roots. Relative paths are taken from the root named by the
// command's --root flag, or the workspace when the flag is absent.
func ResolvePath(cmd *cobra.Command, s *state.State, arg string) (string, error) {
	if s == nil || s.Config == nil {
		return "", fmt.Errorf("state configuration is not initialized")
	}
	if s.Paths.Workspace == "" {
		return "", fmt.Errorf("workspace directory is not configured")
	}
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("a path argument is required")
	}

	var resolved string
	if filepath.IsAbs(arg) {
		resolved = filepath.Clean(arg)
	} else {
		base, err := baseDir(cmd, s)
		if err != nil {
			return "", err
		}
		resolved = filepath.Join(base, filepath.Clean(arg))
	}

	if err := ensureWithinRoots(s, resolved); err != nil {
		return "", err
	}

	return resolved, nil
}

func baseDir(cmd *cobra.Command, s *state.State) (string, error) {
	root := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("root"); flag != nil {
			root = strings.ToLower(strings.TrimSpace(flag.Value.String()))
		}
	}

	switch root {
	case "", "workspace":
		return s.Paths.Workspace, nil
	case "memory":
		return s.Paths.Memory, nil
	case "conversations":
		return s.Paths.Conversations, nil
	case "sessions":
		return s.Paths.Sessions, nil
	default:
		return "", fmt.Errorf("unknown root %q (want workspace, memory, conversations or sessions)", root)
	}
}

func ensureWithinRoots(s *state.State, resolved string) error {
	for _, root := range s.Paths.Roots() {
		if pathutil.Within(root, resolved) {
			return nil
		}
	}
	return fmt.Errorf("path %q is outside the configured roots", resolved)
}

package pathutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// NormalizePath converts Windows-style separators to the current platform's separator
// and cleans the resulting path.
func NormalizePath(p string) string {
	if p == "" {
		return ""
	}

	replaced := strings.ReplaceAll(p, "\\", "/")
	return filepath.Clean(filepath.FromSlash(replaced))
}

// ExpandHome replaces a leading "~" with the provided home directory and
// returns an absolute, cleaned path.
func ExpandHome(p, home string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		return ""
	}

	switch {
	case trimmed == "~":
		trimmed = home
	case strings.HasPrefix(trimmed, "~/"), strings.HasPrefix(trimmed, "~\\"):
		trimmed = filepath.Join(home, trimmed[2:])
	}

	normalized := NormalizePath(trimmed)
	if abs, err := filepath.Abs(normalized); err == nil {
		return abs
	}
	return normalized
}

// Relative returns the path to target relative to the provided root directory.
// The returned path always uses forward slashes to simplify downstream processing
// and ensure platform agnosticism.
func Relative(root, target string) (string, error) {
	base := NormalizePath(root)
	cleanedTarget := NormalizePath(target)

	rel, err := filepath.Rel(base, cleanedTarget)
	if err != nil {
		return "", err
	}

	return filepath.ToSlash(rel), nil
}

// Within reports whether target is root itself or lives underneath it. Both
// paths are resolved through symlinks when they exist so a link inside a root
// cannot be used to escape it.
func Within(root, target string) bool {
	if root == "" || target == "" {
		return false
	}

	base := resolve(NormalizePath(root))
	candidate := resolve(NormalizePath(target))

	rel, err := filepath.Rel(base, candidate)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, "../"))
}

// Depth returns the number of path segments between root and target, or -1
// when target is outside root.
func Depth(root, target string) int {
	rel, err := Relative(root, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return -1
	}
	if rel == "." {
		return 0
	}
	return strings.Count(rel, "/") + 1
}

func resolve(p string) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = p
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return abs
	}

	// Resolve the deepest existing ancestor so a missing leaf under a
	// symlinked directory still compares against the real location.
	dir, leaf := filepath.Split(abs)
	dir = filepath.Clean(dir)
	if dir == abs {
		return abs
	}
	return filepath.Join(resolve(dir), leaf)
}

// IsHidden reports whether a file or directory name is dot-prefixed.
func IsHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

// DirExists reports whether the path exists and is a directory.
func DirExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.IsDir()
}

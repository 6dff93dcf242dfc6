package catalog

import (
	"path/filepath"
	"strings"

	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/pathutil"
)

// Root is a directory the watcher monitors.
type Root struct {
	Path      string
	Recursive bool
}

// Roots lists the watch roots for a layout: the workspace root on its own,
// the other directories recursively.
func Roots(paths config.Paths) []Root {
	roots := make([]Root, 0, 4)
	seen := make(map[string]struct{}, 4)
	add := func(path string, recursive bool) {
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		roots = append(roots, Root{Path: path, Recursive: recursive})
	}

	add(paths.Workspace, false)
	add(paths.Memory, true)
	add(paths.Conversations, true)
	add(paths.Sessions, true)
	return roots
}

// IsRelevant reports whether a filesystem event at path can change the
// catalog. Hidden and soft-deleted entries never are; markdown counts under
// the workspace root, memory and conversations; transcripts count under the
// sessions directory. Extension-less names below the recursive roots are
// treated as directories, whose creation or removal changes the listing.
func IsRelevant(paths config.Paths, path string) bool {
	cleaned := pathutil.NormalizePath(path)
	name := filepath.Base(cleaned)
	if name == "" || pathutil.IsHidden(name) || IsSoftDeleted(name) {
		return false
	}

	ext := strings.ToLower(filepath.Ext(name))

	switch {
	case underVisible(paths.Sessions, cleaned):
		return ext == constants.TranscriptExt || ext == ""
	case underVisible(paths.Memory, cleaned), underVisible(paths.Conversations, cleaned):
		return ext == constants.MarkdownExt || ext == ""
	case paths.Workspace != "" && pathutil.NormalizePath(filepath.Dir(cleaned)) == pathutil.NormalizePath(paths.Workspace):
		return ext == constants.MarkdownExt
	}
	return false
}

// underVisible reports whether path sits strictly below root without
// crossing a hidden or soft-deleted directory.
func underVisible(root, path string) bool {
	if root == "" || !pathutil.Within(root, path) {
		return false
	}
	rel, err := pathutil.Relative(root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, segment := range strings.Split(rel, "/") {
		if pathutil.IsHidden(segment) || IsSoftDeleted(segment) {
			return false
		}
	}
	return true
}

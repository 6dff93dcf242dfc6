// Package catalog walks the configured OpenClaw directories and produces the
// flat list of files the browser can show and index.
package catalog

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Paintersrp/recall/internal/config"
	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/pathutil"
)

type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Category is the raw, UI-facing grouping of a file.
type Category string

const (
	CategoryMemory        Category = "Memory"
	CategoryConversations Category = "Conversations"
	CategoryLongTerm      Category = "Long-term"
	CategoryWorkspaceDocs Category = "Workspace Docs"
	CategoryReports       Category = "Reports"
	CategorySessions      Category = "Sessions"
)

// Categories lists every raw category in display order.
var Categories = []Category{
	CategoryLongTerm,
	CategoryWorkspaceDocs,
	CategoryReports,
	CategoryMemory,
	CategoryConversations,
	CategorySessions,
}

// File describes one catalog entry.
type File struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Category Category `json:"category"`
	Kind     Kind     `json:"kind"`
}

// Scanner produces catalog listings for a fixed directory layout.
type Scanner struct {
	paths    config.Paths
	maxDepth int
	logger   *slog.Logger
}

// NewScanner constructs a scanner. maxDepth bounds recursion below the
// memory, conversations and sessions directories.
func NewScanner(paths config.Paths, maxDepth int, logger *slog.Logger) *Scanner {
	if maxDepth <= 0 {
		maxDepth = constants.DefaultWatchDepth
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{paths: paths, maxDepth: maxDepth, logger: logger}
}

// Paths returns the directory layout the scanner reads.
func (s *Scanner) Paths() config.Paths {
	return s.paths
}

// Scan lists every indexable file. Missing roots contribute nothing and
// unreadable entries are logged and skipped.
func (s *Scanner) Scan() []File {
	grouped := make(map[Category][]File, len(Categories))

	for _, f := range s.scanWorkspaceRoot() {
		grouped[f.Category] = append(grouped[f.Category], f)
	}
	grouped[CategoryMemory] = s.scanTree(s.paths.Memory, CategoryMemory, constants.MarkdownExt)
	grouped[CategoryConversations] = s.scanTree(s.paths.Conversations, CategoryConversations, constants.MarkdownExt)
	grouped[CategorySessions] = s.scanTree(s.paths.Sessions, CategorySessions, constants.TranscriptExt)

	seen := make(map[string]struct{})
	files := make([]File, 0)
	for _, category := range Categories {
		group := grouped[category]
		sort.Slice(group, func(i, j int) bool {
			return group[i].Path < group[j].Path
		})
		for _, f := range group {
			if _, dup := seen[f.Path]; dup {
				continue
			}
			seen[f.Path] = struct{}{}
			files = append(files, f)
		}
	}
	return files
}

func (s *Scanner) scanWorkspaceRoot() []File {
	root := s.paths.Workspace
	if root == "" {
		return nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("catalog: cannot list workspace", "path", root, "error", err)
		}
		return nil
	}

	docs := make(map[string]struct{}, len(constants.WorkspaceDocs))
	for _, name := range constants.WorkspaceDocs {
		docs[name] = struct{}{}
	}

	files := make([]File, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if !Included(name, constants.MarkdownExt) {
			continue
		}
		path := filepath.Join(root, name)
		if !s.isRegular(path, entry) {
			continue
		}

		category := CategoryReports
		switch _, isDoc := docs[name]; {
		case name == constants.LongTermMemoryFile:
			category = CategoryLongTerm
		case isDoc:
			category = CategoryWorkspaceDocs
		}

		files = append(files, File{Name: name, Path: path, Category: category, Kind: KindFile})
	}
	return files
}

func (s *Scanner) scanTree(root string, category Category, ext string) []File {
	if root == "" {
		return nil
	}
	if _, err := os.Stat(root); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("catalog: cannot stat root", "path", root, "error", err)
		}
		return nil
	}

	files := make([]File, 0)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("catalog: skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}

		name := d.Name()
		depth := pathutil.Depth(root, path)

		if d.IsDir() {
			if pathutil.IsHidden(name) || IsSoftDeleted(name) || depth > s.maxDepth {
				return filepath.SkipDir
			}
			files = append(files, File{Name: name, Path: path, Category: category, Kind: KindDirectory})
			return nil
		}

		if depth > s.maxDepth || !Included(name, ext) {
			return nil
		}
		if !s.isRegular(path, d) {
			return nil
		}
		files = append(files, File{Name: name, Path: path, Category: category, Kind: KindFile})
		return nil
	})
	if err != nil {
		s.logger.Warn("catalog: walk aborted", "path", root, "error", err)
	}
	return files
}

func (s *Scanner) isRegular(path string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("catalog: skipping broken link", "path", path, "error", err)
		return false
	}
	return info.Mode().IsRegular()
}

// Included applies the inclusion rules shared by the scanner and the watch
// filter: visible, not soft-deleted, and carrying the wanted extension.
func Included(name, ext string) bool {
	if name == "" || pathutil.IsHidden(name) || IsSoftDeleted(name) {
		return false
	}
	return strings.EqualFold(filepath.Ext(name), ext)
}

// IsSoftDeleted reports whether a name carries the soft-delete marker.
func IsSoftDeleted(name string) bool {
	return strings.Contains(name, constants.DeletedMarker)
}

// Scan lists the files under paths using the default depth bound.
func Scan(paths config.Paths, logger *slog.Logger) []File {
	return NewScanner(paths, constants.DefaultWatchDepth, logger).Scan()
}

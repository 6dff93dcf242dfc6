package search

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"

	"github.com/Paintersrp/recall/internal/cache"
	"github.com/Paintersrp/recall/internal/catalog"
)

const (
	DefaultSimpleLimit = 20
	MaxSimpleLimit     = 100
)

// SimpleResult is a hit from the lightweight markdown search.
type SimpleResult struct {
	Path      string           `json:"path"`
	Name      string           `json:"name"`
	Category  catalog.Category `json:"category"`
	Snippet   string           `json:"snippet,omitempty"`
	MatchFrom string           `json:"matchFrom"`
}

type fileNames []catalog.File

func (f fileNames) String(i int) string { return f[i].Name }
func (f fileNames) Len() int            { return len(f) }

// SimpleSearch looks for query in markdown file names and bodies. Name
// matches come first in fuzzy score order, then content hits in catalog
// order. Transcripts are not searched.
func SimpleSearch(files []catalog.File, reader cache.Reader, query string, limit int, logger *slog.Logger) []SimpleResult {
	query = strings.TrimSpace(query)
	results := make([]SimpleResult, 0)
	if query == "" {
		return results
	}
	if limit <= 0 {
		limit = DefaultSimpleLimit
	}
	if limit > MaxSimpleLimit {
		limit = MaxSimpleLimit
	}
	if reader == nil {
		reader = cache.OSReader{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	notes := make(fileNames, 0, len(files))
	for _, f := range files {
		if f.Kind == catalog.KindFile && f.Category != catalog.CategorySessions {
			notes = append(notes, f)
		}
	}

	seen := make(map[string]struct{})
	for _, m := range fuzzy.FindFrom(query, notes) {
		if len(results) >= limit {
			return results
		}
		f := notes[m.Index]
		seen[f.Path] = struct{}{}
		results = append(results, SimpleResult{Path: f.Path, Name: f.Name, Category: f.Category, MatchFrom: "name"})
	}

	termLen := utf8.RuneCountInString(query)
	for _, f := range notes {
		if len(results) >= limit {
			break
		}
		if _, dup := seen[f.Path]; dup {
			continue
		}

		content, err := reader.Read(f.Path)
		if err != nil {
			logger.Warn("search: skipping unreadable file", "path", f.Path, "error", err)
			continue
		}

		at := indexFold(content, query)
		if at < 0 {
			continue
		}
		results = append(results, SimpleResult{
			Path:      f.Path,
			Name:      f.Name,
			Category:  f.Category,
			Snippet:   bodySnippet(content, utf8.RuneCountInString(content[:at]), termLen),
			MatchFrom: "content",
		})
	}
	return results
}

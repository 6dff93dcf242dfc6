package fzf

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/muesli/termenv"

	"github.com/Paintersrp/recall/internal/cache"
	"github.com/Paintersrp/recall/internal/catalog"
	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/recall"
	"github.com/Paintersrp/recall/internal/search"
	"github.com/Paintersrp/recall/utils"
)

var ErrNoSelection = errors.New("no item selected")

// Item is one selectable row. Preview is rendered as markdown; when it is
// empty the file at Path is read instead.
type Item struct {
	Title   string
	Path    string
	Preview string
}

// FuzzyFinder encapsulates the fuzzy finder functionality
type FuzzyFinder struct {
	Header string
	items  []Item
	reader cache.Reader
	out    io.Writer
}

func NewFuzzyFinder(items []Item, reader cache.Reader, header string) *FuzzyFinder {
	if reader == nil {
		reader = cache.OSReader{}
	}
	return &FuzzyFinder{Header: header, items: items, reader: reader, out: io.Discard}
}

// FromResults turns recall results into items previewing their context.
func FromResults(results []search.Result) []Item {
	items := make([]Item, 0, len(results))
	for _, r := range results {
		preview := r.Context
		if preview == "" {
			preview = r.Excerpt
		}
		items = append(items, Item{
			Title:   fmt.Sprintf("%s [%s] %.2f", recall.DisplayName(r.Name), r.Category, r.Score),
			Path:    r.Path,
			Preview: preview,
		})
	}
	return items
}

// FromFiles lists catalog files; directories are left out.
func FromFiles(files []catalog.File) []Item {
	items := make([]Item, 0, len(files))
	for _, f := range files {
		if f.Kind != catalog.KindFile {
			continue
		}
		items = append(items, Item{
			Title: fmt.Sprintf("%s [%s]", recall.DisplayName(f.Name), f.Category),
			Path:  f.Path,
		})
	}
	return items
}

// SetOutput sets where selection errors are reported.
func (f *FuzzyFinder) SetOutput(w io.Writer) {
	f.out = w
}

func (f *FuzzyFinder) Run(query string) (Item, error) {
	if len(f.items) == 0 {
		return Item{}, ErrNoSelection
	}

	idx, err := f.fuzzySelect(query)
	if err != nil {
		f.handleFuzzySelectError(err)
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return Item{}, ErrNoSelection
		}
		return Item{}, err
	}
	if idx == -1 {
		return Item{}, ErrNoSelection
	}
	return f.items[idx], nil
}

func (f *FuzzyFinder) fuzzySelect(query string) (int, error) {
	options := []fuzzyfinder.Option{
		fuzzyfinder.WithPreviewWindow(f.renderMarkdownPreview),
	}

	if query != "" {
		options = append(options, fuzzyfinder.WithQuery(query))
	}

	if f.Header != "" {
		options = append(options, fuzzyfinder.WithHeader(f.Header))
	}

	return fuzzyfinder.Find(f.items, func(i int) string {
		return f.items[i].Title
	}, options...)
}

func (f *FuzzyFinder) renderMarkdownPreview(i, w, h int) string {
	if i == -1 {
		return ""
	}
	return f.Preview(f.items[i], w)
}

// Preview renders the item as it appears in the preview pane.
func (f *FuzzyFinder) Preview(item Item, width int) string {
	content := item.Preview
	if content == "" {
		read, err := f.reader.Read(item.Path)
		if err != nil {
			return "Error reading file"
		}
		content = read
	}
	if strings.EqualFold(filepath.Ext(item.Path), constants.TranscriptExt) && item.Preview == "" {
		return content
	}

	markdown, err := utils.RenderMarkdown(content, width, termenv.ANSI256)
	if err != nil {
		return "Error rendering markdown"
	}
	return markdown
}

// handleFuzzySelectError prints appropriate messages for fuzzy select errors
func (f *FuzzyFinder) handleFuzzySelectError(err error) {
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		fmt.Fprintln(f.out, "No item selected")
	} else {
		fmt.Fprintln(f.out, "Error selecting item:", err)
	}
}

// Package recall turns a catalog snapshot into the document corpus the
// fuzzy index is built from.
package recall

import (
	"time"

	"github.com/Paintersrp/recall/internal/catalog"
)

type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindSession  Kind = "session"
)

// Category is the coarse grouping used for recall filtering.
type Category string

const (
	CategoryMemory        Category = "Memory"
	CategoryConversations Category = "Conversations"
	CategoryWorkspace     Category = "Workspace"
	CategorySessions      Category = "Sessions"
)

// Categories lists recall categories in canonical order.
var Categories = []Category{
	CategoryMemory,
	CategoryConversations,
	CategoryWorkspace,
	CategorySessions,
}

// Document is one searchable unit: a whole markdown file or a single chat
// message from a transcript.
type Document struct {
	ID            string   `json:"id"`
	Kind          Kind     `json:"kind"`
	Path          string   `json:"path"`
	Name          string   `json:"name"`
	Category      Category `json:"category"`
	Content       string   `json:"content"`
	ContextSource string   `json:"contextSource,omitempty"`
	TimestampMs   *int64   `json:"timestampMs"`
}

// Time returns the document timestamp, if known.
func (d Document) Time() (time.Time, bool) {
	if d.TimestampMs == nil {
		return time.Time{}, false
	}
	return time.UnixMilli(*d.TimestampMs).UTC(), true
}

// Corpus is the document set derived from one snapshot version.
type Corpus struct {
	Version              int64      `json:"version"`
	UpdatedAt            time.Time  `json:"updatedAt"`
	BuiltAt              time.Time  `json:"builtAt"`
	Documents            []Document `json:"-"`
	TotalIndexedFiles    int        `json:"totalIndexedFiles"`
	TotalIndexedSessions int        `json:"totalIndexedSessions"`
	Categories           []Category `json:"categories"`
}

// MapCategory folds a raw catalog category into its recall category.
func MapCategory(c catalog.Category) (Category, bool) {
	switch c {
	case catalog.CategoryMemory:
		return CategoryMemory, true
	case catalog.CategoryConversations:
		return CategoryConversations, true
	case catalog.CategoryLongTerm, catalog.CategoryWorkspaceDocs, catalog.CategoryReports:
		return CategoryWorkspace, true
	case catalog.CategorySessions:
		return CategorySessions, true
	}
	return "", false
}

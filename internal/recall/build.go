package recall

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Paintersrp/recall/internal/cache"
	"github.com/Paintersrp/recall/internal/catalog"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
	"github.com/Paintersrp/recall/internal/transcript"
)

const (
	contextRadius = 2
	centerMarker  = "▶ "
	partSeparator = "\n\n"
)

var filenameDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// Builder assembles corpora. The zero value reads straight from disk and
// logs to the default logger.
type Builder struct {
	Reader cache.Reader
	Logger *slog.Logger
	Now    func() time.Time
}

// Build derives the recall corpus for a snapshot using the default builder
// settings and the given reader.
func Build(snap indexsvc.Snapshot, reader cache.Reader, logger *slog.Logger) Corpus {
	b := Builder{Reader: reader, Logger: logger}
	return b.Build(snap)
}

// Build derives the recall corpus for a snapshot. Unreadable files and
// malformed transcript lines are logged and skipped.
func (b Builder) Build(snap indexsvc.Snapshot) Corpus {
	reader := b.Reader
	if reader == nil {
		reader = cache.OSReader{}
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.Now
	if now == nil {
		now = time.Now
	}

	corpus := Corpus{
		Version:   snap.Version,
		UpdatedAt: snap.UpdatedAt,
		Documents: make([]Document, 0, len(snap.Files)),
	}
	present := make(map[Category]bool, len(Categories))

	for _, file := range snap.Files {
		if file.Kind != catalog.KindFile {
			continue
		}
		category, ok := MapCategory(file.Category)
		if !ok {
			continue
		}

		content, err := reader.Read(file.Path)
		if err != nil {
			logger.Warn("recall: skipping unreadable file", "path", file.Path, "error", err)
			continue
		}

		if category == CategorySessions {
			docs := sessionDocuments(file, content, logger)
			if len(docs) == 0 {
				continue
			}
			corpus.Documents = append(corpus.Documents, docs...)
			corpus.TotalIndexedSessions++
			present[category] = true
			continue
		}

		corpus.Documents = append(corpus.Documents, Document{
			ID:          file.Path,
			Kind:        KindMarkdown,
			Path:        file.Path,
			Name:        file.Name,
			Category:    category,
			Content:     content,
			TimestampMs: DateFromName(file.Name),
		})
		corpus.TotalIndexedFiles++
		present[category] = true
	}

	corpus.Categories = make([]Category, 0, len(present))
	for _, c := range Categories {
		if present[c] {
			corpus.Categories = append(corpus.Categories, c)
		}
	}
	corpus.BuiltAt = now()
	return corpus
}

// DateFromName extracts the first YYYY-MM-DD in name as UTC midnight in
// epoch milliseconds. Dates that are not real calendar days yield nil.
func DateFromName(name string) *int64 {
	match := filenameDate.FindString(name)
	if match == "" {
		return nil
	}
	ts, ok := ParseDay(match)
	if !ok {
		return nil
	}
	ms := ts.UnixMilli()
	return &ms
}

// ParseDay parses a bare YYYY-MM-DD as UTC midnight, rejecting values that
// do not round-trip such as 2026-02-30.
func ParseDay(s string) (time.Time, bool) {
	ts, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	if ts.Format(time.DateOnly) != s {
		return time.Time{}, false
	}
	return ts, true
}

type sessionMessage struct {
	line int
	role string
	text string
	ts   *int64
}

func sessionDocuments(file catalog.File, content string, logger *slog.Logger) []Document {
	messages := make([]sessionMessage, 0)
	bad := 0

	for i, line := range strings.Split(content, "\n") {
		rec, err := transcript.ParseLine([]byte(line))
		if err != nil {
			if !errors.Is(err, transcript.ErrEmptyLine) {
				bad++
				logger.Debug("recall: skipping malformed transcript line", "path", file.Path, "line", i+1, "error", err)
			}
			continue
		}
		if !rec.IsChatMessage() {
			continue
		}

		text := rec.Message.Text(partSeparator)
		if text == "" {
			continue
		}

		msg := sessionMessage{line: i + 1, role: rec.Message.Role, text: text}
		if ts, ok := rec.Time(); ok {
			ms := ts.UnixMilli()
			msg.ts = &ms
		}
		messages = append(messages, msg)
	}

	if bad > 0 {
		logger.Warn("recall: transcript had malformed lines", "path", file.Path, "skipped", bad)
	}

	docs := make([]Document, 0, len(messages))
	for i, msg := range messages {
		docs = append(docs, Document{
			ID:            fmt.Sprintf("%s:%d", file.Path, msg.line),
			Kind:          KindSession,
			Path:          file.Path,
			Name:          file.Name,
			Category:      CategorySessions,
			Content:       msg.text,
			ContextSource: contextWindow(messages, i),
			TimestampMs:   msg.ts,
		})
	}
	return docs
}

func contextWindow(messages []sessionMessage, center int) string {
	start := max(0, center-contextRadius)
	end := min(len(messages)-1, center+contextRadius)

	parts := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		entry := roleLabel(messages[i].role) + ": " + messages[i].text
		if i == center {
			entry = centerMarker + entry
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, partSeparator)
}

func roleLabel(role string) string {
	if role == transcript.RoleUser {
		return "User"
	}
	return "Assistant"
}

// DisplayName trims the extension for presentation.
func DisplayName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

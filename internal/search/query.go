package search

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Paintersrp/recall/internal/recall"
	"github.com/Paintersrp/recall/internal/transcript"
)

const (
	DefaultLimit   = 10
	MaxLimit       = 50
	MinQueryLength = 2
)

// ValidationError reports a client mistake in a recall request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

var categoryAliases = map[string]recall.Category{
	"memory":         recall.CategoryMemory,
	"memories":       recall.CategoryMemory,
	"conversations":  recall.CategoryConversations,
	"conversation":   recall.CategoryConversations,
	"convos":         recall.CategoryConversations,
	"workspace":      recall.CategoryWorkspace,
	"workspace docs": recall.CategoryWorkspace,
	"workspace-docs": recall.CategoryWorkspace,
	"reports":        recall.CategoryWorkspace,
	"report":         recall.CategoryWorkspace,
	"long-term":      recall.CategoryWorkspace,
	"longterm":       recall.CategoryWorkspace,
	"long term":      recall.CategoryWorkspace,
	"sessions":       recall.CategorySessions,
	"session":        recall.CategorySessions,
	"transcripts":    recall.CategorySessions,
}

var bareDay = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// NormalizeRequest validates a raw recall request.
func NormalizeRequest(raw RawRequest) (Request, error) {
	var req Request

	query, ok := raw.Query.(string)
	if !ok && raw.Query != nil {
		return req, invalid("query", "must be a string")
	}
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return req, invalid("query", "must be at least %d characters", MinQueryLength)
	}
	req.Query = query
	req.Limit = NormalizeLimit(raw.Limit, DefaultLimit, MaxLimit)

	categories, err := normalizeCategories(raw.Categories)
	if err != nil {
		return req, err
	}
	req.Categories = categories

	if req.From, err = normalizeDate("date_from", raw.DateFrom, false); err != nil {
		return req, err
	}
	if req.To, err = normalizeDate("date_to", raw.DateTo, true); err != nil {
		return req, err
	}
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return req, invalid("date_from", "must not be after date_to")
	}
	return req, nil
}

// NormalizeLimit coerces a client-supplied limit into [1, max]. Numbers are
// truncated, numeric strings are parsed and anything else yields def.
func NormalizeLimit(value any, def, maxLimit int) int {
	n, ok := limitValue(value)
	if !ok {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

func limitValue(value any) (int, bool) {
	var f float64
	switch v := value.(type) {
	case int:
		return v, true
	case int64:
		f = float64(v)
	case float64:
		f = v
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	f = math.Trunc(f)
	if f > math.MaxInt32 {
		f = math.MaxInt32
	}
	if f < math.MinInt32 {
		f = math.MinInt32
	}
	return int(f), true
}

func normalizeCategories(value any) ([]recall.Category, error) {
	if value == nil {
		return nil, nil
	}

	var names []string
	switch v := value.(type) {
	case []string:
		names = v
	case []any:
		names = make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalid("categories", "must be an array of strings")
			}
			names = append(names, s)
		}
	default:
		return nil, invalid("categories", "must be an array of strings")
	}

	seen := make(map[recall.Category]struct{}, len(names))
	out := make([]recall.Category, 0, len(names))
	for _, name := range names {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		category, ok := categoryAliases[key]
		if !ok {
			return nil, invalid("categories", "unknown category %q", name)
		}
		if _, dup := seen[category]; dup {
			continue
		}
		seen[category] = struct{}{}
		out = append(out, category)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func normalizeDate(field string, value any, endOfDay bool) (*time.Time, error) {
	if value == nil {
		return nil, nil
	}
	s, ok := value.(string)
	if !ok {
		return nil, invalid(field, "must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	if bareDay.MatchString(s) {
		day, ok := recall.ParseDay(s)
		if !ok {
			return nil, invalid(field, "%q is not a valid calendar date", s)
		}
		if endOfDay {
			day = day.Add(24*time.Hour - time.Millisecond)
		}
		return &day, nil
	}

	ts, ok := transcript.Timestamp(s)
	if !ok {
		return nil, invalid(field, "cannot parse %q as a date", s)
	}
	return &ts, nil
}

// CategoryAliases lists every accepted category spelling.
func CategoryAliases() map[string]recall.Category {
	out := make(map[string]recall.Category, len(categoryAliases))
	for k, v := range categoryAliases {
		out[k] = v
	}
	return out
}

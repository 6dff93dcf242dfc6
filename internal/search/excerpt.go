package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	excerptWindow  = 300
	excerptMinLead = 60
	ellipsis       = "…"
)

// MatchOffset resolves where in content a result should be centred: the
// engine-reported offset when present, else the first case-insensitive
// occurrence of query, else 0.
func MatchOffset(content, query string, engineOffset int) int {
	if engineOffset >= 0 && engineOffset <= len(content) {
		return engineOffset
	}
	if i := indexFold(content, strings.TrimSpace(query)); i >= 0 {
		return i
	}
	return 0
}

// indexFold returns the byte offset in s of the first case-insensitive
// occurrence of substr, or -1.
func indexFold(s, substr string) int {
	if substr == "" {
		return -1
	}
	needle := []rune(strings.ToLower(substr))
	for i := range s {
		j := i
		k := 0
		for k < len(needle) && j < len(s) {
			r, size := utf8.DecodeRuneInString(s[j:])
			if unicode.ToLower(r) != needle[k] {
				break
			}
			j += size
			k++
		}
		if k == len(needle) {
			return i
		}
	}
	return -1
}

// Excerpt returns a short, whitespace-collapsed window of content around
// the byte offset. Content that already fits is returned whole.
func Excerpt(content string, offset, queryLen int) string {
	collapsed, positions := collapseWhitespace(content)
	if len(collapsed) <= excerptWindow {
		return string(collapsed)
	}

	center := len(collapsed) - 1
	for i, pos := range positions {
		if pos >= offset {
			center = i
			break
		}
	}

	lead := (excerptWindow - queryLen) / 2
	if lead < excerptMinLead {
		lead = excerptMinLead
	}

	start := max(0, center-lead)
	end := start + excerptWindow
	if end > len(collapsed) {
		end = len(collapsed)
		start = max(0, end-excerptWindow)
	}

	out := strings.TrimSpace(string(collapsed[start:end]))
	if start > 0 {
		out = ellipsis + out
	}
	if end < len(collapsed) {
		out = out + ellipsis
	}
	return out
}

// collapseWhitespace folds whitespace runs into single spaces and trims the
// ends. positions maps each output rune back to its byte offset in s.
func collapseWhitespace(s string) ([]rune, []int) {
	out := make([]rune, 0, len(s))
	positions := make([]int, 0, len(s))
	pendingSpace := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if pendingSpace < 0 {
				pendingSpace = i
			}
			continue
		}
		if pendingSpace >= 0 && len(out) > 0 {
			out = append(out, ' ')
			positions = append(positions, pendingSpace)
		}
		pendingSpace = -1
		out = append(out, r)
		positions = append(positions, i)
	}
	return out, positions
}

// truncateRunes trims s and cuts it to limit runes, marking the cut.
func truncateRunes(s string, limit int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + ellipsis
}

func bodySnippet(body string, index, termLen int) string {
	if termLen <= 0 {
		termLen = 1
	}

	runes := []rune(body)
	start := index
	end := index + termLen
	if start < 0 {
		start = 0
	}
	if end > len(runes) {
		end = len(runes)
	}

	const window = 40
	snippetStart := max(0, start-window)
	snippetEnd := min(len(runes), end+window)

	snippet := string(runes[snippetStart:snippetEnd])
	snippet = strings.TrimSpace(snippet)
	if snippetStart > 0 {
		snippet = ellipsis + snippet
	}
	if snippetEnd < len(runes) {
		snippet = snippet + ellipsis
	}
	return snippet
}

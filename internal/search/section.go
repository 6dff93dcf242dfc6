package search

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	shortSection     = 80
	maxSectionLength = 2500
	maxContextLength = 2200
	paragraphRadius  = 400
)

var blankLine = regexp.MustCompile(`\n[ \t]*\n`)

type heading struct {
	level int
	start int
}

// MarkdownContext returns the heading section of content that contains the
// byte offset, falling back to the surrounding paragraph when the document
// has no headings or the section is too long to be useful.
func MarkdownContext(content string, offset int) string {
	offset = clampOffset(content, offset)

	if section, ok := headingSection(content, offset); ok {
		return truncateRunes(section, maxContextLength)
	}
	return truncateRunes(paragraph(content, offset), maxContextLength)
}

func headingSection(content string, offset int) (string, bool) {
	headings := atxHeadings(content)
	if len(headings) == 0 {
		return "", false
	}

	var section string
	if offset < headings[0].start {
		section = content[:headings[0].start]
	} else {
		active := 0
		for i, h := range headings {
			if h.start > offset {
				break
			}
			active = i
		}

		next := nextSibling(headings, active)
		end := len(content)
		if next >= 0 {
			end = headings[next].start
		}
		section = content[headings[active].start:end]

		if next >= 0 && headings[next].level == headings[active].level && isThin(section) {
			end = len(content)
			if after := nextSibling(headings, next); after >= 0 {
				end = headings[after].start
			}
			section = content[headings[active].start:end]
		}
	}

	section = strings.TrimSpace(section)
	if section == "" || utf8.RuneCountInString(section) > maxSectionLength {
		return "", false
	}
	return section, true
}

// nextSibling finds the first heading after i at the same or a shallower
// level, or -1.
func nextSibling(headings []heading, i int) int {
	for j := i + 1; j < len(headings); j++ {
		if headings[j].level <= headings[i].level {
			return j
		}
	}
	return -1
}

// isThin reports whether a section is under the short threshold or carries
// nothing beyond its heading line.
func isThin(section string) bool {
	trimmed := strings.TrimSpace(section)
	if utf8.RuneCountInString(trimmed) < shortSection {
		return true
	}
	_, body, _ := strings.Cut(trimmed, "\n")
	return strings.TrimSpace(body) == ""
}

// atxHeadings lists the ATX headings of a markdown document in source order.
// Headings are taken from the parsed document so that lines inside fenced
// code are never mistaken for headings.
func atxHeadings(content string) []heading {
	source := []byte(content)
	doc := goldmark.DefaultParser().Parse(text.NewReader(source))

	headings := make([]heading, 0)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		start, ok := headingLineStart(h, source)
		if !ok {
			return ast.WalkSkipChildren, nil
		}
		if !strings.HasPrefix(strings.TrimLeft(content[start:], " "), "#") {
			return ast.WalkSkipChildren, nil
		}
		headings = append(headings, heading{level: h.Level, start: start})
		return ast.WalkSkipChildren, nil
	})

	sort.SliceStable(headings, func(i, j int) bool { return headings[i].start < headings[j].start })
	return headings
}

func headingLineStart(h *ast.Heading, source []byte) (int, bool) {
	pos := -1
	if lines := h.Lines(); lines != nil && lines.Len() > 0 {
		pos = lines.At(0).Start
	} else if child := h.FirstChild(); child != nil {
		if t, ok := child.(*ast.Text); ok {
			pos = t.Segment.Start
		}
	}
	if pos < 0 || pos > len(source) {
		return 0, false
	}
	for pos > 0 && source[pos-1] != '\n' {
		pos--
	}
	return pos, true
}

// paragraph returns the blank-line-delimited block around offset, or a
// fixed window when that block is empty.
func paragraph(content string, offset int) string {
	start, end := 0, len(content)
	for _, loc := range blankLine.FindAllStringIndex(content, -1) {
		if loc[1] <= offset {
			start = loc[1]
			continue
		}
		if loc[0] >= offset {
			end = loc[0]
			break
		}
		// offset sits inside the separator itself.
		start, end = loc[1], loc[1]
		break
	}

	if block := strings.TrimSpace(content[start:end]); block != "" {
		return block
	}

	runes := []rune(content)
	center := utf8.RuneCountInString(content[:offset])
	from := max(0, center-paragraphRadius)
	to := min(len(runes), center+paragraphRadius)
	return strings.TrimSpace(string(runes[from:to]))
}

func clampOffset(content string, offset int) int {
	if offset < 0 {
		return 0
	}
	if offset > len(content) {
		return len(content)
	}
	for offset > 0 && offset < len(content) && !utf8.RuneStart(content[offset]) {
		offset--
	}
	return offset
}

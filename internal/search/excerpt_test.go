package search

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExcerptShortContentVerbatim(t *testing.T) {
	got := Excerpt("  short\n\n  note\twith   spaces ", 0, 4)
	if got != "short note with spaces" {
		t.Fatalf("unexpected excerpt %q", got)
	}
	if strings.Contains(got, ellipsis) {
		t.Fatalf("expected no ellipsis in %q", got)
	}
}

func TestExcerptMatchAtStart(t *testing.T) {
	content := "needle " + strings.Repeat("filler words ", 80)
	got := Excerpt(content, 0, 6)

	if strings.HasPrefix(got, ellipsis) {
		t.Fatalf("expected no leading ellipsis, got %q", got)
	}
	if !strings.HasSuffix(got, ellipsis) {
		t.Fatalf("expected trailing ellipsis, got %q", got)
	}
	if !strings.HasPrefix(got, "needle") {
		t.Fatalf("expected excerpt to start at the match, got %q", got)
	}
}

func TestExcerptCentresOnMatch(t *testing.T) {
	content := strings.Repeat("before ", 100) + "NEEDLE" + strings.Repeat(" after", 100)
	offset := strings.Index(content, "NEEDLE")
	got := Excerpt(content, offset, 6)

	if !strings.HasPrefix(got, ellipsis) || !strings.HasSuffix(got, ellipsis) {
		t.Fatalf("expected ellipses on both sides, got %q", got)
	}
	if !strings.Contains(got, "NEEDLE") {
		t.Fatalf("expected match inside excerpt, got %q", got)
	}
	if n := utf8.RuneCountInString(got); n > excerptWindow+2 {
		t.Fatalf("expected at most %d runes, got %d", excerptWindow+2, n)
	}
	lead := strings.Index(got, "NEEDLE")
	if utf8.RuneCountInString(got[:lead]) < excerptMinLead {
		t.Fatalf("expected at least %d runes of lead, got %q", excerptMinLead, got[:lead])
	}
}

func TestExcerptMatchAtEnd(t *testing.T) {
	content := strings.Repeat("lorem ipsum ", 60) + "tail"
	got := Excerpt(content, len(content)-4, 4)

	if !strings.HasPrefix(got, ellipsis) || strings.HasSuffix(got, ellipsis) {
		t.Fatalf("expected only a leading ellipsis, got %q", got)
	}
	if !strings.HasSuffix(got, "tail") {
		t.Fatalf("expected excerpt to reach the end, got %q", got)
	}
}

func TestMatchOffsetFallbacks(t *testing.T) {
	content := "Alpha Beta gamma"
	if got := MatchOffset(content, "beta", 11); got != 11 {
		t.Fatalf("expected engine offset to win, got %d", got)
	}
	if got := MatchOffset(content, "BETA", -1); got != 6 {
		t.Fatalf("expected substring fallback, got %d", got)
	}
	if got := MatchOffset(content, "delta", -1); got != 0 {
		t.Fatalf("expected zero fallback, got %d", got)
	}
}

func TestBodySnippetMarksCuts(t *testing.T) {
	body := strings.Repeat("a", 50) + "match" + strings.Repeat("b", 50)
	got := bodySnippet(body, 50, 5)
	if !strings.HasPrefix(got, ellipsis) || !strings.HasSuffix(got, ellipsis) {
		t.Fatalf("expected ellipses around snippet, got %q", got)
	}
	if !strings.Contains(got, "match") {
		t.Fatalf("expected snippet to contain term, got %q", got)
	}
}

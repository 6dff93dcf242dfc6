package utils

import (
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
)

const (
	defaultWrapWidth       = 100
	previewHorizontalSpace = 4
)

// WrapWidth returns the word-wrap width for a pane w cells wide.
func WrapWidth(w int) int {
	wrap := w - previewHorizontalSpace
	if wrap <= 0 || wrap > defaultWrapWidth {
		return defaultWrapWidth
	}
	return wrap
}

// RenderMarkdown styles markdown for a terminal pane w cells wide.
func RenderMarkdown(content string, w int, profile termenv.Profile) (string, error) {
	// Initiate glamour renderer to add colors to our markdown preview
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dracula"),
		glamour.WithWordWrap(WrapWidth(w)),
		glamour.WithColorProfile(profile),
	)
	if err != nil {
		return "", err
	}

	return r.Render(content)
}

package styles

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	Accent = lipgloss.Color("#cba6f7")
	Dim    = lipgloss.Color("#585b70")

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(Accent)
	Title = lipgloss.NewStyle().
		Bold(true)
	Muted = lipgloss.NewStyle().
		Foreground(Dim)
	Badge = lipgloss.NewStyle().
		Foreground(Accent).
		Padding(0, 1)
)

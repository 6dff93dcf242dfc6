package state

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	indexsvc "github.com/Paintersrp/recall/internal/services/index"
)

// IndexStatsMsg carries a refreshed status line for the file index.
type IndexStatsMsg struct {
	Line  string
	Stats indexsvc.Stats
}

// StatsSource is the part of the file index that reports instrumentation.
type StatsSource interface {
	Stats() indexsvc.Stats
}

// IndexHeartbeatCmd polls the file index for lightweight statistics and
// returns them as a message consumers can use to trigger rerenders.
func (s *State) IndexHeartbeatCmd() tea.Cmd {
	if s == nil {
		return nil
	}
	return HeartbeatCmd(s.FileIndex())
}

func HeartbeatCmd(src StatsSource) tea.Cmd {
	return func() tea.Msg {
		if src == nil {
			return IndexStatsMsg{}
		}
		stats := src.Stats()
		return IndexStatsMsg{Line: FormatIndexStatus(stats), Stats: stats}
	}
}

// FormatIndexStatus renders a one-line summary of the file index.
func FormatIndexStatus(stats indexsvc.Stats) string {
	parts := []string{
		fmt.Sprintf("Idx: v%d", stats.Version),
		fmt.Sprintf("%d files", stats.Files),
		fmt.Sprintf("pending %d", stats.Pending),
	}
	if !stats.LastRebuild.IsZero() {
		parts = append(parts, fmt.Sprintf("rebuilt %s", formatRebuildTime(stats.LastRebuild)))
	}

	return strings.Join(parts, " · ")
}

func formatRebuildTime(t time.Time) string {
	return t.Local().Format("15:04:05")
}

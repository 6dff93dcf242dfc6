package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	indexsvc "github.com/Paintersrp/recall/internal/services/index"
	"github.com/Paintersrp/recall/internal/state"
	"github.com/Paintersrp/recall/pkg/shared/styles"
)

const (
	pollInterval = time.Second
	maxHistory   = 8
)

func NewCmdWatch(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the file catalog rebuild live",
		Long: heredoc.Doc(`
			Starts the file watcher and shows every catalog rebuild as it
			happens. Press q to quit.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			files := s.FileIndex()
			if err := files.Start(ctx); err != nil {
				return err
			}

			p := tea.NewProgram(newModel(files), tea.WithContext(ctx))
			unsubscribe := files.Subscribe(func(snap indexsvc.Snapshot) {
				p.Send(snapshotMsg{version: snap.Version, files: len(snap.Files), at: snap.UpdatedAt})
			})
			defer unsubscribe()

			_, err := p.Run()
			return err
		},
	}

	return cmd
}

type snapshotMsg struct {
	version int64
	files   int
	at      time.Time
}

type tickMsg time.Time

type model struct {
	files   state.StatsSource
	spinner spinner.Model
	status  string
	history []snapshotMsg
}

func newModel(files state.StatsSource) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Header
	return model{files: files, spinner: sp}
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, state.HeartbeatCmd(m.files), tick())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case state.IndexStatsMsg:
		m.status = msg.Line
		return m, nil

	case tickMsg:
		return m, tea.Batch(state.HeartbeatCmd(m.files), tick())

	case snapshotMsg:
		m.history = append(m.history, msg)
		if len(m.history) > maxHistory {
			m.history = m.history[len(m.history)-maxHistory:]
		}
		return m, state.HeartbeatCmd(m.files)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), styles.Title.Render("Watching OpenClaw roots"))
	if m.status != "" {
		fmt.Fprintf(&b, "  %s\n\n", m.status)
	}
	if len(m.history) == 0 {
		b.WriteString(styles.Muted.Render("  waiting for changes...") + "\n")
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		h := m.history[i]
		fmt.Fprintf(&b, "  v%-4d %4d files  %s\n", h.version, h.files, styles.Muted.Render(h.at.Local().Format("15:04:05")))
	}
	b.WriteString("\n" + styles.Muted.Render("q to quit") + "\n")
	return b.String()
}

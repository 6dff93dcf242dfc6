package root

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/state"
	"github.com/Paintersrp/recall/pkg/cmd/files"
	"github.com/Paintersrp/recall/pkg/cmd/initialize"
	"github.com/Paintersrp/recall/pkg/cmd/logConversations"
	"github.com/Paintersrp/recall/pkg/cmd/mcp"
	"github.com/Paintersrp/recall/pkg/cmd/recall"
	"github.com/Paintersrp/recall/pkg/cmd/serve"
	"github.com/Paintersrp/recall/pkg/cmd/show"
	"github.com/Paintersrp/recall/pkg/cmd/stats"
	"github.com/Paintersrp/recall/pkg/cmd/token"
	"github.com/Paintersrp/recall/pkg/cmd/watch"
)

func NewCmdRoot(s *state.State) (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:     "recall",
		Short:   "Browse and search an OpenClaw agent's memory, conversations and sessions.",
		Version: constants.Version,
		Long: heredoc.Doc(`
			A personal knowledge browser for the OpenClaw layout. It catalogs the
			workspace notes, daily memory files, conversation logs and session
			transcripts, keeps that catalog fresh while files change, and answers
			typo-tolerant recall queries with excerpts and surrounding context.

			  recall recall "flight to lisbon"
			  recall serve
		`),
		SilenceUsage: true,
	}

	// Add Child Commands to Root
	cmd.AddCommand(
		initialize.NewCmdInit(s),
		recall.NewCmdRecall(s),
		files.NewCmdFiles(s),
		show.NewCmdShow(s),
		stats.NewCmdStats(s),
		watch.NewCmdWatch(s),
		serve.NewCmdServe(s),
		mcp.NewCmdMCP(s),
		logConversations.NewCmdLogConversations(s),
		token.NewCmdToken(s),
	)

	return cmd, nil
}

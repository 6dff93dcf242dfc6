package mcp

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/logging"
	"github.com/Paintersrp/recall/internal/mcpserver"
	"github.com/Paintersrp/recall/internal/state"
)

func NewCmdMCP(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run an MCP server over stdio",
		Long: heredoc.Doc(`
			Exposes recall search, index stats, the file list and file reads as
			Model Context Protocol tools on stdin/stdout. Logs go to stderr and
			the configured log file only.
		`),
		Example: heredoc.Doc(`
			recall mcp
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			files := s.FileIndex()
			if err := files.Start(ctx); err != nil {
				return err
			}

			srv := mcpserver.New(constants.Version, mcpserver.Dependencies{
				Files:  files,
				Recall: s.Recall(),
				Logger: logging.Component(s.Logger, "mcp"),
			})
			return srv.Run(ctx)
		},
	}

	return cmd
}

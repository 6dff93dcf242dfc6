package logConversations

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/recall/internal/state"
)

func NewCmdLogConversations(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "log-conversations",
		Aliases: []string{"convlog"},
		Short:   "Append main-session messages to daily conversation logs",
		Long: heredoc.Doc(`
			Tails the transcript of the main agent session and writes every user
			and assistant message to conversations/YYYY-MM-DD.md. Heartbeats,
			restarts and other housekeeping messages are skipped. Progress is
			kept in conversations/.state.json so restarts never duplicate
			entries.

			The OPENCLAW_TIMEZONE, OPENCLAW_MAIN_SESSION_ID,
			OPENCLAW_CONVERSATION_STATE_FILE, OPENCLAW_LOGGER_POLL_SECONDS and
			OPENCLAW_LOGGER_MAX_MESSAGE_LENGTH variables are honoured.
		`),
		Example: heredoc.Doc(`
			recall log-conversations
			recall convlog --once
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := s.ConversationLogger()

			once, _ := cmd.Flags().GetBool("once")
			if !once {
				return logger.Run(cmd.Context())
			}

			n, err := logger.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d entries\n", n)
			return nil
		},
	}

	cmd.Flags().Bool("once", false, "Process new messages once and exit.")

	return cmd
}

package token

import (
	"errors"
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/recall/internal/state"
)

func NewCmdToken(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Long: heredoc.Doc(`
			Signs a token with server.auth_secret. Send it as
			"Authorization: Bearer <token>" or as ?token= on the websocket URL.
		`),
		Example: heredoc.Doc(`
			recall token
			recall token --subject laptop --ttl 720h
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			authn, err := s.Authenticator()
			if err != nil {
				return err
			}
			if authn == nil {
				return errors.New("server.auth_secret is not configured")
			}

			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			if !cmd.Flags().Changed("ttl") {
				ttl = s.Config.Server.TokenTTL
			}

			token, err := authn.Issue(subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().String("subject", "recall-cli", "Subject recorded in the token.")
	cmd.Flags().Duration("ttl", 0, "Token lifetime; 0 uses server.token_ttl.")

	return cmd
}

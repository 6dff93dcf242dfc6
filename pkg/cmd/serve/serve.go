package serve

import (
	"errors"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/convlog"
	"github.com/Paintersrp/recall/internal/logging"
	"github.com/Paintersrp/recall/internal/server"
	"github.com/Paintersrp/recall/internal/state"
)

func NewCmdServe(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the file index and recall search over HTTP",
		Long: heredoc.Doc(`
			Starts the HTTP API. The file catalog is rebuilt whenever a watched
			root changes and connected websocket clients are told about every
			new snapshot.

			When server.auth_secret is configured every /api route requires a
			bearer token; mint one with "recall token".
		`),
		Example: heredoc.Doc(`
			recall serve
			recall serve --addr 0.0.0.0:8080
			recall serve --log-conversations
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, s)
		},
	}

	cmd.Flags().String("addr", "", "Address to listen on (defaults to server.addr).")
	viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	cmd.Flags().Bool("log-conversations", false, "Also run the conversation logger.")

	return cmd
}

func run(cmd *cobra.Command, s *state.State) error {
	ctx := cmd.Context()

	authn, err := s.Authenticator()
	if err != nil {
		return err
	}

	addr := s.Config.Server.Addr
	if flagAddr := viper.GetString("server.addr"); flagAddr != "" && cmd.Flags().Changed("addr") {
		addr = flagAddr
	}

	files := s.FileIndex()
	if err := files.Start(ctx); err != nil {
		return err
	}

	srv := server.New(
		server.Config{Addr: addr, Auth: authn, Version: constants.Version},
		files,
		s.Recall(),
		s.Cache,
		logging.Component(s.Logger, "server"),
	)

	withLogger, _ := cmd.Flags().GetBool("log-conversations")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })
	if withLogger {
		g.Go(func() error {
			err := s.ConversationLogger().Run(ctx)
			if errors.Is(err, convlog.ErrNoSession) {
				s.Logger.Warn("conversation logger idle: no session transcript found")
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

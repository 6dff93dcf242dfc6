package stats

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/recall/internal/recall"
	"github.com/Paintersrp/recall/internal/state"
	"github.com/Paintersrp/recall/pkg/shared/flags"
	"github.com/Paintersrp/recall/pkg/shared/styles"
)

func NewCmdStats(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show what the recall index covers",
		Long: heredoc.Doc(`
			Builds the recall index from the current catalog and reports how
			many markdown files and session transcripts it covers.
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			stats := s.Recall().Stats()
			out := cmd.OutOrStdout()

			if asJSON, _ := flags.HandleJSON(cmd); asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			categories := make([]string, len(stats.Categories))
			for i, c := range stats.Categories {
				categories[i] = string(c)
			}
			if len(categories) == 0 {
				categories = []string{"none"}
			}

			fmt.Fprintln(out, styles.Header.Render("Recall index"))
			fmt.Fprintf(out, "  %-12s %d\n", "version", stats.Version)
			fmt.Fprintf(out, "  %-12s %d\n", "files", stats.Files)
			fmt.Fprintf(out, "  %-12s %d\n", "sessions", stats.Sessions)
			fmt.Fprintf(out, "  %-12s %d\n", "documents", stats.Documents)
			fmt.Fprintf(out, "  %-12s %s\n", "categories", strings.Join(categories, ", "))
			if !stats.BuiltAt.IsZero() {
				fmt.Fprintf(out, "  %-12s %s\n", "built", stats.BuiltAt.Local().Format("2006-01-02 15:04:05"))
			}
			fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf("known categories: %s", known())))
			return nil
		},
	}

	flags.AddJSON(cmd)
	return cmd
}

func known() string {
	names := make([]string, len(recall.Categories))
	for i, c := range recall.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

package recall

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/recall/internal/fzf"
	"github.com/Paintersrp/recall/internal/search"
	"github.com/Paintersrp/recall/internal/state"
	"github.com/Paintersrp/recall/pkg/shared/flags"
	"github.com/Paintersrp/recall/pkg/shared/styles"
)

var writeClipboard = clipboard.WriteAll

// picker is swapped in tests; the real one needs a terminal.
var picker = func(s *state.State, results []search.Result, query string) (fzf.Item, error) {
	finder := fzf.NewFuzzyFinder(fzf.FromResults(results), s.Cache, fmt.Sprintf("recall: %s", query))
	return finder.Run("")
}

func NewCmdRecall(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "recall [query]",
		Aliases: []string{"r", "find"},
		Short:   "Fuzzy search memory, conversations, workspace docs and sessions",
		Long: heredoc.Doc(`
			Searches every indexed markdown file and session transcript message
			with typo-tolerant matching. Results carry a short excerpt around the
			match and a larger context block: the enclosing markdown section, or
			the neighbouring messages of a session.

			Dates accept YYYY-MM-DD, RFC 3339 or epoch values. A bare --to day
			includes the whole day.
		`),
		Example: heredoc.Doc(`
			recall recall "deploy checklist"
			recall r tomatos --category memory --from 2024-03-01
			recall r "flight booking" --interactive --copy
			recall r roadmap --json --limit 3
		`),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, s, strings.Join(args, " "))
		},
	}

	flags.AddLimit(cmd, search.DefaultLimit)
	flags.AddJSON(cmd)
	flags.AddCopy(cmd)
	cmd.Flags().StringSliceP("category", "c", nil, "Restrict to categories: memory, conversations, workspace, sessions.")
	cmd.Flags().String("from", "", "Earliest date to include.")
	cmd.Flags().String("to", "", "Latest date to include.")
	cmd.Flags().BoolP("interactive", "i", false, "Pick a result in a fuzzy finder with a context preview.")

	return cmd
}

func buildRequest(cmd *cobra.Command, query string) (search.RawRequest, error) {
	raw := search.RawRequest{Query: query}

	limit, changed, err := flags.HandleLimit(cmd)
	if err != nil {
		return raw, err
	}
	if changed {
		raw.Limit = limit
	}

	categories, err := cmd.Flags().GetStringSlice("category")
	if err != nil {
		return raw, err
	}
	if len(categories) > 0 {
		values := make([]any, len(categories))
		for i, c := range categories {
			values[i] = c
		}
		raw.Categories = values
	}

	if from, _ := cmd.Flags().GetString("from"); from != "" {
		raw.DateFrom = from
	}
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		raw.DateTo = to
	}
	return raw, nil
}

func run(cmd *cobra.Command, s *state.State, query string) error {
	raw, err := buildRequest(cmd, query)
	if err != nil {
		return err
	}

	results, err := s.Recall().Search(raw)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	asJSON, _ := flags.HandleJSON(cmd)
	interactive, _ := cmd.Flags().GetBool("interactive")
	copyResult, _ := flags.HandleCopy(cmd)

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No matches")
		return nil
	}

	if !interactive {
		printResults(out, results)
		if copyResult {
			return copyText(out, clipText(results[0]))
		}
		return nil
	}

	item, err := picker(s, results, query)
	if errors.Is(err, fzf.ErrNoSelection) {
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(out, item.Path)
	if copyResult {
		return copyText(out, item.Preview)
	}
	return nil
}

func clipText(r search.Result) string {
	if r.Context != "" {
		return r.Context
	}
	return r.Excerpt
}

func copyText(out io.Writer, text string) error {
	if err := writeClipboard(text); err != nil {
		return fmt.Errorf("copy to clipboard: %w", err)
	}
	fmt.Fprintln(out, styles.Muted.Render("Copied to clipboard"))
	return nil
}

func printResults(out io.Writer, results []search.Result) {
	for i, r := range results {
		fmt.Fprintf(out, "%s %s %s\n",
			styles.Header.Render(fmt.Sprintf("%2d.", i+1)),
			styles.Title.Render(r.Name),
			styles.Badge.Render(fmt.Sprintf("[%s] %.3f", r.Category, r.Score)),
		)
		fmt.Fprintf(out, "    %s\n", styles.Muted.Render(r.Path))
		if r.Excerpt != "" {
			fmt.Fprintf(out, "    %s\n", r.Excerpt)
		}
		fmt.Fprintln(out)
	}
}

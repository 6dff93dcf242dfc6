package files

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/recall/internal/catalog"
	"github.com/Paintersrp/recall/internal/pathutil"
	indexsvc "github.com/Paintersrp/recall/internal/services/index"
	"github.com/Paintersrp/recall/internal/state"
	"github.com/Paintersrp/recall/pkg/shared/flags"
	"github.com/Paintersrp/recall/pkg/shared/styles"
)

func NewCmdFiles(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "files",
		Aliases: []string{"ls"},
		Short:   "List the file catalog grouped by category",
		Long: heredoc.Doc(`
			Lists every markdown file and session transcript the browser knows
			about, grouped as Long-term, Workspace Docs, Reports, Memory,
			Conversations and Sessions.
		`),
		Example: heredoc.Doc(`
			recall files
			recall files --category Memory
			recall ls --json
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap := s.FileIndex().Snapshot()

			category, _ := cmd.Flags().GetString("category")
			showDirs, _ := cmd.Flags().GetBool("dirs")
			filtered := filter(snap.Files, category, showDirs)

			if asJSON, _ := flags.HandleJSON(cmd); asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				snap.Files = filtered
				return enc.Encode(snap)
			}

			render(cmd.OutOrStdout(), s, snap, filtered)
			return nil
		},
	}

	flags.AddJSON(cmd)
	cmd.Flags().String("category", "", "Only list one category.")
	cmd.Flags().Bool("dirs", false, "Include directory entries.")

	return cmd
}

func filter(files []catalog.File, category string, showDirs bool) []catalog.File {
	category = strings.TrimSpace(category)
	out := make([]catalog.File, 0, len(files))
	for _, f := range files {
		if f.Kind == catalog.KindDirectory && !showDirs {
			continue
		}
		if category != "" && !strings.EqualFold(string(f.Category), category) {
			continue
		}
		out = append(out, f)
	}
	return out
}

func render(out io.Writer, s *state.State, snap indexsvc.Snapshot, files []catalog.File) {
	if len(files) == 0 {
		fmt.Fprintln(out, "No files found")
		return
	}

	grouped := make(map[catalog.Category][]catalog.File)
	for _, f := range files {
		grouped[f.Category] = append(grouped[f.Category], f)
	}

	for _, category := range catalog.Categories {
		group := grouped[category]
		if len(group) == 0 {
			continue
		}
		fmt.Fprintln(out, styles.Header.Render(fmt.Sprintf("%s (%d)", category, len(group))))
		for _, f := range group {
			fmt.Fprintf(out, "  %s\n", display(s, f))
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, styles.Muted.Render(fmt.Sprintf("version %d · %d entries", snap.Version, len(files))))
}

func display(s *state.State, f catalog.File) string {
	for _, root := range []string{s.Paths.Workspace, s.Paths.OpenClawHome} {
		if rel, err := pathutil.Relative(root, f.Path); err == nil && !strings.HasPrefix(rel, "..") {
			if f.Kind == catalog.KindDirectory {
				return rel + "/"
			}
			return rel
		}
	}
	return f.Path
}

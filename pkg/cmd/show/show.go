package show

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Paintersrp/recall/internal/constants"
	"github.com/Paintersrp/recall/internal/state"
	"github.com/Paintersrp/recall/pkg/cmd"
	"github.com/Paintersrp/recall/pkg/shared/flags"
	"github.com/Paintersrp/recall/utils"
)

// isTerminal reports whether w is an interactive terminal.
var isTerminal = func(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func NewCmdShow(s *state.State) *cobra.Command {
	c := &cobra.Command{
		Use:     "show [path]",
		Aliases: []string{"cat"},
		Short:   "Print a file from the indexed roots",
		Long: heredoc.Doc(`
			Prints a markdown note or session transcript. Relative paths are
			resolved against the workspace, or the root picked with --root.
			Markdown is rendered when stdout is a terminal.
		`),
		Example: heredoc.Doc(`
			recall show MEMORY.md
			recall show 2024-05-06.md --root memory
			recall show ~/.openclaw/workspace/USER.md --raw
		`),
		Args: cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			arg := args[0]
			if strings.HasPrefix(arg, "~") {
				home, err := state.GetHomeDir()
				if err != nil {
					return err
				}
				arg = filepath.Join(home, strings.TrimPrefix(arg, "~"))
			}

			path, err := cmd.ResolvePath(c, s, arg)
			if err != nil {
				return err
			}

			content, err := s.FileIndex().ReadFile(path)
			if err != nil {
				return err
			}

			raw, _ := c.Flags().GetBool("raw")
			out := c.OutOrStdout()
			if raw || !isTerminal(out) || !strings.EqualFold(filepath.Ext(path), constants.MarkdownExt) {
				_, err := io.WriteString(out, content)
				return err
			}

			rendered, err := render(content, out)
			if err != nil {
				return err
			}
			_, err = io.WriteString(out, rendered)
			return err
		},
	}

	flags.AddRoot(c)
	c.Flags().Bool("raw", false, "Print the file without markdown rendering.")

	return c
}

func render(content string, out io.Writer) (string, error) {
	width := 0
	if f, ok := out.(*os.File); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil {
			width = w
		}
	}

	rendered, err := utils.RenderMarkdown(content, width, termenv.EnvColorProfile())
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return rendered, nil
}

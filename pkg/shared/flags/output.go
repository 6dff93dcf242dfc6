package flags

import (
	"github.com/spf13/cobra"
)

func AddJSON(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "Print machine-readable JSON instead of formatted text.")
}

func HandleJSON(cmd *cobra.Command) (bool, error) {
	return cmd.Flags().GetBool("json")
}

func AddCopy(cmd *cobra.Command) {
	cmd.Flags().
		Bool("copy", false, "Copy the selected result's context to the clipboard.")
}

func HandleCopy(cmd *cobra.Command) (bool, error) {
	return cmd.Flags().GetBool("copy")
}

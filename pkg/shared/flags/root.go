package flags

import (
	"github.com/spf13/cobra"
)

// AddRoot lets relative path arguments be taken from a specific root.
func AddRoot(cmd *cobra.Command) {
	cmd.Flags().
		StringP("root", "r", "workspace", "Root for relative paths: workspace, memory, conversations or sessions.")
}

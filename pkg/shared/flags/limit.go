package flags

import (
	"github.com/spf13/cobra"
)

func AddLimit(cmd *cobra.Command, def int) {
	cmd.Flags().IntP("limit", "l", def, "Maximum number of results to return.")
}

// HandleLimit returns the limit and whether the user set it explicitly.
func HandleLimit(cmd *cobra.Command) (int, bool, error) {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return 0, false, err
	}
	return limit, cmd.Flags().Changed("limit"), nil
}

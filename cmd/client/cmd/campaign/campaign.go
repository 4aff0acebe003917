package campaign

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for campaign operations.
var Cmd = &cobra.Command{
	Use:   "campaign",
	Short: "Manage campaigns",
	Long:  `Create, list, annotate and delete campaigns in the current scope.`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(createCmd)
	Cmd.AddCommand(noteCmd)
	Cmd.AddCommand(statusCmd)
	Cmd.AddCommand(deleteCmd)
}

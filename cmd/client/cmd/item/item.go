package item

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for line-item operations.
var Cmd = &cobra.Command{
	Use:   "item",
	Short: "Manage campaign line items",
	Long:  `Add, complete and delete the line items that belong to a campaign.`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(doneCmd)
	Cmd.AddCommand(deleteCmd)
}

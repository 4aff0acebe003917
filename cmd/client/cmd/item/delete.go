package item

import (
	"fmt"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a line item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("application not initialized")
		}
		defer app.Close()

		if err := app.DeleteItem(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}

		fmt.Printf("Deleted item %s\n", args[0])
		if !app.Monitor().Current().Online {
			fmt.Printf("Offline: %d change(s) pending\n", app.Queue().CountPending())
		}
		return nil
	},
}

package item

import (
	"fmt"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
)

var addCmd = &cobra.Command{
	Use:   "add <campaign-id> <title>",
	Short: "Add a line item to a campaign",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("application not initialized")
		}
		defer app.Close()

		it, err := app.AddItem(cmd.Context(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to add item: %w", err)
		}

		fmt.Printf("Added item %q (%s)\n", it.Title, it.ID)
		if !app.Monitor().Current().Online {
			fmt.Printf("Offline: %d change(s) pending\n", app.Queue().CountPending())
		}
		return nil
	},
}

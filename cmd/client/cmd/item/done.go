package item

import (
	"fmt"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
)

var reopen bool

var doneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a line item as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("application not initialized")
		}
		defer app.Close()

		if err := app.UpdateItem(cmd.Context(), args[0], map[string]any{"done": !reopen}); err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		if reopen {
			fmt.Printf("Reopened item %s\n", args[0])
		} else {
			fmt.Printf("Completed item %s\n", args[0])
		}
		if !app.Monitor().Current().Online {
			fmt.Printf("Offline: %d change(s) pending\n", app.Queue().CountPending())
		}
		return nil
	},
}

func init() {
	doneCmd.Flags().BoolVar(&reopen, "undo", false, "mark the item as not done instead")
}

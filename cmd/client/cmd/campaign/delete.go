package campaign

import (
	"fmt"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("application not initialized")
		}
		defer app.Close()

		if err := app.DeleteCampaign(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete campaign: %w", err)
		}

		fmt.Printf("Deleted campaign %s\n", args[0])
		if !app.Monitor().Current().Online {
			fmt.Printf("Offline: %d change(s) pending\n", app.Queue().CountPending())
		}
		return nil
	},
}

package campaign

import (
	"fmt"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
)

var noteCmd = &cobra.Command{
	Use:   "note <id> <text>",
	Short: "Set the notes on a campaign",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateCampaign(cmd, args[0], map[string]any{"notes": args[1]})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status <id> <status>",
	Short: "Change the status of a campaign",
	Long:  `Set the campaign status, e.g. "active", "paused" or "finished".`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return updateCampaign(cmd, args[0], map[string]any{"status": args[1]})
	},
}

func updateCampaign(cmd *cobra.Command, id string, attrs map[string]any) error {
	app := client.FromContext(cmd.Context())
	if app == nil {
		return fmt.Errorf("application not initialized")
	}
	defer app.Close()

	if err := app.UpdateCampaign(cmd.Context(), id, attrs); err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}

	fmt.Printf("Updated campaign %s\n", id)
	if !app.Monitor().Current().Online {
		fmt.Printf("Offline: %d change(s) pending\n", app.Queue().CountPending())
	}
	return nil
}

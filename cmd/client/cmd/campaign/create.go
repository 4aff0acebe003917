package campaign

import (
	"fmt"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
)

var createSystem string

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a campaign",
	Long: `Create a new campaign. The campaign appears in the local snapshot
immediately; when the service is unreachable the write is queued and sent
on the next sync.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("application not initialized")
		}
		defer app.Close()

		c, err := app.CreateCampaign(cmd.Context(), args[0], createSystem)
		if err != nil {
			return fmt.Errorf("failed to create campaign: %w", err)
		}

		fmt.Printf("Created campaign %q (%s)\n", c.Name, c.ID)
		if !app.Monitor().Current().Online {
			fmt.Printf("Offline: %d change(s) pending\n", app.Queue().CountPending())
		}
		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&createSystem, "system", "", "game system the campaign runs on")
}

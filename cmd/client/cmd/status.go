package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity, queue and sync statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("application not initialized")
		}
		defer app.Close()

		state := app.Monitor().Current()
		if state.Online {
			fmt.Println("connectivity: online")
		} else {
			fmt.Println("connectivity: offline")
		}

		fmt.Printf("pending changes: %d\n", app.Queue().CountPending())
		fmt.Printf("failed changes:  %d\n", len(app.Queue().Failed()))

		stats := app.Stats()
		if stats.TotalDrains > 0 {
			fmt.Printf("drains:          %d\n", stats.TotalDrains)
			fmt.Printf("total synced:    %d\n", stats.TotalSynced)
			fmt.Printf("total failed:    %d\n", stats.TotalFailed)
			fmt.Printf("last drain:      %s\n", stats.LastDrain.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

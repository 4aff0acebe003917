package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the scope and print changes as they arrive",
	Long: `Hydrate the local snapshot, subscribe to the push channel and print
every reconciled change until interrupted. While watching, the connectivity
monitor keeps probing the service and drains the queue on reconnect.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("application not initialized")
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := app.Hydrate(ctx); err != nil {
			fmt.Printf("hydration skipped: %v\n", err)
		}

		events, unsubscribe := app.Store().Subscribe()
		defer unsubscribe()

		go func() {
			for ev := range events {
				switch ev.Op {
				case client.StoreOpUpsert:
					fmt.Printf("~ %s\n", ev.EntityID)
				case client.StoreOpRemove:
					fmt.Printf("- %s\n", ev.EntityID)
				case client.StoreOpReplace:
					fmt.Println("* snapshot replaced")
				}
			}
		}()

		fmt.Println("watching; press Ctrl+C to stop")
		return app.Run(ctx)
	},
}

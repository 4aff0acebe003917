package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
)

var (
	retryID    string
	showFailed bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Drain queued changes against the campaign service",
	Long: `Apply every queued mutation to the campaign service in enqueue order.

Changes that keep failing are retried on later drains and evicted after the
retry ceiling; evicted changes stay visible via --failed and can be retried
individually with --retry.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("application not initialized")
		}
		defer app.Close()

		if showFailed {
			return printFailed(app)
		}
		if retryID != "" {
			if err := app.RetryOne(cmd.Context(), retryID); err != nil {
				return fmt.Errorf("retry failed: %w", err)
			}
			fmt.Println("change retried successfully")
			return nil
		}

		result := app.Drain(cmd.Context())

		fmt.Printf("synced:  %d\n", result.SyncedCount)
		fmt.Printf("failed:  %d\n", result.FailedCount)
		fmt.Printf("pending: %d\n", app.Queue().CountPending())
		for _, e := range result.Errors {
			fmt.Printf("  %s: %s\n", e.ChangeID, e.Message)
		}
		if !result.Success {
			return fmt.Errorf("drain finished with failures")
		}
		return nil
	},
}

func printFailed(app *client.App) error {
	failed := app.Queue().Failed()
	if len(failed) == 0 {
		fmt.Println("no failed changes")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tACTION\tENTITY\tRETRIES\tENQUEUED")
	for _, c := range failed {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			c.ID, c.Kind, c.Action, c.EntityID, c.RetryCount,
			c.EnqueuedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func init() {
	syncCmd.Flags().StringVar(&retryID, "retry", "", "retry a single change by id")
	syncCmd.Flags().BoolVar(&showFailed, "failed", false, "list permanently failed changes")
}

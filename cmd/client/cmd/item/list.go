package item

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
	"campsync/internal/domain/campaign"
)

var listCampaignID string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List line items",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := client.FromContext(cmd.Context())
		if app == nil {
			return fmt.Errorf("application not initialized")
		}
		defer app.Close()

		if app.Monitor().Current().Online {
			if err := app.Hydrate(cmd.Context()); err != nil {
				fmt.Printf("snapshot refresh failed, showing local data: %v\n", err)
			}
		}

		var items []campaign.Item
		for _, e := range app.Store().All() {
			if e.Kind != campaign.KindItem {
				continue
			}
			it := campaign.ItemFrom(e)
			if listCampaignID != "" && it.CampaignID != listCampaignID {
				continue
			}
			items = append(items, it)
		}

		if len(items) == 0 {
			fmt.Println("No items found")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ID\tCAMPAIGN\tTITLE\tDONE\t\n")
		for _, it := range items {
			done := " "
			if it.Done {
				done = "x"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t[%s]\t\n", it.ID, it.CampaignID, it.Title, done)
		}
		w.Flush()
		fmt.Printf("\nTotal: %d\n", len(items))
		return nil
	},
}

func init() {
	listCmd.Flags().StringVarP(&listCampaignID, "campaign", "c", "", "only items of this campaign")
}

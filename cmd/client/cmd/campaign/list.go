package campaign

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"campsync/internal/app/client"
	"campsync/internal/domain/campaign"
)

var listFormat string

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List campaigns",
	Long:  `Show the campaigns in the local snapshot. Run "campsync watch" or any command while online to refresh it.`,
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

		var campaigns []campaign.Campaign
		for _, e := range app.Store().All() {
			if e.Kind != campaign.KindCampaign {
				continue
			}
			campaigns = append(campaigns, campaign.CampaignFrom(e))
		}

		switch listFormat {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(campaigns)
		default:
			return printCampaignsTable(campaigns)
		}
	},
}

func printCampaignsTable(campaigns []campaign.Campaign) error {
	if len(campaigns) == 0 {
		fmt.Println("No campaigns found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tNAME\tSYSTEM\tSTATUS\tUPDATED\t\n")
	for _, c := range campaigns {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t\n",
			c.ID,
			truncate(c.Name, 30),
			c.System,
			c.Status,
			c.Revision.Format("2006-01-02 15:04"),
		)
	}
	w.Flush()
	fmt.Printf("\nTotal: %d\n", len(campaigns))
	return nil
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func init() {
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "output format (table, json)")
}

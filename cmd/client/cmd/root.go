package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/exp/slog"

	campaignCmd "campsync/cmd/client/cmd/campaign"
	itemCmd "campsync/cmd/client/cmd/item"
	"campsync/internal/app/client"
	"campsync/internal/app/client/config"
	"campsync/internal/utils/logger"
)

var (
	cfg       *config.Config
	log       *slog.Logger
	app       *client.App
	serverURL string
	scope     string
)

var rootCmd = &cobra.Command{
	Use:   "campsync",
	Short: "campsync - offline-first campaign tracker client",
	Long: `campsync keeps campaigns and their line items editable while offline.

Mutations that cannot be confirmed against the campaign service are queued
durably and drained once connectivity returns; changes pushed by other
clients are merged into the local snapshot as they arrive.`,
	PersistentPreRunE: setupApp,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func setupApp(cmd *cobra.Command, _ []string) error {
	cfg = config.MustLoad()

	// command line flags win over the environment
	if serverURL != "" {
		cfg.ServerAddress = serverURL
	}
	if scope != "" {
		cfg.Scope = scope
	}

	log = logger.New(cfg.Env)

	var err error
	app, err = client.New(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize client: %w", err)
	}

	// one probe so commands start with a real connectivity state
	if err := app.CheckConnection(cmd.Context()); err != nil {
		log.Debug("service unreachable, starting offline", "error", err)
	}

	cmd.SetContext(client.NewContext(cmd.Context(), app))
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "campaign service address (host:port)")
	rootCmd.PersistentFlags().StringVar(&scope, "scope", "", "data scope to work in")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(campaignCmd.Cmd)
	rootCmd.AddCommand(itemCmd.Cmd)
}

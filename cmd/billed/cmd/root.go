// Package cmd provides the billed command line client.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"billed/internal/cli"
	"billed/internal/config"
	"billed/internal/session"
	"billed/internal/store"
	"billed/internal/store/remote"
)

var (
	debug       bool
	apiURL      string
	apiToken    string
	sessionFile string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "billed",
	Short: "Submit and review expense bills",
	Long: `billed talks to the bill store API to list your bills and submit
new ones with their receipt.

Example:
  billed login --email jane@example.com
  billed bills list --sort
  billed bills new --type Transports --name Taxi --amount 12 --date 2024-03-01 --file taxi.jpg`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cli.LoadEnvFile()

		level := cli.ParseLevel(os.Getenv("LOG_LEVEL"))
		if debug {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
			Level: level,
		})))

		cfg = config.Load()
		if apiURL != "" {
			cfg.APIURL = apiURL
		}
		if apiToken != "" {
			cfg.APIToken = apiToken
		}
		if sessionFile != "" {
			cfg.SessionFile = sessionFile
		}
		return nil
	},
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "bill store API URL (default $BILLED_API_URL)")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", "", "bill store API token (default $BILLED_API_TOKEN)")
	rootCmd.PersistentFlags().StringVar(&sessionFile, "session", "", "session file (default ~/.billed/session.toml)")
}

func newStore() (*remote.Client, error) {
	if err := cfg.ValidateClient(); err != nil {
		return nil, err
	}
	return remote.NewClient(cfg.APIURL, cfg.APIToken, cfg.HTTPTimeout), nil
}

func newSessionProvider() (*session.FileProvider, error) {
	return session.NewFileProvider(cfg.SessionFile)
}

// navigator reports view changes on the command output.
func navigator(cmd *cobra.Command) store.Navigator {
	return store.NavigatorFunc(func(route string) {
		slog.Debug("Navigate", "route", route)
		cmd.Printf("Next: %s\n", route)
	})
}

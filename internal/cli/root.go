// Package cli defines the Cobra command tree for the FormCourier client.
// This file contains the root command and the shared application wiring.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/formcourier/FormCourier/internal/api"
	"github.com/formcourier/FormCourier/internal/config"
	"github.com/formcourier/FormCourier/internal/session"
	"github.com/formcourier/FormCourier/internal/store"
)

var version = "dev" // set via ldflags at build time

// App bundles the dependencies the commands operate on. It is wired in main
// after the state directory lock has been acquired.
type App struct {
	StateDir string
	Config   *config.Config
	Store    store.Store
	Manager  *session.Manager
}

var app *App

// Client builds an API client from the current configuration.
func (a *App) Client() (*api.Client, error) {
	if a.Config.Server.BaseURL == "" {
		return nil, fmt.Errorf("server URL not configured; set server.base_url in %s/config.yaml or FORMCOURIER_SERVER_URL", a.StateDir)
	}
	return api.NewClient(
		api.WithBaseURL(a.Config.Server.BaseURL),
		api.WithToken(a.Config.Server.Token),
	)
}

// SaveConfig persists the current configuration back to the state directory.
func (a *App) SaveConfig() error {
	return config.WriteConfig(a.StateDir, a.Config)
}

var rootCmd = &cobra.Command{
	Use:   "formcourier",
	Short: "Offline-first field survey client",
	Long: `FormCourier fills survey forms in the field without connectivity.
Forms are cached locally, answers and audio recordings are queued in a
local store, and completed submissions are pushed to the central server
when a connection is available.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command against the wired application. Called from
// main.
func Execute(a *App) {
	app = a
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(formsCmd)
	rootCmd.AddCommand(fillCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(syncCmd)
}

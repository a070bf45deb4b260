package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"facturador/internal/api"
	"facturador/internal/config"
	"facturador/internal/home"
	"facturador/internal/retrieve"
	"facturador/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "facturador",
	Short: "Download invoice PDFs from a billing portal behind a vendor dashboard",
	Long: `Facturador drives a real Chrome session into a vendor dashboard,
follows it to the Stripe-style billing portal behind it, and downloads
the invoice PDFs for a date window.

The session is persisted between runs; the first run opens a visible
browser window and waits for you to log in (second factor included).

Examples:
  facturador fetch --from 2025-06 --to 2025-06   # One month
  facturador fetch --from 2025-01                # Everything since January
  facturador fetch --all                         # Full history
  facturador batch facturas.xlsx                 # Every triggered row of a workbook`,
	Version: version.GitRelease,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.facturador/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "facturador home directory (default: ~/.facturador)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		api.SetOutputFormat(outputFormat)
	}

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the CLI's structured logger. Logs go to stderr so
// structured command output on stdout stays parseable.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// loadHome resolves and prepares the home directory.
func loadHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return h, nil
}

// loadConfig builds the config manager, preferring an explicit --config
// over the home directory's config file over viper's search paths.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	path := cfgFile
	if path == "" && h.ConfigExists() {
		path = h.ConfigPath()
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return mgr, nil
}

// loadRetriever wires up everything a retrieval run needs.
func loadRetriever() (*retrieve.Service, *config.Manager, error) {
	h, err := loadHome()
	if err != nil {
		return nil, nil, err
	}
	mgr, err := loadConfig(h)
	if err != nil {
		return nil, nil, err
	}
	return retrieve.New(mgr, h, newLogger()), mgr, nil
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/obrasoft/docledger/internal/common"
)

var (
	siteDir string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docledger",
	Short: "Extract values from site documents and reconcile them into the ledger workbook",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; real deployments set the environment directly.
		_ = godotenv.Load()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&siteDir, "site", ".", "site folder holding contractors, site.json and the ledger")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// loadSite resolves configuration for the selected site folder and returns
// it together with the state directory path.
func loadSite() (*common.Config, *common.SiteConfig, string, error) {
	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, nil, "", err
	}
	site, err := common.LoadSiteConfig(siteDir, cfg.State.Dir)
	if err != nil {
		return nil, nil, "", err
	}
	return cfg, site, filepath.Join(siteDir, cfg.State.Dir), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fplscraper/fplscraper/internal/config"
	"github.com/fplscraper/fplscraper/internal/database"
	"github.com/fplscraper/fplscraper/internal/fpl"
	"github.com/fplscraper/fplscraper/pkg/log"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "fplscraper",
	Short: "Collect electric usage and billing data from FPL",
	Long: `FPLScraper is a CLI tool that polls the FPL customer API for billing,
usage, and hourly meter data, stores it in a local SQLite database, and
publishes sensor states and energy statistics to Home Assistant.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			log.SetDefaultLogLevel(slog.LevelDebug)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default is ./data.db)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// getDBPath returns the database file path (local directory)
func getDBPath() string {
	if dbPath != "" {
		return dbPath
	}
	return "data.db"
}

// loadConfig loads the configuration file
func loadConfig() (*config.Config, error) {
	return config.Load(getConfigPath())
}

// saveConfig saves the configuration file
func saveConfig(cfg *config.Config) error {
	return config.Save(getConfigPath(), cfg)
}

// openDB opens the database connection
func openDB() (*database.DB, error) {
	path := getDBPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	return database.New(path)
}

// newClient builds an FPL client from config, preferring a captured session
// token over credential login.
func newClient(cfg *config.Config) (*fpl.Client, error) {
	if cfg.FPL.Username == "" && cfg.FPL.Token == "" {
		return nil, fmt.Errorf("no FPL credentials configured; set fpl.username/fpl.password in %s or run 'fplscraper capture'", getConfigPath())
	}

	client := fpl.NewClient(cfg.FPL.Username, cfg.FPL.Password)
	if cfg.FPL.Token != "" {
		client.SetToken(cfg.FPL.Token)
	}
	return client, nil
}

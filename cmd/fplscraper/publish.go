package main

import (
	"fmt"
	"time"

	"github.com/fplscraper/fplscraper/internal/publisher"
	"github.com/fplscraper/fplscraper/internal/sensor"
	"github.com/spf13/cobra"
)

var (
	publishAccount string
	publishStats   bool
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Publish stored account data to Home Assistant",
	Long: `Reads the latest stored account snapshots and publishes their sensor
states to Home Assistant via HTTP API and/or the full records to MQTT.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().StringVar(&publishAccount, "account", "", "Publish a single account (default: all stored accounts)")
	publishCmd.Flags().BoolVar(&publishStats, "generate-stats", false, "Also trigger statistics generation in Home Assistant")
	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Publish started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !cfg.HomeAssistant.Enabled && !cfg.MQTT.Enabled {
		return fmt.Errorf("neither Home Assistant nor MQTT publishing is enabled in config")
	}

	pub, err := publisher.New(cfg.MQTT, cfg.HomeAssistant)
	if err != nil {
		return fmt.Errorf("creating publisher: %w", err)
	}
	defer pub.Close()

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	accounts := []string{}
	if publishAccount != "" {
		accounts = append(accounts, publishAccount)
	} else {
		accounts, err = db.ListSnapshotAccounts()
		if err != nil {
			return fmt.Errorf("listing stored accounts: %w", err)
		}
	}
	if len(accounts) == 0 {
		fmt.Println("No stored account data found; run 'fplscraper fetch' first")
		return nil
	}

	for _, account := range accounts {
		rec, takenAt, err := db.LatestSnapshot(account)
		if err != nil {
			return fmt.Errorf("loading snapshot for %s: %w", account, err)
		}
		if rec == nil {
			fmt.Printf("No snapshot found for %s\n", account)
			continue
		}

		if cfg.MQTT.Enabled {
			if err := pub.PublishMQTT(account+"/state", rec); err != nil {
				fmt.Printf("⚠ MQTT publish for %s failed: %v\n", account, err)
			} else {
				fmt.Printf("✓ Published %s record to MQTT\n", account)
			}
		}

		if !cfg.HomeAssistant.Enabled {
			continue
		}

		states := sensor.States(rec)
		published := 0
		for _, state := range states {
			entityID := pub.EntityID(account, state.Key)
			if err := pub.PublishState(entityID, state.State, takenAt); err != nil {
				fmt.Printf("⚠ %s: %v\n", entityID, err)
				continue
			}
			published++
		}
		fmt.Printf("✓ Published %d/%d sensors for %s\n", published, len(states), account)

		if publishStats {
			entityID := pub.EntityID(account, "daily_usage_kwh")
			inserted, updated, err := pub.GenerateStatistics(entityID)
			if err != nil {
				fmt.Printf("⚠ Statistics generation for %s failed: %v\n", account, err)
				continue
			}
			fmt.Printf("✓ Statistics generated for %s (%d inserted, %d updated)\n",
				account, inserted, updated)
		}
	}

	return nil
}

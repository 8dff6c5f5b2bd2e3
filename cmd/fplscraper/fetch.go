package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fplscraper/fplscraper/internal/config"
	"github.com/fplscraper/fplscraper/internal/database"
	"github.com/fplscraper/fplscraper/internal/fpl"
	"github.com/fplscraper/fplscraper/internal/stats"
	"github.com/fplscraper/fplscraper/pkg/models"
	"github.com/spf13/cobra"
)

// backfillPause spaces the per-day hourly requests out; hammering the
// energy endpoint gets the session blocked by Cloudflare.
const backfillPause = time.Second

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch account data from FPL",
	Long: `Runs one refresh cycle: authenticates, discovers open accounts (or uses
the configured list), rebuilds each account's record, stores snapshots, and
records hourly cost/usage statistics with backfill.`,
	RunE: runFetch,
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Printf("=== Fetch started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return runCycle(context.Background(), cfg, db)
}

// runCycle performs one full refresh: fetch, snapshot, statistics. Shared
// with the daemon loop.
func runCycle(ctx context.Context, cfg *config.Config, db *database.DB) error {
	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	records, err := client.FetchAllAccountData(ctx, cfg.FPL.Accounts)

	// A saved token may have expired; retry once with a credential login.
	var authErr *fpl.AuthError
	if err != nil && errors.As(err, &authErr) && cfg.FPL.Username != "" {
		fmt.Println("⚠ Session token rejected, retrying with credential login...")
		client.SetToken("")
		records, err = client.FetchAllAccountData(ctx, cfg.FPL.Accounts)
	}
	if err != nil {
		var refreshErr *fpl.RefreshError
		if errors.As(err, &refreshErr) {
			return fmt.Errorf("login rejected (%s); check fpl.username/fpl.password in %s", refreshErr.Result, getConfigPath())
		}
		return fmt.Errorf("fetching account data: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No account data fetched")
		return nil
	}

	pub := stats.New(db)
	for account, rec := range records {
		if err := db.SaveSnapshot(account, rec); err != nil {
			return fmt.Errorf("saving snapshot for %s: %w", account, err)
		}

		costPoints, usagePoints, err := recordStatistics(ctx, client, pub, cfg, rec)
		if err != nil {
			fmt.Printf("⚠ Statistics for %s failed: %v\n", account, err)
			continue
		}
		fmt.Printf("✓ %s: snapshot saved, %d cost and %d usage statistics recorded\n",
			account, costPoints, usagePoints)
	}

	return nil
}

// recordStatistics publishes the cycle's hourly readings and backfills any
// gap, one day per request, oldest first.
func recordStatistics(ctx context.Context, client *fpl.Client, pub *stats.Publisher, cfg *config.Config, rec *models.AccountRecord) (costPoints, usagePoints int, err error) {
	account := rec.AccountNumber

	days, err := pub.BackfillDays(account, cfg.GetBackfillDays())
	if err != nil {
		return 0, 0, fmt.Errorf("deciding backfill window: %w", err)
	}

	hourly := append([]models.HourlyReading(nil), rec.HourlyUsage...)
	for i := days; i >= 1; i-- {
		day := time.Now().AddDate(0, 0, -i)
		entries, err := client.GetHourlyUsage(ctx, account, rec.Premise, rec.MeterNo, day)
		if err != nil {
			fmt.Printf("⚠ Hourly backfill for %s on %s failed: %v\n",
				account, day.Format("2006-01-02"), err)
			continue
		}
		hourly = append(hourly, entries...)

		select {
		case <-ctx.Done():
			return 0, 0, ctx.Err()
		case <-time.After(backfillPause):
		}
	}

	return pub.PublishHourly(ctx, account, hourly)
}

package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var listStats bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored account data",
	Long:  `Displays the stored account snapshots and their statistic series.`,
	RunE:  runList,
}

func init() {
	listCmd.Flags().BoolVar(&listStats, "stats", false, "Show recent statistic points per series")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	accounts, err := db.ListSnapshotAccounts()
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
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
			continue
		}

		fmt.Printf("\nAccount %s (updated %s)\n", account, humanize.Time(takenAt))
		fmt.Println("----------------------------------------")
		fmt.Printf("  Bill cycle:  %s to %s (day %d of %d)\n",
			rec.CurrentBillDate.Format("2006-01-02"),
			rec.NextBillDate.Format("2006-01-02"),
			rec.AsOfDays, rec.ServiceDays)
		if rec.BillToDate != nil && rec.ProjectedBill != nil {
			fmt.Printf("  Bill:        $%.2f to date, $%.2f projected\n",
				*rec.BillToDate, *rec.ProjectedBill)
		}
		if rec.BillToDateKWH != nil {
			fmt.Printf("  Usage:       %s kWh to date\n",
				humanize.CommafWithDigits(*rec.BillToDateKWH, 1))
		}
		if rec.BudgetBill {
			fmt.Printf("  Budget billing enrolled\n")
		}
		if rec.Balance != nil {
			pastDue := ""
			if rec.PastDue != nil && *rec.PastDue {
				pastDue = " (PAST DUE)"
			}
			fmt.Printf("  Balance:     $%.2f%s\n", *rec.Balance, pastDue)
		}
	}

	series, err := db.ListSeries()
	if err != nil {
		return fmt.Errorf("listing series: %w", err)
	}
	if len(series) > 0 {
		fmt.Printf("\nStatistic series:\n")
		fmt.Println("----------------------------------------")
		for _, s := range series {
			points, err := db.ListStatistics(s.ID, 1)
			if err != nil {
				return fmt.Errorf("listing statistics for %s: %w", s.ID, err)
			}
			if len(points) == 0 {
				fmt.Printf("  %-30s  (empty)\n", s.ID)
				continue
			}
			latest := points[0]
			fmt.Printf("  %-30s  sum %s %s through %s\n", s.ID,
				humanize.CommafWithDigits(latest.Sum, 2), s.Unit,
				latest.Start.Format("2006-01-02 15:04"))

			if listStats {
				recent, err := db.ListStatistics(s.ID, 24)
				if err != nil {
					return fmt.Errorf("listing statistics for %s: %w", s.ID, err)
				}
				for _, p := range recent {
					fmt.Printf("    %s  state %8.3f  sum %12.3f\n",
						p.Start.Format("2006-01-02 15:04"), p.State, p.Sum)
				}
			}
		}
	}

	return nil
}

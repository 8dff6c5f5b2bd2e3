package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run refresh cycles on a schedule",
	Long: `Runs fetch cycles on the configured cron schedule until interrupted.
Cycles are serialized; a tick that arrives while a cycle is still running
or before the minimum refresh gap has passed is skipped.`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	db, err := openDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	minGap := time.Duration(cfg.GetMinRefreshSeconds()) * time.Second

	var mu sync.Mutex
	var lastRun time.Time
	cycle := func() {
		if !mu.TryLock() {
			fmt.Println("⚠ Previous cycle still running, skipping this tick")
			return
		}
		defer mu.Unlock()

		if since := time.Since(lastRun); since < minGap {
			fmt.Printf("⚠ Last cycle finished %s ago (min gap %s), skipping this tick\n",
				since.Round(time.Second), minGap)
			return
		}

		fmt.Printf("=== Cycle started at %s ===\n", time.Now().Format("2006-01-02 15:04:05 MST"))
		if err := runCycle(ctx, cfg, db); err != nil {
			fmt.Printf("⚠ Cycle failed: %v\n", err)
		}
		lastRun = time.Now()
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.GetSchedule(), cycle); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.GetSchedule(), err)
	}

	fmt.Printf("Daemon started, schedule %q\n", cfg.GetSchedule())
	cycle()
	c.Start()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	fmt.Println("Shutting down...")
	cancel()
	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

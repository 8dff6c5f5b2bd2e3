package main

import (
	"context"
	"fmt"

	"github.com/fplscraper/fplscraper/internal/browser"
	"github.com/spf13/cobra"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture an FPL session token through a browser",
	Long: `Opens a browser window on the FPL login page and captures the session
token issued after sign-in. Useful when the site requires a captcha or MFA
that blocks the direct credential login. The token is saved to config.`,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.FPL.Username != "" && cfg.FPL.Password != "" {
		fmt.Println("Opening browser, credentials will be filled automatically...")
	} else {
		fmt.Println("Opening browser, sign in to FPL in the window...")
	}

	token, err := browser.CaptureToken(context.Background(), cfg.FPL.Username, cfg.FPL.Password)
	if err != nil {
		return fmt.Errorf("capturing token: %w", err)
	}

	fmt.Println("🔑 Captured session token")

	cfg.FPL.Token = token
	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving token to config: %w", err)
	}
	fmt.Printf("✓ Token saved to %s\n", getConfigPath())
	return nil
}

package main

import (
	"context"
	"fmt"

	"github.com/fplscraper/fplscraper/internal/fpl"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify FPL credentials and list accessible accounts",
	Long: `Authenticates against FPL with the configured credentials and lists the
open accounts the login can see. Useful to validate config before running
fetch or the daemon.`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	client, err := newClient(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if client.Token() == "" {
		result, err := client.Login(ctx)
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}
		switch result {
		case fpl.LoginOK:
			fmt.Println("✓ Login successful")
		case fpl.LoginInvalidUser:
			return fmt.Errorf("login rejected: unknown username")
		case fpl.LoginInvalidPassword:
			return fmt.Errorf("login rejected: wrong password")
		default:
			return fmt.Errorf("login failed")
		}
		defer client.Logout(ctx)
	} else {
		fmt.Println("Using saved session token")
	}

	accounts, err := client.GetOpenAccounts(ctx)
	if err != nil {
		return fmt.Errorf("listing accounts: %w", err)
	}

	if len(accounts) == 0 {
		fmt.Println("No open accounts found")
		return nil
	}

	fmt.Printf("Open accounts (%d):\n", len(accounts))
	for _, account := range accounts {
		fmt.Printf("  %s\n", account)
	}
	return nil
}

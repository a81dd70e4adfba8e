package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/theo/internal/config"
	"github.com/user/theo/internal/state"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Theo Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.DataDir = prompt(scanner, "Data directory", cfg.DataDir)

		backend := prompt(scanner, "Store backend (file, sqlite, redis, memory)", cfg.Store.Backend)
		switch backend {
		case state.BackendFile, state.BackendSQLite, state.BackendRedis, state.BackendMemory:
			cfg.Store.Backend = backend
		default:
			fmt.Printf("Unknown backend %q, keeping %q\n", backend, cfg.Store.Backend)
		}
		if cfg.Store.Backend == state.BackendRedis {
			cfg.Redis.URL = prompt(scanner, "Redis URL", cfg.Redis.URL)
		}

		tz := prompt(scanner, "Timezone for weekly stats (IANA name)", cfg.Analytics.Timezone)
		if _, err := time.LoadLocation(tz); err == nil {
			cfg.Analytics.Timezone = tz
		} else {
			fmt.Printf("Unknown timezone %q, keeping %q\n", tz, cfg.Analytics.Timezone)
		}

		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)

		httpOn := prompt(scanner, "Enable HTTP API (yes/no)", yesNo(cfg.HTTP.Enabled))
		cfg.HTTP.Enabled = strings.HasPrefix(strings.ToLower(httpOn), "y")
		if cfg.HTTP.Enabled {
			cfg.HTTP.Listen = prompt(scanner, "HTTP listen address", cfg.HTTP.Listen)
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}

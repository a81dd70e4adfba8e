package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/theo/internal/config"
	"github.com/user/theo/internal/state"
	"github.com/user/theo/internal/workspace"
)

var (
	cfgPath   string
	ephemeral bool
)

var rootCmd = &cobra.Command{
	Use:           "theo",
	Short:         "Log promo messages, events and ideas, and see which themes they hit",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config",
		filepath.Join(os.Getenv("HOME"), ".theo", "config.json"), "config file path")
	rootCmd.PersistentFlags().BoolVar(&ephemeral, "ephemeral", false, "keep records in memory only")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file, exiting on failure.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// openWorkspace opens the configured store and loads every collection.
func openWorkspace(ctx context.Context, cfg *config.Config) (*workspace.Workspace, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	backend := cfg.Store.Backend
	if ephemeral {
		backend = state.BackendMemory
	}
	store, err := state.Open(ctx, state.Options{
		Backend:     backend,
		DataDir:     cfg.DataDir,
		SQLitePath:  cfg.Store.SQLitePath,
		RedisURL:    cfg.Redis.URL,
		RedisPrefix: cfg.Redis.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return workspace.Open(ctx, store, workspace.Options{
		IDFormat: cfg.IDFormat,
		Location: loc,
	}), nil
}

// withWorkspace runs fn against a freshly opened workspace and closes it afterwards.
func withWorkspace(cmd *cobra.Command, fn func(ctx context.Context, cfg *config.Config, ws *workspace.Workspace) error) error {
	cfg := loadConfig()
	setupLogging(cfg)

	ctx := cmd.Context()
	ws, err := openWorkspace(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			slog.Warn("close store failed", "error", err)
		}
	}()
	return fn(ctx, cfg, ws)
}

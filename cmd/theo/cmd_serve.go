package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/user/theo/internal/config"
	"github.com/user/theo/internal/delivery"
	"github.com/user/theo/internal/report"
	"github.com/user/theo/internal/scheduler"
	"github.com/user/theo/internal/server"
	"github.com/user/theo/internal/telegram"
	"github.com/user/theo/internal/workspace"
)

const shutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the theo daemon (HTTP API, Telegram bot, scheduled digests)",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)
	if err := cfg.Validate(); err != nil {
		slog.Warn("config has problems, run 'theo config validate'", "error", err)
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ws, err := openWorkspace(ctx, cfg)
	if err != nil {
		return err
	}
	defer ws.Close()

	g, gctx := errgroup.WithContext(ctx)

	registry, adapter, err := buildDelivery(cfg, ws)
	if err != nil {
		return err
	}
	if adapter != nil {
		g.Go(func() error {
			adapter.Start(gctx)
			return nil
		})
		slog.Info("telegram adapter started")
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	sched := scheduler.New(digestJobs(cfg.Digests), func(job scheduler.Job) {
		ws.Refresh(gctx)
		text := report.Digest(ws.Analytics().Snapshot())
		if err := delivery.DefaultRetryPolicy().Deliver(gctx, registry, job.Target, text); err != nil {
			slog.Error("digest delivery failed", "name", job.Name, "target", job.Target, "error", err)
		}
	})
	registered := sched.Start()
	defer sched.Stop()

	if cfg.HTTP.Enabled {
		httpServer := &http.Server{
			Addr:              cfg.HTTP.Listen,
			Handler:           server.New(ws, cfg.Media.MaxBytes),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			slog.Info("http server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		})
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-hup:
				reexec(pidPath, cfg.DataDir)
			}
		}
	})

	slog.Info("theo started",
		"data_dir", cfg.DataDir,
		"store", cfg.Store.Backend,
		"timezone", cfg.Analytics.Timezone,
		"http", cfg.HTTP.Enabled,
		"digests", registered,
		"pid_file", pidPath,
	)

	err = g.Wait()
	slog.Info("shutting down")
	return err
}

// buildDelivery registers every available digest sender. The adapter is nil
// when no Telegram token is configured.
func buildDelivery(cfg *config.Config, ws *workspace.Workspace) (*delivery.Registry, *telegram.Adapter, error) {
	registry := delivery.NewRegistry()
	if cfg.Telegram.Token == "" {
		return registry, nil, nil
	}
	adapter, err := telegram.New(cfg.Telegram.Token, ws)
	if err != nil {
		return nil, nil, fmt.Errorf("create telegram adapter: %w", err)
	}
	registry.Register(telegram.TargetPrefix, adapter.SendTo)
	return registry, adapter, nil
}

func digestJobs(digests []config.Digest) []scheduler.Job {
	jobs := make([]scheduler.Job, 0, len(digests))
	for _, d := range digests {
		jobs = append(jobs, scheduler.Job{
			Name:     d.Name,
			Schedule: d.Schedule,
			Target:   d.Target,
			Enabled:  d.Enabled,
		})
	}
	return jobs
}

// sendDigest renders the current analytics and delivers them to target.
func sendDigest(ctx context.Context, registry *delivery.Registry, ws *workspace.Workspace, target string) error {
	return registry.Deliver(ctx, target, report.Digest(ws.Analytics().Snapshot()))
}

// reexec replaces the process with a fresh copy of itself. On failure the
// PID file is restored and the daemon keeps running.
func reexec(pidPath, dataDir string) {
	slog.Info("received SIGHUP, restarting")
	execPath, err := os.Executable()
	if err != nil {
		slog.Error("failed to get executable path", "error", err)
		return
	}
	os.Remove(pidPath)
	if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
		slog.Error("failed to re-exec", "error", err)
		if _, writeErr := writePIDFile(dataDir); writeErr != nil {
			slog.Error("failed to re-write PID file", "error", writeErr)
		}
	}
}

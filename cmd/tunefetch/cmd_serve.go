package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/tunefetch/internal/catalog"
	"github.com/user/tunefetch/internal/config"
	"github.com/user/tunefetch/internal/fetcher"
	"github.com/user/tunefetch/internal/gateway"
	"github.com/user/tunefetch/internal/resolver"
	"github.com/user/tunefetch/internal/retriever"
	"github.com/user/tunefetch/internal/scheduler"
	"github.com/user/tunefetch/internal/state"
	"github.com/user/tunefetch/internal/status"
	"github.com/user/tunefetch/internal/telegram"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tunefetch daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "tunefetch.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Engine
	sessions := state.NewSessionStore(cfg.PageSize)
	cat := newCatalogClient(cfg)
	orch := retriever.New(sessions, resolver.New(cat), fetcher.New())

	// Gateway
	gw := gateway.New(int64(cfg.MaxConcurrent))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("tunefetch started",
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"page_size", cfg.PageSize,
		"session_ttl_minutes", cfg.Session.TTLMinutes,
		"catalog_configured", cat.Configured(),
		"pid_file", pidPath,
	)

	// Telegram adapter
	var adapter *telegram.Adapter
	if cfg.Telegram.Token != "" {
		adapter, err = telegram.New(cfg.Telegram.Token, gw, cat, sessions, orch, cfg.SearchLimit)
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		gw.Queue.SetProcessor(adapter.ProcessRun)
		go adapter.Start(ctx)
		slog.Info("telegram adapter started")
	} else {
		slog.Warn("telegram adapter disabled (no token)")
	}

	// Session janitor
	if cfg.Session.TTLMinutes > 0 {
		var onRemove scheduler.OnRemove
		if adapter != nil {
			onRemove = adapter.DeleteAnchor
		}
		janitor := scheduler.New(sessions, time.Duration(cfg.Session.TTLMinutes)*time.Minute, onRemove)
		if err := janitor.Start(); err != nil {
			return fmt.Errorf("start janitor: %w", err)
		}
		defer janitor.Stop()
	}

	// Status HTTP server
	if cfg.HTTP.Enabled {
		statusSrv := status.NewServer(sessions)
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: statusSrv,
		}
		go func() {
			slog.Info("status server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("status server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}

func newCatalogClient(cfg *config.Config) *catalog.Client {
	var opts []catalog.Option
	if cfg.Catalog.BaseURL != "" {
		opts = append(opts, catalog.WithBaseURL(cfg.Catalog.BaseURL))
	}
	if cfg.Catalog.LegacyBaseURL != "" {
		opts = append(opts, catalog.WithLegacyBaseURL(cfg.Catalog.LegacyBaseURL))
	}
	if cfg.Catalog.RateLimit > 0 {
		opts = append(opts, catalog.WithRateLimit(cfg.Catalog.RateLimit, int(cfg.Catalog.RateLimit)*2))
	}
	return catalog.New(cfg.Catalog.APIKey, opts...)
}

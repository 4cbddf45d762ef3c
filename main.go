package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lorebook-binder/api"
	"lorebook-binder/binder"
	"lorebook-binder/binding"
	"lorebook-binder/config"
	"lorebook-binder/event"
	"lorebook-binder/host"
	"lorebook-binder/notify"
	"lorebook-binder/settings"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "lorebook-binder",
		Short:         "Bind lorebooks to presets and presets to characters",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddCommand(newServeCommand())
	root.AddCommand(newBindingsCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the binder daemon and its HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newBindingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bindings",
		Short: "Print the stored bindings as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			storage, closeStorage, err := openStorage(cfg, zap.NewNop())
			if err != nil {
				return err
			}
			defer closeStorage()

			b, err := binding.NewManager(storage, nil).Load()
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(b)
		},
	}
}

func newLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parse LOG_LEVEL: %w", err)
		}
		zcfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return zcfg.Build()
}

// openStorage returns the configured settings backend and a func that
// flushes and closes it.
func openStorage(cfg *config.Config, logger *zap.Logger) (settings.Storage, func(), error) {
	switch cfg.SettingsDriver {
	case config.DriverSQLite:
		s, err := settings.NewSQLiteStorage(cfg.SettingsDB, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("close settings", zap.Error(err))
			}
		}, nil
	default:
		s, err := settings.NewFileStorage(cfg.SettingsFile, cfg.PersistDebounce, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				logger.Error("close settings", zap.Error(err))
			}
		}, nil
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	storage, closeStorage, err := openStorage(cfg, logger.Named("settings"))
	if err != nil {
		return fmt.Errorf("open settings: %w", err)
	}
	defer closeStorage()

	loop := event.NewLoop(logger.Named("event"))
	h, err := host.NewFileMemory(cfg.HostFile, cfg.PersistDebounce, loop, logger.Named("host"))
	if err != nil {
		return fmt.Errorf("load host snapshot: %w", err)
	}
	defer func() {
		if err := h.Close(); err != nil {
			logger.Error("close host snapshot", zap.Error(err))
		}
	}()
	history := notify.NewHistory(0)
	hub := notify.NewHub(logger.Named("ws"))
	defer hub.Close()
	notifier := notify.New(logger.Named("notice"), history, hub)
	bm := binding.NewManager(storage, logger.Named("binding"))

	bd := binder.New(binder.Deps{
		Loop:     loop,
		Bindings: bm,
		Host:     h,
		Notifier: notifier,
		Logger:   logger,
	})
	bd.Start()
	defer bd.Stop()

	router := api.RegisterRoutes(api.Deps{
		Bindings: bm,
		Host:     h,
		Binder:   bd,
		Notifier: notifier,
		History:  history,
		Hub:      hub,
		Logger:   logger.Named("api"),
	})

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{Addr: cfg.Addr(), Handler: router}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("lorebook-binder listening", zap.String("addr", cfg.Addr()))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hub.Close()
	return srv.Shutdown(shutdownCtx)
}

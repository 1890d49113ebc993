package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AtharvRaotole/reel-picks/internal/api"
	"github.com/AtharvRaotole/reel-picks/internal/config"
	"github.com/AtharvRaotole/reel-picks/internal/events"
	"github.com/AtharvRaotole/reel-picks/internal/favorites"
	"github.com/AtharvRaotole/reel-picks/internal/recent"
	"github.com/AtharvRaotole/reel-picks/internal/reminders"
	"github.com/AtharvRaotole/reel-picks/internal/scheduler"
	"github.com/AtharvRaotole/reel-picks/internal/services/tmdb"
	"github.com/AtharvRaotole/reel-picks/internal/settings"
	"github.com/AtharvRaotole/reel-picks/internal/storage"
	"github.com/AtharvRaotole/reel-picks/internal/utils"
	"github.com/AtharvRaotole/reel-picks/internal/websocket"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, catalog proxy and reminder scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// 2. Setup logger
	logger := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)
	logger.Info("Starting Reel Picks")
	logger.WithField("config_dir", cfg.ConfigDir).Info("Configuration loaded")

	// 3. Open the storage area
	backend, err := storage.OpenBolt(cfg.DatabaseFile, cfg.StorageQuotaBytes)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backend.Close()
	logger.WithField("path", cfg.DatabaseFile).Info("Storage opened")

	bus := events.NewBus(logger)
	defer bus.Close()

	// 4. Stores
	favStore := favorites.NewStore(backend, bus, logger)
	defer favStore.Close()
	recentStore := recent.NewStore(backend, bus, logger)
	defer recentStore.Close()
	reminderStore := reminders.NewStore(backend, bus, logger)
	defer reminderStore.Close()
	flags := settings.NewFlags(backend, bus, logger)

	// 5. Catalog client
	catalog, err := tmdb.NewClient(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog client: %w", err)
	}
	logger.Info("Catalog client initialized")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 6. Live updates
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)
	stopForward := hub.ForwardBus(bus)
	defer stopForward()

	// 7. Reminder scheduler
	notifier := scheduler.MultiNotifier{scheduler.LogNotifier{Logger: logger}, hub}
	sched := scheduler.NewReminderScheduler(reminderStore, notifier, nil, cfg.ReminderCheckInterval, logger)
	sched.RemoveOnTrigger = true
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// 8. HTTP server
	server := api.NewServer(ctx, cfg, api.Deps{
		Catalog:   catalog,
		Favorites: favStore,
		Recent:    recentStore,
		Reminders: reminderStore,
		Flags:     flags,
		Hub:       hub,
	}, logger)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil {
			serverErrChan <- err
		}
	}()

	// 9. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("Reel Picks is running")

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
	}

	logger.Info("Reel Picks stopped")
	return nil
}

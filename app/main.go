package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/feedhook/feedhook/app/cfg"
	"github.com/feedhook/feedhook/app/config"
	"github.com/feedhook/feedhook/app/database"
	"github.com/feedhook/feedhook/app/feed"
	"github.com/feedhook/feedhook/app/scheduler"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	slog.Info("Starting feedhook", "version", appCfg.Version)

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	loader := config.NewLoader(appCfg.FeedsDir)
	feeds, err := loader.LoadAll()
	if err != nil {
		slog.Error("Failed to load feed configurations", "error", err)
		os.Exit(1)
	}
	if len(feeds) == 0 {
		slog.Error("No feed configurations found", "dir", appCfg.FeedsDir)
		os.Exit(1)
	}
	slog.Info("Loaded feed configurations", "count", len(feeds))

	httpClient := &http.Client{Timeout: 30 * time.Second}

	normalizer := feed.NewNormalizer(httpClient, appCfg.UserAgent)
	itemRepo := database.NewItemRepository(db)
	processor := feed.NewProcessor(normalizer, itemRepo, httpClient)

	feedScheduler := scheduler.NewScheduler(feeds, processor)
	feedScheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	slog.Info("Received signal, shutting down", "signal", sig.String())

	feedScheduler.Stop()
}

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/timmy/creatorkit/internal/config"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/repository"
	"github.com/timmy/creatorkit/internal/service"
	"github.com/timmy/creatorkit/internal/source/manifest"
	"github.com/timmy/creatorkit/internal/youtube"
)

// backfill records videos and caches transcripts for a JSONL manifest of
// {"user_id": ..., "url": ...} lines.
func main() {
	// Initialize logger first (with defaults)
	appLogger := logger.New(&logger.Config{
		Level:       "info",
		Format:      "json",
		ServiceName: "creatorkit-backfill",
	})
	logger.SetDefaultLogger(appLogger)

	// Parse command line flags
	manifestPath := flag.String("manifest", "", "Path to a JSONL manifest of user_id/url pairs")
	limit := flag.Int("limit", 0, "Maximum number of items to process (0 = all)")
	workers := flag.Int("workers", 0, "Number of concurrent workers (0 = config value)")
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	if *manifestPath == "" {
		appLogger.Fatal("-manifest is required")
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if *workers > 0 {
		cfg.Backfill.Workers = *workers
	}

	appLogger.WithFields(logger.Fields{
		"manifest": *manifestPath,
		"limit":    *limit,
		"workers":  cfg.Backfill.Workers,
	}).Info("Starting backfill")

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	ytCfg := &youtube.Config{
		APIKey:            cfg.YouTube.APIKey,
		BaseURL:           cfg.YouTube.BaseURL,
		TranscriptBaseURL: cfg.YouTube.TranscriptBaseURL,
		Language:          cfg.YouTube.Language,
	}

	// Backfill only touches videos and transcripts; titles and images are
	// produced interactively.
	transcriptService := service.NewTranscriptService(
		repository.NewTranscriptRepository(db),
		youtube.NewTranscriptClient(ytCfg),
		appLogger,
	)
	videoService := service.NewVideoService(
		repository.NewVideoRepository(db),
		youtube.NewMetadataClient(ytCfg),
		transcriptService,
		nil,
		nil,
		appLogger,
	)
	backfillService := service.NewBackfillService(videoService, transcriptService, repository.NewJobRepository(db), appLogger,
		&service.BackfillConfig{Workers: cfg.Backfill.Workers})

	ctx, cancel := context.WithCancel(appLogger.WithContext(context.Background()))
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		appLogger.Info("Received shutdown signal, canceling...")
		cancel()
	}()

	stats, err := backfillService.Run(ctx, manifest.NewAdapter(*manifestPath), *limit)
	if err != nil {
		appLogger.WithError(err).Fatal("Backfill failed")
	}
	appLogger.WithFields(logger.Fields{
		"total":             stats.TotalItems,
		"processed":         stats.ProcessedItems,
		"skipped":           stats.SkippedItems,
		"failed":            stats.FailedItems,
		"cached_transcript": stats.CachedTranscript,
		"empty_transcript":  stats.EmptyTranscript,
	}).Info("Backfill completed")
}

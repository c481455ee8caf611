package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/timmy/creatorkit/internal/api"
	"github.com/timmy/creatorkit/internal/api/handler"
	"github.com/timmy/creatorkit/internal/auth"
	"github.com/timmy/creatorkit/internal/chat"
	"github.com/timmy/creatorkit/internal/config"
	"github.com/timmy/creatorkit/internal/entitlement"
	"github.com/timmy/creatorkit/internal/logger"
	"github.com/timmy/creatorkit/internal/ratelimit"
	"github.com/timmy/creatorkit/internal/render"
	"github.com/timmy/creatorkit/internal/repository"
	"github.com/timmy/creatorkit/internal/service"
	"github.com/timmy/creatorkit/internal/storage"
	"github.com/timmy/creatorkit/internal/tools"
	"github.com/timmy/creatorkit/internal/youtube"
)

func main() {
	appLogger := logger.NewDefault()
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// Support CONFIG_PATH environment variable for production deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		appLogger.WithError(err).Fatal("Invalid config")
	}

	ctx := context.Background()

	// Initialize database
	db, err := repository.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	sqlDB, err := db.DB()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to access database handle")
	}
	defer sqlDB.Close()

	videoRepo := repository.NewVideoRepository(db)
	transcriptRepo := repository.NewTranscriptRepository(db)
	titleRepo := repository.NewTitleRepository(db)
	imageRepo := repository.NewImageRepository(db)

	// Initialize storage (supports R2, S3, S3-compatible)
	objectStorage, err := storage.NewStorage(storage.FromConfig(&cfg.Storage))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize storage")
	}
	if err := objectStorage.EnsureBucket(ctx); err != nil {
		appLogger.WithError(err).Fatal("Failed to ensure storage bucket")
	}

	// External clients
	ytCfg := &youtube.Config{
		APIKey:            cfg.YouTube.APIKey,
		BaseURL:           cfg.YouTube.BaseURL,
		TranscriptBaseURL: cfg.YouTube.TranscriptBaseURL,
		Language:          cfg.YouTube.Language,
	}
	metadataClient := youtube.NewMetadataClient(ytCfg)
	transcriptClient := youtube.NewTranscriptClient(ytCfg)

	entitlements := entitlement.NewClient(&entitlement.Config{
		APIKey:  cfg.Entitlement.APIKey,
		BaseURL: cfg.Entitlement.BaseURL,
	})

	chatCompletion := service.NewCompletionService(&service.CompletionConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ChatModel,
		Timeout: cfg.Chat.MaxDuration,
	})
	titleCompletion := service.NewCompletionService(&service.CompletionConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.TitleModel,
	})
	imageGenerator := service.NewImageGenerator(&service.ImageGeneratorConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
		Model:   cfg.OpenAI.ImageModel,
		Size:    cfg.OpenAI.ImageSize,
		Quality: cfg.OpenAI.ImageQuality,
		Style:   cfg.OpenAI.ImageStyle,
	})

	// Initialize services
	transcriptService := service.NewTranscriptService(transcriptRepo, transcriptClient, appLogger)
	titleService := service.NewTitleService(titleRepo, titleCompletion, cfg.OpenAI.TitleModel, appLogger)
	imageService := service.NewImageService(imageRepo, objectStorage, imageGenerator, entitlements, appLogger,
		&service.ImageServiceConfig{
			Feature: cfg.Entitlement.ImageFeature,
			Event:   cfg.Entitlement.ImageEvent,
		})
	videoService := service.NewVideoService(videoRepo, metadataClient, transcriptService, titleService, imageService, appLogger)
	backfillService := service.NewBackfillService(videoService, transcriptService, repository.NewJobRepository(db), appLogger,
		&service.BackfillConfig{Workers: cfg.Backfill.Workers})

	// Tool registry and chat
	registry := tools.NewRegistry(appLogger)
	if err := tools.RegisterBuiltins(registry, tools.Dependencies{
		Transcripts: transcriptService,
		Images:      imageService,
		Titles:      titleService,
	}); err != nil {
		appLogger.WithError(err).Fatal("Failed to register tools")
	}
	appLogger.WithField("tools", registry.Names()).Info("Tools registered")

	orchestrator := chat.NewOrchestrator(chat.NewProvider(chatCompletion), registry, videoService, appLogger, &chat.Config{
		Model:    cfg.OpenAI.ChatModel,
		MaxSteps: cfg.Chat.MaxSteps,
	})
	renderer := render.New(&render.Config{TruncateThreshold: cfg.Chat.TruncateThreshold}, appLogger)

	verifier, err := auth.NewVerifier(&auth.Config{
		IssuerURL:    cfg.Auth.IssuerURL,
		Audience:     cfg.Auth.Audience,
		HMACSecret:   cfg.Auth.HMACSecret,
		PublicKeyPEM: cfg.Auth.PublicKeyPEM,
	})
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize token verifier")
	}

	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		l, closeLimiter, err := ratelimit.New(ctx, &ratelimit.Config{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			Burst:             cfg.RateLimit.Burst,
			RedisAddr:         cfg.Redis.Addr,
			RedisPassword:     cfg.Redis.Password,
			RedisDB:           cfg.Redis.DB,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize rate limiter")
		}
		defer closeLimiter()
		limiter = l
	}

	router := api.SetupRouter(cfg, &api.Dependencies{
		Videos:       videoService,
		Images:       imageService,
		Backfill:     backfillService,
		Orchestrator: orchestrator,
		Renderer:     renderer,
		Verifier:     verifier,
		Limiter:      limiter,
		HealthChecks: map[string]handler.HealthCheck{
			"database": sqlDB.PingContext,
			"storage": func(ctx context.Context) error {
				_, err := objectStorage.Exists(ctx, ".health")
				return err
			},
		},
		Logger: appLogger,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		appLogger.WithFields(logger.Fields{
			"port": cfg.Server.Port,
			"mode": cfg.Server.Mode,
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	// Graceful shutdown; open chat streams get the full chat budget to finish
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Chat.MaxDuration+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Fatal("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}

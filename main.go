package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"sjsage522/carlistingworker/config"
	"sjsage522/carlistingworker/internal/render"
	"sjsage522/carlistingworker/internal/scrape"
	"sjsage522/carlistingworker/logger"
	"sjsage522/carlistingworker/services/cache"
	"sjsage522/carlistingworker/services/publisher"
	"sjsage522/carlistingworker/services/server"
	"sjsage522/carlistingworker/services/store"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize logger first
	logger.Init()
	log := logger.Default

	// Load and validate configuration
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	log.Info().
		Str("environment", cfg.Environment).
		Int("max_workers", cfg.MaxWorkers).
		Str("listen_addr", cfg.ListenAddr).
		Msg("Starting application")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize services
	cacheService := cache.NewMemcacheService(cfg.MemcacheAddr)
	logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)

	var pub publisher.Publisher
	if cfg.RedisAddr != "" {
		pub = publisher.NewRedisPublisher(
			ctx,
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisStreamMaxLength,
		)
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	} else {
		pub = publisher.NewNoopPublisher()
		log.Info().Msg("Record publishing disabled, no Redis configured")
	}
	defer pub.Close()

	wpStore := store.NewWordPressStore(cfg.StoreBaseURL, cfg.StoreUsername, cfg.StoreAppPassword)

	factory := render.NewChromeFactory(cfg.Headless, cfg.PageLoadTimeout)
	orchestrator := scrape.NewOrchestrator(scrape.OrchestratorConfig{
		SearchBaseURL:  cfg.SearchBaseURL,
		MaxWorkers:     cfg.MaxWorkers,
		AcquireTimeout: cfg.AcquireTimeout,
		TaskTimeout:    cfg.TaskTimeout,
	}, factory, wpStore, pub)

	srv := server.New(cfg, orchestrator, wpStore, cacheService)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server exited with error")
		} else {
			log.Info().Msg("HTTP server exited normally")
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
}

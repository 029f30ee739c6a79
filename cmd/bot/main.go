// Package main is the entry point for the Tombola bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tombola-bot/internal/bot"
	"tombola-bot/internal/config"
	"tombola-bot/internal/pkg/db"
	"tombola-bot/internal/repository"
	"tombola-bot/internal/server"
	"tombola-bot/internal/service"
	"tombola-bot/internal/tombola"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("level", cfg.Log.Level).Msg("Unknown log level, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("scores", cfg.Storage.Scores).
		Str("settings", cfg.Storage.Settings).
		Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	checks := make(map[string]server.CheckFunc)

	var dbPool *db.Pool
	if cfg.NeedsPostgres() {
		dbPool, err = db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer dbPool.Close()

		if err := db.Migrate(ctx, dbPool.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		checks["postgres"] = dbPool.HealthCheck
	}

	var rdb *redis.Client
	if cfg.NeedsRedis() {
		rdb, err = db.NewRedis(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer func() { _ = rdb.Close() }()
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// Initialize stores
	var scoreStore tombola.ScoreStore
	if cfg.Storage.Scores == config.BackendRedis {
		scoreStore = repository.NewRedisScoreStore(rdb)
	} else {
		scoreStore = repository.NewScoreRepository(dbPool.Pool)
	}

	var settingsStore service.SettingsStore
	if cfg.Storage.Settings == config.BackendRedis {
		settingsStore = repository.NewRedisSettingsStore(rdb)
	} else {
		settingsStore = repository.NewSettingsRepository(dbPool.Pool)
	}

	// Initialize bot
	telegramBot, err := bot.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create bot")
	}
	announcer := telegramBot.Announcer()

	// Initialize services
	registry := tombola.NewRegistry(func(chatID int64) *tombola.Game {
		return tombola.NewGame(chatID, scoreStore)
	})

	settingsService := service.NewSettingsService(settingsStore, cfg.Tombola.SettingsCacheSize, cfg.Tombola.SettingsCacheTTL)

	matchService := service.NewMatchService(registry, settingsService, announcer, announcer, service.MatchConfig{
		AutoInterval:      cfg.Tombola.AutoInterval,
		NotifyConcurrency: cfg.Tombola.NotifyConcurrency,
		LockTimeout:       cfg.Tombola.LockTimeout,
	})

	retrier, err := service.NewFlushRetrier(matchService, cfg.Tombola.FlushRetrySpec, 30*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule score flush retries")
	}

	telegramBot.Register(&bot.Dependencies{
		Matches:  matchService,
		Settings: settingsService,
	})

	var status *server.Server
	if cfg.Status.Addr != "" {
		status = server.New(cfg.Status.Addr, checks)
		status.Start()
	}

	retrier.Start()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start bot in a goroutine
	go func() {
		log.Info().Msg("Bot is starting...")
		telegramBot.Start()
	}()

	// Wait for shutdown signal
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")

	// Graceful shutdown
	telegramBot.Stop()
	retrier.Stop()
	matchService.Shutdown()

	// Last chance for scores that could not be saved during the session.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if failed := matchService.RetryPendingFlushes(flushCtx); failed > 0 {
		log.Error().Int("chats", failed).Msg("Scores lost on exit")
	}
	flushCancel()

	if status != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := status.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Status server shutdown failed")
		}
		shutdownCancel()
	}

	log.Info().Msg("Bot stopped gracefully")
}

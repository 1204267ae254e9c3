package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eduquest/questgate/internal/config"
	"github.com/eduquest/questgate/internal/database"
	"github.com/eduquest/questgate/internal/handler"
	"github.com/eduquest/questgate/internal/logger"
	"github.com/eduquest/questgate/internal/middleware"
	"github.com/eduquest/questgate/internal/router"
	"github.com/eduquest/questgate/internal/session"
	"github.com/eduquest/questgate/internal/upstream"
	"github.com/eduquest/questgate/internal/validator"
	"github.com/eduquest/questgate/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("api", cfg.APIBaseURL).
		Str("generator", cfg.GeneratorBaseURL).
		Msg("Starting QuestGate")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Upstream Clients ───────────────────────────────────
	apiClient := upstream.NewAPIClient(cfg.APIBaseURL, cfg.APITimeout, log)
	genClient := upstream.NewGeneratorClient(cfg.GeneratorBaseURL, cfg.GeneratorTimeout, log)

	// ─── Initialize Auth & Session Store ──────────────────────────────
	auth := middleware.NewAuthenticator(apiClient, rdb, cfg, log)
	store := session.NewStore(apiClient, genClient, auth, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		User:    handler.NewUserHandler(),
		Attempt: handler.NewAttemptHandler(store, log),
		Bonus:   handler.NewBonusHandler(store, log),
		WS:      handler.NewWSHandler(store, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	reaper := worker.NewReaperWorker(store, cfg.SessionTTL, log)
	go reaper.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(auth, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the reaper.
	workerCancel()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

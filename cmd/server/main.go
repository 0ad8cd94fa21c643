package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/config"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/database"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/handler"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/logger"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/platform"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/repository"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/router"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/service"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/session"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/validator"
	"github.com/Narla-Venkata-Anand-Sai-Kumar/TalentLens-sub001/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Interview Conductor")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Platform Backend Client ───────────────────────────────────────
	api := platform.NewClient(cfg, log)

	// ─── Initialize Repositories and Services ──────────────────────────
	auditRepo := repository.NewAuditRepository(pool)
	authService := service.NewAuthService(cfg, rdb, api)
	registry := session.NewRegistry(api, rdb, cfg, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Session: handler.NewSessionHandler(registry, authService),
		WS:      handler.NewWSHandler(registry, log, cfg.AllowedOrigins),
		Monitor: handler.NewMonitorHandler(rdb, auditRepo, registry, cfg.MonitorAPIKey, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	securityWorker := worker.NewSecurityReportWorker(pool, rdb, api, log)
	responseWorker := worker.NewResponseAuditWorker(pool, rdb, log)

	go securityWorker.Start(workerCtx)
	go responseWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, registry, handlers, cfg)

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

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

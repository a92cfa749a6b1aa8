package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/quizdesk-portal/internal/backend"
	"github.com/stemsi/quizdesk-portal/internal/config"
	"github.com/stemsi/quizdesk-portal/internal/database"
	"github.com/stemsi/quizdesk-portal/internal/handler"
	"github.com/stemsi/quizdesk-portal/internal/logger"
	"github.com/stemsi/quizdesk-portal/internal/payment"
	"github.com/stemsi/quizdesk-portal/internal/repository"
	"github.com/stemsi/quizdesk-portal/internal/router"
	"github.com/stemsi/quizdesk-portal/internal/service"
	"github.com/stemsi/quizdesk-portal/internal/session"
	"github.com/stemsi/quizdesk-portal/internal/validator"
	"github.com/stemsi/quizdesk-portal/internal/worker"
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
		Str("backend", cfg.BackendBaseURL).
		Msg("Starting quizdesk portal")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL (checkout ledger) ───────────────────────
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

	// ─── Stores and Clients ───────────────────────────────────────────
	api := backend.NewClient(cfg, log)
	sessions, err := session.NewStore(rdb, []byte(cfg.SessionSealKey), cfg.JWTExpiry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid SESSION_SEAL_KEY")
	}
	checkoutRepo := repository.NewCheckoutRepository(pool)
	stripe := payment.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	if cfg.StripeSecretKey == "" {
		log.Warn().Msg("STRIPE_SECRET_KEY not set, checkouts cannot be confirmed")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, api, sessions, log)
	settingsService := service.NewSettingsService(api, sessions, log)
	attemptService := service.NewAttemptService(api, rdb, cfg.AttemptTTL, log)
	quizService := service.NewQuizService(api, cfg.ShareBaseURL, log)
	planService := service.NewPlanService(api, log)
	verticalService := service.NewVerticalService(api, log)
	userService := service.NewUserService(api, log)
	dashboardService := service.NewDashboardService(api)
	navigationService := service.NewNavigationService()
	billingService := service.NewBillingService(api, log)
	checkoutService := service.NewCheckoutService(
		checkoutRepo, stripe, api, planService, sessions, rdb,
		cfg.ReconcileMaxAttempts, cfg.ReconcileBackoff+cfg.BackendTimeout, log,
	)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:      handler.NewAuthHandler(authService, settingsService),
		Dashboard: handler.NewDashboardHandler(dashboardService, navigationService),
		Quiz:      handler.NewQuizHandler(quizService),
		Attempt:   handler.NewAttemptHandler(attemptService),
		Billing:   handler.NewBillingHandler(billingService),
		Checkout:  handler.NewCheckoutHandler(checkoutService, log),
		Webhook:   handler.NewWebhookHandler(stripe, checkoutService, log),
		Plan:      handler.NewPlanHandler(planService),
		Vertical:  handler.NewVerticalHandler(verticalService),
		User:      handler.NewUserHandler(userService),
		WS:        handler.NewWSHandler(attemptService, sessions, log, cfg.AllowedOrigins),
		System:    handler.NewSystemHandler(rdb, pool, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	reconcileWorker := worker.NewReconcileWorker(checkoutService, rdb, cfg.ReconcileBackoff, log)
	workers.Add(1)
	go func() {
		defer workers.Done()
		reconcileWorker.Start(workerCtx)
	}()

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(rdb, authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
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

	// 2. Stop the reconcile worker. Queued ids stay in Redis for the next start.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

// Package main is the entry point for the onboarding server: HTTP surface
// plus the in-process job scheduler.
//
// Graceful shutdown is handled via OS signal interception (SIGINT, SIGTERM):
// the HTTP listener drains first, then the scheduler waits for in-flight job
// runs, then the database pool closes.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sabercontabilidade/onboarding/internal/api"
	"github.com/sabercontabilidade/onboarding/internal/config"
	"github.com/sabercontabilidade/onboarding/internal/credentials"
	"github.com/sabercontabilidade/onboarding/internal/crypto"
	"github.com/sabercontabilidade/onboarding/internal/db"
	"github.com/sabercontabilidade/onboarding/internal/external"
	"github.com/sabercontabilidade/onboarding/internal/onboarding"
	"github.com/sabercontabilidade/onboarding/internal/scheduler"
	"github.com/sabercontabilidade/onboarding/internal/types"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so main can cleanly exit on error.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := newLogger(cfg.LogLevel)
	logger.Info("onboarding server starting",
		"environment", cfg.Environment,
		"service", cfg.Service,
		"port", cfg.Server.Port,
	)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("loading scheduler timezone %q: %w", cfg.Scheduler.Timezone, err)
	}
	reminderHour, reminderMinute, err := config.ParseTimeOfDay(cfg.Scheduler.ReminderAt)
	if err != nil {
		return fmt.Errorf("parsing REMINDER_AT: %w", err)
	}

	// Database pool.
	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL.Unmask())
	if err != nil {
		return fmt.Errorf("parsing database url: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	poolCfg.MinConns = int32(cfg.Database.MinConns)
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.ConnConfig.ConnectTimeout = cfg.Database.AcquireTimeout

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	cancel()
	if err != nil {
		return fmt.Errorf("creating database pool: %w", err)
	}
	defer pool.Close()

	// Repositories.
	userRepo := db.NewUserRepository(pool)
	clientRepo := db.NewClientRepository(pool)
	appointmentRepo := db.NewAppointmentRepository(pool)
	interactionRepo := db.NewInteractionRepository(pool)
	credentialRepo := db.NewCredentialRepository(pool)

	// Provider client and credential store.
	google := external.NewGoogleClient(
		&http.Client{Timeout: cfg.Google.CallTimeout + 5*time.Second},
		external.GoogleConfig{
			ClientID:        cfg.Google.ClientID,
			ClientSecret:    cfg.Google.ClientSecret,
			RedirectURL:     cfg.Server.PublicURL + "/integrations/google/callback",
			Timezone:        cfg.Scheduler.Timezone,
			CallTimeout:     cfg.Google.CallTimeout,
			Logger:          logger,
			AuthBaseURL:     cfg.Google.AuthBaseURL,
			TokenURL:        cfg.Google.TokenURL,
			CalendarBaseURL: cfg.Google.CalendarBaseURL,
			GmailBaseURL:    cfg.Google.GmailBaseURL,
		},
	)

	cipher, err := crypto.NewTokenCipher(cfg.Security.SecretKey)
	if err != nil {
		return fmt.Errorf("creating token cipher: %w", err)
	}
	credStore := credentials.NewStore(credentialRepo, userRepo, cipher, google, types.RealClock{}, logger)

	// Lifecycle engine and provider mirror, backing the interaction and
	// appointment endpoints.
	engine := onboarding.NewEngine(appointmentRepo, location, logger)
	mirror := onboarding.NewMirror(appointmentRepo, clientRepo, credStore, google, logger)

	// Scheduler and jobs.
	sched := scheduler.New(cfg.Scheduler.JobTimeout, cfg.Scheduler.Workers, logger)

	syncJob := scheduler.NewSyncJob(appointmentRepo, clientRepo, credStore, google, types.RealClock{}, logger)
	if err := sched.AddIntervalJob(syncJob, cfg.Scheduler.SyncInterval, cfg.Scheduler.SyncMisfireGrace); err != nil {
		return fmt.Errorf("registering sync job: %w", err)
	}

	reminderJob := scheduler.NewReminderJob(appointmentRepo, userRepo, clientRepo, credStore, google, types.RealClock{}, location, logger)
	if err := sched.AddDailyJob(reminderJob, reminderHour, reminderMinute, location, cfg.Scheduler.ReminderMisfireGrace); err != nil {
		return fmt.Errorf("registering reminder job: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	// HTTP server.
	handlers := api.NewHandlers(sched, credStore, userRepo, google, interactionRepo, engine, mirror)
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(handlers, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", httpServer.Addr)
		serverErr <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// newLogger creates a structured slog.Logger for the given log level.
func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	return slog.New(handler)
}

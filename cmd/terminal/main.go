package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/rjnat/cursorpos/internal/config"
	"github.com/rjnat/cursorpos/internal/infra"
	"github.com/rjnat/cursorpos/internal/repository"
	"github.com/rjnat/cursorpos/internal/router"
	"github.com/rjnat/cursorpos/internal/sync"
	"github.com/rjnat/cursorpos/internal/worker"
)

func main() {
	// Structured logger: pretty console in dev, JSON in prod
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.Env == "production" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	db, err := infra.NewDatabase(cfg.StorePath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open local store")
	}
	defer func() {
		if err := infra.CloseDatabase(db); err != nil {
			log.Error().Err(err).Msg("closing local store")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiClient := infra.NewAPIClient(cfg.APIBaseURL, cfg.APIToken, cfg.TenantID)
	mailer := infra.NewMailer(cfg)
	cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())

	// Connectivity monitor; everything connectivity-aware hangs off it.
	monitor := sync.NewMonitor(apiClient, time.Duration(cfg.MonitorIntervalSeconds)*time.Second)

	queueRepo := repository.NewOrderQueueRepository(db)
	deadLetterRepo := repository.NewDeadLetterRepository(db)

	syncer := sync.NewSyncer(queueRepo, deadLetterRepo, apiClient, monitor, cb, sync.Options{
		Interval:    time.Duration(cfg.SyncIntervalSeconds) * time.Second,
		RetryFailed: cfg.SyncRetryFailed,
		MaxAttempts: cfg.SyncMaxAttempts,
	})

	// Auto-sync follows connectivity: starts when the backend comes into
	// reach, stops when it drops away.
	unbind := syncer.Bind(ctx)
	defer unbind()
	monitor.Start(ctx)
	defer monitor.Stop()

	// Worker pool for async jobs (receipt email).
	dispatcher := worker.NewDispatcher(cfg.WorkerPoolSize * 32)
	worker.StartPool(ctx, dispatcher, map[string]worker.Handler{
		worker.JobTypeEmailReceipt: worker.NewEmailReceiptHandler(mailer),
	}, deadLetterRepo, cfg.WorkerPoolSize)

	r := router.New(cfg, db, apiClient, monitor, syncer, cb, dispatcher)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("terminal listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down…")
	syncer.StopAutoSync()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("terminal exited")
}

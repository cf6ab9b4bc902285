package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medassist/chat-backend/internal/bootstrap"
	"github.com/medassist/chat-backend/internal/config"
	"github.com/medassist/chat-backend/internal/core/domain"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, "worker", cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: app.WorkerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Error("worker_metrics_server_error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	app.Logger.Info("worker_subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeExchangeCompleted(ctx, func(handlerCtx context.Context, exchange domain.CompletedExchange) error {
		app.WorkerMetrics.PersistStarted()
		app.WorkerMetrics.ObserveQueueLag("worker", exchange.CompletedAt)
		start := time.Now()

		persistCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()

		persistErr := app.Persist.PersistExchange(persistCtx, exchange)
		status := "ok"
		if persistErr != nil {
			status = "error"
		}
		app.WorkerMetrics.PersistFinished("worker", status, time.Since(start))
		return persistErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

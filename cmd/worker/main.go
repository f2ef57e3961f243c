package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/kirillkom/taxdoc-vault/internal/bootstrap"
	"github.com/kirillkom/taxdoc-vault/internal/config"
	"github.com/kirillkom/taxdoc-vault/internal/observability/logging"
	"github.com/kirillkom/taxdoc-vault/internal/observability/metrics"
)

const serviceName = "worker"

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: metricsHandler(workerMetrics),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	handle := func(task string, process func(context.Context, string) error) func(context.Context, string) error {
		return func(handlerCtx context.Context, documentID string) error {
			taskCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
			defer cancel()

			// The record's last update marks when the task was scheduled.
			if doc, derr := app.Repo.GetByID(taskCtx, documentID); derr == nil {
				workerMetrics.ObserveQueueLag(serviceName, task, time.Since(doc.UpdatedAt))
			}

			workerMetrics.StartTask(task)
			start := time.Now()
			err := process(taskCtx, documentID)
			workerMetrics.FinishTask(serviceName, task, time.Since(start), err)

			if err == nil && task == "redact" {
				if doc, derr := app.Repo.GetByID(taskCtx, documentID); derr == nil {
					workerMetrics.ObservePIIRegions(serviceName, doc.PIICount)
				}
			}
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		logger.Info("worker subscribed", "subject", cfg.NATSRedactSubject)
		if err := app.Queue.SubscribeRedactionRequested(ctx, handle("redact", app.RedactUC.RedactByID)); err != nil {
			logger.Error("redaction subscribe error", "error", err)
			stop()
		}
	}()
	go func() {
		defer wg.Done()
		logger.Info("worker subscribed", "subject", cfg.NATSExtractSubject)
		if err := app.Queue.SubscribeExtractionRequested(ctx, handle("extract", app.ExtractUC.ExtractByID)); err != nil {
			logger.Error("extraction subscribe error", "error", err)
			stop()
		}
	}()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
}

func metricsHandler(m *metrics.WorkerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/kirillkom/taxdoc-vault/internal/adapters/http"
	"github.com/kirillkom/taxdoc-vault/internal/bootstrap"
	"github.com/kirillkom/taxdoc-vault/internal/config"
	"github.com/kirillkom/taxdoc-vault/internal/observability/logging"
	"github.com/kirillkom/taxdoc-vault/internal/observability/metrics"
)

const serviceName = "api"

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

	httpMetrics := metrics.NewHTTPServerMetrics(serviceName)

	auth := httpadapter.NewAuthenticator([]byte(cfg.AuthSecret))
	router := httpadapter.NewRouter(app.UploadUC, app.LifecycleUC, app.ExtractionsUC, app.Exporter, auth, httpadapter.Options{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxInFlight:    cfg.MaxInFlight,
		MaxWait:        time.Duration(cfg.MaxWaitSeconds) * time.Second,
		SignedURLTTL:   time.Duration(cfg.SignedURLTTLMins) * time.Minute,
		ServiceName:    serviceName,
		Metrics:        httpMetrics,
	})
	if app.FileHandler != nil {
		router.SetFileHandler(app.FileHandler)
	}

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      httpMetrics.Middleware(serviceName, router.Handler()),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsServer := &http.Server{
		Addr:    ":" + cfg.APIMetricsPort,
		Handler: metricsMux(httpMetrics),
	}

	go func() {
		logger.Info("api listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("api server error: %v", err)
		}
	}()
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api shutdown error", "error", err)
	}
	_ = metricsServer.Shutdown(shutdownCtx)
}

func metricsMux(m *metrics.HTTPServerMetrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

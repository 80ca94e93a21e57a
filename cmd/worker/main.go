package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ametelin/docqa/internal/bootstrap"
	"github.com/ametelin/docqa/internal/config"
	"github.com/ametelin/docqa/internal/core/ports"
	"github.com/ametelin/docqa/internal/observability/logging"
	"github.com/ametelin/docqa/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := startMetricsServer(cfg.WorkerMetricsPort, workerMetrics, logger)
	defer shutdownMetricsServer(metricsServer, logger)

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Bus.SubscribeBuildEvents(ctx, func(_ context.Context, event ports.BuildEvent) error {
		workerMetrics.RecordBuildEvent("worker", event.Status, event.At)
		if event.Status == "completed" {
			workerMetrics.RecordCompletedBuild(event.Chunks)
		}

		logger.Info("build event",
			"job_id", event.JobID,
			"corpus_id", event.CorpusID,
			"status", event.Status,
			"documents", event.Documents,
			"chunks", event.Chunks,
			"message", event.Message)
		return nil
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}

func startMetricsServer(port string, workerMetrics *metrics.WorkerMetrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", workerMetrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("worker metrics listening", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	return server
}

func shutdownMetricsServer(server *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("worker metrics shutdown error", "error", err)
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prepaid-billing-go/internal/common"
	"prepaid-billing-go/internal/config"
	"prepaid-billing-go/internal/metrics"
	"prepaid-billing-go/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	settleNow := flag.Bool("settle-now", false, "Run the previous month's settlement once at startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		_, _ = zap.NewProduction()
		zap.L().Fatal("Failed to load configuration", zap.Error(err))
	}

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	zap.L().Info("Starting prepaid billing scheduler")
	metrics.Init()

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	jobs := scheduler.NewJobs(services.Engine, services.DbService, nil)
	sched, err := scheduler.NewScheduler(cfg.Scheduler, jobs)
	if err != nil {
		zap.L().Fatal("Failed to create scheduler", zap.Error(err))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := services.Billing.HealthCheck(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	server := &http.Server{Addr: cfg.Scheduler.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		zap.L().Info("Serving metrics", zap.String("addr", cfg.Scheduler.MetricsAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("Metrics server failed", zap.Error(err))
		}
	}()

	// Populate the gauges before the first scheduled snapshot
	jobs.TakeSnapshot()
	if *settleNow {
		jobs.SettlePreviousMonth()
	}

	sched.Start()
	for _, next := range sched.NextRuns() {
		zap.L().Info("Next run scheduled", zap.Time("at", next))
	}
	zap.L().Info("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	zap.L().Info("Shutdown signal received, stopping scheduler...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()

	select {
	case <-done:
		zap.L().Info("Scheduler stopped gracefully")
	case <-shutdownCtx.Done():
		zap.L().Warn("Forced shutdown after timeout")
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		zap.L().Warn("Metrics server shutdown failed", zap.Error(err))
	}
}

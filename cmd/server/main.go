package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stewardship/internal/app"
	"stewardship/internal/giving/handler"
	"stewardship/internal/platform/config"
	"stewardship/internal/platform/httpserver"
	"stewardship/internal/platform/logger"
	platformmetrics "stewardship/internal/platform/metrics"
	"stewardship/internal/platform/middleware"
)

// main wires infrastructure, the giving services and the HTTP router.
// Business logic lives in internal/giving.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.New("error", "json").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc, err := app.Build(ctx, cfg, log, reg)
	if err != nil {
		log.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer svc.Close()

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(log))
	r.Use(middleware.Logger(log, platformmetrics.New(reg)))
	r.Use(middleware.RequestContext)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Health(r.Context()); err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	handler.New(svc.Allocator, svc.Importer, svc.Reporter, svc.Batches, svc.Ledger, log).Register(r)

	srv := httpserver.New(cfg.Addr, r, handler.MaxStatementBytes)
	go func() {
		log.Info("starting stewardship", "addr", cfg.Addr, "storage", svc.Storage)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

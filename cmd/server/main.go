package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httpHandlers "github.com/JeanGrijp/request-gate/internal/adapters/http/handlers"
	httpMiddleware "github.com/JeanGrijp/request-gate/internal/adapters/http/middleware"
	"github.com/JeanGrijp/request-gate/internal/adapters/metrics"
	"github.com/JeanGrijp/request-gate/internal/adapters/storage"
	"github.com/JeanGrijp/request-gate/internal/config"
	"github.com/JeanGrijp/request-gate/internal/core/ports"
	"github.com/JeanGrijp/request-gate/internal/core/services"
	"github.com/JeanGrijp/request-gate/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, kind, err := storage.Open(ctx, storage.Config{
		Type:           cfg.Storage.Type,
		RedisURL:       cfg.Storage.RedisURL,
		RedisToken:     cfg.Storage.RedisToken,
		DatabaseDriver: cfg.Storage.DatabaseDriver,
		DatabaseDSN:    cfg.Storage.DatabaseDSN,
		SweepInterval:  cfg.Storage.SweepInterval,
	})
	if err != nil {
		lg.Fatal("failed to init counter store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			lg.Error("failed to close counter store", zap.Error(err))
		}
	}()

	registry := prometheus.NewRegistry()
	recorder, err := metrics.NewPrometheusRecorder(registry)
	if err != nil {
		lg.Fatal("failed to register metrics", zap.Error(err))
	}

	classifier := services.NewUserAgentClassifier(cfg.RateLimiter.BlockedUserAgents...)
	gates, err := buildGates(store, classifier, recorder, lg, cfg.RateLimiter)
	if err != nil {
		lg.Fatal("failed to create gates", zap.Error(err))
	}
	caller := httpMiddleware.CallerExtractor(cfg.RateLimiter.TrustForwardedHeaders)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           newRouter(store, gates, caller, registry, lg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil {
			errCh <- err
		}
	}()

	lg.Info("server started",
		zap.String("addr", srv.Addr),
		zap.String("storage", kind),
		zap.String("failure_policy", string(cfg.RateLimiter.FailurePolicy)),
		zap.Int("resources", len(gates)),
	)

	select {
	case <-ctx.Done():
		lg.Info("shutdown signal received")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server error", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", zap.Error(err))
	}
}

// buildGates cria um limiter e um gate por recurso configurado.
func buildGates(store ports.CounterStore, classifier ports.Classifier, recorder ports.DecisionRecorder, lg *zap.Logger, cfg config.RateLimiterConfig) (map[string]*services.Gate, error) {
	gates := make(map[string]*services.Gate, len(cfg.Resources))
	for _, res := range cfg.Resources {
		limiter, err := services.NewFixedWindowLimiter(store, res.LimiterConfig())
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", res.Prefix, err)
		}
		gate, err := services.NewGate(classifier, limiter, cfg.FailurePolicy,
			services.WithRecorder(recorder),
			services.WithLogger(lg),
		)
		if err != nil {
			return nil, fmt.Errorf("resource %s: %w", res.Prefix, err)
		}
		gates[res.Prefix] = gate
	}

	for _, required := range []string{config.ResourceInvoice, config.ResourceCheckout} {
		if _, ok := gates[required]; !ok {
			return nil, fmt.Errorf("resource %s is not configured", required)
		}
	}
	return gates, nil
}

func newRouter(store ports.CounterStore, gates map[string]*services.Gate, caller httpMiddleware.CallerFunc, registry *prometheus.Registry, lg *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", httpHandlers.HealthHandler(store, lg))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Route("/api", func(r chi.Router) {
		prefixes := make([]string, 0, len(gates))
		for prefix := range gates {
			prefixes = append(prefixes, prefix)
		}
		sort.Strings(prefixes)

		for _, prefix := range prefixes {
			r.With(httpMiddleware.NewGateMiddleware(gates[prefix], caller)).
				Post(resourcePath(prefix), httpHandlers.OperationHandler(prefix))
		}
	})
	return r
}

// resourcePath mantém as rotas históricas dos recursos embutidos; recursos
// vindos do arquivo YAML ficam em /api/<prefixo>.
func resourcePath(prefix string) string {
	if prefix == config.ResourceInvoice {
		return "/invoices"
	}
	return "/" + prefix
}

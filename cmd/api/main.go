// Package main is the entry point for the feedrank API server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/onnwee/feedrank/internal/auth"
	"github.com/onnwee/feedrank/internal/config"
	"github.com/onnwee/feedrank/internal/db"
	"github.com/onnwee/feedrank/internal/health"
	"github.com/onnwee/feedrank/internal/middleware"
	"github.com/onnwee/feedrank/internal/ranking"
	"github.com/onnwee/feedrank/internal/recommend"
	"github.com/onnwee/feedrank/internal/store"
	"github.com/onnwee/feedrank/internal/tracing"
)

const (
	serviceName     = "feedrank-api"
	shutdownTimeout = 10 * time.Second
	cleanupInterval = time.Minute
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "optional YAML config file; environment variables take precedence")
	flag.Parse()

	if *help {
		fmt.Println("feedrank API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// run wires every dependency, serves until ctx is cancelled and then shuts
// down gracefully.
func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting feedrank", "version", version, "config", cfg.LogSummary())

	tp, err := tracing.NewProvider(tracing.Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Enabled:        cfg.TracingEnabled,
		Environment:    cfg.Env,
		ExporterType:   cfg.TracingExporterType,
		OTLPEndpoint:   cfg.TracingOTLPEndpoint,
		SamplingRate:   cfg.TracingSampleRate,
		InsecureMode:   cfg.TracingInsecure,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if !tp.Enabled() {
			return
		}
		logger.Info("flushing traces")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracer provider shutdown failed", "error", err)
		}
	}()

	conn, err := db.Open(ctx, cfg.DatabaseURL, db.DefaultPoolConfig())
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer conn.Close()
	if err := db.CheckSchema(ctx, conn); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// Rate limiting fails open, so the server can still start.
			logger.Warn("redis unreachable at startup", "error", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDeps(ctx, cfg, logger, conn, redisClient, reg)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	server := newServer(newRouter(deps))
	logger.Info("listening", "addr", ln.Addr().String())
	return serve(ctx, server, ln, shutdownTimeout, logger)
}

// buildDeps assembles the request path from the read model to the handlers.
func buildDeps(ctx context.Context, cfg *config.Config, logger *slog.Logger, conn *sql.DB, redisClient *redis.Client, reg *prometheus.Registry) (routerDeps, error) {
	storeMetrics := store.NewMetrics()
	recommendMetrics := recommend.NewMetrics()
	httpMetrics := middleware.NewMetrics()
	for _, m := range []interface{ Register(prometheus.Registerer) error }{storeMetrics, recommendMetrics, httpMetrics} {
		if err := m.Register(reg); err != nil {
			return routerDeps{}, fmt.Errorf("metrics: %w", err)
		}
	}

	breakerCfg := store.DefaultBreakerConfig()
	breakerCfg.Logger = logger
	breakerCfg.Metrics = storeMetrics
	readModel := store.NewBreakerStore(store.NewPostgresStore(conn), breakerCfg)

	weights, err := ranking.LoadCalibration(cfg.RankingCalibrationPath)
	if err != nil {
		// Defaults are returned alongside the error.
		logger.Warn("ranking calibration not applied", "path", cfg.RankingCalibrationPath, "error", err)
	}

	engine := recommend.NewEngine(readModel, recommend.Config{
		DefaultLimit:      cfg.RecommendDefaultLimit,
		MaxLimit:          cfg.RecommendMaxLimit,
		HistoryLimit:      cfg.RecommendHistoryLimit,
		TrendHistoryLimit: cfg.RecommendTrendHistoryLimit,
		TrendWindow:       cfg.RecommendTrendWindow,
		AccountWindow:     cfg.RecommendAccountWindow,
		PostWindow:        cfg.RecommendPostWindow,
		ReadTimeout:       cfg.RecommendReadTimeout,
		Weights:           weights,
		Logger:            logger,
		Metrics:           recommendMetrics,
	})

	var limiter middleware.RateLimitStore
	var redisChecker *health.RedisChecker
	if redisClient != nil {
		limiter = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(httpMetrics)
		redisChecker = health.NewRedisChecker(redisClient)
	} else {
		mem := middleware.NewInMemoryRateLimitStore()
		mem.StartCleanup(ctx, cleanupInterval)
		limiter = mem
	}

	rateLimit := middleware.DefaultRecommendLimit()
	rateLimit.RequestsPerWindow = cfg.RateLimitRequestsPerMinute

	deps := routerDeps{
		Logger:       logger,
		Engine:       engine,
		Tokens:       auth.NewJWTService(cfg.JWTSecret, cfg.JWTSecretPrevious),
		RateLimiter:  limiter,
		RateLimit:    rateLimit,
		Metrics:      httpMetrics,
		Gatherer:     reg,
		CORSOrigins:  cfg.CORSAllowedOrigins,
		DBChecker:    health.NewDBChecker(conn),
		BreakerCheck: health.NewBreakerChecker(readModel),
	}
	if redisChecker != nil {
		deps.RedisChecker = redisChecker
	}
	return deps, nil
}

func newServer(handler http.Handler) *http.Server {
	return &http.Server{
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// serve runs server on ln until ctx is done, then drains in-flight requests
// for at most timeout.
func serve(ctx context.Context, server *http.Server, ln net.Listener, timeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

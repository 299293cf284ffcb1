package main

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/feedrank/internal/api"
	"github.com/onnwee/feedrank/internal/middleware"
)

// routerDeps carries everything the HTTP layer needs.
type routerDeps struct {
	Logger      *slog.Logger
	Engine      api.Recommender
	Tokens      middleware.TokenValidator
	RateLimiter middleware.RateLimitStore
	RateLimit   middleware.RateLimitConfig
	Metrics     *middleware.Metrics
	Gatherer    prometheus.Gatherer
	CORSOrigins []string

	DBChecker    api.HealthChecker
	RedisChecker api.HealthChecker
	BreakerCheck api.HealthChecker
}

// newRouter registers the routes and wraps them in the middleware chain
// RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS. Recommendations
// additionally pass Auth and then a per-user RateLimiter; health checks and
// /metrics are neither authenticated nor limited.
func newRouter(deps routerDeps) http.Handler {
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:      deps.DBChecker,
		RedisChecker:   deps.RedisChecker,
		BreakerChecker: deps.BreakerCheck,
	})
	recommendHandlers := api.NewRecommendHandlers(deps.Engine)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandlers.Health)
	mux.HandleFunc("/ready", healthHandlers.Ready)
	var recommendations http.Handler = http.HandlerFunc(recommendHandlers.Recommendations)
	recommendations = middleware.RateLimiter(deps.RateLimiter, deps.RateLimit, middleware.UserKeyFunc(), deps.Metrics)(recommendations)
	recommendations = middleware.Auth(deps.Tokens)(recommendations)
	mux.Handle("/recommendations", recommendations)
	if deps.Gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("/", api.NotFound)

	var handler http.Handler = mux
	handler = middleware.CORS(middleware.CORSConfig{AllowedOrigins: deps.CORSOrigins, MaxAge: 600})(handler)
	handler = middleware.HTTPMetrics(deps.Metrics)(handler)
	handler = middleware.Logging(deps.Logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	return middleware.RequestID(handler)
}

package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// knownRoutes are the routes served by the API. Any other path is labelled
// "other", which keeps label cardinality fixed.
var knownRoutes = map[string]bool{
	"/recommendations": true,
	"/health":          true,
	"/ready":           true,
	"/metrics":         true,
}

// unmeteredPaths are polled by the orchestrator and left out of request metrics.
var unmeteredPaths = map[string]bool{
	"/health": true,
	"/ready":  true,
}

// normalizePath maps a request path to a bounded route label, ignoring
// trailing slashes.
func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	if route := strings.TrimRight(path, "/"); knownRoutes[route] {
		return route
	}
	return "other"
}

// HTTPMetrics records latency, count and response size per method, route and
// status for every request except the health endpoints.
func HTTPMetrics(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if unmeteredPaths[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			metrics.ObserveHTTPRequest(
				r.Method,
				normalizePath(r.URL.Path),
				strconv.Itoa(rw.statusCode),
				time.Since(start).Seconds(),
				int64(rw.size),
			)
		})
	}
}

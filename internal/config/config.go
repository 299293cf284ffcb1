// Package config provides configuration loading and validation for the API server.
// It uses koanf to merge environment variables with optional file overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the API server.
type Config struct {
	// Server settings
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Database
	DatabaseURL string `koanf:"database_url"`

	// Redis (rate limiting); optional, in-memory limits are used when empty
	RedisURL string `koanf:"redis_url"`

	// JWT Authentication; the previous secret stays valid during key rotation
	JWTSecret         string `koanf:"jwt_secret"`
	JWTSecretPrevious string `koanf:"jwt_secret_previous"`

	// CORS allowlist; empty disables CORS handling
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// Ranking weights calibration file (JSON)
	RankingCalibrationPath string `koanf:"ranking_calibration_path"`

	// Recommendation engine
	RecommendDefaultLimit      int           `koanf:"recommend_default_limit"`
	RecommendMaxLimit          int           `koanf:"recommend_max_limit"`
	RecommendHistoryLimit      int           `koanf:"recommend_history_limit"`
	RecommendTrendHistoryLimit int           `koanf:"recommend_trend_history_limit"`
	RecommendReadTimeout       time.Duration `koanf:"recommend_read_timeout"`
	RecommendTrendWindow       time.Duration `koanf:"recommend_trend_window"`
	RecommendAccountWindow     time.Duration `koanf:"recommend_account_window"`
	// RecommendPostWindow bounds post candidate age; zero means unbounded.
	RecommendPostWindow        time.Duration `koanf:"recommend_post_window"`

	// Rate limiting for the recommendations endpoint
	RateLimitRequestsPerMinute int `koanf:"rate_limit_requests_per_minute"`

	// Tracing (OpenTelemetry)
	TracingEnabled      bool    `koanf:"tracing_enabled"`
	TracingExporterType string  `koanf:"tracing_exporter_type"`
	TracingOTLPEndpoint string  `koanf:"tracing_otlp_endpoint"`
	TracingSampleRate   float64 `koanf:"tracing_sample_rate"`
	TracingInsecure     bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")
	ErrMissingJWTSecret   = errors.New("JWT_SECRET is required")
	ErrInvalidPort        = errors.New("PORT must be a valid integer")
	ErrInvalidInteger     = errors.New("value must be a valid integer")
	ErrInvalidDuration    = errors.New("value must be a valid duration")
	ErrInvalidLimits      = errors.New("RECOMMEND_DEFAULT_LIMIT must be between 1 and RECOMMEND_MAX_LIMIT")
	ErrInvalidSampleRate  = errors.New("TRACING_SAMPLE_RATE must be between 0 and 1")
	ErrInvalidExporter    = errors.New("TRACING_EXPORTER_TYPE must be otlp-grpc or otlp-http")
)

// Default values for non-secret configuration.
const (
	DefaultPort                       = 8080
	DefaultEnv                        = "development"
	DefaultRecommendDefaultLimit      = 20
	DefaultRecommendMaxLimit          = 100
	DefaultRecommendHistoryLimit      = 50
	DefaultRecommendTrendHistoryLimit = 200
	DefaultRecommendReadTimeout       = 2 * time.Second
	DefaultRecommendTrendWindow       = 7 * 24 * time.Hour
	DefaultRecommendAccountWindow     = 30 * 24 * time.Hour
	DefaultRateLimitRequestsPerMinute = 120
	DefaultTracingExporterType        = "otlp-http"
	DefaultTracingSampleRate          = 0.1
)

// Load reads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
// Returns the loaded config and a slice of validation errors (empty if valid).
// If a config file path is provided and the file cannot be loaded, an error is returned.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// Load from YAML file first if provided (lower precedence)
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	collect := func(v int, err error) int {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
		return v
	}
	collectDuration := func(v time.Duration, err error) time.Duration {
		if err != nil {
			loadErrs = append(loadErrs, err)
		}
		return v
	}

	// Try FEEDRANK_PORT first, then PORT for platform compatibility
	port, portErr := getEnvIntOrDefaultMulti([]string{"FEEDRANK_PORT", "PORT"}, k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, portErr)
	}

	sampleRate, sampleErr := getEnvFloatOrDefault("TRACING_SAMPLE_RATE", k.Float64("tracing_sample_rate"), DefaultTracingSampleRate)
	if sampleErr != nil {
		loadErrs = append(loadErrs, sampleErr)
	}

	// Build config struct, with env vars taking precedence over file values
	cfg := &Config{
		Port:                   port,
		Env:                    getEnvOrDefaultMulti([]string{"FEEDRANK_ENV", "ENV", "GO_ENV"}, k.String("env"), DefaultEnv),
		DatabaseURL:            getEnvOrKoanf("DATABASE_URL", k, "database_url"),
		RedisURL:               getEnvOrKoanf("REDIS_URL", k, "redis_url"),
		JWTSecret:              getEnvOrKoanf("JWT_SECRET", k, "jwt_secret"),
		JWTSecretPrevious:      getEnvOrKoanf("JWT_SECRET_PREVIOUS", k, "jwt_secret_previous"),
		CORSAllowedOrigins:     getEnvListOrKoanf("CORS_ALLOWED_ORIGINS", k, "cors_allowed_origins"),
		RankingCalibrationPath: getEnvOrKoanf("RANKING_CALIBRATION_PATH", k, "ranking_calibration_path"),

		RecommendDefaultLimit:      collect(getEnvIntOrDefault("RECOMMEND_DEFAULT_LIMIT", k.Int("recommend_default_limit"), DefaultRecommendDefaultLimit)),
		RecommendMaxLimit:          collect(getEnvIntOrDefault("RECOMMEND_MAX_LIMIT", k.Int("recommend_max_limit"), DefaultRecommendMaxLimit)),
		RecommendHistoryLimit:      collect(getEnvIntOrDefault("RECOMMEND_HISTORY_LIMIT", k.Int("recommend_history_limit"), DefaultRecommendHistoryLimit)),
		RecommendTrendHistoryLimit: collect(getEnvIntOrDefault("RECOMMEND_TREND_HISTORY_LIMIT", k.Int("recommend_trend_history_limit"), DefaultRecommendTrendHistoryLimit)),
		RecommendReadTimeout:       collectDuration(getEnvDurationOrDefault("RECOMMEND_READ_TIMEOUT", k.String("recommend_read_timeout"), DefaultRecommendReadTimeout)),
		RecommendTrendWindow:       collectDuration(getEnvDurationOrDefault("RECOMMEND_TREND_WINDOW", k.String("recommend_trend_window"), DefaultRecommendTrendWindow)),
		RecommendAccountWindow:     collectDuration(getEnvDurationOrDefault("RECOMMEND_ACCOUNT_WINDOW", k.String("recommend_account_window"), DefaultRecommendAccountWindow)),
		RecommendPostWindow:        collectDuration(getEnvDurationOrDefault("RECOMMEND_POST_WINDOW", k.String("recommend_post_window"), 0)),
		RateLimitRequestsPerMinute: collect(getEnvIntOrDefault("RATE_LIMIT_REQUESTS_PER_MINUTE", k.Int("rate_limit_requests_per_minute"), DefaultRateLimitRequestsPerMinute)),

		TracingEnabled:      getEnvBoolOrDefault("TRACING_ENABLED", k, "tracing_enabled", false),
		TracingExporterType: getEnvOrDefault("TRACING_EXPORTER_TYPE", k.String("tracing_exporter_type"), DefaultTracingExporterType),
		TracingOTLPEndpoint: getEnvOrKoanf("TRACING_OTLP_ENDPOINT", k, "tracing_otlp_endpoint"),
		TracingSampleRate:   sampleRate,
		TracingInsecure:     getEnvBoolOrDefault("TRACING_INSECURE", k, "tracing_insecure", false),
	}

	// Validate and collect errors
	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// getEnvOrKoanf returns the environment variable value if set, otherwise the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvListOrKoanf splits a comma-separated environment variable, otherwise
// returns the koanf list.
func getEnvListOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) []string {
	raw := os.Getenv(envKey)
	if raw == "" {
		return k.Strings(koanfKey)
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnvOrDefault returns the environment variable value if set, otherwise the koanf value, or default.
func getEnvOrDefault(envKey string, koanfVal string, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first non-empty value found, otherwise the koanf value, or default.
func getEnvOrDefaultMulti(envKeys []string, koanfVal string, defaultVal string) string {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

// getEnvIntOrDefault returns the environment variable as int if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefault(envKey string, koanfVal int, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		i, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal, fmt.Errorf("%s: %w", envKey, ErrInvalidInteger)
		}
		return i, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvIntOrDefaultMulti tries multiple environment variable keys in order.
// Returns the first valid integer value found, otherwise the koanf value, or default.
// Returns an error if any environment variable is set but cannot be parsed as an integer.
func getEnvIntOrDefaultMulti(envKeys []string, koanfVal int, defaultVal int) (int, error) {
	for _, key := range envKeys {
		if val := os.Getenv(key); val != "" {
			i, err := strconv.Atoi(val)
			if err != nil {
				return 0, fmt.Errorf("%s must be a valid integer: %w", key, ErrInvalidPort)
			}
			return i, nil
		}
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvFloatOrDefault returns the environment variable as float64 if set, otherwise the koanf value, or default.
// Returns an error if the environment variable is set but cannot be parsed as a float.
func getEnvFloatOrDefault(envKey string, koanfVal float64, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return defaultVal, fmt.Errorf("%s must be a valid float: %w", envKey, err)
		}
		return f, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

// getEnvDurationOrDefault parses a Go duration string ("2s", "168h") from the
// environment, otherwise from the koanf value, or returns the default.
func getEnvDurationOrDefault(envKey string, koanfVal string, defaultVal time.Duration) (time.Duration, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		raw = koanfVal
	}
	if raw == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return defaultVal, fmt.Errorf("%s=%q: %w", envKey, raw, ErrInvalidDuration)
	}
	return d, nil
}

// getEnvBoolOrDefault reads a boolean flag; env var takes precedence over file config.
func getEnvBoolOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	result := defaultVal
	if k.Exists(koanfKey) {
		result = k.Bool(koanfKey)
	}
	if val := os.Getenv(envKey); val != "" {
		switch strings.ToLower(val) {
		case "true", "1", "yes", "on":
			result = true
		case "false", "0", "no", "off":
			result = false
		}
	}
	return result
}

// Validate checks that all required configuration values are present.
// Returns a slice of validation errors (empty if valid).
func (c *Config) Validate() []error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, ErrMissingDatabaseURL)
	}
	if c.JWTSecret == "" {
		errs = append(errs, ErrMissingJWTSecret)
	}
	if c.RecommendMaxLimit < 1 || c.RecommendDefaultLimit < 1 || c.RecommendDefaultLimit > c.RecommendMaxLimit {
		errs = append(errs, ErrInvalidLimits)
	}
	if c.TracingSampleRate < 0 || c.TracingSampleRate > 1 {
		errs = append(errs, ErrInvalidSampleRate)
	}
	if c.TracingEnabled && c.TracingExporterType != "otlp-grpc" && c.TracingExporterType != "otlp-http" {
		errs = append(errs, ErrInvalidExporter)
	}

	return errs
}

// LogSummary returns a summary of the configuration suitable for logging.
// All secrets are masked to prevent accidental exposure.
func (c *Config) LogSummary() map[string]string {
	return map[string]string{
		"port":                           fmt.Sprintf("%d", c.Port),
		"env":                            c.Env,
		"database_url":                   maskDatabaseURL(c.DatabaseURL),
		"redis_url":                      maskDatabaseURL(c.RedisURL),
		"jwt_secret":                     maskSecret(c.JWTSecret),
		"jwt_secret_previous":            maskSecret(c.JWTSecretPrevious),
		"cors_allowed_origins":           strings.Join(c.CORSAllowedOrigins, ","),
		"ranking_calibration_path":       c.RankingCalibrationPath,
		"recommend_default_limit":        fmt.Sprintf("%d", c.RecommendDefaultLimit),
		"recommend_max_limit":            fmt.Sprintf("%d", c.RecommendMaxLimit),
		"recommend_history_limit":        fmt.Sprintf("%d", c.RecommendHistoryLimit),
		"recommend_trend_history_limit":  fmt.Sprintf("%d", c.RecommendTrendHistoryLimit),
		"recommend_read_timeout":         c.RecommendReadTimeout.String(),
		"recommend_trend_window":         c.RecommendTrendWindow.String(),
		"recommend_account_window":       c.RecommendAccountWindow.String(),
		"recommend_post_window":          c.RecommendPostWindow.String(),
		"rate_limit_requests_per_minute": fmt.Sprintf("%d", c.RateLimitRequestsPerMinute),
		"tracing_enabled":                fmt.Sprintf("%t", c.TracingEnabled),
		"tracing_exporter_type":          c.TracingExporterType,
		"tracing_otlp_endpoint":          c.TracingOTLPEndpoint,
		"tracing_sample_rate":            fmt.Sprintf("%g", c.TracingSampleRate),
	}
}

// maskSecret masks a secret value, showing only the first 4 characters followed by ****
// If the secret is shorter than 8 characters, it's fully masked.
func maskSecret(s string) string {
	if s == "" {
		return "<not set>"
	}
	if len(s) < 8 {
		return "****"
	}
	return s[:4] + "****"
}

// maskDatabaseURL masks the password in a connection URL.
// Supports postgres://, postgresql:// and redis:// schemes.
func maskDatabaseURL(s string) string {
	if s == "" {
		return "<not set>"
	}

	// Look for password pattern: user:password@host
	schemeEnd := strings.Index(s, "://")
	if schemeEnd == -1 {
		return maskSecret(s)
	}

	rest := s[schemeEnd+3:]
	atIndex := strings.Index(rest, "@")
	if atIndex == -1 {
		return s // No credentials in URL
	}

	colonIndex := strings.Index(rest[:atIndex], ":")
	if colonIndex == -1 {
		return s // No password (only username)
	}

	// Reconstruct URL with masked password
	scheme := s[:schemeEnd+3]
	user := rest[:colonIndex]
	hostAndPath := rest[atIndex:]

	return scheme + user + ":****" + hostAndPath
}

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/onnwee/feedrank/internal/recommend"
)

// BreakerConfig configures the circuit breaker around a store.
type BreakerConfig struct {
	// Name identifies the breaker in logs and metrics.
	Name string
	// MaxRequests is the number of trial requests allowed while half-open.
	MaxRequests uint32
	// Interval resets the failure counts while closed.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
	// MinRequests is the sample size required before the failure ratio is considered.
	MinRequests uint32
	// FailureRatio opens the breaker once reached.
	FailureRatio float64

	Logger  *slog.Logger
	Metrics *Metrics
}

// DefaultBreakerConfig returns the breaker settings used by the API server.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "postgres-read-model",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerStore wraps a recommend.Store with a circuit breaker. While the
// breaker is open, reads fail fast with recommend.ErrDataUnavailable.
type BreakerStore struct {
	next    recommend.Store
	cb      *gobreaker.CircuitBreaker[any]
	name    string
	logger  *slog.Logger
	metrics *Metrics
}

// NewBreakerStore wraps next with a circuit breaker.
func NewBreakerStore(next recommend.Store, cfg BreakerConfig) *BreakerStore {
	defaults := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = defaults.Name
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = defaults.MinRequests
	}
	if cfg.FailureRatio <= 0 || cfg.FailureRatio > 1 {
		cfg.FailureRatio = defaults.FailureRatio
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	b := &BreakerStore{
		next:    next,
		name:    cfg.Name,
		logger:  cfg.Logger.With("component", "store", "breaker", cfg.Name),
		metrics: cfg.Metrics,
	}
	b.metrics.setState(cfg.Name, gobreaker.StateClosed)

	b.cb = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			b.logger.Warn("circuit breaker state change", "from", from.String(), "to", to.String())
			b.metrics.setState(name, to)
		},
		// Callers abandoning a request say nothing about store health
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return b
}

// State returns the current breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}

// execute runs fn through the breaker and maps rejections to ErrDataUnavailable.
func execute[T any](b *BreakerStore, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			b.metrics.incRequests(b.name, "rejected")
			return zero, fmt.Errorf("%w: %s: %w", recommend.ErrDataUnavailable, b.name, err)
		}
		b.metrics.incRequests(b.name, "failure")
		return zero, err
	}
	b.metrics.incRequests(b.name, "success")

	typed, ok := result.(T)
	if !ok && result != nil {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

// AccountExists delegates through the breaker.
func (b *BreakerStore) AccountExists(ctx context.Context, userID string) (bool, error) {
	return execute(b, func() (bool, error) {
		return b.next.AccountExists(ctx, userID)
	})
}

// RecentLikes delegates through the breaker.
func (b *BreakerStore) RecentLikes(ctx context.Context, userID string, limit int) ([]recommend.InteractionRecord, error) {
	return execute(b, func() ([]recommend.InteractionRecord, error) {
		return b.next.RecentLikes(ctx, userID, limit)
	})
}

// Following delegates through the breaker.
func (b *BreakerStore) Following(ctx context.Context, userID string) ([]string, error) {
	return execute(b, func() ([]string, error) {
		return b.next.Following(ctx, userID)
	})
}

// RecentPosts delegates through the breaker.
func (b *BreakerStore) RecentPosts(ctx context.Context, q recommend.PostQuery) ([]recommend.CandidatePost, error) {
	return execute(b, func() ([]recommend.CandidatePost, error) {
		return b.next.RecentPosts(ctx, q)
	})
}

// HashtagCounts delegates through the breaker.
func (b *BreakerStore) HashtagCounts(ctx context.Context, since time.Time) ([]recommend.HashtagCount, error) {
	return execute(b, func() ([]recommend.HashtagCount, error) {
		return b.next.HashtagCounts(ctx, since)
	})
}

// AccountsByHashtags delegates through the breaker.
func (b *BreakerStore) AccountsByHashtags(ctx context.Context, q recommend.AccountQuery) ([]recommend.CandidateAccount, error) {
	return execute(b, func() ([]recommend.CandidateAccount, error) {
		return b.next.AccountsByHashtags(ctx, q)
	})
}

// PopularAccounts delegates through the breaker.
func (b *BreakerStore) PopularAccounts(ctx context.Context, excludeIDs []string, limit int) ([]recommend.CandidateAccount, error) {
	return execute(b, func() ([]recommend.CandidateAccount, error) {
		return b.next.PopularAccounts(ctx, excludeIDs, limit)
	})
}

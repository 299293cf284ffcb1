package health

import (
	"context"
	"errors"

	"github.com/sony/gobreaker/v2"
)

// ErrBreakerOpen is returned while the store circuit breaker rejects calls.
var ErrBreakerOpen = errors.New("store circuit breaker is open")

// BreakerStater exposes the current state of a circuit breaker.
type BreakerStater interface {
	State() gobreaker.State
}

// BreakerChecker fails readiness while the store breaker is open so load
// balancers stop routing recommendation traffic to an instance that would
// only answer 503.
type BreakerChecker struct {
	breaker BreakerStater
}

// NewBreakerChecker creates a checker over the given breaker.
func NewBreakerChecker(b BreakerStater) *BreakerChecker {
	return &BreakerChecker{breaker: b}
}

// HealthCheck returns ErrBreakerOpen when the breaker is open. Half-open
// counts as healthy so trial requests can close it again.
func (c *BreakerChecker) HealthCheck(ctx context.Context) error {
	if c.breaker.State() == gobreaker.StateOpen {
		return ErrBreakerOpen
	}
	return nil
}

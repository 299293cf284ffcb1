package recommend

import (
	"context"
	"errors"
	"fmt"
)

// Errors returned by the recommendation engine.
var (
	// ErrDataUnavailable means the backing store could not be reached or timed out.
	// It is the only data failure that crosses the engine boundary.
	ErrDataUnavailable = errors.New("recommendation data unavailable")

	// ErrInvalidKind is returned for an unknown recommendation kind.
	ErrInvalidKind = errors.New("invalid recommendation kind")

	// ErrMalformedCandidate marks a candidate missing required fields.
	// Such candidates are dropped, never surfaced to callers.
	ErrMalformedCandidate = errors.New("malformed candidate")
)

// unavailable wraps a store failure so callers can match ErrDataUnavailable
// while keeping the underlying cause.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDataUnavailable) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: timed out: %w", op, ErrDataUnavailable, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrDataUnavailable, err)
}

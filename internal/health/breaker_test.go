package health

import (
	"context"
	"errors"
	"testing"

	"github.com/sony/gobreaker/v2"
)

type fixedState gobreaker.State

func (s fixedState) State() gobreaker.State { return gobreaker.State(s) }

func TestBreakerChecker(t *testing.T) {
	tests := []struct {
		state   gobreaker.State
		wantErr error
	}{
		{gobreaker.StateClosed, nil},
		{gobreaker.StateHalfOpen, nil},
		{gobreaker.StateOpen, ErrBreakerOpen},
	}
	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			err := NewBreakerChecker(fixedState(tt.state)).HealthCheck(context.Background())
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("HealthCheck() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

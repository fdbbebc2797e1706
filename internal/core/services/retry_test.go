package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/services"
	"github.com/stretchr/testify/assert"
)

func TestRetryOnConflict(t *testing.T) {
	conflict := apperrors.ConcurrencyConflict("item busy")

	tests := []struct {
		name      string
		failures  int
		failWith  error
		attempts  int
		wantCalls int
		wantErr   error
	}{
		{"succeeds first time", 0, nil, 3, 1, nil},
		{"succeeds after conflicts", 2, conflict, 3, 3, nil},
		{"gives up", 5, conflict, 3, 3, apperrors.ErrConcurrencyConflict},
		{"other errors fail fast", 5, apperrors.Validation("bad"), 3, 1, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := services.RetryOnConflict(context.Background(), func(context.Context) error {
				calls++
				if calls <= tt.failures {
					return tt.failWith
				}
				return nil
			}, services.WithMaxAttempts(tt.attempts), services.WithBaseDelay(time.Millisecond))

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestRetryOnConflict_StopsWhenContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := services.RetryOnConflict(ctx, func(context.Context) error {
		calls++
		cancel()
		return apperrors.ConcurrencyConflict("busy")
	}, services.WithBaseDelay(time.Hour))

	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, calls)
}

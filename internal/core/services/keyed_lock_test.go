package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedLocker_SerialisesSameKey(t *testing.T) {
	locks := NewKeyedLocker(time.Second)
	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locks.Lock(context.Background(), "item:1")
			if !assert.NoError(t, err) {
				return
			}
			defer unlock()
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside)
	assert.Zero(t, locks.size(), "idle keys are forgotten")
}

func TestKeyedLocker_TimeoutIsConcurrencyConflict(t *testing.T) {
	locks := NewKeyedLocker(20 * time.Millisecond)
	unlock, err := locks.Lock(context.Background(), "item:1")
	require.NoError(t, err)

	_, err = locks.Lock(context.Background(), "item:1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConcurrencyConflict))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	other, err := locks.Lock(context.Background(), "item:2")
	require.NoError(t, err, "other keys do not contend")
	other()

	unlock()
	unlock()
	again, err := locks.Lock(context.Background(), "item:1")
	require.NoError(t, err)
	again()
	assert.Zero(t, locks.size())
}

func TestKeyedLocker_CancelledContext(t *testing.T) {
	locks := NewKeyedLocker(time.Second)
	unlock, err := locks.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = locks.Lock(ctx, "k")
	assert.True(t, errors.Is(err, context.Canceled))
}

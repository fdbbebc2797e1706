package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/core/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualTicker struct {
	c       chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func (m *manualTicker) C() <-chan time.Time { return m.c }
func (m *manualTicker) Stop()               { m.once.Do(func() { close(m.stopped) }) }

// countingSweeps records each call and signals it on calls.
type countingSweeps struct {
	mu      sync.Mutex
	overdue []time.Time
	dueSoon int
	calls   chan struct{}
}

func (c *countingSweeps) SweepOverdue(_ context.Context, now time.Time) (int, error) {
	c.mu.Lock()
	c.overdue = append(c.overdue, now)
	c.mu.Unlock()
	return 0, nil
}

func (c *countingSweeps) SweepDueSoon(context.Context, time.Time) (int, error) {
	c.mu.Lock()
	c.dueSoon++
	c.mu.Unlock()
	c.calls <- struct{}{}
	return 0, nil
}

func TestScheduler_RunsOnStartAndEveryTick(t *testing.T) {
	ticker := &manualTicker{c: make(chan time.Time), stopped: make(chan struct{})}
	sweeps := &countingSweeps{calls: make(chan struct{}, 4)}
	clock := newFakeClock(start)

	var gotInterval time.Duration
	s := services.NewScheduler(sweeps, time.Hour, nil,
		services.WithSchedulerClock(clock),
		services.WithTicker(func(d time.Duration) services.Ticker {
			gotInterval = d
			return ticker
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Run(ctx) }()

	<-sweeps.calls
	clock.Advance(time.Hour)
	ticker.c <- clock.Now()
	<-sweeps.calls

	cancel()
	require.NoError(t, <-errCh)
	<-ticker.stopped

	assert.Equal(t, time.Hour, gotInterval)
	sweeps.mu.Lock()
	defer sweeps.mu.Unlock()
	assert.Equal(t, 2, sweeps.dueSoon)
	require.Len(t, sweeps.overdue, 2)
	assert.Equal(t, start, sweeps.overdue[0])
	assert.Equal(t, start.Add(time.Hour), sweeps.overdue[1])
}

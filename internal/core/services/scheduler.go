package services

import (
	"context"
	"log/slog"
	"time"

	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
)

// Ticker delivers ticks until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// Scheduler runs both sweeps once at start and then on every tick.
type Scheduler struct {
	sweeps    portssvc.SweepSvcFacade
	interval  time.Duration
	clock     Clock
	logger    *slog.Logger
	newTicker func(time.Duration) Ticker
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithSchedulerClock sets the clock passed to the sweeps.
func WithSchedulerClock(c Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = c }
}

// WithTicker replaces the wall-clock ticker.
func WithTicker(newTicker func(time.Duration) Ticker) SchedulerOption {
	return func(s *Scheduler) { s.newTicker = newTicker }
}

// NewScheduler creates a scheduler firing every interval.
func NewScheduler(sweeps portssvc.SweepSvcFacade, interval time.Duration, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		sweeps:   sweeps,
		interval: interval,
		clock:    SystemClock{},
		logger:   logger,
		newTicker: func(d time.Duration) Ticker {
			return timeTicker{time.NewTicker(d)}
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run blocks until ctx is cancelled. Sweep failures are logged and the next tick retries.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.newTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Sweep scheduler started", slog.Duration("interval", s.interval))
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sweep scheduler stopped")
			return nil
		case <-ticker.C():
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	now := s.clock.Now()
	if n, err := s.sweeps.SweepOverdue(ctx, now); err != nil {
		s.logger.Error("Overdue sweep failed", slog.String("error", err.Error()), slog.Int("marked", n))
	}
	if _, err := s.sweeps.SweepDueSoon(ctx, now); err != nil {
		s.logger.Error("Due-soon sweep failed", slog.String("error", err.Error()))
	}
}

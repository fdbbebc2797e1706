package services

import (
	"context"
	"log/slog"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/middleware"
	"github.com/SscSPs/checkout_ledger_app/internal/platform/metrics"
)

// Notifier queues notification events on a bounded channel and hands them to a
// dispatcher from its own goroutine. Emit never blocks: a full queue drops the event.
type Notifier struct {
	queue      chan domain.NotificationEvent
	dispatcher portssvc.Dispatcher
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

var _ portssvc.EventEmitter = (*Notifier)(nil)

// NewNotifier creates a notifier with room for size pending events.
func NewNotifier(dispatcher portssvc.Dispatcher, size int, logger *slog.Logger, m *metrics.Metrics) *Notifier {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		queue:      make(chan domain.NotificationEvent, size),
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    m,
	}
}

// Emit enqueues event for delivery.
func (n *Notifier) Emit(ctx context.Context, event domain.NotificationEvent) {
	select {
	case n.queue <- event:
	default:
		n.metrics.Notification("dropped")
		middleware.GetLoggerFromCtx(ctx).Warn("Notification queue full, dropping event",
			slog.String("type", string(event.Type)),
			slog.String("recipient", event.Recipient),
			slog.String("transaction_id", event.RelatedTransaction))
	}
}

// Run dispatches queued events until ctx is cancelled, then drains what is
// already queued before returning.
func (n *Notifier) Run(ctx context.Context) error {
	for {
		select {
		case event := <-n.queue:
			n.dispatch(ctx, event)
		case <-ctx.Done():
			n.drain()
			return nil
		}
	}
}

func (n *Notifier) drain() {
	for {
		select {
		case event := <-n.queue:
			n.dispatch(context.Background(), event)
		default:
			return
		}
	}
}

func (n *Notifier) dispatch(ctx context.Context, event domain.NotificationEvent) {
	if err := n.dispatcher.Notify(ctx, event); err != nil {
		n.metrics.Notification("failed")
		n.logger.Error("Notification dispatch failed",
			slog.String("error", err.Error()),
			slog.String("type", string(event.Type)),
			slog.String("recipient", event.Recipient),
			slog.String("transaction_id", event.RelatedTransaction))
		return
	}
	n.metrics.Notification("dispatched")
}

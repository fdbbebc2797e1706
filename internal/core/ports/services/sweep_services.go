package services

import (
	"context"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
)

// SweepSvcFacade runs the time-driven scans over active loans. Both sweeps are idempotent.
type SweepSvcFacade interface {
	// SweepOverdue marks active loans past their expected return date as overdue
	// and returns how many were transitioned.
	SweepOverdue(ctx context.Context, now time.Time) (int, error)

	// SweepDueSoon reminds borrowers of loans due within the reminder window
	// and returns how many reminders were emitted.
	SweepDueSoon(ctx context.Context, now time.Time) (int, error)
}

// NotificationSvc reads notifications persisted for a user.
type NotificationSvc interface {
	ListNotifications(ctx context.Context, actor domain.Actor, unreadOnly bool) ([]domain.Notification, error)
	MarkRead(ctx context.Context, actor domain.Actor, notificationID string) (*domain.Notification, error)
}

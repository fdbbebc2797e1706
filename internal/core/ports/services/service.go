package services

import (
	"context"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
)

// ServiceContainer holds instances of all the application services.
// It is the main entry point for handlers and background jobs.
type ServiceContainer struct {
	Transactions  TransactionSvcFacade
	Inventory     InventorySvcFacade
	Sweeps        SweepSvcFacade
	Notifications NotificationSvc
}

// Dispatcher delivers notification events. It is an external collaborator:
// its failures are logged by the caller and never affect engine state.
type Dispatcher interface {
	Notify(ctx context.Context, event domain.NotificationEvent) error
}

// EventEmitter hands notification events to the dispatcher without blocking.
type EventEmitter interface {
	Emit(ctx context.Context, event domain.NotificationEvent)
}

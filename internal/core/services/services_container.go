package services

import (
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/platform/config"
	"github.com/SscSPs/checkout_ledger_app/internal/platform/metrics"
)

// NewServiceContainer creates a new service container with properly initialized dependencies
func NewServiceContainer(cfg *config.Config, store *portsrepo.Store, events portssvc.EventEmitter, m *metrics.Metrics) *portssvc.ServiceContainer {
	// One locker for every writer so item updates are serialised across services
	locks := NewKeyedLocker(cfg.LockWaitTimeout)
	penalties := NewPenaltyCalculator(cfg.LateFeeDailyRate, cfg.PenaltyCurrency)

	container := &portssvc.ServiceContainer{}
	container.Transactions = NewTransactionService(
		store,
		locks,
		WithPenaltyCalculator(penalties),
		WithEventEmitter(events),
		WithMetrics(m),
	)
	container.Inventory = NewInventoryService(store, locks, m, SystemClock{})
	container.Sweeps = NewSweepService(store, locks, penalties, events, m, cfg.DueSoonWindow)
	container.Notifications = NewNotificationService(store.Notifications)

	return container
}

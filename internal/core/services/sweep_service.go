package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/platform/metrics"
)

// DefaultDueSoonWindow is how far ahead SweepDueSoon looks.
const DefaultDueSoonWindow = 24 * time.Hour

const (
	sweepOverdue = "overdue"
	sweepDueSoon = "due_soon"
)

// sweepService runs the overdue and due-soon scans.
type sweepService struct {
	BaseService
	store     *portsrepo.Store
	locks     *KeyedLocker
	penalties PenaltyCalculator
	events    portssvc.EventEmitter
	metrics *metrics.Metrics
	window  time.Duration

	mu sync.Mutex
	// reminded maps a transaction id to the expected return date it was reminded
	// about, so a reminder repeats only when the date moves.
	reminded map[string]time.Time
}

// NewSweepService creates the sweep service. A non-positive window uses DefaultDueSoonWindow.
// Overdue loans accrue their late fee through penalties.
func NewSweepService(store *portsrepo.Store, locks *KeyedLocker, penalties PenaltyCalculator, events portssvc.EventEmitter, m *metrics.Metrics, window time.Duration) portssvc.SweepSvcFacade {
	if window <= 0 {
		window = DefaultDueSoonWindow
	}
	return &sweepService{
		store:     store,
		locks:     locks,
		penalties: penalties,
		events:    events,
		metrics:   m,
		window:    window,
		reminded:  make(map[string]time.Time),
	}
}

var _ portssvc.SweepSvcFacade = (*sweepService)(nil)

func (s *sweepService) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	active, err := s.store.Transactions.FindAll(ctx, portsrepo.Filter{"status": string(domain.TransactionStatusActive)})
	if err != nil {
		s.LogError(ctx, err, "Overdue sweep could not list active transactions")
		return 0, err
	}

	var approvers []string
	count := 0
	var errs []error
	for i := range active {
		if !active[i].IsPastDue(now) {
			continue
		}
		var marked *domain.Transaction
		err := RetryOnConflict(ctx, func(ctx context.Context) error {
			var err error
			marked, err = s.markOverdue(ctx, active[i].ID, now)
			return err
		})
		if err != nil {
			s.LogError(ctx, err, "Failed to mark transaction overdue", slog.String("transaction_id", active[i].ID))
			errs = append(errs, err)
			continue
		}
		if marked == nil {
			continue
		}
		count++

		if approvers == nil {
			if approvers, err = approverIDs(ctx, s.store.Users); err != nil {
				s.LogError(ctx, err, "Failed to look up approvers for overdue notice")
				approvers = []string{}
			}
		}
		s.notifyOverdue(ctx, marked, approvers)
	}

	accrued, err := s.accrueOverdue(ctx, now)
	if err != nil {
		errs = append(errs, err)
	}

	s.metrics.Swept(sweepOverdue, count)
	if count > 0 || accrued > 0 {
		s.LogInfo(ctx, "Overdue sweep finished", slog.Int("marked", count), slog.Int("late_fees_updated", accrued))
	}
	return count, errors.Join(errs...)
}

// accrueOverdue brings the late fee of loans that were already overdue up to now.
func (s *sweepService) accrueOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.store.Transactions.FindAll(ctx, portsrepo.Filter{"status": string(domain.TransactionStatusOverdue)})
	if err != nil {
		s.LogError(ctx, err, "Overdue sweep could not list overdue transactions")
		return 0, err
	}

	accrued := 0
	var errs []error
	for i := range overdue {
		var changed bool
		err := RetryOnConflict(ctx, func(ctx context.Context) error {
			var err error
			changed, err = s.accrueLateFee(ctx, overdue[i].ID, now)
			return err
		})
		if err != nil {
			s.LogError(ctx, err, "Failed to accrue late fee", slog.String("transaction_id", overdue[i].ID))
			errs = append(errs, err)
			continue
		}
		if changed {
			accrued++
		}
	}
	return accrued, errors.Join(errs...)
}

func (s *sweepService) accrueLateFee(ctx context.Context, transactionID string, now time.Time) (bool, error) {
	txn, unlock, err := s.lockLoan(ctx, transactionID)
	if err != nil {
		return false, err
	}
	defer unlock()

	if txn.Status != domain.TransactionStatusOverdue || !txn.IsPastDue(now) {
		return false, nil
	}
	fee := s.penalties.LateFee(*txn.ExpectedReturnDate, now)
	if fee == nil {
		return false, nil
	}
	penalties, changed := txn.WithLateFee(*fee)
	if !changed {
		return false, nil
	}
	updated, err := s.store.Transactions.Update(ctx, txn.ID, portsrepo.Fields{"penalties": penalties})
	if err != nil || updated == nil {
		return false, err
	}
	return true, nil
}

// lockLoan takes the item lock of a transaction and returns it freshly read.
func (s *sweepService) lockLoan(ctx context.Context, transactionID string) (*domain.Transaction, func(), error) {
	txn, err := s.store.Transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	unlock, err := s.locks.Lock(ctx, itemLockKey(txn.Item))
	if err != nil {
		return nil, nil, err
	}
	txn, err = s.store.Transactions.FindByID(ctx, transactionID)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return txn, unlock, nil
}

// markOverdue flips one loan to overdue under its item lock and issues its late
// fee. It returns nil when the loan changed state in the meantime.
func (s *sweepService) markOverdue(ctx context.Context, transactionID string, now time.Time) (*domain.Transaction, error) {
	txn, unlock, err := s.lockLoan(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if txn.Status != domain.TransactionStatusActive || !txn.IsPastDue(now) {
		return nil, nil
	}
	fields := portsrepo.Fields{
		"status":    domain.TransactionStatusOverdue,
		"isOverdue": true,
	}
	if fee := s.penalties.LateFee(*txn.ExpectedReturnDate, now); fee != nil {
		if penalties, changed := txn.WithLateFee(*fee); changed {
			fields["penalties"] = penalties
		}
	}
	updated, err := s.store.Transactions.Update(ctx, txn.ID, fields)
	if err != nil || updated == nil {
		return nil, err
	}
	s.metrics.Transition(string(domain.TransactionStatusActive), string(domain.TransactionStatusOverdue))
	return updated, nil
}

func (s *sweepService) notifyOverdue(ctx context.Context, txn *domain.Transaction, approvers []string) {
	if s.events == nil {
		return
	}
	due := txn.ExpectedReturnDate.Format("2006-01-02 15:04 MST")
	s.events.Emit(ctx, domain.NotificationEvent{
		Recipient:          txn.User,
		Type:               domain.NotificationOverdue,
		Title:              "Item overdue",
		Message:            fmt.Sprintf("Loan %s was due back %s", txn.TransactionNumber, due),
		RelatedTransaction: txn.ID,
		RelatedItem:        txn.Item,
		Priority:           domain.PriorityHigh,
	})
	for _, id := range approvers {
		if id == txn.User {
			continue
		}
		s.events.Emit(ctx, domain.NotificationEvent{
			Recipient:          id,
			Type:               domain.NotificationOverdue,
			Title:              "Loan overdue",
			Message:            fmt.Sprintf("Loan %s (quantity %d) was due back %s", txn.TransactionNumber, txn.Quantity, due),
			RelatedTransaction: txn.ID,
			RelatedItem:        txn.Item,
			Priority:           domain.PriorityHigh,
		})
	}
}

func (s *sweepService) SweepDueSoon(ctx context.Context, now time.Time) (int, error) {
	active, err := s.store.Transactions.FindAll(ctx, portsrepo.Filter{"status": string(domain.TransactionStatusActive)})
	if err != nil {
		s.LogError(ctx, err, "Due-soon sweep could not list active transactions")
		return 0, err
	}

	horizon := now.Add(s.window)
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]struct{}, len(active))
	count := 0
	for _, txn := range active {
		if txn.ExpectedReturnDate == nil {
			continue
		}
		due := *txn.ExpectedReturnDate
		if !due.After(now) || due.After(horizon) {
			continue
		}
		seen[txn.ID] = struct{}{}
		if last, ok := s.reminded[txn.ID]; ok && last.Equal(due) {
			continue
		}
		s.reminded[txn.ID] = due
		count++
		if s.events != nil {
			s.events.Emit(ctx, domain.NotificationEvent{
				Recipient:          txn.User,
				Type:               domain.NotificationDueSoon,
				Title:              "Return due soon",
				Message:            fmt.Sprintf("Loan %s is due back %s", txn.TransactionNumber, due.Format("2006-01-02 15:04 MST")),
				RelatedTransaction: txn.ID,
				RelatedItem:        txn.Item,
				Priority:           domain.PriorityNormal,
			})
		}
	}
	for id := range s.reminded {
		if _, ok := seen[id]; !ok {
			delete(s.reminded, id)
		}
	}

	s.metrics.Swept(sweepDueSoon, count)
	return count, nil
}

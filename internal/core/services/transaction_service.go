package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
	"github.com/SscSPs/checkout_ledger_app/internal/platform/metrics"
)

const (
	transactionNumberPrefix = "TXN-"
	transactionNumberLock   = "transaction-number"
)

// transactionServiceImpl implements the TransactionSvcFacade interface
type transactionServiceImpl struct {
	BaseService
	store     *portsrepo.Store
	locks     *KeyedLocker
	penalties PenaltyCalculator
	events    portssvc.EventEmitter
	metrics   *metrics.Metrics
	clock     Clock
}

// TransactionServiceOption is a functional option for configuring the transaction service
type TransactionServiceOption func(*transactionServiceImpl)

// WithPenaltyCalculator sets the late fee policy
func WithPenaltyCalculator(p PenaltyCalculator) TransactionServiceOption {
	return func(s *transactionServiceImpl) {
		s.penalties = p
	}
}

// WithEventEmitter sets where notification events go
func WithEventEmitter(e portssvc.EventEmitter) TransactionServiceOption {
	return func(s *transactionServiceImpl) {
		s.events = e
	}
}

// WithMetrics records transitions and compensations
func WithMetrics(m *metrics.Metrics) TransactionServiceOption {
	return func(s *transactionServiceImpl) {
		s.metrics = m
	}
}

// WithClock overrides the wall clock
func WithClock(c Clock) TransactionServiceOption {
	return func(s *transactionServiceImpl) {
		s.clock = c
	}
}

// NewTransactionService creates the transaction engine. All mutations touching an
// item are serialised through locks, keyed by item id.
func NewTransactionService(store *portsrepo.Store, locks *KeyedLocker, options ...TransactionServiceOption) portssvc.TransactionSvcFacade {
	svc := &transactionServiceImpl{
		store:     store,
		locks:     locks,
		penalties: NewPenaltyCalculator(DefaultDailyLateFee, DefaultPenaltyCurrency),
		clock:     SystemClock{},
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.TransactionSvcFacade = (*transactionServiceImpl)(nil)

func (s *transactionServiceImpl) Checkout(ctx context.Context, actor domain.Actor, req dto.CheckoutRequest) (*domain.Transaction, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	borrowerID := req.UserID
	if borrowerID == "" {
		borrowerID = actor.UserID
	}
	if borrowerID != actor.UserID && !actor.Can(domain.PermissionApprove) {
		return nil, apperrors.PermissionDenied("cannot request a checkout on behalf of another user")
	}
	txnType := req.Type
	if txnType == "" {
		txnType = domain.TransactionTypeCheckout
	}

	now := s.now()
	expected := storageTime(req.ExpectedReturnDate)
	if !expected.After(now) {
		return nil, apperrors.Validation("expected return date must be in the future")
	}

	borrower, err := s.store.Users.FindByID(ctx, borrowerID)
	if err != nil {
		return nil, err
	}
	if borrower.Status == domain.UserStatusInactive {
		return nil, apperrors.Validation("user %s is inactive", borrowerID)
	}

	unlock, err := s.locks.Lock(ctx, itemLockKey(req.ItemID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	item, err := s.store.Items.FindByID(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}
	if !item.CanBeCheckedOut() {
		return nil, apperrors.Validation("item %q is not available for checkout (status %s)", item.Name, item.Status)
	}

	pending, err := s.pendingQuantity(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	if effective := item.EffectiveAvailable(pending); effective < req.Quantity {
		return nil, apperrors.Validation("insufficient availability: only %d unit(s) of %q available, %d requested",
			effective, item.Name, req.Quantity)
	}

	txn, err := createNumbered(ctx, s.locks, s.store.Transactions, now, &domain.Transaction{
		Type:                 txnType,
		Status:               domain.TransactionStatusPending,
		Item:                 item.ID,
		User:                 borrowerID,
		Quantity:             req.Quantity,
		Purpose:              req.Purpose,
		Destination:          req.Destination,
		Notes:                req.Notes,
		CheckoutDate:         &now,
		ExpectedReturnDate:   &expected,
		ApprovalRequired:     true,
		RequiresStoragePhoto: req.RequiresStoragePhoto,
	})
	if err != nil {
		s.LogError(ctx, err, "Failed to create checkout request", slog.String("item_id", item.ID))
		return nil, err
	}

	s.metrics.Transition("none", string(domain.TransactionStatusPending))
	s.LogInfo(ctx, "Checkout requested",
		slog.String("transaction_id", txn.ID),
		slog.String("transaction_number", txn.TransactionNumber),
		slog.String("item_id", item.ID),
		slog.Int("quantity", txn.Quantity))

	s.notifyApprovers(ctx, domain.NotificationEvent{
		Type:               domain.NotificationCheckoutRequest,
		Title:              "Checkout request",
		Message:            fmt.Sprintf("%s requested %d x %s (%s)", borrower.Name, txn.Quantity, item.Name, txn.TransactionNumber),
		RelatedTransaction: txn.ID,
		RelatedItem:        item.ID,
		Priority:           domain.PriorityNormal,
	})
	return txn, nil
}

func (s *transactionServiceImpl) Approve(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error) {
	if !actor.Can(domain.PermissionApprove) {
		return nil, apperrors.PermissionDenied("approving checkouts requires the %s capability", domain.PermissionApprove)
	}

	txn, unlock, err := s.lockTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !txn.Status.CanTransitionTo(domain.TransactionStatusActive) {
		return nil, apperrors.StateConflict("transaction %s is %s, only pending transactions can be approved", txn.TransactionNumber, txn.Status)
	}

	item, err := s.store.Items.FindByID(ctx, txn.Item)
	if err != nil {
		return nil, err
	}
	reserved := *item
	if err := reserved.Reserve(txn.Quantity); err != nil {
		return nil, apperrors.Validation("insufficient availability: %v", err)
	}

	now := s.now()
	approved, err := s.store.Transactions.Update(ctx, txn.ID, portsrepo.Fields{
		"status":       domain.TransactionStatusActive,
		"approvedBy":   actor.UserID,
		"approvedDate": now,
		"checkoutDate": now,
	})
	if err != nil {
		return nil, err
	}
	if approved == nil {
		return nil, apperrors.NotFound("transaction %s not found", transactionID)
	}

	if err := s.setAvailable(ctx, item.ID, portsrepo.Fields{"availableQuantity": reserved.AvailableQuantity}); err != nil {
		return nil, s.compensate(ctx, "approve", txn, err, portsrepo.Fields{
			"status":       txn.Status,
			"approvedBy":   txn.ApprovedBy,
			"approvedDate": txn.ApprovedDate,
			"checkoutDate": txn.CheckoutDate,
		})
	}

	s.metrics.Transition(string(txn.Status), string(approved.Status))
	s.LogInfo(ctx, "Checkout approved",
		slog.String("transaction_id", approved.ID),
		slog.String("approved_by", actor.UserID),
		slog.Int("available_quantity", reserved.AvailableQuantity))

	s.emit(ctx, domain.NotificationEvent{
		Recipient:          approved.User,
		Type:               domain.NotificationCheckoutApproved,
		Title:              "Checkout approved",
		Message:            fmt.Sprintf("Your request %s for %d x %s was approved", approved.TransactionNumber, approved.Quantity, item.Name),
		RelatedTransaction: approved.ID,
		RelatedItem:        item.ID,
		Priority:           domain.PriorityNormal,
	})
	return approved, nil
}

func (s *transactionServiceImpl) Reject(ctx context.Context, actor domain.Actor, transactionID, reason string) (*domain.Transaction, error) {
	if !actor.Can(domain.PermissionApprove) {
		return nil, apperrors.PermissionDenied("rejecting checkouts requires the %s capability", domain.PermissionApprove)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.Validation("a rejection reason is required")
	}

	txn, unlock, err := s.lockTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !txn.Status.CanTransitionTo(domain.TransactionStatusRejected) {
		return nil, apperrors.StateConflict("transaction %s is %s, only pending transactions can be rejected", txn.TransactionNumber, txn.Status)
	}

	rejected, err := s.updateTransaction(ctx, txn.ID, portsrepo.Fields{
		"status":          domain.TransactionStatusRejected,
		"rejectedBy":      actor.UserID,
		"rejectedDate":    s.now(),
		"rejectionReason": reason,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(string(txn.Status), string(rejected.Status))
	s.LogInfo(ctx, "Checkout rejected", slog.String("transaction_id", rejected.ID), slog.String("rejected_by", actor.UserID))
	s.emit(ctx, domain.NotificationEvent{
		Recipient:          rejected.User,
		Type:               domain.NotificationCheckoutRejected,
		Title:              "Checkout rejected",
		Message:            fmt.Sprintf("Your request %s was rejected: %s", rejected.TransactionNumber, reason),
		RelatedTransaction: rejected.ID,
		RelatedItem:        rejected.Item,
		Priority:           domain.PriorityNormal,
	})
	return rejected, nil
}

func (s *transactionServiceImpl) Cancel(ctx context.Context, actor domain.Actor, transactionID, reason string) (*domain.Transaction, error) {
	txn, unlock, err := s.lockTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !canActOn(actor, txn) {
		return nil, apperrors.PermissionDenied("only the borrower or an approver can cancel transaction %s", txn.TransactionNumber)
	}
	if !txn.Status.CanTransitionTo(domain.TransactionStatusCancelled) {
		return nil, apperrors.StateConflict("transaction %s is %s, only pending transactions can be cancelled", txn.TransactionNumber, txn.Status)
	}

	cancelled, err := s.updateTransaction(ctx, txn.ID, portsrepo.Fields{
		"status":             domain.TransactionStatusCancelled,
		"cancelledBy":        actor.UserID,
		"cancelledDate":      s.now(),
		"cancellationReason": strings.TrimSpace(reason),
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(string(txn.Status), string(cancelled.Status))
	s.LogInfo(ctx, "Checkout cancelled", slog.String("transaction_id", cancelled.ID), slog.String("cancelled_by", actor.UserID))
	if actor.UserID != cancelled.User {
		s.emit(ctx, domain.NotificationEvent{
			Recipient:          cancelled.User,
			Type:               domain.NotificationCheckoutCanceled,
			Title:              "Checkout cancelled",
			Message:            fmt.Sprintf("Your request %s was cancelled", cancelled.TransactionNumber),
			RelatedTransaction: cancelled.ID,
			RelatedItem:        cancelled.Item,
			Priority:           domain.PriorityLow,
		})
	}
	return cancelled, nil
}

func (s *transactionServiceImpl) ReturnItem(ctx context.Context, actor domain.Actor, transactionID string, req dto.ReturnRequest) (*domain.Transaction, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	txn, unlock, err := s.lockTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !canActOn(actor, txn) {
		return nil, apperrors.PermissionDenied("only the borrower or an approver can return transaction %s", txn.TransactionNumber)
	}
	if !txn.Status.CanTransitionTo(domain.TransactionStatusReturned) {
		return nil, apperrors.StateConflict("transaction %s is %s, only active or overdue loans can be returned", txn.TransactionNumber, txn.Status)
	}
	if txn.RequiresStoragePhoto && !txn.StoragePhotoUploaded {
		return nil, apperrors.Validation("a storage photo must be uploaded before returning transaction %s", txn.TransactionNumber)
	}

	item, err := s.store.Items.FindByID(ctx, txn.Item)
	if err != nil {
		return nil, err
	}

	now := s.now()
	penalties := append([]domain.Penalty(nil), txn.Penalties...)
	overdue := txn.IsOverdue
	var fee *domain.Penalty
	if txn.IsPastDue(now) {
		overdue = true
		// Replaces whatever the overdue sweep accrued with the fee at return time.
		if fee = s.penalties.LateFee(*txn.ExpectedReturnDate, now); fee != nil {
			penalties, _ = txn.WithLateFee(*fee)
		}
	}

	returned, err := s.updateTransaction(ctx, txn.ID, portsrepo.Fields{
		"status":           domain.TransactionStatusReturned,
		"actualReturnDate": now,
		"returnedBy":       actor.UserID,
		"returnCondition":  req.Condition,
		"returnNotes":      req.Notes,
		"isOverdue":        overdue,
		"penalties":        penalties,
	})
	if err != nil {
		return nil, err
	}

	released := *item
	released.Release(txn.Quantity)
	itemFields := portsrepo.Fields{"availableQuantity": released.AvailableQuantity}
	if req.Condition != "" {
		itemFields["condition"] = req.Condition
	}
	if err := s.setAvailable(ctx, item.ID, itemFields); err != nil {
		return nil, s.compensate(ctx, "return", txn, err, portsrepo.Fields{
			"status":           txn.Status,
			"actualReturnDate": txn.ActualReturnDate,
			"returnedBy":       txn.ReturnedBy,
			"returnCondition":  txn.ReturnCondition,
			"returnNotes":      txn.ReturnNotes,
			"isOverdue":        txn.IsOverdue,
			"penalties":        txn.Penalties,
		})
	}

	s.metrics.Transition(string(txn.Status), string(returned.Status))
	logArgs := []any{
		slog.String("transaction_id", returned.ID),
		slog.String("returned_by", actor.UserID),
		slog.Int("available_quantity", released.AvailableQuantity),
	}
	message := fmt.Sprintf("%d x %s returned (%s)", returned.Quantity, item.Name, returned.TransactionNumber)
	if fee != nil {
		logArgs = append(logArgs, slog.String("late_fee", fee.Amount.StringFixed(2)))
		message += fmt.Sprintf(", late fee %s %s", fee.Amount.StringFixed(2), fee.Currency)
	}
	s.LogInfo(ctx, "Item returned", logArgs...)

	s.emit(ctx, domain.NotificationEvent{
		Recipient:          returned.User,
		Type:               domain.NotificationItemReturned,
		Title:              "Item returned",
		Message:            message,
		RelatedTransaction: returned.ID,
		RelatedItem:        item.ID,
		Priority:           domain.PriorityLow,
	})
	return returned, nil
}

func (s *transactionServiceImpl) RequestExtension(ctx context.Context, actor domain.Actor, transactionID string, req dto.ExtensionRequest) (*domain.Extension, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	txn, unlock, err := s.lockTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !canActOn(actor, txn) {
		return nil, apperrors.PermissionDenied("only the borrower or an approver can extend transaction %s", txn.TransactionNumber)
	}
	if txn.Status != domain.TransactionStatusActive {
		return nil, apperrors.StateConflict("transaction %s is %s, extensions can only be requested for active loans", txn.TransactionNumber, txn.Status)
	}
	newReturn := storageTime(req.NewReturnDate)
	if txn.ExpectedReturnDate != nil && !newReturn.After(*txn.ExpectedReturnDate) {
		return nil, apperrors.Validation("new return date must be after the current expected return date %s",
			txn.ExpectedReturnDate.Format(time.RFC3339))
	}

	ext := domain.Extension{
		RequestedBy:   actor.UserID,
		RequestedDate: s.now(),
		NewReturnDate: newReturn,
		Reason:        strings.TrimSpace(req.Reason),
		Status:        domain.ExtensionStatusPending,
	}
	extensions := append(append([]domain.Extension(nil), txn.Extensions...), ext)
	if _, err := s.updateTransaction(ctx, txn.ID, portsrepo.Fields{"extensions": extensions}); err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Extension requested",
		slog.String("transaction_id", txn.ID),
		slog.Time("new_return_date", newReturn))
	s.notifyApprovers(ctx, domain.NotificationEvent{
		Type:               domain.NotificationExtensionRequest,
		Title:              "Extension requested",
		Message:            fmt.Sprintf("Extension requested for %s until %s: %s", txn.TransactionNumber, newReturn.Format("2006-01-02"), ext.Reason),
		RelatedTransaction: txn.ID,
		RelatedItem:        txn.Item,
		Priority:           domain.PriorityNormal,
	})
	return &ext, nil
}

func (s *transactionServiceImpl) RecordStoragePhoto(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error) {
	txn, unlock, err := s.lockTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !canActOn(actor, txn) {
		return nil, apperrors.PermissionDenied("only the borrower or an approver can upload a photo for transaction %s", txn.TransactionNumber)
	}
	if !txn.Status.HoldsStock() {
		return nil, apperrors.StateConflict("transaction %s is %s, photos are recorded for active or overdue loans", txn.TransactionNumber, txn.Status)
	}
	return s.updateTransaction(ctx, txn.ID, portsrepo.Fields{"storagePhotoUploaded": true})
}

func (s *transactionServiceImpl) GetTransaction(ctx context.Context, actor domain.Actor, transactionID string) (*portssvc.TransactionView, error) {
	txn, err := s.store.Transactions.FindByID(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if !canActOn(actor, txn) {
		return nil, apperrors.PermissionDenied("transaction %s belongs to another user", transactionID)
	}

	view := &portssvc.TransactionView{Transaction: *txn}
	if view.Item, err = s.store.Items.FindByID(ctx, txn.Item); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if view.User, err = s.store.Users.FindByID(ctx, txn.User); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	return view, nil
}

func (s *transactionServiceImpl) ListTransactions(ctx context.Context, actor domain.Actor, filter portsrepo.Filter) ([]domain.Transaction, error) {
	scoped := portsrepo.Filter{}
	for k, v := range filter {
		scoped[k] = v
	}
	if !actor.Can(domain.PermissionApprove) {
		scoped["user"] = actor.UserID
	}
	txns, err := s.store.Transactions.FindAll(ctx, scoped)
	if err != nil {
		s.LogError(ctx, err, "Failed to list transactions")
		return nil, err
	}
	return txns, nil
}

// lockTransaction loads the transaction, takes its item's lock and reloads it so
// the caller sees the state no concurrent writer can change.
func (s *transactionServiceImpl) lockTransaction(ctx context.Context, transactionID string) (*domain.Transaction, func(), error) {
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

func (s *transactionServiceImpl) updateTransaction(ctx context.Context, id string, fields portsrepo.Fields) (*domain.Transaction, error) {
	updated, err := s.store.Transactions.Update(ctx, id, fields)
	if err != nil {
		s.LogError(ctx, err, "Failed to update transaction", slog.String("transaction_id", id))
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NotFound("transaction %s not found", id)
	}
	return updated, nil
}

func (s *transactionServiceImpl) setAvailable(ctx context.Context, itemID string, fields portsrepo.Fields) error {
	updated, err := s.store.Items.Update(ctx, itemID, fields)
	if err != nil {
		return err
	}
	if updated == nil {
		return apperrors.NotFound("item %s not found", itemID)
	}
	return nil
}

// compensate restores the transaction after its item update failed. The original
// failure is returned when the restore succeeds. When it does not, the two records
// disagree and an operator has to reconcile them.
func (s *transactionServiceImpl) compensate(ctx context.Context, operation string, txn *domain.Transaction, cause error, restore portsrepo.Fields) error {
	restored, rbErr := s.store.Transactions.Update(ctx, txn.ID, restore)
	if rbErr == nil && restored == nil {
		rbErr = apperrors.NotFound("transaction %s vanished during rollback", txn.ID)
	}
	if rbErr == nil {
		s.metrics.Compensation(operation, "rolled_back")
		s.LogWarn(ctx, "Item update failed, transaction rolled back",
			slog.String("operation", operation),
			slog.String("transaction_id", txn.ID),
			slog.String("error", cause.Error()))
		return cause
	}

	s.metrics.Compensation(operation, "failed")
	s.LogError(ctx, rbErr, "Rollback failed, transaction and item are inconsistent",
		slog.String("operation", operation),
		slog.String("transaction_id", txn.ID),
		slog.String("item_id", txn.Item),
		slog.String("cause", cause.Error()),
		slog.Bool("operator_action_required", true))
	return apperrors.NewAppError(apperrors.KindStorageFailure,
		fmt.Sprintf("%s of transaction %s left it inconsistent with item %s; operator action required", operation, txn.TransactionNumber, txn.Item),
		errors.Join(cause, rbErr))
}

func (s *transactionServiceImpl) pendingQuantity(ctx context.Context, itemID string) (int, error) {
	pending, err := s.store.Transactions.FindAll(ctx, portsrepo.Filter{
		"item":   itemID,
		"status": string(domain.TransactionStatusPending),
	})
	if err != nil {
		return 0, err
	}
	total := 0
	for _, t := range pending {
		total += t.Quantity
	}
	return total, nil
}

// createNumbered assigns the next TXN-YYYYMMDD-NNNN number for now's day and
// persists txn. Numbering is serialised so two requests never share a number.
func createNumbered(ctx context.Context, locks *KeyedLocker, txns portsrepo.Collection[domain.Transaction], now time.Time, txn *domain.Transaction) (*domain.Transaction, error) {
	unlock, err := locks.Lock(ctx, transactionNumberLock)
	if err != nil {
		return nil, err
	}
	defer unlock()

	number, err := nextTransactionNumber(ctx, txns, now)
	if err != nil {
		return nil, err
	}
	txn.TransactionNumber = number
	return txns.Create(ctx, portsrepo.FieldsFrom(txn))
}

// nextTransactionNumber must be called with the numbering lock held.
func nextTransactionNumber(ctx context.Context, txns portsrepo.CollectionReader[domain.Transaction], now time.Time) (string, error) {
	prefix := transactionNumberPrefix + now.UTC().Format("20060102") + "-"
	today, err := txns.FindAll(ctx, portsrepo.Filter{portsrepo.SearchKey: prefix})
	if err != nil {
		return "", err
	}
	highest := 0
	for _, t := range today {
		suffix, ok := strings.CutPrefix(t.TransactionNumber, prefix)
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(suffix); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("%s%04d", prefix, highest+1), nil
}

func (s *transactionServiceImpl) notifyApprovers(ctx context.Context, event domain.NotificationEvent) {
	if s.events == nil {
		return
	}
	approvers, err := approverIDs(ctx, s.store.Users)
	if err != nil {
		s.LogError(ctx, err, "Failed to look up approvers for notification", slog.String("type", string(event.Type)))
		return
	}
	for _, id := range approvers {
		ev := event
		ev.Recipient = id
		s.events.Emit(ctx, ev)
	}
}

func (s *transactionServiceImpl) emit(ctx context.Context, event domain.NotificationEvent) {
	if s.events != nil {
		s.events.Emit(ctx, event)
	}
}

func (s *transactionServiceImpl) now() time.Time {
	return storageTime(s.clock.Now())
}

// approverIDs lists active users holding the approve capability.
func approverIDs(ctx context.Context, users portsrepo.CollectionReader[domain.User]) ([]string, error) {
	all, err := users.FindAll(ctx, nil)
	if err != nil {
		return nil, err
	}
	var ids []string
	for i := range all {
		u := &all[i]
		if u.Status != domain.UserStatusInactive && u.HasPermission(domain.PermissionApprove) {
			ids = append(ids, u.ID)
		}
	}
	return ids, nil
}

func canActOn(actor domain.Actor, txn *domain.Transaction) bool {
	return actor.UserID == txn.User || actor.Can(domain.PermissionApprove)
}

func itemLockKey(itemID string) string {
	return "item:" + itemID
}

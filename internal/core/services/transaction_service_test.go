package services_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/core/services"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
	"github.com/SscSPs/checkout_ledger_app/internal/platform/metrics"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"
)

var start = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type TransactionServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	store    *portsrepo.Store
	clock    *fakeClock
	events   *recordingEmitter
	locks    *services.KeyedLocker
	svc      portssvc.TransactionSvcFacade
	sweeps   portssvc.SweepSvcFacade
	admin    domain.Actor
	approver domain.Actor
	alice    domain.Actor
	bob      domain.Actor
	item     *domain.Item
}

func (s *TransactionServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = newMemStore(s.T())
	s.clock = newFakeClock(start)
	s.events = &recordingEmitter{}
	s.locks = services.NewKeyedLocker(2 * time.Second)
	s.rebuild()

	s.admin = createUser(s.T(), s.store, "Root", domain.RoleAdmin)
	s.approver = createUser(s.T(), s.store, "Mia Manager", domain.RoleManager, domain.PermissionApprove)
	s.alice = createUser(s.T(), s.store, "Alice", domain.RoleMember)
	s.bob = createUser(s.T(), s.store, "Bob", domain.RoleMember)
	s.item = createItem(s.T(), s.store, "Camera", 5)
}

func (s *TransactionServiceTestSuite) rebuild() {
	s.svc = services.NewTransactionService(s.store, s.locks,
		services.WithClock(s.clock),
		services.WithEventEmitter(s.events),
		services.WithMetrics(metrics.New()),
		services.WithPenaltyCalculator(fivePerDay),
	)
	s.sweeps = services.NewSweepService(s.store, s.locks, fivePerDay, s.events, nil, 24*time.Hour)
}

func (s *TransactionServiceTestSuite) checkoutReq(qty int, due time.Duration) dto.CheckoutRequest {
	return dto.CheckoutRequest{
		ItemID:             s.item.ID,
		Quantity:           qty,
		Purpose:            "Field shoot",
		ExpectedReturnDate: s.clock.Now().Add(due),
	}
}

func (s *TransactionServiceTestSuite) itemNow() *domain.Item {
	item, err := s.store.Items.FindByID(s.ctx, s.item.ID)
	s.Require().NoError(err)
	s.Require().NoError(item.CheckInvariant())
	return item
}

func (s *TransactionServiceTestSuite) activeLoan(actor domain.Actor, qty int, due time.Duration) *domain.Transaction {
	txn, err := s.svc.Checkout(s.ctx, actor, s.checkoutReq(qty, due))
	s.Require().NoError(err)
	txn, err = s.svc.Approve(s.ctx, s.approver, txn.ID)
	s.Require().NoError(err)
	return txn
}

func (s *TransactionServiceTestSuite) TestCheckoutApproveReturn() {
	txn, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(2, 48*time.Hour))
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusPending, txn.Status)
	s.Equal(domain.TransactionTypeCheckout, txn.Type)
	s.True(txn.ApprovalRequired)
	s.Equal(s.alice.UserID, txn.User)
	s.Equal("TXN-20260302-0001", txn.TransactionNumber)
	s.Equal(5, s.itemNow().AvailableQuantity, "pending requests do not deduct stock")
	s.Len(s.events.ofType(domain.NotificationCheckoutRequest), 2, "admin and approver are notified")

	approved, err := s.svc.Approve(s.ctx, s.approver, txn.ID)
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusActive, approved.Status)
	s.Equal(s.approver.UserID, approved.ApprovedBy)
	s.Require().NotNil(approved.ApprovedDate)
	s.Equal(3, s.itemNow().AvailableQuantity)
	s.Len(s.events.ofType(domain.NotificationCheckoutApproved), 1)

	s.clock.Advance(24 * time.Hour)
	returned, err := s.svc.ReturnItem(s.ctx, s.alice, txn.ID, dto.ReturnRequest{Condition: "good"})
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusReturned, returned.Status)
	s.Require().NotNil(returned.ActualReturnDate)
	s.Equal(s.alice.UserID, returned.ReturnedBy)
	s.Empty(returned.Penalties)
	s.False(returned.IsOverdue)

	item := s.itemNow()
	s.Equal(5, item.AvailableQuantity)
	s.Equal("good", item.Condition)
}

func (s *TransactionServiceTestSuite) TestCheckout_EffectiveAvailabilityCountsPendingRequests() {
	_, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(4, time.Hour))
	s.Require().NoError(err)

	_, err = s.svc.Checkout(s.ctx, s.bob, s.checkoutReq(2, time.Hour))
	s.Require().Error(err)
	s.True(errors.Is(err, apperrors.ErrValidation))
	s.Contains(err.Error(), "only 1 unit(s)")

	_, err = s.svc.Checkout(s.ctx, s.bob, s.checkoutReq(1, time.Hour))
	s.NoError(err)
}

func (s *TransactionServiceTestSuite) TestCheckout_Validation() {
	tests := []struct {
		name    string
		actor   domain.Actor
		mutate  func(*dto.CheckoutRequest)
		wantErr error
	}{
		{"zero quantity", s.alice, func(r *dto.CheckoutRequest) { r.Quantity = 0 }, apperrors.ErrValidation},
		{"missing purpose", s.alice, func(r *dto.CheckoutRequest) { r.Purpose = "" }, apperrors.ErrValidation},
		{"past due date", s.alice, func(r *dto.CheckoutRequest) { r.ExpectedReturnDate = start.Add(-time.Hour) }, apperrors.ErrValidation},
		{"bad type", s.alice, func(r *dto.CheckoutRequest) { r.Type = "borrow" }, apperrors.ErrValidation},
		{"unknown item", s.alice, func(r *dto.CheckoutRequest) { r.ItemID = "missing" }, apperrors.ErrNotFound},
		{"unknown user", s.approver, func(r *dto.CheckoutRequest) { r.UserID = "ghost" }, apperrors.ErrNotFound},
		{"on behalf without approve", s.alice, func(r *dto.CheckoutRequest) { r.UserID = s.bob.UserID }, apperrors.ErrPermissionDenied},
		{"over total", s.alice, func(r *dto.CheckoutRequest) { r.Quantity = 6 }, apperrors.ErrValidation},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			req := s.checkoutReq(1, time.Hour)
			tt.mutate(&req)
			_, err := s.svc.Checkout(s.ctx, tt.actor, req)
			s.True(errors.Is(err, tt.wantErr), "got %v", err)
		})
	}

	txns, err := s.store.Transactions.FindAll(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(txns)
}

func (s *TransactionServiceTestSuite) TestCheckout_OnBehalfAndReserve() {
	req := s.checkoutReq(1, time.Hour)
	req.UserID = s.bob.UserID
	req.Type = domain.TransactionTypeReserve
	txn, err := s.svc.Checkout(s.ctx, s.approver, req)
	s.Require().NoError(err)
	s.Equal(s.bob.UserID, txn.User)
	s.Equal(domain.TransactionTypeReserve, txn.Type)
}

func (s *TransactionServiceTestSuite) TestCheckout_ItemNotCheckoutable() {
	_, err := s.store.Items.Update(s.ctx, s.item.ID, portsrepo.Fields{"status": domain.ItemStatusMaintenance})
	s.Require().NoError(err)

	_, err = s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(1, time.Hour))
	s.True(errors.Is(err, apperrors.ErrValidation))
	s.Contains(err.Error(), "maintenance")
}

func (s *TransactionServiceTestSuite) TestTransactionNumbersRestartDaily() {
	first, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(1, 72*time.Hour))
	s.Require().NoError(err)
	second, err := s.svc.Checkout(s.ctx, s.bob, s.checkoutReq(1, 72*time.Hour))
	s.Require().NoError(err)
	s.clock.Advance(24 * time.Hour)
	third, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(1, 24*time.Hour))
	s.Require().NoError(err)

	s.Equal("TXN-20260302-0001", first.TransactionNumber)
	s.Equal("TXN-20260302-0002", second.TransactionNumber)
	s.Equal("TXN-20260303-0001", third.TransactionNumber)
}

func (s *TransactionServiceTestSuite) TestApprove_Guards() {
	txn, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(2, time.Hour))
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, s.bob, txn.ID)
	s.True(errors.Is(err, apperrors.ErrPermissionDenied))

	_, err = s.svc.Approve(s.ctx, s.approver, "missing")
	s.True(errors.Is(err, apperrors.ErrNotFound))

	_, err = s.svc.Approve(s.ctx, s.admin, txn.ID)
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, s.approver, txn.ID)
	s.True(errors.Is(err, apperrors.ErrStateConflict))
	s.Equal(3, s.itemNow().AvailableQuantity, "a second approval never deducts twice")
}

func (s *TransactionServiceTestSuite) TestApprove_RechecksStock() {
	txn, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(3, time.Hour))
	s.Require().NoError(err)
	_, err = s.store.Items.Update(s.ctx, s.item.ID, portsrepo.Fields{"availableQuantity": 2})
	s.Require().NoError(err)

	_, err = s.svc.Approve(s.ctx, s.approver, txn.ID)
	s.True(errors.Is(err, apperrors.ErrValidation))
	s.Contains(err.Error(), "only 2 unit(s)")

	stored, err := s.store.Transactions.FindByID(s.ctx, txn.ID)
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusPending, stored.Status)
}

func (s *TransactionServiceTestSuite) TestRejectAndCancel() {
	toReject, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(1, time.Hour))
	s.Require().NoError(err)

	_, err = s.svc.Reject(s.ctx, s.approver, toReject.ID, "  ")
	s.True(errors.Is(err, apperrors.ErrValidation))
	_, err = s.svc.Reject(s.ctx, s.alice, toReject.ID, "no")
	s.True(errors.Is(err, apperrors.ErrPermissionDenied))

	rejected, err := s.svc.Reject(s.ctx, s.approver, toReject.ID, "Needed for audit")
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusRejected, rejected.Status)
	s.Equal("Needed for audit", rejected.RejectionReason)
	s.Equal(s.approver.UserID, rejected.RejectedBy)
	s.Len(s.events.ofType(domain.NotificationCheckoutRejected), 1)

	_, err = s.svc.Cancel(s.ctx, s.alice, rejected.ID, "")
	s.True(errors.Is(err, apperrors.ErrStateConflict))

	toCancel, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(1, time.Hour))
	s.Require().NoError(err)
	_, err = s.svc.Cancel(s.ctx, s.bob, toCancel.ID, "")
	s.True(errors.Is(err, apperrors.ErrPermissionDenied))

	cancelled, err := s.svc.Cancel(s.ctx, s.alice, toCancel.ID, "plans changed")
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusCancelled, cancelled.Status)
	s.Equal("plans changed", cancelled.CancellationReason)
	s.Empty(s.events.ofType(domain.NotificationCheckoutCanceled), "borrower is not told about their own cancellation")

	_, err = s.svc.Approve(s.ctx, s.approver, cancelled.ID)
	s.True(errors.Is(err, apperrors.ErrStateConflict))
	s.Equal(5, s.itemNow().AvailableQuantity)
}

func (s *TransactionServiceTestSuite) TestReturn_LateFee() {
	txn := s.activeLoan(s.alice, 1, 24*time.Hour)

	// 25 hours late starts a second day.
	s.clock.Advance(49 * time.Hour)
	returned, err := s.svc.ReturnItem(s.ctx, s.alice, txn.ID, dto.ReturnRequest{})
	s.Require().NoError(err)

	s.True(returned.IsOverdue)
	s.Require().Len(returned.Penalties, 1)
	p := returned.Penalties[0]
	s.Equal(domain.PenaltyTypeLateFee, p.Type)
	s.True(p.Amount.Equal(decimal.NewFromInt(10)), "got %s", p.Amount)
	s.Equal("USD", p.Currency)
	s.Equal("Late return: 2 day(s) overdue", p.Reason)
	s.False(p.IsPaid)
	s.Equal(5, s.itemNow().AvailableQuantity)
}

func (s *TransactionServiceTestSuite) TestReturn_FourDaysLate() {
	txn := s.activeLoan(s.alice, 1, 24*time.Hour)

	s.clock.Advance(24*time.Hour + 4*24*time.Hour)
	returned, err := s.svc.ReturnItem(s.ctx, s.alice, txn.ID, dto.ReturnRequest{})
	s.Require().NoError(err)

	s.Equal(domain.TransactionStatusReturned, returned.Status)
	s.True(returned.IsOverdue)
	s.Require().Len(returned.Penalties, 1)
	s.True(returned.Penalties[0].Amount.Equal(decimal.NewFromInt(20)), "got %s", returned.Penalties[0].Amount)
	s.Equal("Late return: 4 day(s) overdue", returned.Penalties[0].Reason)
	s.True(returned.TotalPenalties().Equal(decimal.NewFromInt(20)))
	s.Equal(5, s.itemNow().AvailableQuantity)
}

func (s *TransactionServiceTestSuite) TestAvailableMatchesHeldStock() {
	inventory := services.NewInventoryService(s.store, s.locks, nil, s.clock)

	assertHeld := func(step string) {
		item := s.itemNow()
		open, err := s.store.Transactions.FindAll(s.ctx, portsrepo.Filter{"item": item.ID})
		s.Require().NoError(err)
		held := 0
		for _, t := range open {
			if t.Type != domain.TransactionTypeAdjustment && t.Status.HoldsStock() {
				held += t.Quantity
			}
		}
		s.Equal(item.TotalQuantity-held, item.AvailableQuantity, step)
	}

	first := s.activeLoan(s.alice, 2, 24*time.Hour)
	assertHeld("after first approval")
	second := s.activeLoan(s.bob, 1, 48*time.Hour)
	assertHeld("after second approval")

	_, err := inventory.AdjustQuantity(s.ctx, s.admin, s.item.ID, dto.AdjustQuantityRequest{Delta: 3, Reason: "restock"})
	s.Require().NoError(err)
	assertHeld("after restock")

	s.clock.Advance(30 * time.Hour)
	_, err = s.sweeps.SweepOverdue(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	assertHeld("after overdue sweep")

	_, err = s.svc.ReturnItem(s.ctx, s.alice, first.ID, dto.ReturnRequest{})
	s.Require().NoError(err)
	assertHeld("after overdue return")

	_, err = inventory.AdjustQuantity(s.ctx, s.admin, s.item.ID, dto.AdjustQuantityRequest{Delta: -4, Reason: "write-off"})
	s.Require().NoError(err)
	assertHeld("after write-off")

	_, err = s.svc.ReturnItem(s.ctx, s.bob, second.ID, dto.ReturnRequest{})
	s.Require().NoError(err)
	assertHeld("after last return")
	s.Equal(4, s.itemNow().AvailableQuantity)
}

func (s *TransactionServiceTestSuite) TestOverdueSweepThenReturn() {
	txn := s.activeLoan(s.alice, 2, 24*time.Hour)
	s.events.reset()

	s.clock.Advance(30 * time.Hour)
	n, err := s.sweeps.SweepOverdue(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Equal(1, n)

	overdue, err := s.store.Transactions.FindByID(s.ctx, txn.ID)
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusOverdue, overdue.Status)
	s.True(overdue.IsOverdue)
	s.Require().Len(overdue.Penalties, 1)
	s.Equal(domain.PenaltyTypeLateFee, overdue.Penalties[0].Type)
	s.Equal("5", overdue.Penalties[0].Amount.String(), "6 hours late is one started day")
	s.Equal(3, s.itemNow().AvailableQuantity, "overdue loans still hold stock")

	notices := s.events.ofType(domain.NotificationOverdue)
	recipients := []string{}
	for _, ev := range notices {
		recipients = append(recipients, ev.Recipient)
	}
	s.ElementsMatch([]string{s.alice.UserID, s.admin.UserID, s.approver.UserID}, recipients)

	n, err = s.sweeps.SweepOverdue(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Zero(n)
	again, err := s.store.Transactions.FindByID(s.ctx, txn.ID)
	s.Require().NoError(err)
	s.Equal(overdue.Penalties, again.Penalties, "a repeated sweep changes nothing")
	s.Len(s.events.ofType(domain.NotificationOverdue), 3, "no second round of notices")

	// A day later the fee accrues in place.
	s.clock.Advance(24 * time.Hour)
	n, err = s.sweeps.SweepOverdue(s.ctx, s.clock.Now())
	s.Require().NoError(err)
	s.Zero(n)
	accrued, err := s.store.Transactions.FindByID(s.ctx, txn.ID)
	s.Require().NoError(err)
	s.Require().Len(accrued.Penalties, 1)
	s.Equal("10", accrued.Penalties[0].Amount.String())

	_, err = s.svc.RequestExtension(s.ctx, s.alice, txn.ID, dto.ExtensionRequest{NewReturnDate: s.clock.Now().Add(time.Hour), Reason: "late"})
	s.True(errors.Is(err, apperrors.ErrStateConflict))

	returned, err := s.svc.ReturnItem(s.ctx, s.approver, txn.ID, dto.ReturnRequest{})
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusReturned, returned.Status)
	s.True(returned.IsOverdue)
	s.Require().Len(returned.Penalties, 1)
	s.Equal("10", returned.Penalties[0].Amount.String(), "30 hours late is two started days")
	s.Equal("Late return: 2 day(s) overdue", returned.Penalties[0].Reason)
	s.Equal(5, s.itemNow().AvailableQuantity)

	_, err = s.svc.ReturnItem(s.ctx, s.approver, txn.ID, dto.ReturnRequest{})
	s.True(errors.Is(err, apperrors.ErrStateConflict))
	s.Equal(5, s.itemNow().AvailableQuantity, "a second return releases nothing")
}

func (s *TransactionServiceTestSuite) TestReturn_StoragePhotoGate() {
	req := s.checkoutReq(1, 24*time.Hour)
	req.RequiresStoragePhoto = true
	txn, err := s.svc.Checkout(s.ctx, s.alice, req)
	s.Require().NoError(err)

	_, err = s.svc.RecordStoragePhoto(s.ctx, s.alice, txn.ID)
	s.True(errors.Is(err, apperrors.ErrStateConflict), "no photo for a pending request")

	_, err = s.svc.Approve(s.ctx, s.approver, txn.ID)
	s.Require().NoError(err)

	_, err = s.svc.ReturnItem(s.ctx, s.alice, txn.ID, dto.ReturnRequest{})
	s.True(errors.Is(err, apperrors.ErrValidation))
	s.Equal(4, s.itemNow().AvailableQuantity)

	_, err = s.svc.RecordStoragePhoto(s.ctx, s.bob, txn.ID)
	s.True(errors.Is(err, apperrors.ErrPermissionDenied))
	withPhoto, err := s.svc.RecordStoragePhoto(s.ctx, s.alice, txn.ID)
	s.Require().NoError(err)
	s.True(withPhoto.StoragePhotoUploaded)

	_, err = s.svc.ReturnItem(s.ctx, s.alice, txn.ID, dto.ReturnRequest{})
	s.Require().NoError(err)
	s.Equal(5, s.itemNow().AvailableQuantity)
}

func (s *TransactionServiceTestSuite) TestReturn_ReleaseIsCappedAtTotal() {
	txn := s.activeLoan(s.alice, 2, 24*time.Hour)
	// Someone restocked the item by hand.
	_, err := s.store.Items.Update(s.ctx, s.item.ID, portsrepo.Fields{"availableQuantity": 4})
	s.Require().NoError(err)

	_, err = s.svc.ReturnItem(s.ctx, s.alice, txn.ID, dto.ReturnRequest{})
	s.Require().NoError(err)
	s.Equal(5, s.itemNow().AvailableQuantity)
}

func (s *TransactionServiceTestSuite) TestRequestExtension() {
	txn := s.activeLoan(s.alice, 1, 24*time.Hour)

	_, err := s.svc.RequestExtension(s.ctx, s.alice, txn.ID, dto.ExtensionRequest{NewReturnDate: start.Add(12 * time.Hour), Reason: "more time"})
	s.True(errors.Is(err, apperrors.ErrValidation), "new date must move the return later")

	_, err = s.svc.RequestExtension(s.ctx, s.bob, txn.ID, dto.ExtensionRequest{NewReturnDate: start.Add(72 * time.Hour), Reason: "mine now"})
	s.True(errors.Is(err, apperrors.ErrPermissionDenied))

	ext, err := s.svc.RequestExtension(s.ctx, s.alice, txn.ID, dto.ExtensionRequest{NewReturnDate: start.Add(72 * time.Hour), Reason: "more time"})
	s.Require().NoError(err)
	s.Equal(domain.ExtensionStatusPending, ext.Status)
	s.Equal(s.alice.UserID, ext.RequestedBy)

	stored, err := s.store.Transactions.FindByID(s.ctx, txn.ID)
	s.Require().NoError(err)
	s.Require().Len(stored.Extensions, 1)
	s.Equal("more time", stored.Extensions[0].Reason)
	s.True(stored.ExpectedReturnDate.Equal(start.Add(24*time.Hour)), "requesting does not move the due date")
	s.Len(s.events.ofType(domain.NotificationExtensionRequest), 2)
}

func (s *TransactionServiceTestSuite) TestGetAndListTransactions() {
	mine, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(1, time.Hour))
	s.Require().NoError(err)
	_, err = s.svc.Checkout(s.ctx, s.bob, s.checkoutReq(1, time.Hour))
	s.Require().NoError(err)

	view, err := s.svc.GetTransaction(s.ctx, s.alice, mine.ID)
	s.Require().NoError(err)
	s.Require().NotNil(view.Item)
	s.Require().NotNil(view.User)
	s.Equal("Camera", view.Item.Name)
	s.Equal("Alice", view.User.Name)

	_, err = s.svc.GetTransaction(s.ctx, s.bob, mine.ID)
	s.True(errors.Is(err, apperrors.ErrPermissionDenied))

	own, err := s.svc.ListTransactions(s.ctx, s.alice, portsrepo.Filter{"user": s.bob.UserID})
	s.Require().NoError(err)
	s.Require().Len(own, 1)
	s.Equal(mine.ID, own[0].ID)

	all, err := s.svc.ListTransactions(s.ctx, s.approver, portsrepo.Filter{"status": "pending"})
	s.Require().NoError(err)
	s.Len(all, 2)

	_, err = s.store.Items.Delete(s.ctx, s.item.ID)
	s.Require().NoError(err)
	view, err = s.svc.GetTransaction(s.ctx, s.approver, mine.ID)
	s.Require().NoError(err)
	s.Nil(view.Item)
}

func (s *TransactionServiceTestSuite) TestApprove_RollsBackWhenItemUpdateFails() {
	txn, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(2, time.Hour))
	s.Require().NoError(err)

	s.store.Items = &flakyCollection[domain.Item]{
		Collection: s.store.Items,
		failUpdate: func(int, portsrepo.Fields) bool { return true },
	}
	s.rebuild()

	_, err = s.svc.Approve(s.ctx, s.approver, txn.ID)
	s.True(errors.Is(err, apperrors.ErrStorageFailure))
	s.NotContains(err.Error(), "operator action required")

	stored, err := s.store.Transactions.FindByID(s.ctx, txn.ID)
	s.Require().NoError(err)
	s.Equal(domain.TransactionStatusPending, stored.Status)
	s.Empty(stored.ApprovedBy)
	s.Nil(stored.ApprovedDate)
	s.Equal(5, s.itemNow().AvailableQuantity)
}

func (s *TransactionServiceTestSuite) TestReturn_FailedRollbackNeedsOperator() {
	txn := s.activeLoan(s.alice, 2, time.Hour)

	s.store.Items = &flakyCollection[domain.Item]{
		Collection: s.store.Items,
		failUpdate: func(int, portsrepo.Fields) bool { return true },
	}
	// The first update marks the transaction returned, the second one is the rollback.
	s.store.Transactions = &flakyCollection[domain.Transaction]{
		Collection: s.store.Transactions,
		failUpdate: func(n int, _ portsrepo.Fields) bool { return n == 2 },
	}
	s.rebuild()

	_, err := s.svc.ReturnItem(s.ctx, s.alice, txn.ID, dto.ReturnRequest{})
	s.Require().Error(err)
	s.True(errors.Is(err, apperrors.ErrStorageFailure))
	s.Contains(err.Error(), "operator action required")
}

func (s *TransactionServiceTestSuite) TestConcurrentCheckoutsNeverOversubscribe() {
	var (
		g         errgroup.Group
		mu        sync.Mutex
		succeeded []*domain.Transaction
	)
	for i := 0; i < 12; i++ {
		actor := s.alice
		if i%2 == 1 {
			actor = s.bob
		}
		g.Go(func() error {
			txn, err := s.svc.Checkout(s.ctx, actor, s.checkoutReq(1, time.Hour))
			if err != nil {
				if errors.Is(err, apperrors.ErrValidation) {
					return nil
				}
				return err
			}
			mu.Lock()
			succeeded = append(succeeded, txn)
			mu.Unlock()
			return nil
		})
	}
	s.Require().NoError(g.Wait())
	s.Len(succeeded, 5)

	numbers := map[string]bool{}
	for _, txn := range succeeded {
		numbers[txn.TransactionNumber] = true
	}
	s.Len(numbers, 5, "transaction numbers are unique")
}

func (s *TransactionServiceTestSuite) TestConcurrentApprovalsNeverOversell() {
	var pending []string
	for i := 0; i < 5; i++ {
		txn, err := s.svc.Checkout(s.ctx, s.alice, s.checkoutReq(1, time.Hour))
		s.Require().NoError(err)
		pending = append(pending, txn.ID)
	}
	// Three units disappear while the requests wait.
	_, err := s.store.Items.Update(s.ctx, s.item.ID, portsrepo.Fields{"availableQuantity": 2})
	s.Require().NoError(err)

	var g errgroup.Group
	var mu sync.Mutex
	approved := 0
	for _, id := range pending {
		id := id
		g.Go(func() error {
			_, err := s.svc.Approve(s.ctx, s.approver, id)
			switch {
			case err == nil:
				mu.Lock()
				approved++
				mu.Unlock()
				return nil
			case errors.Is(err, apperrors.ErrValidation):
				return nil
			default:
				return fmt.Errorf("approve %s: %w", id, err)
			}
		})
	}
	s.Require().NoError(g.Wait())
	s.Equal(2, approved)
	s.Equal(0, s.itemNow().AvailableQuantity)

	active, err := s.store.Transactions.FindAll(s.ctx, portsrepo.Filter{"status": "active"})
	s.Require().NoError(err)
	s.Len(active, 2)
}

func TestTransactionServiceTestSuite(t *testing.T) {
	suite.Run(t, new(TransactionServiceTestSuite))
}

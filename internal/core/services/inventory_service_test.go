package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/SscSPs/checkout_ledger_app/internal/core/services"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInventoryFixture(t *testing.T) (*portsrepo.Store, *services.KeyedLocker, *fakeClock) {
	t.Helper()
	return newMemStore(t), services.NewKeyedLocker(time.Second), newFakeClock(start)
}

func TestInventoryService_CreateItem(t *testing.T) {
	store, locks, clock := newInventoryFixture(t)
	svc := services.NewInventoryService(store, locks, nil, clock)
	ctx := context.Background()

	keeper := createUser(t, store, "Kim", domain.RoleManager, domain.PermissionManageInventory)
	member := createUser(t, store, "Max", domain.RoleMember)

	_, err := svc.CreateItem(ctx, member, dto.CreateItemRequest{Name: "Tripod", TotalQuantity: 2})
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))

	_, err = svc.CreateItem(ctx, keeper, dto.CreateItemRequest{TotalQuantity: 2})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	noApproval := false
	item, err := svc.CreateItem(ctx, keeper, dto.CreateItemRequest{
		Name:             "Tripod",
		TotalQuantity:    4,
		QRCode:           "QR-1",
		RequiresApproval: &noApproval,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, item.TotalQuantity)
	assert.Equal(t, 4, item.AvailableQuantity)
	assert.Equal(t, domain.ItemStatusActive, item.Status)
	assert.True(t, item.IsCheckoutable)
	assert.False(t, item.RequiresApproval)

	_, err = svc.CreateItem(ctx, keeper, dto.CreateItemRequest{Name: "Other tripod", QRCode: "QR-1"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "qr codes are unique")

	got, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tripod", got.Name)

	listed, err := svc.ListItems(ctx, portsrepo.Filter{portsrepo.SearchKey: "trip"})
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestInventoryService_AdjustQuantity(t *testing.T) {
	store, locks, clock := newInventoryFixture(t)
	inv := services.NewInventoryService(store, locks, nil, clock)
	txns := services.NewTransactionService(store, locks, services.WithClock(clock))
	ctx := context.Background()

	keeper := createUser(t, store, "Kim", domain.RoleAdmin)
	borrower := createUser(t, store, "Max", domain.RoleMember)
	item := createItem(t, store, "Laptop", 3)

	loan, err := txns.Checkout(ctx, borrower, dto.CheckoutRequest{
		ItemID: item.ID, Quantity: 2, Purpose: "trip", ExpectedReturnDate: start.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = txns.Approve(ctx, keeper, loan.ID)
	require.NoError(t, err)

	_, err = inv.AdjustQuantity(ctx, borrower, item.ID, dto.AdjustQuantityRequest{Delta: 1, Reason: "found one"})
	assert.True(t, errors.Is(err, apperrors.ErrPermissionDenied))

	_, err = inv.AdjustQuantity(ctx, keeper, item.ID, dto.AdjustQuantityRequest{Delta: 0, Reason: "noop"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	_, err = inv.AdjustQuantity(ctx, keeper, item.ID, dto.AdjustQuantityRequest{Delta: -2, Reason: "broken"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation), "units on loan cannot be written off")

	res, err := inv.AdjustQuantity(ctx, keeper, item.ID, dto.AdjustQuantityRequest{Delta: -1, Reason: "broken"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Item.TotalQuantity)
	assert.Equal(t, 0, res.Item.AvailableQuantity)
	assert.Equal(t, domain.TransactionTypeAdjustment, res.Transaction.Type)
	assert.Equal(t, domain.TransactionStatusApproved, res.Transaction.Status)
	assert.Equal(t, 1, res.Transaction.Quantity)
	assert.Equal(t, -1, res.Transaction.QuantityDelta)
	assert.Equal(t, "broken", res.Transaction.Purpose)
	assert.Equal(t, "TXN-20260302-0002", res.Transaction.TransactionNumber)

	_, err = txns.ReturnItem(ctx, borrower, loan.ID, dto.ReturnRequest{})
	require.NoError(t, err)
	after, err := inv.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, after.AvailableQuantity)
	assert.NoError(t, after.CheckInvariant())
}

func TestInventoryService_AdjustRollsBackWithoutAuditRecord(t *testing.T) {
	store, locks, clock := newInventoryFixture(t)
	keeper := createUser(t, store, "Kim", domain.RoleAdmin)
	item := createItem(t, store, "Laptop", 3)

	// Audit records cannot be written.
	store.Transactions = &failingCreate{Collection: store.Transactions}
	inv := services.NewInventoryService(store, locks, nil, clock)

	_, err := inv.AdjustQuantity(context.Background(), keeper, item.ID, dto.AdjustQuantityRequest{Delta: 2, Reason: "restock"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrStorageFailure))

	after, err := store.Items.FindByID(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.TotalQuantity)
	assert.Equal(t, 3, after.AvailableQuantity)
}

type failingCreate struct {
	portsrepo.Collection[domain.Transaction]
}

func (f *failingCreate) Create(context.Context, portsrepo.Fields) (*domain.Transaction, error) {
	return nil, apperrors.StorageFailure(errInjected, "injected create failure")
}

func TestInventoryService_DeleteItem(t *testing.T) {
	store, locks, clock := newInventoryFixture(t)
	inv := services.NewInventoryService(store, locks, nil, clock)
	txns := services.NewTransactionService(store, locks, services.WithClock(clock))
	ctx := context.Background()

	keeper := createUser(t, store, "Kim", domain.RoleAdmin)
	borrower := createUser(t, store, "Max", domain.RoleMember)
	item := createItem(t, store, "Drone", 1)

	pending, err := txns.Checkout(ctx, borrower, dto.CheckoutRequest{
		ItemID: item.ID, Quantity: 1, Purpose: "survey", ExpectedReturnDate: start.Add(time.Hour),
	})
	require.NoError(t, err)

	assert.True(t, errors.Is(inv.DeleteItem(ctx, borrower, item.ID), apperrors.ErrPermissionDenied))
	assert.True(t, errors.Is(inv.DeleteItem(ctx, keeper, item.ID), apperrors.ErrStateConflict))

	_, err = txns.Cancel(ctx, borrower, pending.ID, "")
	require.NoError(t, err)
	require.NoError(t, inv.DeleteItem(ctx, keeper, item.ID))

	assert.True(t, errors.Is(inv.DeleteItem(ctx, keeper, item.ID), apperrors.ErrNotFound))
}

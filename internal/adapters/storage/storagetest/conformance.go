// Package storagetest holds the conformance suite every storage backend must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	"github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// ConformanceSuite exercises the storage contract. NewStore must return an empty store
// for every test.
type ConformanceSuite struct {
	suite.Suite
	NewStore func(t *testing.T) *repositories.Store

	ctx   context.Context
	store *repositories.Store
}

func (s *ConformanceSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.NewStore(s.T())
}

func (s *ConformanceSuite) TestCreateThenFindByIDRoundTrip() {
	due := time.Date(2026, 4, 30, 17, 0, 0, 0, time.UTC)
	issued := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)
	input := &domain.Transaction{
		TransactionNumber:  "TXN-20260420-0001",
		Type:               domain.TransactionTypeCheckout,
		Status:             domain.TransactionStatusActive,
		Item:               "item-1",
		User:               "user-1",
		Quantity:           2,
		Purpose:            "field survey",
		ExpectedReturnDate: &due,
		ApprovalRequired:   true,
		Extensions: []domain.Extension{{
			RequestedBy:   "user-1",
			RequestedDate: issued,
			NewReturnDate: due.Add(48 * time.Hour),
			Reason:        "weather",
			Status:        domain.ExtensionStatusPending,
		}},
		Penalties: []domain.Penalty{{
			Type:       domain.PenaltyTypeLateFee,
			Amount:     decimal.RequireFromString("12.50"),
			Currency:   "USD",
			Reason:     "Late return: 3 day(s) overdue",
			IssuedDate: issued,
		}},
		RequiresStoragePhoto: true,
	}

	created, err := s.store.Transactions.Create(s.ctx, repositories.FieldsFrom(input))
	s.Require().NoError(err)
	s.NotEmpty(created.ID)
	s.False(created.CreatedAt.IsZero())
	s.True(created.CreatedAt.Equal(created.UpdatedAt))

	found, err := s.store.Transactions.FindByID(s.ctx, created.ID)
	s.Require().NoError(err)
	s.Equal(created.ID, found.ID)
	s.True(found.CreatedAt.Equal(created.CreatedAt))

	s.Equal(input.TransactionNumber, found.TransactionNumber)
	s.Equal(input.Status, found.Status)
	s.Equal(input.Quantity, found.Quantity)
	s.Equal(input.Purpose, found.Purpose)
	s.True(input.ExpectedReturnDate.Equal(*found.ExpectedReturnDate))
	s.Nil(found.ActualReturnDate)
	s.True(found.ApprovalRequired)
	s.True(found.RequiresStoragePhoto)
	s.False(found.StoragePhotoUploaded)

	s.Require().Len(found.Extensions, 1)
	s.Equal("weather", found.Extensions[0].Reason)
	s.True(found.Extensions[0].NewReturnDate.Equal(due.Add(48 * time.Hour)))

	s.Require().Len(found.Penalties, 1)
	s.True(found.Penalties[0].Amount.Equal(decimal.RequireFromString("12.5")))
	s.Equal(domain.PenaltyTypeLateFee, found.Penalties[0].Type)
	s.True(found.Penalties[0].IssuedDate.Equal(issued))
}

func (s *ConformanceSuite) TestCreateAssignsDistinctIDs() {
	seen := map[string]bool{}
	for i := 0; i < 5; i++ {
		u, err := s.store.Users.Create(s.ctx, repositories.Fields{"name": "User", "role": domain.RoleMember})
		s.Require().NoError(err)
		s.False(seen[u.ID], "duplicate id %s", u.ID)
		seen[u.ID] = true
	}
}

func (s *ConformanceSuite) TestCreateIgnoresCallerSuppliedStorageFields() {
	item, err := s.store.Items.Create(s.ctx, repositories.Fields{
		"id":        "chosen-by-caller",
		"createdAt": time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
		"name":      "Camera",
	})
	s.Require().NoError(err)
	s.NotEqual("chosen-by-caller", item.ID)
	s.True(item.CreatedAt.After(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
}

func (s *ConformanceSuite) TestUpdateMergesAndRefreshesUpdatedAt() {
	item, err := s.store.Items.Create(s.ctx, repositories.FieldsFrom(&domain.Item{
		Name:              "Projector",
		Category:          "av",
		TotalQuantity:     5,
		AvailableQuantity: 5,
		IsCheckoutable:    true,
		Status:            domain.ItemStatusActive,
	}))
	s.Require().NoError(err)

	time.Sleep(5 * time.Millisecond)
	updated, err := s.store.Items.Update(s.ctx, item.ID, repositories.Fields{"availableQuantity": 2})
	s.Require().NoError(err)
	s.Require().NotNil(updated)

	s.Equal(2, updated.AvailableQuantity)
	s.Equal("Projector", updated.Name)
	s.Equal("av", updated.Category)
	s.Equal(5, updated.TotalQuantity)
	s.True(updated.IsCheckoutable)
	s.True(updated.CreatedAt.Equal(item.CreatedAt))
	s.True(updated.UpdatedAt.After(item.UpdatedAt))

	found, err := s.store.Items.FindByID(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(2, found.AvailableQuantity)
	s.Equal("Projector", found.Name)
}

func (s *ConformanceSuite) TestUpdateCanClearNullableField() {
	returned := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	txn, err := s.store.Transactions.Create(s.ctx, repositories.FieldsFrom(&domain.Transaction{
		TransactionNumber: "TXN-20260401-0001",
		Status:            domain.TransactionStatusReturned,
		Quantity:          1,
		ActualReturnDate:  &returned,
	}))
	s.Require().NoError(err)
	s.Require().NotNil(txn.ActualReturnDate)

	updated, err := s.store.Transactions.Update(s.ctx, txn.ID, repositories.Fields{
		"status":           domain.TransactionStatusActive,
		"actualReturnDate": nil,
	})
	s.Require().NoError(err)
	s.Nil(updated.ActualReturnDate)
	s.Equal(domain.TransactionStatusActive, updated.Status)
}

func (s *ConformanceSuite) TestUpdateMissingReturnsNil() {
	updated, err := s.store.Items.Update(s.ctx, "does-not-exist", repositories.Fields{"name": "x"})
	s.NoError(err)
	s.Nil(updated)
}

func (s *ConformanceSuite) TestUpdateKeepsIdentity() {
	item, err := s.store.Items.Create(s.ctx, repositories.Fields{"name": "Ladder"})
	s.Require().NoError(err)

	updated, err := s.store.Items.Update(s.ctx, item.ID, repositories.Fields{"id": "other", "name": "Step ladder"})
	s.Require().NoError(err)
	s.Equal(item.ID, updated.ID)
	s.Equal("Step ladder", updated.Name)
}

func (s *ConformanceSuite) TestMistypedFieldsAreRejectedUnwritten() {
	item, err := s.store.Items.Create(s.ctx, repositories.Fields{"name": "Drill", "totalQuantity": 4, "availableQuantity": 4})
	s.Require().NoError(err)

	_, err = s.store.Items.Update(s.ctx, item.ID, repositories.Fields{"totalQuantity": "many"})
	s.ErrorIs(err, apperrors.ErrValidation)
	found, err := s.store.Items.FindByID(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Equal(4, found.TotalQuantity)
	s.True(found.UpdatedAt.Equal(item.UpdatedAt), "a rejected update leaves the document alone")

	_, err = s.store.Items.Create(s.ctx, repositories.Fields{"name": "Saw", "availableQuantity": "plenty"})
	s.ErrorIs(err, apperrors.ErrValidation)
	all, err := s.store.Items.FindAll(s.ctx, nil)
	s.Require().NoError(err)
	s.Len(all, 1, "a rejected create stores nothing")
}

func (s *ConformanceSuite) TestDelete() {
	item, err := s.store.Items.Create(s.ctx, repositories.Fields{"name": "Tent"})
	s.Require().NoError(err)

	deleted, err := s.store.Items.Delete(s.ctx, item.ID)
	s.NoError(err)
	s.True(deleted)

	deleted, err = s.store.Items.Delete(s.ctx, item.ID)
	s.NoError(err)
	s.False(deleted)

	_, err = s.store.Items.FindByID(s.ctx, item.ID)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ConformanceSuite) TestFindByIDMissingIsNotFound() {
	_, err := s.store.Users.FindByID(s.ctx, "nobody")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ConformanceSuite) TestFindByField() {
	_, err := s.store.Items.Create(s.ctx, repositories.Fields{"name": "Mic", "qrCode": "QR-1", "barcode": "BC-1"})
	s.Require().NoError(err)
	_, err = s.store.Items.Create(s.ctx, repositories.Fields{"name": "Cable", "qrCode": "QR-2"})
	s.Require().NoError(err)

	found, err := s.store.Items.FindByField(s.ctx, "barcode", "BC-1")
	s.Require().NoError(err)
	s.Equal("Mic", found.Name)

	found, err = s.store.Items.FindByField(s.ctx, "qrCode", "QR-2")
	s.Require().NoError(err)
	s.Equal("Cable", found.Name)

	_, err = s.store.Items.FindByField(s.ctx, "qrCode", "QR-404")
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *ConformanceSuite) TestFindAllFilters() {
	for _, u := range []domain.User{
		{Name: "Alice Admin", Email: "alice@example.com", Role: domain.RoleAdmin, Team: "ops", Status: domain.UserStatusActive},
		{Name: "Bob", Email: "bob@example.com", Role: domain.RoleMember, Team: "ops", Status: domain.UserStatusActive},
		{Name: "Carol", Email: "carol@example.com", Role: domain.RoleMember, Team: "lab", Status: domain.UserStatusInactive},
		{Name: "Malice", Email: "m@example.com", Role: domain.RoleGuest, Team: "lab", Status: domain.UserStatusActive},
	} {
		_, err := s.store.Users.Create(s.ctx, repositories.FieldsFrom(&u))
		s.Require().NoError(err)
		time.Sleep(2 * time.Millisecond)
	}

	names := func(filter repositories.Filter) []string {
		users, err := s.store.Users.FindAll(s.ctx, filter)
		s.Require().NoError(err)
		out := []string{}
		for _, u := range users {
			out = append(out, u.Name)
		}
		return out
	}

	s.Equal([]string{"Alice Admin", "Bob", "Carol", "Malice"}, names(nil))
	s.Equal([]string{"Bob", "Carol"}, names(repositories.Filter{"role": "member"}))
	s.Equal([]string{"Bob"}, names(repositories.Filter{"role": "member", "team": "ops"}))
	s.Equal([]string{"Alice Admin", "Malice"}, names(repositories.Filter{"search": "ALIC"}))
	s.Equal([]string{"Carol"}, names(repositories.Filter{"search": "carol@", "status": "inactive"}))
	s.Equal([]string{"Alice Admin", "Bob", "Carol", "Malice"}, names(repositories.Filter{"favouriteColour": "blue"}))
	s.Equal([]string{"Bob", "Carol"}, names(repositories.Filter{"role": "member", "search": ""}))
	s.Empty(names(repositories.Filter{"role": "manager"}))
}

func (s *ConformanceSuite) TestSearchTreatsInputLiterally() {
	_, err := s.store.Items.Create(s.ctx, repositories.Fields{"name": "Lens 50mm (f/1.8)"})
	s.Require().NoError(err)
	_, err = s.store.Items.Create(s.ctx, repositories.Fields{"name": "Lens 85mm"})
	s.Require().NoError(err)

	items, err := s.store.Items.FindAll(s.ctx, repositories.Filter{"search": "(f/1.8"})
	s.Require().NoError(err)
	s.Require().Len(items, 1)
	s.Equal("Lens 50mm (f/1.8)", items[0].Name)

	items, err = s.store.Items.FindAll(s.ctx, repositories.Filter{"search": "lens.*"})
	s.Require().NoError(err)
	s.Empty(items)
}

func (s *ConformanceSuite) TestUniqueFieldsRejectDuplicates() {
	_, err := s.store.Users.Create(s.ctx, repositories.Fields{"name": "A", "email": "dup@example.com"})
	s.Require().NoError(err)
	_, err = s.store.Users.Create(s.ctx, repositories.Fields{"name": "B", "email": "dup@example.com"})
	s.ErrorIs(err, apperrors.ErrValidation)

	// Empty values are not indexed.
	_, err = s.store.Items.Create(s.ctx, repositories.Fields{"name": "No code 1"})
	s.Require().NoError(err)
	_, err = s.store.Items.Create(s.ctx, repositories.Fields{"name": "No code 2"})
	s.Require().NoError(err)

	first, err := s.store.Items.Create(s.ctx, repositories.Fields{"name": "Coded", "qrCode": "QR-9"})
	s.Require().NoError(err)
	other, err := s.store.Items.Create(s.ctx, repositories.Fields{"name": "Other", "qrCode": "QR-10"})
	s.Require().NoError(err)

	_, err = s.store.Items.Update(s.ctx, other.ID, repositories.Fields{"qrCode": "QR-9"})
	s.ErrorIs(err, apperrors.ErrValidation)

	// Re-saving the same value on the owner is not a conflict.
	_, err = s.store.Items.Update(s.ctx, first.ID, repositories.Fields{"qrCode": "QR-9", "name": "Coded v2"})
	s.NoError(err)

	users, err := s.store.Users.FindAll(s.ctx, nil)
	s.Require().NoError(err)
	s.Len(users, 1)
}

func (s *ConformanceSuite) TestFindAllOnEmptyCollection() {
	notes, err := s.store.Notifications.FindAll(s.ctx, repositories.Filter{"recipient": "u1"})
	s.NoError(err)
	s.Empty(notes)
}

func (s *ConformanceSuite) TestGuestRequestsAndNotifications() {
	due := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	req, err := s.store.GuestRequests.Create(s.ctx, repositories.FieldsFrom(&domain.GuestRequest{
		Name:               "Visitor",
		Email:              "visitor@example.com",
		Item:               "item-7",
		Quantity:           1,
		ExpectedReturnDate: &due,
		Status:             domain.GuestRequestPending,
	}))
	s.Require().NoError(err)

	pending, err := s.store.GuestRequests.FindAll(s.ctx, repositories.Filter{"status": "pending", "item": "item-7"})
	s.Require().NoError(err)
	s.Require().Len(pending, 1)
	s.Equal(req.ID, pending[0].ID)

	_, err = s.store.Notifications.Create(s.ctx, repositories.FieldsFrom(&domain.Notification{
		Recipient:          "user-1",
		Type:               domain.NotificationOverdue,
		Title:              "Overdue",
		Message:            "Please return the drill",
		RelatedTransaction: "txn-1",
		Priority:           domain.PriorityHigh,
	}))
	s.Require().NoError(err)

	notes, err := s.store.Notifications.FindAll(s.ctx, repositories.Filter{"relatedTransaction": "txn-1", "type": "overdue"})
	s.Require().NoError(err)
	s.Require().Len(notes, 1)
	s.Equal(domain.PriorityHigh, notes[0].Priority)
}

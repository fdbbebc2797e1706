package services

import (
	"context"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	"github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
)

// TransactionView is a transaction with its item and borrower looked up.
// Item or User is nil when the referenced document no longer exists.
type TransactionView struct {
	Transaction domain.Transaction
	Item        *domain.Item
	User        *domain.User
}

// TransactionReaderSvc defines read operations for transactions.
type TransactionReaderSvc interface {
	// GetTransaction returns the transaction with its item and user populated.
	GetTransaction(ctx context.Context, actor domain.Actor, transactionID string) (*TransactionView, error)

	// ListTransactions returns transactions matching filter. Callers without the
	// approve capability only see their own.
	ListTransactions(ctx context.Context, actor domain.Actor, filter repositories.Filter) ([]domain.Transaction, error)
}

// TransactionLifecycleSvc drives transactions through their state machine.
type TransactionLifecycleSvc interface {
	// Checkout creates a pending request. No stock is deducted until approval.
	Checkout(ctx context.Context, actor domain.Actor, req dto.CheckoutRequest) (*domain.Transaction, error)

	// Approve moves a pending request to active and deducts stock.
	Approve(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error)

	// Reject closes a pending request with a reason.
	Reject(ctx context.Context, actor domain.Actor, transactionID, reason string) (*domain.Transaction, error)

	// Cancel withdraws a pending request.
	Cancel(ctx context.Context, actor domain.Actor, transactionID, reason string) (*domain.Transaction, error)

	// ReturnItem closes an active or overdue loan and releases its stock.
	ReturnItem(ctx context.Context, actor domain.Actor, transactionID string, req dto.ReturnRequest) (*domain.Transaction, error)
}

// TransactionExtensionSvc handles requests made against a running loan.
type TransactionExtensionSvc interface {
	// RequestExtension appends a pending extension to an active loan.
	RequestExtension(ctx context.Context, actor domain.Actor, transactionID string, req dto.ExtensionRequest) (*domain.Extension, error)

	// RecordStoragePhoto marks the storage photo for the loan as uploaded.
	RecordStoragePhoto(ctx context.Context, actor domain.Actor, transactionID string) (*domain.Transaction, error)
}

// TransactionSvcFacade combines all transaction-related service interfaces.
type TransactionSvcFacade interface {
	TransactionReaderSvc
	TransactionLifecycleSvc
	TransactionExtensionSvc
}

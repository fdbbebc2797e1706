package services

import (
	"context"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	"github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
)

// AdjustmentResult is the outcome of an administrative quantity change.
type AdjustmentResult struct {
	Item        *domain.Item
	Transaction *domain.Transaction
}

// InventoryReaderSvc defines read operations for items.
type InventoryReaderSvc interface {
	GetItem(ctx context.Context, itemID string) (*domain.Item, error)
	ListItems(ctx context.Context, filter repositories.Filter) ([]domain.Item, error)
}

// InventoryWriterSvc defines administrative write operations for items.
type InventoryWriterSvc interface {
	// CreateItem registers a new item. Available quantity starts at the total.
	CreateItem(ctx context.Context, actor domain.Actor, req dto.CreateItemRequest) (*domain.Item, error)

	// AdjustQuantity changes an item's quantities and records an adjustment transaction.
	AdjustQuantity(ctx context.Context, actor domain.Actor, itemID string, req dto.AdjustQuantityRequest) (*AdjustmentResult, error)

	// DeleteItem removes an item that has no open transactions.
	DeleteItem(ctx context.Context, actor domain.Actor, itemID string) error
}

// InventorySvcFacade combines all inventory-related service interfaces.
type InventorySvcFacade interface {
	InventoryReaderSvc
	InventoryWriterSvc
}

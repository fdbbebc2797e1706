package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
	"github.com/SscSPs/checkout_ledger_app/internal/platform/metrics"
)

// inventoryService owns item records and administrative quantity changes.
type inventoryService struct {
	BaseService
	store   *portsrepo.Store
	locks   *KeyedLocker
	metrics *metrics.Metrics
	clock   Clock
}

// NewInventoryService creates a new inventory service. It shares locks with the
// transaction engine so adjustments never interleave with approvals or returns.
func NewInventoryService(store *portsrepo.Store, locks *KeyedLocker, m *metrics.Metrics, clock Clock) portssvc.InventorySvcFacade {
	if clock == nil {
		clock = SystemClock{}
	}
	return &inventoryService{store: store, locks: locks, metrics: m, clock: clock}
}

var _ portssvc.InventorySvcFacade = (*inventoryService)(nil)

func (s *inventoryService) GetItem(ctx context.Context, itemID string) (*domain.Item, error) {
	return s.store.Items.FindByID(ctx, itemID)
}

func (s *inventoryService) ListItems(ctx context.Context, filter portsrepo.Filter) ([]domain.Item, error) {
	items, err := s.store.Items.FindAll(ctx, filter)
	if err != nil {
		s.LogError(ctx, err, "Failed to list items")
		return nil, err
	}
	return items, nil
}

func (s *inventoryService) CreateItem(ctx context.Context, actor domain.Actor, req dto.CreateItemRequest) (*domain.Item, error) {
	if !actor.Can(domain.PermissionManageInventory) {
		return nil, apperrors.PermissionDenied("creating items requires the %s capability", domain.PermissionManageInventory)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = domain.ItemStatusActive
	}
	item, err := s.store.Items.Create(ctx, portsrepo.FieldsFrom(&domain.Item{
		Name:              req.Name,
		Description:       req.Description,
		Category:          req.Category,
		Location:          req.Location,
		QRCode:            req.QRCode,
		Barcode:           req.Barcode,
		TotalQuantity:     req.TotalQuantity,
		AvailableQuantity: req.TotalQuantity,
		IsCheckoutable:    boolOr(req.IsCheckoutable, true),
		RequiresApproval:  boolOr(req.RequiresApproval, true),
		Status:            status,
		Condition:         req.Condition,
	}))
	if err != nil {
		if !errors.Is(err, apperrors.ErrValidation) {
			s.LogError(ctx, err, "Failed to create item", slog.String("name", req.Name))
		}
		return nil, err
	}

	s.LogInfo(ctx, "Item created", slog.String("item_id", item.ID), slog.Int("total_quantity", item.TotalQuantity))
	return item, nil
}

func (s *inventoryService) AdjustQuantity(ctx context.Context, actor domain.Actor, itemID string, req dto.AdjustQuantityRequest) (*portssvc.AdjustmentResult, error) {
	if !actor.Can(domain.PermissionManageInventory) {
		return nil, apperrors.PermissionDenied("adjusting quantities requires the %s capability", domain.PermissionManageInventory)
	}
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, itemLockKey(itemID))
	if err != nil {
		return nil, err
	}
	defer unlock()

	item, err := s.store.Items.FindByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	adjusted := *item
	if err := adjusted.Adjust(req.Delta); err != nil {
		return nil, apperrors.Validation("cannot adjust %q: %v", item.Name, err)
	}

	updated, err := s.store.Items.Update(ctx, item.ID, portsrepo.Fields{
		"totalQuantity":     adjusted.TotalQuantity,
		"availableQuantity": adjusted.AvailableQuantity,
	})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NotFound("item %s not found", itemID)
	}

	now := storageTime(s.clock.Now())
	audit, err := createNumbered(ctx, s.locks, s.store.Transactions, now, &domain.Transaction{
		Type:          domain.TransactionTypeAdjustment,
		Status:        domain.TransactionStatusApproved,
		Item:          item.ID,
		User:          actor.UserID,
		Quantity:      abs(req.Delta),
		QuantityDelta: req.Delta,
		Purpose:       req.Reason,
		ApprovedBy:    actor.UserID,
		ApprovedDate:  &now,
	})
	if err != nil {
		return nil, s.restoreQuantities(ctx, item, err)
	}

	s.LogInfo(ctx, "Item quantity adjusted",
		slog.String("item_id", item.ID),
		slog.Int("delta", req.Delta),
		slog.Int("total_quantity", updated.TotalQuantity),
		slog.String("transaction_id", audit.ID))
	return &portssvc.AdjustmentResult{Item: updated, Transaction: audit}, nil
}

// restoreQuantities undoes an adjustment whose audit record could not be written.
func (s *inventoryService) restoreQuantities(ctx context.Context, item *domain.Item, cause error) error {
	restored, rbErr := s.store.Items.Update(ctx, item.ID, portsrepo.Fields{
		"totalQuantity":     item.TotalQuantity,
		"availableQuantity": item.AvailableQuantity,
	})
	if rbErr == nil && restored == nil {
		rbErr = apperrors.NotFound("item %s vanished during rollback", item.ID)
	}
	if rbErr == nil {
		s.metrics.Compensation("adjust", "rolled_back")
		s.LogWarn(ctx, "Audit record failed, adjustment rolled back",
			slog.String("item_id", item.ID), slog.String("error", cause.Error()))
		return cause
	}

	s.metrics.Compensation("adjust", "failed")
	s.LogError(ctx, rbErr, "Rollback failed, item adjusted without audit record",
		slog.String("item_id", item.ID),
		slog.String("cause", cause.Error()),
		slog.Bool("operator_action_required", true))
	return apperrors.NewAppError(apperrors.KindStorageFailure,
		fmt.Sprintf("adjustment of item %s has no audit record; operator action required", item.ID),
		errors.Join(cause, rbErr))
}

func (s *inventoryService) DeleteItem(ctx context.Context, actor domain.Actor, itemID string) error {
	if !actor.Can(domain.PermissionManageInventory) {
		return apperrors.PermissionDenied("deleting items requires the %s capability", domain.PermissionManageInventory)
	}

	unlock, err := s.locks.Lock(ctx, itemLockKey(itemID))
	if err != nil {
		return err
	}
	defer unlock()

	item, err := s.store.Items.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	txns, err := s.store.Transactions.FindAll(ctx, portsrepo.Filter{"item": item.ID})
	if err != nil {
		return err
	}
	open := 0
	for _, t := range txns {
		if t.Status.IsOpen() {
			open++
		}
	}
	if open > 0 {
		return apperrors.StateConflict("item %q has %d open transaction(s)", item.Name, open)
	}

	deleted, err := s.store.Items.Delete(ctx, item.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NotFound("item %s not found", itemID)
	}
	s.LogInfo(ctx, "Item deleted", slog.String("item_id", item.ID), slog.String("deleted_by", actor.UserID))
	return nil
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

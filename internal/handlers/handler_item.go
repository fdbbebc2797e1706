package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
	"github.com/SscSPs/checkout_ledger_app/internal/dto"
	"github.com/SscSPs/checkout_ledger_app/internal/middleware"
	"github.com/SscSPs/checkout_ledger_app/internal/utils/pagination"
	"github.com/gin-gonic/gin"
)

// itemHandler handles HTTP requests related to inventory items.
type itemHandler struct {
	inventoryService portssvc.InventorySvcFacade
}

func newItemHandler(is portssvc.InventorySvcFacade) *itemHandler {
	return &itemHandler{inventoryService: is}
}

// registerItemRoutes registers routes related to items.
func registerItemRoutes(rg *gin.RouterGroup, is portssvc.InventorySvcFacade) {
	h := newItemHandler(is)
	keepers := middleware.RequirePermission(domain.PermissionManageInventory)

	items := rg.Group("/items")
	{
		items.POST("", keepers, h.createItem)
		items.GET("", h.listItems)
		items.GET("/:itemID", h.getItem)
		items.DELETE("/:itemID", keepers, h.deleteItem)
		items.POST("/:itemID/adjustments", keepers, h.adjustQuantity)
	}
}

// createItem godoc
// @Summary Register an item
// @Tags items
// @Accept  json
// @Produce  json
// @Param   item body dto.CreateItemRequest true "Item details"
// @Success 201 {object} dto.ItemResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid input or duplicate code"
// @Failure 403 {object} dto.ErrorResponse "Missing manage_inventory capability"
// @Security BearerAuth
// @Router /items [post]
func (h *itemHandler) createItem(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := h.inventoryService.CreateItem(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "create item")
		return
	}
	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Item created", slog.String("item_id", item.ID))
	c.JSON(http.StatusCreated, dto.ToItemResponse(item))
}

func (h *itemHandler) listItems(c *gin.Context) {
	var params dto.ListItemsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		respondBindError(c, err)
		return
	}
	items, err := h.inventoryService.ListItems(c.Request.Context(), portsrepo.Filter{
		"status":            params.Status,
		"category":          params.Category,
		"condition":         params.Condition,
		"location":          params.Location,
		portsrepo.SearchKey: params.Search,
	})
	if err != nil {
		respondError(c, err, "list items")
		return
	}

	page, next, err := pagination.Page(items, func(i *domain.Item) (time.Time, string) { return i.CreatedAt, i.ID }, params.Limit, params.NextToken)
	if err != nil {
		respondError(c, apperrors.Validation("%s", err.Error()), "list items")
		return
	}
	c.JSON(http.StatusOK, dto.ListItemsResponse{Items: dto.ToListItemResponse(page), NextToken: next})
}

func (h *itemHandler) getItem(c *gin.Context) {
	item, err := h.inventoryService.GetItem(c.Request.Context(), c.Param("itemID"))
	if err != nil {
		respondError(c, err, "retrieve item")
		return
	}
	c.JSON(http.StatusOK, dto.ToItemResponse(item))
}

// adjustQuantity godoc
// @Summary Adjust an item's quantity
// @Description Changes total and available quantity by delta and records an adjustment transaction
// @Tags items
// @Accept  json
// @Produce  json
// @Param   itemID path string true "Item ID"
// @Param   request body dto.AdjustQuantityRequest true "Adjustment"
// @Success 200 {object} dto.AdjustmentResponse
// @Failure 400 {object} dto.ErrorResponse "Adjustment would remove units on loan"
// @Security BearerAuth
// @Router /items/{itemID}/adjustments [post]
func (h *itemHandler) adjustQuantity(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	var req dto.AdjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}
	res, err := h.inventoryService.AdjustQuantity(c.Request.Context(), actor, c.Param("itemID"), req)
	if err != nil {
		respondError(c, err, "adjust item quantity")
		return
	}
	c.JSON(http.StatusOK, dto.AdjustmentResponse{
		Item:        dto.ToItemResponse(res.Item),
		Transaction: dto.ToTransactionResponse(res.Transaction),
	})
}

func (h *itemHandler) deleteItem(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	if err := h.inventoryService.DeleteItem(c.Request.Context(), actor, c.Param("itemID")); err != nil {
		respondError(c, err, "delete item")
		return
	}
	c.Status(http.StatusNoContent)
}

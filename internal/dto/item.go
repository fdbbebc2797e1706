package dto

import (
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
)

// CreateItemRequest defines the data needed to register an item.
type CreateItemRequest struct {
	Name             string            `json:"name" binding:"required,max=200"`
	Description      string            `json:"description" binding:"max=2000"`
	Category         string            `json:"category" binding:"max=100"`
	Location         string            `json:"location" binding:"max=200"`
	QRCode           string            `json:"qrCode" binding:"max=200"`
	Barcode          string            `json:"barcode" binding:"max=200"`
	TotalQuantity    int               `json:"totalQuantity" binding:"min=0"`
	IsCheckoutable   *bool             `json:"isCheckoutable"`   // Optional: defaults to true
	RequiresApproval *bool             `json:"requiresApproval"` // Optional: defaults to true
	Status           domain.ItemStatus `json:"status" binding:"omitempty,oneof=active inactive maintenance retired lost"`
	Condition        string            `json:"condition" binding:"max=100"`
}

// AdjustQuantityRequest changes an item's total quantity outside the loan flow.
type AdjustQuantityRequest struct {
	Delta  int    `json:"delta" binding:"required,ne=0"`
	Reason string `json:"reason" binding:"required,max=500"`
}

// ListItemsParams defines query parameters for listing items.
type ListItemsParams struct {
	Status    string `form:"status"`
	Category  string `form:"category"`
	Condition string `form:"condition"`
	Location  string `form:"location"`
	Search    string `form:"search"`

	Limit     int     `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken *string `form:"nextToken"`
}

// ListItemsResponse is one page of items.
type ListItemsResponse struct {
	Items     []ItemResponse `json:"items"`
	NextToken *string        `json:"nextToken,omitempty"`
}

// ItemResponse defines the data returned for an item.
type ItemResponse struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description,omitempty"`
	Category          string            `json:"category,omitempty"`
	Location          string            `json:"location,omitempty"`
	QRCode            string            `json:"qrCode,omitempty"`
	Barcode           string            `json:"barcode,omitempty"`
	TotalQuantity     int               `json:"totalQuantity"`
	AvailableQuantity int               `json:"availableQuantity"`
	IsCheckoutable    bool              `json:"isCheckoutable"`
	RequiresApproval  bool              `json:"requiresApproval"`
	Status            domain.ItemStatus `json:"status"`
	Condition         string            `json:"condition,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// AdjustmentResponse is the item after adjustment plus its audit record.
type AdjustmentResponse struct {
	Item        ItemResponse        `json:"item"`
	Transaction TransactionResponse `json:"transaction"`
}

// ToItemResponse converts a domain.Item to ItemResponse DTO.
func ToItemResponse(item *domain.Item) ItemResponse {
	return ItemResponse{
		ID:                item.ID,
		Name:              item.Name,
		Description:       item.Description,
		Category:          item.Category,
		Location:          item.Location,
		QRCode:            item.QRCode,
		Barcode:           item.Barcode,
		TotalQuantity:     item.TotalQuantity,
		AvailableQuantity: item.AvailableQuantity,
		IsCheckoutable:    item.IsCheckoutable,
		RequiresApproval:  item.RequiresApproval,
		Status:            item.Status,
		Condition:         item.Condition,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}

// ToListItemResponse converts a slice of domain.Item.
func ToListItemResponse(items []domain.Item) []ItemResponse {
	res := make([]ItemResponse, len(items))
	for i := range items {
		res[i] = ToItemResponse(&items[i])
	}
	return res
}

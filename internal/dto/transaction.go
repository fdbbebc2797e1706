package dto

import (
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// CheckoutRequest defines the data needed to request a checkout or reservation.
type CheckoutRequest struct {
	ItemID               string                 `json:"itemId" binding:"required"`
	UserID               string                 `json:"userId"` // Optional: borrower, defaults to the caller
	Type                 domain.TransactionType `json:"type" binding:"omitempty,oneof=checkout reserve"`
	Quantity             int                    `json:"quantity" binding:"required,min=1"`
	Purpose              string                 `json:"purpose" binding:"required,max=500"`
	ExpectedReturnDate   time.Time              `json:"expectedReturnDate" binding:"required"`
	Destination          string                 `json:"destination" binding:"max=200"`
	Notes                string                 `json:"notes" binding:"max=1000"`
	RequiresStoragePhoto bool                   `json:"requiresStoragePhoto"`
}

// RejectRequest carries the mandatory rejection reason.
type RejectRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

// CancelRequest carries an optional cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

// ReturnRequest carries optional details recorded at return.
type ReturnRequest struct {
	Condition string `json:"condition" binding:"max=100"`
	Notes     string `json:"notes" binding:"max=1000"`
}

// ExtensionRequest asks for a later return date.
type ExtensionRequest struct {
	NewReturnDate time.Time `json:"newReturnDate" binding:"required"`
	Reason        string    `json:"reason" binding:"required,max=500"`
}

// ListTransactionsParams defines query parameters for listing transactions.
type ListTransactionsParams struct {
	Status string `form:"status"`
	Type   string `form:"type"`
	Item   string `form:"item"`
	User   string `form:"user"`
	Search string `form:"search"`

	Limit     int     `form:"limit" binding:"omitempty,min=1,max=200"`
	NextToken *string `form:"nextToken"`
}

// ListTransactionsResponse is one page of transactions.
type ListTransactionsResponse struct {
	Transactions []TransactionResponse `json:"transactions"`
	NextToken    *string               `json:"nextToken,omitempty"`
}

// PenaltyResponse mirrors domain.Penalty.
type PenaltyResponse struct {
	Type       domain.PenaltyType `json:"type"`
	Amount     decimal.Decimal    `json:"amount"`
	Currency   string             `json:"currency"`
	Reason     string             `json:"reason"`
	IsPaid     bool               `json:"isPaid"`
	IssuedDate time.Time          `json:"issuedDate"`
}

// ExtensionResponse mirrors domain.Extension.
type ExtensionResponse struct {
	RequestedBy   string                 `json:"requestedBy"`
	RequestedDate time.Time              `json:"requestedDate"`
	NewReturnDate time.Time              `json:"newReturnDate"`
	Reason        string                 `json:"reason"`
	Status        domain.ExtensionStatus `json:"status"`
	ApprovedBy    string                 `json:"approvedBy,omitempty"`
	ApprovedDate  *time.Time             `json:"approvedDate,omitempty"`
}

// TransactionResponse defines the data returned for a transaction.
type TransactionResponse struct {
	ID                   string                   `json:"id"`
	TransactionNumber    string                   `json:"transactionNumber"`
	Type                 domain.TransactionType   `json:"type"`
	Status               domain.TransactionStatus `json:"status"`
	ItemID               string                   `json:"itemId"`
	UserID               string                   `json:"userId"`
	Quantity             int                      `json:"quantity"`
	QuantityDelta        int                      `json:"quantityDelta,omitempty"`
	Purpose              string                   `json:"purpose,omitempty"`
	Destination          string                   `json:"destination,omitempty"`
	Notes                string                   `json:"notes,omitempty"`
	CheckoutDate         *time.Time               `json:"checkoutDate,omitempty"`
	ExpectedReturnDate   *time.Time               `json:"expectedReturnDate,omitempty"`
	ActualReturnDate     *time.Time               `json:"actualReturnDate,omitempty"`
	ApprovalRequired     bool                     `json:"approvalRequired"`
	ApprovedBy           string                   `json:"approvedBy,omitempty"`
	ApprovedDate         *time.Time               `json:"approvedDate,omitempty"`
	RejectedBy           string                   `json:"rejectedBy,omitempty"`
	RejectedDate         *time.Time               `json:"rejectedDate,omitempty"`
	RejectionReason      string                   `json:"rejectionReason,omitempty"`
	CancelledBy          string                   `json:"cancelledBy,omitempty"`
	CancelledDate        *time.Time               `json:"cancelledDate,omitempty"`
	ReturnCondition      string                   `json:"returnCondition,omitempty"`
	ReturnNotes          string                   `json:"returnNotes,omitempty"`
	Extensions           []ExtensionResponse      `json:"extensions"`
	Penalties            []PenaltyResponse        `json:"penalties"`
	TotalPenalties       decimal.Decimal          `json:"totalPenalties"`
	RequiresStoragePhoto bool                     `json:"requiresStoragePhoto"`
	StoragePhotoUploaded bool                     `json:"storagePhotoUploaded"`
	IsOverdue            bool                     `json:"isOverdue"`
	CreatedAt            time.Time                `json:"createdAt"`
	UpdatedAt            time.Time                `json:"updatedAt"`
}

// TransactionDetailResponse is a transaction with its item and borrower.
type TransactionDetailResponse struct {
	TransactionResponse
	Item *ItemResponse `json:"item,omitempty"`
	User *UserSummary  `json:"user,omitempty"`
}

// UserSummary is the public part of a user.
type UserSummary struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email,omitempty"`
	Role  domain.Role `json:"role"`
}

// ToExtensionResponse converts a domain.Extension.
func ToExtensionResponse(ext domain.Extension) ExtensionResponse {
	return ExtensionResponse{
		RequestedBy:   ext.RequestedBy,
		RequestedDate: ext.RequestedDate,
		NewReturnDate: ext.NewReturnDate,
		Reason:        ext.Reason,
		Status:        ext.Status,
		ApprovedBy:    ext.ApprovedBy,
		ApprovedDate:  ext.ApprovedDate,
	}
}

// ToTransactionResponse converts a domain.Transaction to TransactionResponse DTO.
func ToTransactionResponse(txn *domain.Transaction) TransactionResponse {
	res := TransactionResponse{
		ID:                   txn.ID,
		TransactionNumber:    txn.TransactionNumber,
		Type:                 txn.Type,
		Status:               txn.Status,
		ItemID:               txn.Item,
		UserID:               txn.User,
		Quantity:             txn.Quantity,
		QuantityDelta:        txn.QuantityDelta,
		Purpose:              txn.Purpose,
		Destination:          txn.Destination,
		Notes:                txn.Notes,
		CheckoutDate:         txn.CheckoutDate,
		ExpectedReturnDate:   txn.ExpectedReturnDate,
		ActualReturnDate:     txn.ActualReturnDate,
		ApprovalRequired:     txn.ApprovalRequired,
		ApprovedBy:           txn.ApprovedBy,
		ApprovedDate:         txn.ApprovedDate,
		RejectedBy:           txn.RejectedBy,
		RejectedDate:         txn.RejectedDate,
		RejectionReason:      txn.RejectionReason,
		CancelledBy:          txn.CancelledBy,
		CancelledDate:        txn.CancelledDate,
		ReturnCondition:      txn.ReturnCondition,
		ReturnNotes:          txn.ReturnNotes,
		Extensions:           make([]ExtensionResponse, len(txn.Extensions)),
		Penalties:            make([]PenaltyResponse, len(txn.Penalties)),
		TotalPenalties:       txn.TotalPenalties(),
		RequiresStoragePhoto: txn.RequiresStoragePhoto,
		StoragePhotoUploaded: txn.StoragePhotoUploaded,
		IsOverdue:            txn.IsOverdue,
		CreatedAt:            txn.CreatedAt,
		UpdatedAt:            txn.UpdatedAt,
	}
	for i, ext := range txn.Extensions {
		res.Extensions[i] = ToExtensionResponse(ext)
	}
	for i, p := range txn.Penalties {
		res.Penalties[i] = PenaltyResponse{
			Type:       p.Type,
			Amount:     p.Amount,
			Currency:   p.Currency,
			Reason:     p.Reason,
			IsPaid:     p.IsPaid,
			IssuedDate: p.IssuedDate,
		}
	}
	return res
}

// ToListTransactionResponse converts a slice of domain.Transaction.
func ToListTransactionResponse(txns []domain.Transaction) []TransactionResponse {
	res := make([]TransactionResponse, len(txns))
	for i := range txns {
		res[i] = ToTransactionResponse(&txns[i])
	}
	return res
}

// ToUserSummary converts a domain.User.
func ToUserSummary(u *domain.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType classifies a transaction record.
type TransactionType string

const (
	TransactionTypeCheckout    TransactionType = "checkout"
	TransactionTypeReturn      TransactionType = "return"
	TransactionTypeReserve     TransactionType = "reserve"
	TransactionTypeCancel      TransactionType = "cancel"
	TransactionTypeMaintenance TransactionType = "maintenance"
	TransactionTypeAdjustment  TransactionType = "adjustment"
)

// TransactionStatus is the state of a transaction in its lifecycle.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusActive    TransactionStatus = "active"
	TransactionStatusOverdue   TransactionStatus = "overdue"
	TransactionStatusReturned  TransactionStatus = "returned"
	TransactionStatusCancelled TransactionStatus = "cancelled"
	TransactionStatusApproved  TransactionStatus = "approved"
	TransactionStatusRejected  TransactionStatus = "rejected"
)

var transitions = map[TransactionStatus][]TransactionStatus{
	TransactionStatusPending: {TransactionStatusActive, TransactionStatusRejected, TransactionStatusCancelled},
	TransactionStatusActive:  {TransactionStatusOverdue, TransactionStatusReturned},
	TransactionStatusOverdue: {TransactionStatusReturned},
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle step.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s TransactionStatus) IsTerminal() bool {
	switch s {
	case TransactionStatusReturned, TransactionStatusRejected, TransactionStatusCancelled:
		return true
	}
	return false
}

// HoldsStock reports whether the transaction's quantity is deducted from the item.
func (s TransactionStatus) HoldsStock() bool {
	return s == TransactionStatusActive || s == TransactionStatusOverdue
}

// IsOpen reports whether the transaction still claims capacity, provisionally or actually.
func (s TransactionStatus) IsOpen() bool {
	return s == TransactionStatusPending || s.HoldsStock()
}

// ExtensionStatus is the decision state of an extension request.
type ExtensionStatus string

const (
	ExtensionStatusPending  ExtensionStatus = "pending"
	ExtensionStatusApproved ExtensionStatus = "approved"
	ExtensionStatusRejected ExtensionStatus = "rejected"
)

// Extension is a request to move a loan's expected return date.
type Extension struct {
	RequestedBy   string          `json:"requestedBy" bson:"requestedBy"`
	RequestedDate time.Time       `json:"requestedDate" bson:"requestedDate"`
	NewReturnDate time.Time       `json:"newReturnDate" bson:"newReturnDate"`
	Reason        string          `json:"reason" bson:"reason"`
	Status        ExtensionStatus `json:"status" bson:"status"`
	ApprovedBy    string          `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	ApprovedDate  *time.Time      `json:"approvedDate,omitempty" bson:"approvedDate,omitempty"`
}

// PenaltyType classifies a penalty.
type PenaltyType string

const (
	PenaltyTypeLateFee   PenaltyType = "late_fee"
	PenaltyTypeDamageFee PenaltyType = "damage_fee"
	PenaltyTypeLostItem  PenaltyType = "lost_item"
	PenaltyTypeOther     PenaltyType = "other"
)

// Penalty is a fee attached to a transaction.
type Penalty struct {
	Type       PenaltyType     `json:"type" bson:"type"`
	Amount     decimal.Decimal `json:"amount" bson:"amount"`
	Currency   string          `json:"currency" bson:"currency"`
	Reason     string          `json:"reason" bson:"reason"`
	IsPaid     bool            `json:"isPaid" bson:"isPaid"`
	IssuedDate time.Time       `json:"issuedDate" bson:"issuedDate"`
	IssuedBy   string          `json:"issuedBy,omitempty" bson:"issuedBy,omitempty"`
}

// Transaction is one loan, reservation or audit episode against an item.
type Transaction struct {
	Document             `bson:",inline"`
	TransactionNumber    string            `json:"transactionNumber" bson:"transactionNumber"`
	Type                 TransactionType   `json:"type" bson:"type"`
	Status               TransactionStatus `json:"status" bson:"status"`
	Item                 string            `json:"item" bson:"item"`
	User                 string            `json:"user" bson:"user"`
	Quantity             int               `json:"quantity" bson:"quantity"`
	QuantityDelta        int               `json:"quantityDelta,omitempty" bson:"quantityDelta,omitempty"`
	Purpose              string            `json:"purpose,omitempty" bson:"purpose,omitempty"`
	Destination          string            `json:"destination,omitempty" bson:"destination,omitempty"`
	Notes                string            `json:"notes,omitempty" bson:"notes,omitempty"`
	CheckoutDate         *time.Time        `json:"checkoutDate,omitempty" bson:"checkoutDate,omitempty"`
	ExpectedReturnDate   *time.Time        `json:"expectedReturnDate,omitempty" bson:"expectedReturnDate,omitempty"`
	ActualReturnDate     *time.Time        `json:"actualReturnDate,omitempty" bson:"actualReturnDate,omitempty"`
	ApprovalRequired     bool              `json:"approvalRequired" bson:"approvalRequired"`
	ApprovedBy           string            `json:"approvedBy,omitempty" bson:"approvedBy,omitempty"`
	ApprovedDate         *time.Time        `json:"approvedDate,omitempty" bson:"approvedDate,omitempty"`
	RejectedBy           string            `json:"rejectedBy,omitempty" bson:"rejectedBy,omitempty"`
	RejectedDate         *time.Time        `json:"rejectedDate,omitempty" bson:"rejectedDate,omitempty"`
	RejectionReason      string            `json:"rejectionReason,omitempty" bson:"rejectionReason,omitempty"`
	CancelledBy          string            `json:"cancelledBy,omitempty" bson:"cancelledBy,omitempty"`
	CancelledDate        *time.Time        `json:"cancelledDate,omitempty" bson:"cancelledDate,omitempty"`
	CancellationReason   string            `json:"cancellationReason,omitempty" bson:"cancellationReason,omitempty"`
	ReturnedBy           string            `json:"returnedBy,omitempty" bson:"returnedBy,omitempty"`
	ReturnCondition      string            `json:"returnCondition,omitempty" bson:"returnCondition,omitempty"`
	ReturnNotes          string            `json:"returnNotes,omitempty" bson:"returnNotes,omitempty"`
	Extensions           []Extension       `json:"extensions,omitempty" bson:"extensions,omitempty"`
	Penalties            []Penalty         `json:"penalties,omitempty" bson:"penalties,omitempty"`
	RequiresStoragePhoto bool              `json:"requiresStoragePhoto" bson:"requiresStoragePhoto"`
	StoragePhotoUploaded bool              `json:"storagePhotoUploaded" bson:"storagePhotoUploaded"`
	IsOverdue            bool              `json:"isOverdue" bson:"isOverdue"`
}

// IsPastDue reports whether the expected return date lies before now.
func (t *Transaction) IsPastDue(now time.Time) bool {
	return t.ExpectedReturnDate != nil && t.ExpectedReturnDate.Before(now)
}

// WithLateFee returns a copy of the penalties in which fee replaces any existing
// late fee, so a loan carries at most one. changed is false when the stored late
// fee already has the same amount and reason.
func (t *Transaction) WithLateFee(fee Penalty) (penalties []Penalty, changed bool) {
	penalties = append([]Penalty(nil), t.Penalties...)
	for i := range penalties {
		if penalties[i].Type != PenaltyTypeLateFee {
			continue
		}
		if penalties[i].Amount.Equal(fee.Amount) && penalties[i].Reason == fee.Reason {
			return penalties, false
		}
		penalties[i] = fee
		return penalties, true
	}
	return append(penalties, fee), true
}

// TotalPenalties sums all penalty amounts.
func (t *Transaction) TotalPenalties() decimal.Decimal {
	total := decimal.Zero
	for _, p := range t.Penalties {
		total = total.Add(p.Amount)
	}
	return total
}

package domain

import "time"

// GuestRequestStatus is the decision state of a guest request.
type GuestRequestStatus string

const (
	GuestRequestPending  GuestRequestStatus = "pending"
	GuestRequestApproved GuestRequestStatus = "approved"
	GuestRequestRejected GuestRequestStatus = "rejected"
)

// GuestRequest is a borrowing request from someone without an account.
type GuestRequest struct {
	Document           `bson:",inline"`
	Name               string             `json:"name" bson:"name"`
	Email              string             `json:"email" bson:"email"`
	Item               string             `json:"item" bson:"item"`
	Quantity           int                `json:"quantity" bson:"quantity"`
	Purpose            string             `json:"purpose,omitempty" bson:"purpose,omitempty"`
	ExpectedReturnDate *time.Time         `json:"expectedReturnDate,omitempty" bson:"expectedReturnDate,omitempty"`
	Status             GuestRequestStatus `json:"status" bson:"status"`
}

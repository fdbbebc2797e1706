package dto

import (
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SweepResponse reports the outcome of a manually triggered sweep.
type SweepResponse struct {
	Sweep string    `json:"sweep"`
	Count int       `json:"count"`
	RanAt time.Time `json:"ranAt"`
}

// NotificationResponse defines the data returned for a notification.
type NotificationResponse struct {
	ID                 string                      `json:"id"`
	Type               domain.NotificationType     `json:"type"`
	Title              string                      `json:"title"`
	Message            string                      `json:"message"`
	RelatedTransaction string                      `json:"relatedTransaction,omitempty"`
	RelatedItem        string                      `json:"relatedItem,omitempty"`
	Priority           domain.NotificationPriority `json:"priority"`
	IsRead             bool                        `json:"isRead"`
	CreatedAt          time.Time                   `json:"createdAt"`
}

// ToNotificationResponse converts a domain.Notification.
func ToNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:                 n.ID,
		Type:               n.Type,
		Title:              n.Title,
		Message:            n.Message,
		RelatedTransaction: n.RelatedTransaction,
		RelatedItem:        n.RelatedItem,
		Priority:           n.Priority,
		IsRead:             n.IsRead,
		CreatedAt:          n.CreatedAt,
	}
}

// ToListNotificationResponse converts a slice of domain.Notification.
func ToListNotificationResponse(notes []domain.Notification) []NotificationResponse {
	res := make([]NotificationResponse, len(notes))
	for i := range notes {
		res[i] = ToNotificationResponse(&notes[i])
	}
	return res
}

package domain

// NotificationType is the kind of event a notification reports.
type NotificationType string

const (
	NotificationCheckoutRequest  NotificationType = "checkout_request"
	NotificationCheckoutApproved NotificationType = "checkout_approved"
	NotificationCheckoutRejected NotificationType = "checkout_rejected"
	NotificationCheckoutCanceled NotificationType = "checkout_cancelled"
	NotificationItemReturned     NotificationType = "item_returned"
	NotificationOverdue          NotificationType = "overdue"
	NotificationDueSoon          NotificationType = "due_soon"
	NotificationExtensionRequest NotificationType = "extension_request"
)

// NotificationPriority orders notifications for delivery.
type NotificationPriority string

const (
	PriorityLow    NotificationPriority = "low"
	PriorityNormal NotificationPriority = "normal"
	PriorityHigh   NotificationPriority = "high"
	PriorityUrgent NotificationPriority = "urgent"
)

// Notification is a persisted message for a user.
type Notification struct {
	Document           `bson:",inline"`
	Recipient          string               `json:"recipient" bson:"recipient"`
	Type               NotificationType     `json:"type" bson:"type"`
	Title              string               `json:"title" bson:"title"`
	Message            string               `json:"message" bson:"message"`
	RelatedTransaction string               `json:"relatedTransaction,omitempty" bson:"relatedTransaction,omitempty"`
	RelatedItem        string               `json:"relatedItem,omitempty" bson:"relatedItem,omitempty"`
	Priority           NotificationPriority `json:"priority" bson:"priority"`
	IsRead             bool                 `json:"isRead" bson:"isRead"`
}

// NotificationEvent is what the engine emits; delivery is up to the dispatcher.
type NotificationEvent struct {
	Recipient          string
	Type               NotificationType
	Title              string
	Message            string
	RelatedTransaction string
	RelatedItem        string
	Priority           NotificationPriority
}

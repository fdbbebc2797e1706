package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/checkout_ledger_app/internal/core/ports/services"
)

// StoreDispatcher delivers notification events by persisting them in the
// notifications collection, where clients pick them up.
type StoreDispatcher struct {
	notifications portsrepo.CollectionWriter[domain.Notification]
}

var _ portssvc.Dispatcher = (*StoreDispatcher)(nil)

// NewStoreDispatcher creates a dispatcher writing to notifications.
func NewStoreDispatcher(notifications portsrepo.CollectionWriter[domain.Notification]) *StoreDispatcher {
	return &StoreDispatcher{notifications: notifications}
}

// Notify persists the event as an unread notification.
func (d *StoreDispatcher) Notify(ctx context.Context, event domain.NotificationEvent) error {
	priority := event.Priority
	if priority == "" {
		priority = domain.PriorityNormal
	}
	_, err := d.notifications.Create(ctx, portsrepo.FieldsFrom(&domain.Notification{
		Recipient:          event.Recipient,
		Type:               event.Type,
		Title:              event.Title,
		Message:            event.Message,
		RelatedTransaction: event.RelatedTransaction,
		RelatedItem:        event.RelatedItem,
		Priority:           priority,
	}))
	return err
}

// notificationService lets users read their persisted notifications.
type notificationService struct {
	BaseService
	notifications portsrepo.Collection[domain.Notification]
}

// NewNotificationService creates a new notification service.
func NewNotificationService(notifications portsrepo.Collection[domain.Notification]) portssvc.NotificationSvc {
	return &notificationService{notifications: notifications}
}

func (s *notificationService) ListNotifications(ctx context.Context, actor domain.Actor, unreadOnly bool) ([]domain.Notification, error) {
	all, err := s.notifications.FindAll(ctx, portsrepo.Filter{"recipient": actor.UserID})
	if err != nil {
		s.LogError(ctx, err, "Failed to list notifications", slog.String("user_id", actor.UserID))
		return nil, err
	}
	if !unreadOnly {
		return all, nil
	}
	unread := make([]domain.Notification, 0, len(all))
	for _, n := range all {
		if !n.IsRead {
			unread = append(unread, n)
		}
	}
	return unread, nil
}

func (s *notificationService) MarkRead(ctx context.Context, actor domain.Actor, notificationID string) (*domain.Notification, error) {
	n, err := s.notifications.FindByID(ctx, notificationID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			s.LogError(ctx, err, "Failed to load notification", slog.String("notification_id", notificationID))
		}
		return nil, err
	}
	if n.Recipient != actor.UserID {
		// Someone else's notification is reported as missing.
		return nil, apperrors.NotFound("notification %s not found", notificationID)
	}
	updated, err := s.notifications.Update(ctx, notificationID, portsrepo.Fields{"isRead": true})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, apperrors.NotFound("notification %s not found", notificationID)
	}
	return updated, nil
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mmynk/finwise/internal/models"
	"github.com/mmynk/finwise/internal/realtime"
	"github.com/mmynk/finwise/internal/storage"
)

// NotificationService stores notifications and relays every change to the
// user's open realtime connections.
type NotificationService struct {
	store     storage.Store
	publisher realtime.Publisher
	now       Clock
}

// Notify stores n for the user and publishes notification:new. When n.Ref is
// set and a notification with that ref already exists nothing happens and
// created is false.
func (s *NotificationService) Notify(ctx context.Context, userID string, n *models.Notification) (created bool, err error) {
	coll := s.store.Notifications()
	if n.Ref != "" {
		existing, err := coll.List(ctx, userID, storage.Query{Limit: 1}.Eq("ref", n.Ref))
		if err != nil {
			return false, fmt.Errorf("failed to check notification ref: %w", err)
		}
		if len(existing) > 0 {
			return false, nil
		}
	}

	n.Read = false
	n.ReadAt = nil
	n.ID = ""
	n.UserID = userID
	n.CreatedAt = s.now()
	if err := n.Validate(); err != nil {
		return false, err
	}
	if err := coll.Insert(ctx, n); err != nil {
		return false, fmt.Errorf("failed to store notification: %w", err)
	}

	s.publisher.Publish(userID, realtime.EventNotificationNew, n)
	slog.Debug("Notification sent", "user_id", userID, "notification_id", n.ID, "type", n.Type)
	return true, nil
}

// List returns the user's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*models.Notification, error) {
	q := storage.Query{Limit: limit}.OrderBy("createdAt", true)
	if unreadOnly {
		q = q.Eq("read", false)
	}
	return s.store.Notifications().List(ctx, userID, q)
}

// UnreadCount counts the user's unread notifications.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	unread, err := s.List(ctx, userID, true, 0)
	if err != nil {
		return 0, err
	}
	return len(unread), nil
}

// MarkRead marks one notification read. Marking a read notification again
// changes nothing and publishes nothing.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) (*models.Notification, error) {
	n, err := s.store.Notifications().Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if n.Read {
		return n, nil
	}

	now := s.now()
	n.Read = true
	n.ReadAt = &now
	if err := s.store.Notifications().Update(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}

	s.publisher.Publish(userID, realtime.EventNotificationRead, map[string]string{"id": id})
	return n, nil
}

// MarkAllRead marks every unread notification read and returns how many
// changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int, error) {
	unread, err := s.List(ctx, userID, true, 0)
	if err != nil {
		return 0, err
	}

	now := s.now()
	for _, n := range unread {
		n.Read = true
		n.ReadAt = &now
		if err := s.store.Notifications().Update(ctx, n); err != nil {
			return 0, fmt.Errorf("failed to mark notification read: %w", err)
		}
	}

	if len(unread) > 0 {
		s.publisher.Publish(userID, realtime.EventNotificationReadAll, map[string]int{"count": len(unread)})
	}
	return len(unread), nil
}

// Delete removes a notification.
func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.Notifications().Delete(ctx, userID, id); err != nil {
		return err
	}
	s.publisher.Publish(userID, realtime.EventNotificationDeleted, map[string]string{"id": id})
	return nil
}

package pehub

import (
	"context"

	"github.com/google/uuid"
)

func (s *service) ListNotifications(ctx context.Context, actor Actor) ([]*Notification, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.repository.ListNotifications(ctx, actor.UserID)
}

func (s *service) UnreadNotificationCount(ctx context.Context, actor Actor) (int64, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	return s.repository.CountUnreadNotifications(ctx, actor.UserID)
}

// MarkNotificationRead marks one of the caller's notifications read.
func (s *service) MarkNotificationRead(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireActor(actor); err != nil {
		return err
	}
	return s.repository.MarkNotificationRead(ctx, id, actor.UserID)
}

func (s *service) MarkAllNotificationsRead(ctx context.Context, actor Actor) (int64, error) {
	if err := requireActor(actor); err != nil {
		return 0, err
	}
	n, err := s.repository.MarkAllNotificationsRead(ctx, actor.UserID)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("notifications marked read", "user_id", actor.UserID, "count", n)
	return n, nil
}

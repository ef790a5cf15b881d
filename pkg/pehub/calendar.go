package pehub

import (
	"context"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub/i18n"
)

// ListEvents returns calendar events ordered by date.
func (s *service) ListEvents(ctx context.Context) ([]*Event, error) {
	return s.repository.ListEvents(ctx)
}

// AddEvent creates a calendar event. Admin only.
func (s *service) AddEvent(ctx context.Context, actor Actor, req AddEventRequest) (*Event, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	req.Title = SanitizeText(req.Title)
	req.Type = SanitizeText(req.Type)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	event := &Event{
		ID:        uuid.New(),
		Title:     req.Title,
		Type:      req.Type,
		Date:      req.Date.UTC(),
		CreatedAt: s.timestamp(),
	}
	if err := s.repository.CreateEvent(ctx, event); err != nil {
		s.logger.Error("failed to add event", "error", err)
		return nil, &TransientError{Op: "add event", Notice: i18n.EventAddError, Err: err}
	}
	s.publish(ctx, TableEvents, EventInsert, event)
	return event, nil
}

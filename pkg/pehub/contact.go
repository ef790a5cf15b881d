package pehub

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub/i18n"
)

var constraintNotices = map[ConstraintKind]i18n.Key{
	ConstraintNotNull:          i18n.MessageRequiredFields,
	ConstraintDuplicate:        i18n.MessageDuplicate,
	ConstraintPermissionDenied: i18n.MessageForbidden,
}

// SubmitContactMessage stores a contact-form message and notifies the admin.
// No sign-in is required.
func (s *service) SubmitContactMessage(ctx context.Context, req ContactRequest) (*Message, error) {
	req.Name = SanitizeText(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = SanitizeText(req.Message)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	msg := &Message{
		ID:          uuid.New(),
		SenderName:  req.Name,
		SenderEmail: req.Email,
		Subject:     s.t(i18n.ContactSubject),
		Message:     req.Message,
		CreatedAt:   s.timestamp(),
	}
	if err := s.repository.CreateMessage(ctx, msg); err != nil {
		notice := i18n.MessageSendError
		var cerr *ConstraintError
		if errors.As(err, &cerr) {
			if key, ok := constraintNotices[cerr.Kind]; ok {
				notice = key
			}
		}
		s.logger.Error("failed to store contact message", "error", err)
		return nil, &TransientError{Op: "submit contact message", Notice: notice, Err: err}
	}
	s.logger.Info("contact message received", "message_id", msg.ID)
	s.publish(ctx, TableMessages, EventInsert, msg)

	adminID, err := s.adminRecipient(ctx)
	if err != nil {
		s.logger.Warn("contact message stored without admin notification", "message_id", msg.ID, "error", err)
		return msg, nil
	}
	s.notify(ctx, adminID,
		s.t(i18n.NewMessageTitle),
		i18n.Format(s.lang, i18n.NewMessageFrom, msg.SenderName),
		NotificationTypeMessage,
		map[string]string{"message_id": msg.ID.String()})
	return msg, nil
}

func (s *service) ListMessages(ctx context.Context, actor Actor) ([]*Message, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	msgs, err := s.repository.ListMessages(ctx)
	if err != nil {
		return nil, &TransientError{Op: "list messages", Notice: i18n.MessagesFetchError, Err: err}
	}
	return msgs, nil
}

func (s *service) MarkMessageRead(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return err
	}
	return s.repository.MarkMessageRead(ctx, id)
}

package pehub

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub/i18n"
)

// OpenChat returns the caller's open chat, creating it on first use.
func (s *service) OpenChat(ctx context.Context, actor Actor) (*Chat, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	chat, err := s.repository.GetOpenChat(ctx, actor.UserID)
	if err == nil {
		return chat, nil
	}
	if !errors.Is(err, ErrChatNotFound) {
		return nil, err
	}

	chat = &Chat{
		ID:        uuid.New(),
		UserID:    actor.UserID,
		Status:    ChatStatusOpen,
		CreatedAt: s.timestamp(),
	}
	if err := s.repository.CreateChat(ctx, chat); err != nil {
		return nil, err
	}
	s.publish(ctx, TableChats, EventInsert, chat)
	return chat, nil
}

// ListChats returns every chat for the admin inbox.
func (s *service) ListChats(ctx context.Context, actor Actor) ([]*Chat, error) {
	if err := s.requireAdmin(ctx, actor); err != nil {
		return nil, err
	}
	return s.repository.ListChats(ctx)
}

// ListChatMessages returns a chat's messages oldest first. Only the chat
// owner and admins may read it.
func (s *service) ListChatMessages(ctx context.Context, actor Actor, chatID uuid.UUID) ([]*ChatMessage, error) {
	if _, err := s.chatFor(ctx, actor, chatID); err != nil {
		return nil, err
	}
	return s.repository.ListChatMessages(ctx, chatID)
}

// SendChatMessage appends a message to a chat. Blank messages are refused.
func (s *service) SendChatMessage(ctx context.Context, actor Actor, req SendChatMessageRequest) (*ChatMessage, error) {
	text := SanitizeText(req.Message)
	if text == "" {
		return nil, newValidationError(FieldError{Field: "message", Message: i18n.ChatEmpty})
	}
	chat, err := s.chatFor(ctx, actor, req.ChatID)
	if err != nil {
		return nil, err
	}

	msg := &ChatMessage{
		ID:        uuid.New(),
		ChatID:    chat.ID,
		SenderID:  actor.UserID,
		Message:   text,
		CreatedAt: s.timestamp(),
	}
	if err := s.repository.CreateChatMessage(ctx, msg); err != nil {
		s.logger.Error("failed to send chat message", "chat_id", chat.ID, "error", err)
		return nil, &TransientError{Op: "send chat message", Notice: i18n.ChatSendError, Err: err}
	}
	s.publish(ctx, TableChatMessages, EventInsert, msg)

	if actor.UserID != chat.UserID {
		s.dispatcher.Schedule(s.t(i18n.NewMessageTitle), text, map[string]string{
			"chat_id": chat.ID.String(),
			"user_id": chat.UserID.String(),
			"type":    NotificationTypeChat,
		})
	}
	return msg, nil
}

func (s *service) chatFor(ctx context.Context, actor Actor, chatID uuid.UUID) (*Chat, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	chat, err := s.repository.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.UserID == actor.UserID {
		return chat, nil
	}
	admin, err := s.isAdmin(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !admin {
		return nil, ErrForbidden
	}
	return chat, nil
}

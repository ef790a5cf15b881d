package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
)

func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	notes, err := h.svc.ListNotifications(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	if notes == nil {
		notes = []*pehub.Notification{}
	}
	render.JSON(w, r, notes)
}

func (h *Handler) UnreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.UnreadNotificationCount(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.JSON(w, r, map[string]int64{"unread": n})
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkNotificationRead(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllNotificationsRead(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.JSON(w, r, map[string]int64{"updated": n})
}

// OpenChat returns the caller's open chat, creating it on first use.
func (h *Handler) OpenChat(w http.ResponseWriter, r *http.Request) {
	chat, err := h.svc.OpenChat(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err, i18n.ChatSendError)
		return
	}
	render.JSON(w, r, chat)
}

func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.svc.ListChats(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	if chats == nil {
		chats = []*pehub.Chat{}
	}
	render.JSON(w, r, chats)
}

func (h *Handler) ListChatMessages(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	msgs, err := h.svc.ListChatMessages(r.Context(), ActorFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	if msgs == nil {
		msgs = []*pehub.ChatMessage{}
	}
	render.JSON(w, r, msgs)
}

func (h *Handler) SendChatMessage(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Message string `json:"message"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	msg, err := h.svc.SendChatMessage(r.Context(), ActorFromContext(r.Context()), pehub.SendChatMessageRequest{
		ChatID:  id,
		Message: body.Message,
	})
	if err != nil {
		h.writeError(w, r, err, i18n.ChatSendError)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, msg)
}

// ListEvents returns the calendar. Public.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.svc.ListEvents(r.Context())
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	if events == nil {
		events = []*pehub.Event{}
	}
	render.JSON(w, r, events)
}

// AddEvent adds a calendar entry. Admin only.
func (h *Handler) AddEvent(w http.ResponseWriter, r *http.Request) {
	var req pehub.AddEventRequest
	if !h.decode(w, r, &req) {
		return
	}
	ev, err := h.svc.AddEvent(r.Context(), ActorFromContext(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err, i18n.EventAddError)
		return
	}
	h.success(w, r, http.StatusCreated, "", i18n.EventAdded, ev)
}

// SubmitContactMessage stores a contact form submission. Public.
func (h *Handler) SubmitContactMessage(w http.ResponseWriter, r *http.Request) {
	var req pehub.ContactRequest
	if !h.decode(w, r, &req) {
		return
	}
	msg, err := h.svc.SubmitContactMessage(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, i18n.MessageSendError)
		return
	}
	h.success(w, r, http.StatusCreated, "", i18n.MessageSent, msg)
}

func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.svc.ListMessages(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err, i18n.MessagesFetchError)
		return
	}
	if msgs == nil {
		msgs = []*pehub.Message{}
	}
	render.JSON(w, r, msgs)
}

func (h *Handler) MarkMessageRead(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.MarkMessageRead(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.NoContent(w, r)
}

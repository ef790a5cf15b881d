package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/realtime"
)

// publicTables are streamed to every signed-in caller.
var publicTables = map[string]bool{
	pehub.TableContent: true,
	pehub.TableEvents:  true,
}

// recordOwner pulls the fields that tie a change record to a user.
type recordOwner struct {
	UserID   string            `json:"user_id"`
	SenderID string            `json:"sender_id"`
	ChatID   string            `json:"chat_id"`
	Metadata map[string]string `json:"metadata"`
}

// streamFilter decides which hub messages a caller may see. Admins see
// everything; other callers see public tables, records addressed to them,
// and messages of a chat they were allowed to open.
type streamFilter struct {
	admin  bool
	userID string
	chatID string
}

func (f streamFilter) allows(msg realtime.Message) bool {
	if f.admin || publicTables[msg.Table] {
		return true
	}
	var owner recordOwner
	if err := msg.Decode(&owner); err != nil {
		return false
	}
	if owner.UserID == f.userID || owner.SenderID == f.userID || owner.Metadata["user_id"] == f.userID {
		return true
	}
	return f.chatID != "" && owner.ChatID == f.chatID
}

// Stream sends change-feed messages as server-sent events. The optional
// table and event query parameters narrow the feed; chat subscribes a
// participant to one chat's messages.
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, fmt.Errorf("streaming unsupported"), i18n.GenericError)
		return
	}

	ctx := r.Context()
	actor := ActorFromContext(ctx)
	admin, err := h.svc.IsAdmin(ctx, actor)
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	filter := streamFilter{admin: admin, userID: actor.UserID.String()}

	if raw := r.URL.Query().Get("chat"); raw != "" {
		chatID, err := uuid.Parse(raw)
		if err != nil {
			h.badRequest(w, r, "chat")
			return
		}
		// Listing the messages doubles as the participant check.
		if _, err := h.svc.ListChatMessages(ctx, actor, chatID); err != nil {
			h.writeError(w, r, err, i18n.GenericError)
			return
		}
		filter.chatID = chatID.String()
	}

	q := r.URL.Query()
	sub, err := h.hub.Subscribe(q.Get("table"), q.Get("event"))
	if err != nil {
		h.writeError(w, r, &pehub.TransientError{Op: "stream", Err: err}, i18n.GenericError)
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	h.log.Debug("stream opened", "user_id", actor.UserID, "admin", admin)
	defer h.log.Debug("stream closed", "user_id", actor.UserID)

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			if !filter.allows(msg) {
				continue
			}
			payload, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("stream encode failed", "table", msg.Table, "error", err)
				continue
			}
			fmt.Fprintf(w, "id: %s\nevent: %s\ndata: %s\n\n", msg.ID, msg.Table, payload)
			flusher.Flush()
		}
	}
}

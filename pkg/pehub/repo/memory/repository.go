package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub"
)

// Repository implements pehub.Repository using in-memory storage
type Repository struct {
	mu            sync.RWMutex
	content       map[uuid.UUID]*pehub.ContentItem
	requests      map[uuid.UUID]*pehub.ContentRequest
	profiles      map[uuid.UUID]*pehub.Profile
	messages      map[uuid.UUID]*pehub.Message
	notifications map[uuid.UUID]*pehub.Notification
	chats         map[uuid.UUID]*pehub.Chat
	chatMessages  map[uuid.UUID]*pehub.ChatMessage
	events        map[uuid.UUID]*pehub.Event

	// seq records insertion order so rows created within the same clock
	// tick still list deterministically.
	seq     map[uuid.UUID]uint64
	nextSeq uint64
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		content:       make(map[uuid.UUID]*pehub.ContentItem),
		requests:      make(map[uuid.UUID]*pehub.ContentRequest),
		profiles:      make(map[uuid.UUID]*pehub.Profile),
		messages:      make(map[uuid.UUID]*pehub.Message),
		notifications: make(map[uuid.UUID]*pehub.Notification),
		chats:         make(map[uuid.UUID]*pehub.Chat),
		chatMessages:  make(map[uuid.UUID]*pehub.ChatMessage),
		events:        make(map[uuid.UUID]*pehub.Event),
		seq:           make(map[uuid.UUID]uint64),
	}
}

var _ pehub.Repository = (*Repository)(nil)

func (r *Repository) track(id uuid.UUID) {
	r.nextSeq++
	r.seq[id] = r.nextSeq
}

// newestFirst orders by created_at descending, then by insertion order.
func (r *Repository) newestFirst(ai, bi uuid.UUID, a, b time.Time) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return r.seq[ai] > r.seq[bi]
}

func (r *Repository) oldestFirst(ai, bi uuid.UUID, a, b time.Time) bool {
	if !a.Equal(b) {
		return a.Before(b)
	}
	return r.seq[ai] < r.seq[bi]
}

func duplicate(detail string) error {
	return &pehub.ConstraintError{Kind: pehub.ConstraintDuplicate, Detail: detail}
}

// Content operations

func (r *Repository) CreateContent(ctx context.Context, item *pehub.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.content[item.ID]; exists {
		return duplicate("content_pkey")
	}
	itemCopy := *item
	r.content[item.ID] = &itemCopy
	r.track(item.ID)
	return nil
}

func (r *Repository) GetContent(ctx context.Context, id uuid.UUID) (*pehub.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, exists := r.content[id]
	if !exists {
		return nil, pehub.ErrContentNotFound
	}
	itemCopy := *item
	return &itemCopy, nil
}

func (r *Repository) ListContent(ctx context.Context, filter pehub.ContentFilter) ([]*pehub.ContentItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*pehub.ContentItem, 0)
	for _, item := range r.content {
		if filter.Type != "" && item.Type != filter.Type {
			continue
		}
		if filter.StageID != "" && item.StageID != filter.StageID {
			continue
		}
		if filter.CategoryID != "" && item.CategoryID != filter.CategoryID {
			continue
		}
		itemCopy := *item
		result = append(result, &itemCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return r.newestFirst(result[i].ID, result[j].ID, result[i].CreatedAt, result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) DeleteContent(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.content[id]; !exists {
		return pehub.ErrContentNotFound
	}
	delete(r.content, id)
	return nil
}

func (r *Repository) DeleteContentByCreator(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, item := range r.content {
		if item.CreatedBy == userID {
			delete(r.content, id)
			n++
		}
	}
	return n, nil
}

func (r *Repository) CountContent(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.content)), nil
}

// Content request operations

func (r *Repository) CreateContentRequest(ctx context.Context, req *pehub.ContentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.requests[req.ID]; exists {
		return duplicate("content_requests_pkey")
	}
	reqCopy := copyRequest(req)
	r.requests[req.ID] = reqCopy
	r.track(req.ID)
	return nil
}

func (r *Repository) GetContentRequest(ctx context.Context, id uuid.UUID) (*pehub.ContentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, exists := r.requests[id]
	if !exists {
		return nil, pehub.ErrRequestNotFound
	}
	return copyRequest(req), nil
}

func (r *Repository) ListContentRequests(ctx context.Context, filter pehub.RequestFilter) ([]*pehub.ContentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*pehub.ContentRequest, 0)
	for _, req := range r.requests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.UserID != uuid.Nil && req.UserID != filter.UserID {
			continue
		}
		result = append(result, copyRequest(req))
	}
	sort.Slice(result, func(i, j int) bool {
		return r.newestFirst(result[i].ID, result[j].ID, result[i].CreatedAt, result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) TransitionContentRequest(ctx context.Context, id uuid.UUID, from, to pehub.RequestStatus, adminID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.requests[id]
	if !exists {
		return pehub.ErrRequestNotFound
	}
	if req.Status != from {
		return pehub.ErrRequestNotPending
	}
	req.Status = to
	admin := adminID
	req.AdminID = &admin
	return nil
}

func (r *Repository) SetRequestContent(ctx context.Context, id, contentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.requests[id]
	if !exists {
		return pehub.ErrRequestNotFound
	}
	cid := contentID
	req.ContentID = &cid
	return nil
}

func (r *Repository) DeleteContentRequestsByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, req := range r.requests {
		if req.UserID == userID {
			delete(r.requests, id)
			n++
		}
	}
	return n, nil
}

func (r *Repository) CountContentRequests(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.requests)), nil
}

func copyRequest(req *pehub.ContentRequest) *pehub.ContentRequest {
	reqCopy := *req
	if req.AdminID != nil {
		admin := *req.AdminID
		reqCopy.AdminID = &admin
	}
	if req.ContentID != nil {
		cid := *req.ContentID
		reqCopy.ContentID = &cid
	}
	return &reqCopy
}

// Profile operations

func (r *Repository) CreateProfile(ctx context.Context, profile *pehub.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[profile.ID]; exists {
		return duplicate("profiles_pkey")
	}
	if profile.Email != "" {
		for _, p := range r.profiles {
			if strings.EqualFold(p.Email, profile.Email) {
				return duplicate("profiles_email_key")
			}
		}
	}
	profileCopy := *profile
	r.profiles[profile.ID] = &profileCopy
	r.track(profile.ID)
	return nil
}

func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*pehub.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, exists := r.profiles[id]
	if !exists {
		return nil, pehub.ErrProfileNotFound
	}
	profileCopy := *p
	return &profileCopy, nil
}

func (r *Repository) GetProfileByEmail(ctx context.Context, email string) (*pehub.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.profiles {
		if strings.EqualFold(p.Email, email) {
			profileCopy := *p
			return &profileCopy, nil
		}
	}
	return nil, pehub.ErrProfileNotFound
}

func (r *Repository) UpdateProfile(ctx context.Context, profile *pehub.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[profile.ID]; !exists {
		return pehub.ErrProfileNotFound
	}
	profileCopy := *profile
	r.profiles[profile.ID] = &profileCopy
	return nil
}

func (r *Repository) ListProfiles(ctx context.Context, role pehub.Role) ([]*pehub.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*pehub.Profile, 0)
	for _, p := range r.profiles {
		if role != "" && p.Role != role {
			continue
		}
		profileCopy := *p
		result = append(result, &profileCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return r.newestFirst(result[i].ID, result[j].ID, result[i].CreatedAt, result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.profiles[id]; !exists {
		return pehub.ErrProfileNotFound
	}
	delete(r.profiles, id)
	return nil
}

func (r *Repository) CountProfiles(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.profiles)), nil
}

// Contact message operations

func (r *Repository) CreateMessage(ctx context.Context, msg *pehub.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.messages[msg.ID]; exists {
		return duplicate("messages_pkey")
	}
	msgCopy := *msg
	r.messages[msg.ID] = &msgCopy
	r.track(msg.ID)
	return nil
}

func (r *Repository) ListMessages(ctx context.Context) ([]*pehub.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*pehub.Message, 0, len(r.messages))
	for _, m := range r.messages {
		msgCopy := *m
		result = append(result, &msgCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return r.newestFirst(result[i].ID, result[j].ID, result[i].CreatedAt, result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) MarkMessageRead(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, exists := r.messages[id]
	if !exists {
		return pehub.ErrMessageNotFound
	}
	m.IsRead = true
	return nil
}

// Notification operations

func (r *Repository) CreateNotification(ctx context.Context, n *pehub.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.notifications[n.ID]; exists {
		return duplicate("notifications_pkey")
	}
	nCopy := *n
	r.notifications[n.ID] = &nCopy
	r.track(n.ID)
	return nil
}

func (r *Repository) ListNotifications(ctx context.Context, userID uuid.UUID) ([]*pehub.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*pehub.Notification, 0)
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		nCopy := *n
		result = append(result, &nCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return r.newestFirst(result[i].ID, result[j].ID, result[i].CreatedAt, result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, exists := r.notifications[id]
	if !exists || n.UserID != userID {
		return pehub.ErrNotificationNotFound
	}
	n.IsRead = true
	return nil
}

func (r *Repository) MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (r *Repository) CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

// Chat operations

func (r *Repository) CreateChat(ctx context.Context, chat *pehub.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chats[chat.ID]; exists {
		return duplicate("chats_pkey")
	}
	chatCopy := *chat
	r.chats[chat.ID] = &chatCopy
	r.track(chat.ID)
	return nil
}

func (r *Repository) GetChat(ctx context.Context, id uuid.UUID) (*pehub.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chat, exists := r.chats[id]
	if !exists {
		return nil, pehub.ErrChatNotFound
	}
	chatCopy := *chat
	return &chatCopy, nil
}

func (r *Repository) GetOpenChat(ctx context.Context, userID uuid.UUID) (*pehub.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var found *pehub.Chat
	for _, chat := range r.chats {
		if chat.UserID != userID || chat.Status != pehub.ChatStatusOpen {
			continue
		}
		if found == nil || r.newestFirst(chat.ID, found.ID, chat.CreatedAt, found.CreatedAt) {
			found = chat
		}
	}
	if found == nil {
		return nil, pehub.ErrChatNotFound
	}
	chatCopy := *found
	return &chatCopy, nil
}

func (r *Repository) ListChats(ctx context.Context) ([]*pehub.Chat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*pehub.Chat, 0, len(r.chats))
	for _, chat := range r.chats {
		chatCopy := *chat
		result = append(result, &chatCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return r.newestFirst(result[i].ID, result[j].ID, result[i].CreatedAt, result[j].CreatedAt)
	})
	return result, nil
}

func (r *Repository) CreateChatMessage(ctx context.Context, msg *pehub.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.chats[msg.ChatID]; !exists {
		return &pehub.ConstraintError{Kind: pehub.ConstraintForeignKey, Detail: "chat_messages_chat_id_fkey"}
	}
	msgCopy := *msg
	r.chatMessages[msg.ID] = &msgCopy
	r.track(msg.ID)
	return nil
}

func (r *Repository) ListChatMessages(ctx context.Context, chatID uuid.UUID) ([]*pehub.ChatMessage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*pehub.ChatMessage, 0)
	for _, m := range r.chatMessages {
		if m.ChatID != chatID {
			continue
		}
		msgCopy := *m
		result = append(result, &msgCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return r.oldestFirst(result[i].ID, result[j].ID, result[i].CreatedAt, result[j].CreatedAt)
	})
	return result, nil
}

// Calendar operations

func (r *Repository) CreateEvent(ctx context.Context, event *pehub.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.events[event.ID]; exists {
		return duplicate("events_pkey")
	}
	eventCopy := *event
	r.events[event.ID] = &eventCopy
	r.track(event.ID)
	return nil
}

func (r *Repository) ListEvents(ctx context.Context) ([]*pehub.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*pehub.Event, 0, len(r.events))
	for _, e := range r.events {
		eventCopy := *e
		result = append(result, &eventCopy)
	}
	sort.Slice(result, func(i, j int) bool {
		return r.oldestFirst(result[i].ID, result[j].ID, result[i].Date, result[j].Date)
	})
	return result, nil
}

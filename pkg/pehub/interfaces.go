package pehub

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Relation names of the backing store. Change-feed events carry these as
// their table.
const (
	TableProfiles        = "profiles"
	TableContent         = "content"
	TableContentRequests = "content_requests"
	TableMessages        = "messages"
	TableNotifications   = "notifications"
	TableChats           = "chats"
	TableChatMessages    = "chat_messages"
	TableEvents          = "events"
)

// Change-feed event types.
const (
	EventInsert = "INSERT"
	EventUpdate = "UPDATE"
	EventDelete = "DELETE"
)

// ContentFilter selects content items by exact match. Empty fields are
// not filtered on.
type ContentFilter struct {
	Type       string
	StageID    string
	CategoryID string
}

// RequestFilter selects content requests. Empty fields are not filtered on.
type RequestFilter struct {
	Status RequestStatus
	UserID uuid.UUID
}

// Repository defines the interface for the relational store.
//
// List operations return rows newest first unless documented otherwise.
type Repository interface {
	// Content operations
	CreateContent(ctx context.Context, item *ContentItem) error
	GetContent(ctx context.Context, id uuid.UUID) (*ContentItem, error)
	ListContent(ctx context.Context, filter ContentFilter) ([]*ContentItem, error)
	DeleteContent(ctx context.Context, id uuid.UUID) error
	DeleteContentByCreator(ctx context.Context, userID uuid.UUID) (int64, error)
	CountContent(ctx context.Context) (int64, error)

	// Content request operations
	CreateContentRequest(ctx context.Context, req *ContentRequest) error
	GetContentRequest(ctx context.Context, id uuid.UUID) (*ContentRequest, error)
	ListContentRequests(ctx context.Context, filter RequestFilter) ([]*ContentRequest, error)
	// TransitionContentRequest moves a request from one status to another.
	// It returns ErrRequestNotPending when the stored status is not from.
	TransitionContentRequest(ctx context.Context, id uuid.UUID, from, to RequestStatus, adminID uuid.UUID) error
	// SetRequestContent records the content item an approved request
	// produced.
	SetRequestContent(ctx context.Context, id, contentID uuid.UUID) error
	DeleteContentRequestsByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	CountContentRequests(ctx context.Context) (int64, error)

	// Profile operations
	CreateProfile(ctx context.Context, profile *Profile) error
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetProfileByEmail(ctx context.Context, email string) (*Profile, error)
	UpdateProfile(ctx context.Context, profile *Profile) error
	// ListProfiles returns profiles with the given role, or all when role is empty.
	ListProfiles(ctx context.Context, role Role) ([]*Profile, error)
	DeleteProfile(ctx context.Context, id uuid.UUID) error
	CountProfiles(ctx context.Context) (int64, error)

	// Contact message operations
	CreateMessage(ctx context.Context, msg *Message) error
	ListMessages(ctx context.Context) ([]*Message, error)
	MarkMessageRead(ctx context.Context, id uuid.UUID) error

	// Notification operations
	CreateNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID) ([]*Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
	CountUnreadNotifications(ctx context.Context, userID uuid.UUID) (int64, error)

	// Chat operations
	CreateChat(ctx context.Context, chat *Chat) error
	GetChat(ctx context.Context, id uuid.UUID) (*Chat, error)
	GetOpenChat(ctx context.Context, userID uuid.UUID) (*Chat, error)
	ListChats(ctx context.Context) ([]*Chat, error)
	CreateChatMessage(ctx context.Context, msg *ChatMessage) error
	// ListChatMessages returns messages oldest first.
	ListChatMessages(ctx context.Context, chatID uuid.UUID) ([]*ChatMessage, error)

	// Calendar operations
	CreateEvent(ctx context.Context, event *Event) error
	// ListEvents returns events ordered by date ascending.
	ListEvents(ctx context.Context) ([]*Event, error)
}

// Transactor is implemented by repositories that can run several writes
// atomically. fn receives a Repository bound to the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Repository) error) error
}

// ObjectMeta describes a stored file.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
}

// UploadParams describes a file upload.
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// BlobStore defines the interface for file storage.
type BlobStore interface {
	// Upload stores the reader's content under params.ObjectKey.
	Upload(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download returns the stored content.
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete removes the stored content.
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta returns metadata for a stored object.
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// PublicURL returns the stable URL under which objectKey is served.
	PublicURL(objectKey string) string

	// KeyFromURL extracts the object key when url points into this store.
	KeyFromURL(url string) (string, bool)
}

// ChangePublisher fans out inserted or updated rows to realtime
// subscribers. Delivery is best-effort.
type ChangePublisher interface {
	Publish(ctx context.Context, table, eventType string, record interface{}) error
}

// Dispatcher schedules a push notification. It never blocks the caller
// and reports no delivery result.
type Dispatcher interface {
	Schedule(title, body string, metadata map[string]string)
}

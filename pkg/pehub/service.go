package pehub

import (
	"context"

	"github.com/google/uuid"
)

// Service is the main interface of the content hub.
type Service interface {
	// Browsing
	BrowseContent(ctx context.Context, sel Selection) ([]Resource, error)
	GetContent(ctx context.Context, id uuid.UUID) (*ContentItem, error)
	OnContentChanged(fn func(ContentChange)) (unsubscribe func())

	// Content management
	UploadContent(ctx context.Context, actor Actor, req UploadContentRequest) (*ContentItem, error)
	DeleteContent(ctx context.Context, actor Actor, id uuid.UUID) error
	PendingCleanups() []string
	RetryCleanups(ctx context.Context) (int, error)

	// Moderation
	SubmitContentRequest(ctx context.Context, actor Actor, req SubmitContentRequest) (*ContentRequest, error)
	ListContentRequests(ctx context.Context, actor Actor, status RequestStatus) ([]*ContentRequestView, error)
	ListMyContentRequests(ctx context.Context, actor Actor) ([]*ContentRequest, error)
	ApproveContentRequest(ctx context.Context, actor Actor, id uuid.UUID) (*ContentItem, error)
	RejectContentRequest(ctx context.Context, actor Actor, id uuid.UUID) error
	ReconcileApprovals(ctx context.Context) (int, error)

	// Notifications
	ListNotifications(ctx context.Context, actor Actor) ([]*Notification, error)
	UnreadNotificationCount(ctx context.Context, actor Actor) (int64, error)
	MarkNotificationRead(ctx context.Context, actor Actor, id uuid.UUID) error
	MarkAllNotificationsRead(ctx context.Context, actor Actor) (int64, error)

	// Chat
	OpenChat(ctx context.Context, actor Actor) (*Chat, error)
	ListChats(ctx context.Context, actor Actor) ([]*Chat, error)
	ListChatMessages(ctx context.Context, actor Actor, chatID uuid.UUID) ([]*ChatMessage, error)
	SendChatMessage(ctx context.Context, actor Actor, req SendChatMessageRequest) (*ChatMessage, error)

	// Calendar
	ListEvents(ctx context.Context) ([]*Event, error)
	AddEvent(ctx context.Context, actor Actor, req AddEventRequest) (*Event, error)

	// Contact messages
	SubmitContactMessage(ctx context.Context, req ContactRequest) (*Message, error)
	ListMessages(ctx context.Context, actor Actor) ([]*Message, error)
	MarkMessageRead(ctx context.Context, actor Actor, id uuid.UUID) error

	// Administration
	Stats(ctx context.Context, actor Actor) (*Stats, error)
	ListProfiles(ctx context.Context, actor Actor, role Role) ([]*Profile, error)
	PromoteAdmin(ctx context.Context, actor Actor, email string) (profile *Profile, created bool, err error)
	DemoteAdmin(ctx context.Context, actor Actor, id uuid.UUID) error

	// Profiles
	IsAdmin(ctx context.Context, actor Actor) (bool, error)
	EnsureProfile(ctx context.Context, actor Actor) (*Profile, error)
	GetProfile(ctx context.Context, actor Actor) (*Profile, error)
	UpdateProfile(ctx context.Context, actor Actor, req UpdateProfileRequest) (*Profile, error)
	DeleteAccount(ctx context.Context, actor Actor) error
}

package pehub

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the moderation state of a ContentRequest.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusRejected RequestStatus = "rejected"
)

// IsValid reports whether s is a known request status.
func (s RequestStatus) IsValid() bool {
	switch s {
	case RequestStatusPending, RequestStatusApproved, RequestStatusRejected:
		return true
	}
	return false
}

// Role is the authorization role stored on a profile.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Notification types.
const (
	NotificationTypeContentRequest = "content_request"
	NotificationTypeRequestUpdate  = "request_update"
	NotificationTypeMessage        = "message"
	NotificationTypeChat           = "chat"
)

// ChatStatusOpen marks the conversation currently in use for a user.
const ChatStatusOpen = "open"

// ContentItem is a published, browsable piece of content.
type ContentItem struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Type        string    `json:"type"`
	StageID     string    `json:"stage_id"`
	CategoryID  string    `json:"category_id"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// ContentRequest is a user-submitted proposal awaiting an admin decision.
type ContentRequest struct {
	ID          uuid.UUID     `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	URL         string        `json:"url"`
	Type        string        `json:"type"`
	StageID     string        `json:"stage_id"`
	CategoryID  string        `json:"category_id"`
	Status      RequestStatus `json:"status"`
	UserID      uuid.UUID     `json:"user_id"`
	AdminID     *uuid.UUID    `json:"admin_id,omitempty"`
	// ContentID is set once approval has produced the content item. It
	// stays set after that item is deleted.
	ContentID *uuid.UUID `json:"content_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// ContentRequestView pairs a request with its submitter's display name.
type ContentRequestView struct {
	ContentRequest
	SubmitterName  string `json:"submitter_name,omitempty"`
	SubmitterEmail string `json:"submitter_email,omitempty"`
}

// Profile is a user's account record.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// IsAdmin reports whether the profile carries the admin role.
func (p *Profile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Message is a contact-form message addressed to the site admins.
type Message struct {
	ID          uuid.UUID `json:"id"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email"`
	Subject     string    `json:"subject"`
	Message     string    `json:"message"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification is an in-app notification addressed to one user.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Chat is a support conversation between a user and the admins.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessage is a single message within a Chat.
type ChatMessage struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is a calendar entry.
type Event struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Type      string    `json:"type"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
}

// Resource is the normalized presentation shape of a ContentItem.
type Resource struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	Type         string    `json:"type"`
	ThumbnailURL string    `json:"thumbnail_url"`
	DownloadURL  string    `json:"download_url"`
}

// Selection is a fully resolved browse selection. ContentType is a UI label
// such as "images".
type Selection struct {
	StageID       string `json:"stage_id"`
	SubcategoryID string `json:"subcategory_id"`
	ContentType   string `json:"content_type"`
}

// ContentChangeKind names what happened to a content item.
type ContentChangeKind string

const (
	ContentAdded   ContentChangeKind = "added"
	ContentRemoved ContentChangeKind = "removed"
)

// ContentChange is published whenever the content relation is modified.
type ContentChange struct {
	Kind        ContentChangeKind `json:"kind"`
	ContentID   uuid.UUID         `json:"content_id"`
	StageID     string            `json:"stage_id"`
	CategoryID  string            `json:"category_id"`
	StorageType string            `json:"type"`
}

// Matches reports whether the change affects the given selection.
func (c ContentChange) Matches(sel Selection, storageType string) bool {
	return c.StageID == sel.StageID && c.CategoryID == sel.SubcategoryID && c.StorageType == storageType
}

// Stats are the dashboard counters.
type Stats struct {
	Profiles        int64 `json:"profiles"`
	Content         int64 `json:"content"`
	ContentRequests int64 `json:"content_requests"`
}

// Actor identifies the caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Email  string
}

// IsZero reports whether no caller is present.
func (a Actor) IsZero() bool {
	return a.UserID == uuid.Nil
}

// File is an upload payload.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Reader      io.Reader
}

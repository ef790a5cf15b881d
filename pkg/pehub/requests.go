package pehub

import (
	"time"

	"github.com/google/uuid"
)

// UploadContentRequest contains parameters for an admin upload. Either URL
// or File must be set; File wins when both are present.
type UploadContentRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	URL         string `json:"url" validate:"omitempty,url"`
	Type        string `json:"type" validate:"required,storage_type"`
	StageID     string `json:"stage_id" validate:"required"`
	CategoryID  string `json:"category_id" validate:"required"`
	File        *File  `json:"-"`
}

// SubmitContentRequest contains parameters for a non-admin content proposal.
type SubmitContentRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	URL         string `json:"url" validate:"omitempty,url"`
	Type        string `json:"type" validate:"required,storage_type"`
	StageID     string `json:"stage_id" validate:"required"`
	CategoryID  string `json:"category_id" validate:"required"`
	File        *File  `json:"-"`
}

// ContactRequest is a contact-form submission.
type ContactRequest struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,simple_email"`
	Message string `json:"message" validate:"required,min=10"`
}

// AddEventRequest contains parameters for a new calendar event.
type AddEventRequest struct {
	Title string    `json:"title" validate:"required,max=200"`
	Type  string    `json:"type" validate:"required,max=50"`
	Date  time.Time `json:"date" validate:"required"`
}

// UpdateProfileRequest contains the editable profile fields.
type UpdateProfileRequest struct {
	FullName  *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Username  *string `json:"username,omitempty" validate:"omitempty,max=100"`
	AvatarURL *string `json:"avatar_url,omitempty" validate:"omitempty,url"`
}

// SendChatMessageRequest contains a chat message body.
type SendChatMessageRequest struct {
	ChatID  uuid.UUID `json:"chat_id"`
	Message string    `json:"message"`
}

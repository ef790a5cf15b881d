package pehub

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub/i18n"
)

// Error types
var (
	// ErrContentNotFound indicates a content item was not found
	ErrContentNotFound = errors.New("content not found")

	// ErrRequestNotFound indicates a content request was not found
	ErrRequestNotFound = errors.New("content request not found")

	// ErrProfileNotFound indicates a profile was not found
	ErrProfileNotFound = errors.New("profile not found")

	// ErrMessageNotFound indicates a contact message was not found
	ErrMessageNotFound = errors.New("message not found")

	// ErrNotificationNotFound indicates a notification was not found
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrChatNotFound indicates a chat was not found
	ErrChatNotFound = errors.New("chat not found")

	// ErrObjectNotFound indicates a stored file was not found
	ErrObjectNotFound = errors.New("object not found")

	// ErrRequestNotPending indicates a request has already been decided
	ErrRequestNotPending = errors.New("content request is not pending")

	// ErrInvalidSelection indicates an incomplete or unknown browse selection
	ErrInvalidSelection = errors.New("invalid content selection")

	// ErrForbidden indicates the caller lacks the admin role
	ErrForbidden = errors.New("forbidden")

	// ErrUnauthenticated indicates no caller identity was supplied
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotManaged indicates a URL does not point into the managed file store
	ErrNotManaged = errors.New("url is not in the managed store")

	// ErrNoAdmin indicates no admin profile exists to receive a notification
	ErrNoAdmin = errors.New("no admin profile available")
)

// ContentError represents an error related to content operations
type ContentError struct {
	ContentID uuid.UUID
	Op        string
	Err       error
}

func (e *ContentError) Error() string {
	return fmt.Sprintf("content operation %s failed for content %s: %v", e.Op, e.ContentID, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// RequestError represents an error related to content request operations
type RequestError struct {
	RequestID uuid.UUID
	Op        string
	Err       error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request operation %s failed for request %s: %v", e.Op, e.RequestID, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to file storage operations
type StorageError struct {
	Key string
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// TransientError wraps a backend failure that should surface as a generic,
// localized notice. Callers may retry by repeating the user action.
type TransientError struct {
	Op     string
	Notice i18n.Key
	Err    error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FieldError is a single failed input check.
type FieldError struct {
	Field   string   `json:"field"`
	Message i18n.Key `json:"message"`
}

// ValidationError is returned before any backend call when input is invalid.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// First returns the first failing field's message key.
func (e *ValidationError) First() i18n.Key {
	if len(e.Fields) == 0 {
		return i18n.InvalidInput
	}
	return e.Fields[0].Message
}

func newValidationError(fields ...FieldError) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// ConstraintKind classifies a store-level constraint violation.
type ConstraintKind string

const (
	ConstraintDuplicate        ConstraintKind = "duplicate"
	ConstraintNotNull          ConstraintKind = "not_null"
	ConstraintForeignKey       ConstraintKind = "foreign_key"
	ConstraintPermissionDenied ConstraintKind = "permission_denied"
)

// ConstraintError is returned by repositories when a write violates a
// store constraint.
type ConstraintError struct {
	Kind   ConstraintKind
	Detail string
	Err    error
}

func (e *ConstraintError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("constraint violation (%s): %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("constraint violation (%s)", e.Kind)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContentNotFound) ||
		errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrProfileNotFound) ||
		errors.Is(err, ErrMessageNotFound) ||
		errors.Is(err, ErrNotificationNotFound) ||
		errors.Is(err, ErrChatNotFound) ||
		errors.Is(err, ErrObjectNotFound)
}

// NoticeKey picks the localized message for err. fallback is used for
// anything that is not a validation, constraint, or authorization error.
func NoticeKey(err error, fallback i18n.Key) i18n.Key {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.First()
	}
	var terr *TransientError
	if errors.As(err, &terr) && terr.Notice != "" {
		return terr.Notice
	}
	switch {
	case errors.Is(err, ErrForbidden):
		return i18n.Forbidden
	case errors.Is(err, ErrUnauthenticated):
		return i18n.SignInRequired
	case IsNotFound(err):
		return i18n.NotFound
	}
	return fallback
}

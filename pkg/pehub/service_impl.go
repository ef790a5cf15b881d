package pehub

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/logging"
	"github.com/tendant/pehub/pkg/pehub/objectkey"
)

// service implements the Service interface
type service struct {
	repository   Repository
	blobStore    BlobStore
	publisher    ChangePublisher
	dispatcher   Dispatcher
	logger       *logging.Logger
	adminKeys    objectkey.Generator
	requestKeys  objectkey.Generator
	onFailure    func(i18n.Notice)
	lang         i18n.Lang
	now          func() time.Time
	allowlist    map[string]bool
	adminContact string

	observersMu sync.RWMutex
	observers   map[int]func(ContentChange)
	nextObs     int

	cleanupMu sync.Mutex
	cleanups  map[string]struct{}
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore sets the file store used for uploads
func WithBlobStore(store BlobStore) Option {
	return func(s *service) {
		s.blobStore = store
	}
}

// WithPublisher sets the realtime change publisher
func WithPublisher(p ChangePublisher) Option {
	return func(s *service) {
		s.publisher = p
	}
}

// WithDispatcher sets the push notification dispatcher
func WithDispatcher(d Dispatcher) Option {
	return func(s *service) {
		s.dispatcher = d
	}
}

// WithLogger sets the logger
func WithLogger(l *logging.Logger) Option {
	return func(s *service) {
		s.logger = l
	}
}

// WithKeyGenerators overrides the object key layouts for admin uploads and
// request submissions
func WithKeyGenerators(admin, request objectkey.Generator) Option {
	return func(s *service) {
		if admin != nil {
			s.adminKeys = admin
		}
		if request != nil {
			s.requestKeys = request
		}
	}
}

// WithFailureNotifier registers a callback receiving the localized notice
// for failed content fetches
func WithFailureNotifier(fn func(i18n.Notice)) Option {
	return func(s *service) {
		s.onFailure = fn
	}
}

// WithLanguage sets the language of notices and notification texts
func WithLanguage(lang i18n.Lang) Option {
	return func(s *service) {
		s.lang = lang
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		s.now = now
	}
}

// WithAdminAllowlist records a set of emails that are expected to be
// admins. The profile role stays authoritative; disagreements are logged.
func WithAdminAllowlist(emails ...string) Option {
	return func(s *service) {
		for _, e := range emails {
			e = normalizeEmail(e)
			if e != "" {
				s.allowlist[e] = true
			}
		}
	}
}

// WithAdminContact pins the admin profile, by email, that receives request
// and contact notifications. Without it the oldest admin is used.
func WithAdminContact(email string) Option {
	return func(s *service) {
		s.adminContact = normalizeEmail(email)
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		publisher:   NewNoopPublisher(),
		dispatcher:  NewNoopDispatcher(),
		logger:      logging.Nop(),
		adminKeys:   objectkey.NewAdminGenerator(),
		requestKeys: objectkey.NewRequestGenerator(),
		lang:        i18n.Default,
		now:         time.Now,
		allowlist:   make(map[string]bool),
		observers:   make(map[int]func(ContentChange)),
		cleanups:    make(map[string]struct{}),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}

	return s, nil
}

func (s *service) timestamp() time.Time {
	return s.now().UTC()
}

func (s *service) t(key i18n.Key) string {
	return i18n.T(s.lang, key)
}

// publish sends a change-feed event. Failures are logged and never fail
// the calling operation.
func (s *service) publish(ctx context.Context, table, eventType string, record interface{}) {
	if err := s.publisher.Publish(ctx, table, eventType, record); err != nil {
		s.logger.Warn("realtime publish failed", "table", table, "event", eventType, "error", err)
	}
}

// notify writes an in-app notification and schedules the matching push.
// Failures are logged only.
func (s *service) notify(ctx context.Context, userID uuid.UUID, title, message, kind string, metadata map[string]string) {
	n := &Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      kind,
		CreatedAt: s.timestamp(),
	}
	if err := s.repository.CreateNotification(ctx, n); err != nil {
		s.logger.Error("failed to create notification", "user_id", userID, "type", kind, "error", err)
		return
	}
	s.publish(ctx, TableNotifications, EventInsert, n)

	if metadata == nil {
		metadata = map[string]string{}
	}
	metadata["notification_id"] = n.ID.String()
	metadata["user_id"] = userID.String()
	metadata["type"] = kind
	s.dispatcher.Schedule(title, message, metadata)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

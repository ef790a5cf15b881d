// Package api exposes the content hub over HTTP with chi.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/logging"
	"github.com/tendant/pehub/pkg/pehub/realtime"
)

const (
	defaultMaxUpload = 100 << 20
	defaultHeartbeat = 25 * time.Second
)

// Handler serves every hub operation.
type Handler struct {
	svc       pehub.Service
	hub       *realtime.Hub
	store     pehub.BlobStore
	tokens    *jwtauth.JWTAuth
	log       *logging.Logger
	lang      i18n.Lang
	maxUpload int64
	heartbeat time.Duration
	origins   []string
}

// Option configures a Handler.
type Option func(*Handler)

// WithHub enables the change stream endpoint.
func WithHub(hub *realtime.Hub) Option {
	return func(h *Handler) { h.hub = hub }
}

// WithStore enables serving and presigning stored files.
func WithStore(store pehub.BlobStore) Option {
	return func(h *Handler) { h.store = store }
}

// WithTokenAuth sets the access token verifier.
func WithTokenAuth(ta *jwtauth.JWTAuth) Option {
	return func(h *Handler) { h.tokens = ta }
}

func WithLogger(l *logging.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithLanguage sets the language used when a request names none.
func WithLanguage(lang i18n.Lang) Option {
	return func(h *Handler) { h.lang = lang }
}

// WithMaxUploadSize caps multipart request bodies.
func WithMaxUploadSize(n int64) Option {
	return func(h *Handler) {
		if n > 0 {
			h.maxUpload = n
		}
	}
}

// WithHeartbeat sets the idle interval of the change stream.
func WithHeartbeat(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// WithCORS allows browser calls from the given origins. An empty list
// allows any origin.
func WithCORS(origins ...string) Option {
	return func(h *Handler) {
		h.origins = append([]string{}, origins...)
	}
}

// NewHandler creates a handler for svc.
func NewHandler(svc pehub.Service, opts ...Option) *Handler {
	h := &Handler{
		svc:       svc,
		log:       logging.Nop(),
		lang:      i18n.Default,
		maxUpload: defaultMaxUpload,
		heartbeat: defaultHeartbeat,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With("component", "api")
	return h
}

// Routes returns the router for the whole API.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	if h.origins != nil {
		r.Use(CORS(h.origins))
	}
	r.Use(middleware.RequestID, h.RequestLogger, h.Recoverer)
	r.Use(Language(h.lang))
	if h.tokens != nil {
		r.Use(jwtauth.Verifier(h.tokens))
	}

	r.Get("/taxonomy", h.ListStages)
	r.Get("/taxonomy/{stageID}", h.GetStage)
	r.Get("/content", h.BrowseContent)
	r.Get("/content/{id}", h.GetContent)
	r.Get("/content/{id}/preview", h.PreviewContent)
	r.Get("/content/{id}/download", h.DownloadContent)
	r.Get("/events", h.ListEvents)
	r.Post("/contact", h.SubmitContactMessage)
	if h.store != nil {
		r.Get("/files/*", h.ServeFile)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.Authenticator)

		r.Post("/content", h.UploadContent)
		r.Delete("/content/{id}", h.DeleteContent)

		r.Post("/requests", h.SubmitContentRequest)
		r.Get("/requests", h.ListContentRequests)
		r.Get("/requests/mine", h.ListMyContentRequests)
		r.Post("/requests/{id}/approve", h.ApproveContentRequest)
		r.Post("/requests/{id}/reject", h.RejectContentRequest)

		r.Get("/notifications", h.ListNotifications)
		r.Get("/notifications/unread", h.UnreadNotificationCount)
		r.Post("/notifications/read", h.MarkAllNotificationsRead)
		r.Post("/notifications/{id}/read", h.MarkNotificationRead)

		r.Post("/chats", h.OpenChat)
		r.Get("/chats", h.ListChats)
		r.Get("/chats/{id}/messages", h.ListChatMessages)
		r.Post("/chats/{id}/messages", h.SendChatMessage)

		r.Post("/events", h.AddEvent)

		r.Get("/messages", h.ListMessages)
		r.Post("/messages/{id}/read", h.MarkMessageRead)

		r.Get("/me", h.GetProfile)
		r.Patch("/me", h.UpdateProfile)
		r.Delete("/me", h.DeleteAccount)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/stats", h.Stats)
			r.Get("/profiles", h.ListProfiles)
			r.Post("/admins", h.PromoteAdmin)
			r.Delete("/admins/{id}", h.DemoteAdmin)
			r.Get("/cleanups", h.PendingCleanups)
			r.Post("/cleanups/retry", h.RetryCleanups)
			r.Post("/reconcile", h.ReconcileApprovals)
		})

		if h.hub != nil {
			r.Get("/stream", h.Stream)
		}
	})

	return r
}

func (h *Handler) language(r *http.Request) i18n.Lang {
	return LanguageFromContext(r.Context(), h.lang)
}

// idParam parses the {id} URL parameter, writing a 400 when it is malformed.
func (h *Handler) idParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, r, "id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := render.DecodeJSON(r.Body, v); err != nil {
		h.badRequest(w, r, "body")
		return false
	}
	return true
}

// NoticeResponse wraps a result with the localized confirmation the client
// shows.
type NoticeResponse struct {
	Notice i18n.Notice `json:"notice"`
	Data   interface{} `json:"data,omitempty"`
}

func (h *Handler) success(w http.ResponseWriter, r *http.Request, status int, title, desc i18n.Key, data interface{}) {
	lang := h.language(r)
	n := i18n.Notice{Description: i18n.T(lang, desc)}
	if title != "" {
		n.Title = i18n.T(lang, title)
	}
	render.Status(r, status)
	render.JSON(w, r, NoticeResponse{Notice: n, Data: data})
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries a machine-readable code and the localized notice the
// client shows as-is.
type ErrorBody struct {
	Code   string         `json:"code"`
	Notice i18n.Notice    `json:"notice"`
	Fields []FieldMessage `json:"fields,omitempty"`
}

// FieldMessage is one failed input check, already localized.
type FieldMessage struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// statusFor maps service errors onto HTTP status codes and error codes.
func statusFor(err error) (int, string) {
	var verr *pehub.ValidationError
	var cerr *pehub.ConstraintError
	var terr *pehub.TransientError
	switch {
	case errors.As(err, &verr), errors.Is(err, pehub.ErrInvalidSelection), errors.Is(err, pehub.ErrNotManaged):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, pehub.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, pehub.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case pehub.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, pehub.ErrRequestNotPending):
		return http.StatusConflict, "conflict"
	case errors.As(err, &cerr):
		switch cerr.Kind {
		case pehub.ConstraintDuplicate, pehub.ConstraintForeignKey:
			return http.StatusConflict, "conflict"
		case pehub.ConstraintPermissionDenied:
			return http.StatusForbidden, "forbidden"
		}
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, pehub.ErrNoAdmin), errors.As(err, &terr):
		return http.StatusServiceUnavailable, "unavailable"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError renders err as a localized ErrorResponse. fallback names the
// message shown for failures that carry no more specific notice.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback i18n.Key) {
	lang := LanguageFromContext(r.Context(), h.lang)
	status, code := statusFor(err)

	body := ErrorBody{
		Code:   code,
		Notice: i18n.Failure(lang, pehub.NoticeKey(err, fallback)),
	}
	var verr *pehub.ValidationError
	if errors.As(err, &verr) {
		for _, f := range verr.Fields {
			body.Fields = append(body.Fields, FieldMessage{Field: f.Field, Message: i18n.T(lang, f.Message)})
		}
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		h.log.Debug("request rejected", "method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	render.Status(r, status)
	render.JSON(w, r, ErrorResponse{Error: body})
}

// badRequest reports malformed input that never reached the service.
func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, field string) {
	h.writeError(w, r, &pehub.ValidationError{Fields: []pehub.FieldError{{Field: field, Message: i18n.InvalidInput}}}, i18n.InvalidInput)
}

func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusNotFound)
	render.JSON(w, r, ErrorResponse{Error: ErrorBody{
		Code:   "not_found",
		Notice: i18n.Failure(LanguageFromContext(r.Context(), h.lang), i18n.NotFound),
	}})
}

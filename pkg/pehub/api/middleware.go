package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tendant/pehub/pkg/pehub/i18n"
)

// RequestLogger logs one line per request with its status, size and
// duration. The wrapped writer keeps http.Flusher so event streams still
// work behind it.
func (h *Handler) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []interface{}{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
		}
		if id := middleware.GetReqID(r.Context()); id != "" {
			fields = append(fields, "request_id", id)
		}
		if status >= http.StatusInternalServerError {
			h.log.Warn("request failed", fields...)
			return
		}
		h.log.Debug("request", fields...)
	})
}

// Recoverer turns a panic into a localized 500 response.
func (h *Handler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.log.Error("panic serving request", "path", r.URL.Path, "panic", rec,
				"request_id", middleware.GetReqID(r.Context()))
			h.writeError(w, r, fmt.Errorf("panic: %v", rec), i18n.GenericError)
		}()
		next.ServeHTTP(w, r)
	})
}

// CORS allows browser clients from origins to call the API.
func CORS(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "HEAD", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Content-Language", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}

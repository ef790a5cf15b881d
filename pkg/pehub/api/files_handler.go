package api

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
)

// ServeFile streams a stored file for stores that are not publicly
// readable on their own. A "name" query parameter turns the response into
// an attachment with that file name.
func (h *Handler) ServeFile(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if key == "" || strings.Contains(key, "..") {
		h.notFound(w, r)
		return
	}

	ctx := r.Context()
	meta, err := h.store.GetObjectMeta(ctx, key)
	if err != nil {
		h.fileError(w, r, err)
		return
	}
	body, err := h.store.Download(ctx, key)
	if err != nil {
		h.fileError(w, r, err)
		return
	}
	defer body.Close()

	contentType := meta.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(key))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	if !meta.UpdatedAt.IsZero() {
		w.Header().Set("Last-Modified", meta.UpdatedAt.UTC().Format(http.TimeFormat))
	}
	if name := r.URL.Query().Get("name"); name != "" {
		w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	}

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, body); err != nil {
		h.log.Warn("file stream interrupted", "key", key, "error", err)
	}
}

func (h *Handler) fileError(w http.ResponseWriter, r *http.Request, err error) {
	if pehub.IsNotFound(err) {
		h.notFound(w, r)
		return
	}
	h.writeError(w, r, err, i18n.GenericError)
}

package api

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/grid"
	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/taxonomy"
)

// presigner is implemented by stores that can hand out short-lived
// download links.
type presigner interface {
	PresignDownload(ctx context.Context, objectKey, fileName string) (string, error)
}

// ListStages returns the whole taxonomy.
func (h *Handler) ListStages(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, taxonomy.Stages())
}

// GetStage returns one stage with its categories.
func (h *Handler) GetStage(w http.ResponseWriter, r *http.Request) {
	stage, err := taxonomy.GetStage(chi.URLParam(r, "stageID"))
	if err != nil {
		h.notFound(w, r)
		return
	}
	render.JSON(w, r, stage)
}

// BrowseContent lists the resources of a selection given as the stage,
// subcategory and type query parameters. type is a UI label such as
// "images".
func (h *Handler) BrowseContent(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sel := pehub.Selection{
		StageID:       q.Get("stage"),
		SubcategoryID: q.Get("subcategory"),
		ContentType:   q.Get("type"),
	}
	resources, err := h.svc.BrowseContent(r.Context(), sel)
	if err != nil {
		h.writeError(w, r, err, i18n.FetchError)
		return
	}
	if resources == nil {
		resources = []pehub.Resource{}
	}
	render.JSON(w, r, resources)
}

// GetContent returns a single content item.
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	item, err := h.svc.GetContent(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, i18n.FetchError)
		return
	}
	render.JSON(w, r, item)
}

// PreviewContent describes how a client renders the item inline.
func (h *Handler) PreviewContent(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	render.JSON(w, r, grid.PreviewOf(res))
}

// DownloadContent returns the download link and suggested file name. Files
// in a presigning store get a short-lived link carrying the file name.
func (h *Handler) DownloadContent(w http.ResponseWriter, r *http.Request) {
	res, ok := h.resource(w, r)
	if !ok {
		return
	}
	dl := grid.DownloadOf(res)
	if p, ok := h.store.(presigner); ok {
		if key, managed := h.store.KeyFromURL(dl.URL); managed {
			signed, err := p.PresignDownload(r.Context(), key, dl.FileName)
			if err != nil {
				h.writeError(w, r, err, i18n.GenericError)
				return
			}
			dl.URL = signed
		}
	}
	render.JSON(w, r, dl)
}

func (h *Handler) resource(w http.ResponseWriter, r *http.Request) (pehub.Resource, bool) {
	id, ok := h.idParam(w, r)
	if !ok {
		return pehub.Resource{}, false
	}
	item, err := h.svc.GetContent(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, i18n.FetchError)
		return pehub.Resource{}, false
	}
	return pehub.ToResource(item), true
}

// UploadContent publishes content directly. Admin only. Accepts either a
// JSON body with a url or a multipart form with a "file" part.
func (h *Handler) UploadContent(w http.ResponseWriter, r *http.Request) {
	var req pehub.UploadContentRequest
	if isMultipart(r) {
		file, cleanup, ok := h.parseUpload(w, r)
		if !ok {
			return
		}
		defer cleanup()
		req = pehub.UploadContentRequest{
			Title:       r.FormValue("title"),
			Description: r.FormValue("description"),
			URL:         r.FormValue("url"),
			Type:        formType(r),
			StageID:     r.FormValue("stage_id"),
			CategoryID:  r.FormValue("category_id"),
			File:        file,
		}
	} else if !h.decode(w, r, &req) {
		return
	}
	req.Type = taxonomy.StorageType(req.Type)

	item, err := h.svc.UploadContent(r.Context(), ActorFromContext(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	h.success(w, r, http.StatusCreated, i18n.UploadSuccessTitle, i18n.UploadSuccess, item)
}

// DeleteContent removes a content item. Admin only.
func (h *Handler) DeleteContent(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteContent(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		h.writeError(w, r, err, i18n.DeleteError)
		return
	}
	h.success(w, r, http.StatusOK, i18n.DeleteSuccessTitle, i18n.DeleteSuccess, nil)
}

// PendingCleanups lists stored files whose removal failed. Admin only.
func (h *Handler) PendingCleanups(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	keys := h.svc.PendingCleanups()
	if keys == nil {
		keys = []string{}
	}
	render.JSON(w, r, map[string]interface{}{"keys": keys})
}

// RetryCleanups retries the pending file removals. Admin only.
func (h *Handler) RetryCleanups(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	removed, err := h.svc.RetryCleanups(r.Context())
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.JSON(w, r, map[string]interface{}{"removed": removed, "pending": len(h.svc.PendingCleanups())})
}

func (h *Handler) requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	admin, err := h.svc.IsAdmin(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return false
	}
	if !admin {
		h.writeError(w, r, pehub.ErrForbidden, i18n.Forbidden)
		return false
	}
	return true
}

// parseUpload reads the multipart form and its optional "file" part. The
// returned cleanup releases temporary files.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (*pehub.File, func(), bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.badRequest(w, r, "file")
		return nil, nil, false
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	part, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, cleanup, true
	}
	if err != nil {
		cleanup()
		h.badRequest(w, r, "file")
		return nil, nil, false
	}
	return fileFromPart(part, header), func() {
		_ = part.Close()
		cleanup()
	}, true
}

func fileFromPart(part multipart.File, header *multipart.FileHeader) *pehub.File {
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &pehub.File{
		Name:        header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		Reader:      io.Reader(part),
	}
}

// formType accepts either the storage label or the UI label.
func formType(r *http.Request) string {
	return strings.TrimSpace(r.FormValue("type"))
}

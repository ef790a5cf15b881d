package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
	"github.com/tendant/pehub/pkg/pehub/taxonomy"
)

// SubmitContentRequest proposes content for moderation. Same body shapes as
// UploadContent.
func (h *Handler) SubmitContentRequest(w http.ResponseWriter, r *http.Request) {
	var req pehub.SubmitContentRequest
	if isMultipart(r) {
		file, cleanup, ok := h.parseUpload(w, r)
		if !ok {
			return
		}
		defer cleanup()
		req = pehub.SubmitContentRequest{
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

	cr, err := h.svc.SubmitContentRequest(r.Context(), ActorFromContext(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err, i18n.RequestSubmitError)
		return
	}
	h.success(w, r, http.StatusCreated, "", i18n.RequestSubmitted, cr)
}

// ListContentRequests lists requests for moderation, optionally filtered by
// the status query parameter. Admin only.
func (h *Handler) ListContentRequests(w http.ResponseWriter, r *http.Request) {
	status := pehub.RequestStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		h.badRequest(w, r, "status")
		return
	}
	views, err := h.svc.ListContentRequests(r.Context(), ActorFromContext(r.Context()), status)
	if err != nil {
		h.writeError(w, r, err, i18n.RequestsFetchError)
		return
	}
	if views == nil {
		views = []*pehub.ContentRequestView{}
	}
	render.JSON(w, r, views)
}

// ListMyContentRequests lists the caller's own requests.
func (h *Handler) ListMyContentRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.svc.ListMyContentRequests(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err, i18n.RequestsFetchError)
		return
	}
	if reqs == nil {
		reqs = []*pehub.ContentRequest{}
	}
	render.JSON(w, r, reqs)
}

// ModerationResult is the payload of a moderation decision: the published
// item, if any, and the request list fetched again after the decision.
type ModerationResult struct {
	Content  *pehub.ContentItem         `json:"content,omitempty"`
	Requests []*pehub.ContentRequestView `json:"requests"`
}

// ApproveContentRequest publishes a pending request. Admin only. The
// optional status query parameter filters the returned list.
func (h *Handler) ApproveContentRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	item, err := h.svc.ApproveContentRequest(r.Context(), ActorFromContext(r.Context()), id)
	if err != nil {
		h.writeError(w, r, err, i18n.RequestUpdateError)
		return
	}
	h.success(w, r, http.StatusOK, "", i18n.RequestApproved, h.moderationResult(r, item))
}

// RejectContentRequest declines a pending request. Admin only.
func (h *Handler) RejectContentRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.RejectContentRequest(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		h.writeError(w, r, err, i18n.RequestUpdateError)
		return
	}
	h.success(w, r, http.StatusOK, "", i18n.RequestRejected, h.moderationResult(r, nil))
}

// moderationResult re-fetches the whole request list. The decision has
// already been stored, so a failed fetch is logged and leaves Requests empty.
func (h *Handler) moderationResult(r *http.Request, item *pehub.ContentItem) ModerationResult {
	res := ModerationResult{Content: item, Requests: []*pehub.ContentRequestView{}}
	status := pehub.RequestStatus(r.URL.Query().Get("status"))
	if status != "" && !status.IsValid() {
		status = ""
	}
	views, err := h.svc.ListContentRequests(r.Context(), ActorFromContext(r.Context()), status)
	if err != nil {
		h.log.Warn("failed to refresh content requests", "error", err)
		return res
	}
	if views != nil {
		res.Requests = views
	}
	return res
}

// ReconcileApprovals repairs approvals whose content item is missing.
// Admin only.
func (h *Handler) ReconcileApprovals(w http.ResponseWriter, r *http.Request) {
	if !h.requireAdmin(w, r) {
		return
	}
	repaired, err := h.svc.ReconcileApprovals(r.Context())
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.JSON(w, r, map[string]int{"repaired": repaired})
}

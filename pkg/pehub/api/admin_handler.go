package api

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/tendant/pehub/pkg/pehub"
	"github.com/tendant/pehub/pkg/pehub/i18n"
)

// ProfileResponse is the caller's profile with the resolved admin flag.
type ProfileResponse struct {
	*pehub.Profile
	IsAdmin bool `json:"is_admin"`
}

// GetProfile returns the caller's profile, creating it on first sign-in.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor := ActorFromContext(r.Context())
	p, err := h.svc.EnsureProfile(r.Context(), actor)
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.JSON(w, r, ProfileResponse{Profile: p, IsAdmin: p.Role == pehub.RoleAdmin})
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req pehub.UpdateProfileRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateProfile(r.Context(), ActorFromContext(r.Context()), req)
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.JSON(w, r, ProfileResponse{Profile: p, IsAdmin: p.Role == pehub.RoleAdmin})
}

// DeleteAccount removes the caller's profile and everything they created.
func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteAccount(r.Context(), ActorFromContext(r.Context())); err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.NoContent(w, r)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context(), ActorFromContext(r.Context()))
	if err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	render.JSON(w, r, stats)
}

// ListProfiles lists profiles, optionally only those with the role query
// parameter.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	role := pehub.Role(r.URL.Query().Get("role"))
	if role != "" && role != pehub.RoleAdmin && role != pehub.RoleUser {
		h.badRequest(w, r, "role")
		return
	}
	profiles, err := h.svc.ListProfiles(r.Context(), ActorFromContext(r.Context()), role)
	if err != nil {
		h.writeError(w, r, err, i18n.AdminsFetchError)
		return
	}
	if profiles == nil {
		profiles = []*pehub.Profile{}
	}
	render.JSON(w, r, profiles)
}

// PromoteAdmin grants the admin role to the profile with the given email,
// creating the profile when none exists.
func (h *Handler) PromoteAdmin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email string `json:"email"`
	}
	if !h.decode(w, r, &body) {
		return
	}
	p, created, err := h.svc.PromoteAdmin(r.Context(), ActorFromContext(r.Context()), body.Email)
	if err != nil {
		h.writeError(w, r, err, i18n.AdminAddError)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	h.success(w, r, status, "", i18n.AdminAdded, p)
}

func (h *Handler) DemoteAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := h.idParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.DemoteAdmin(r.Context(), ActorFromContext(r.Context()), id); err != nil {
		h.writeError(w, r, err, i18n.GenericError)
		return
	}
	h.success(w, r, http.StatusOK, "", i18n.AdminRemoved, nil)
}

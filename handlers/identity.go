// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/service"
)

type IdentityHandler struct {
	svc      *service.Service
	provider *auth.Provider
	cfg      cliparse.Config
}

func NewIdentityHandler(svc *service.Service, provider *auth.Provider, cfg cliparse.Config) *IdentityHandler {
	return &IdentityHandler{svc: svc, provider: provider, cfg: cfg}
}

// SignIn handles POST /auth/sign-in
// Creates the profile on first use of a username, then issues a token
func (h *IdentityHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req models.SignInRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	session, err := h.provider.SignIn(r.Context(), req.Username)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	status := http.StatusOK
	if session.IsNew {
		status = http.StatusCreated
	}
	middleware.JSONResponse(w, status, session)
}

// SignOut handles POST /auth/sign-out
// Without a token this is a no-op
func (h *IdentityHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if id, ok := auth.FromContext(r.Context()); ok {
		h.provider.SignOut(id)
		slog.Info("signed out", "profile_id", id.ProfileID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *IdentityHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Not signed in")
		return
	}

	profile, err := h.svc.Profile(r.Context(), id.ProfileID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, profile)
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/service"
	"github.com/danielhkuo/livepoll/store"
)

type PollHandler struct {
	svc *service.Service
	cfg cliparse.Config
}

func NewPollHandler(svc *service.Service, cfg cliparse.Config) *PollHandler {
	return &PollHandler{svc: svc, cfg: cfg}
}

// CreatePoll handles POST /polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	poll, err := h.svc.CreatePoll(r.Context(), req, auth.ProfileIDFromContext(r.Context()))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreatePollResponse{
		PollID: poll.ID,
		Poll:   poll,
	})
}

// ListPolls handles GET /polls
// ?mine=true lists the caller's own polls, including private ones
func (h *PollHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	var filter store.ListFilter

	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		filter.Limit = n
	}

	if mine, _ := strconv.ParseBool(r.URL.Query().Get("mine")); mine {
		id, ok := auth.FromContext(r.Context())
		if !ok {
			middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in to list your polls")
			return
		}
		filter.OwnerID = id.ProfileID
	}

	polls, err := h.svc.ListPolls(r.Context(), filter)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.ListPollsResponse{Polls: polls})
}

// GetPoll handles GET /polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	detail, err := h.svc.GetPoll(r.Context(), pollID, auth.ProfileIDFromContext(r.Context()))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, detail)
}

// GetResults handles GET /polls/{id}/results
func (h *PollHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	results, err := h.svc.Results(r.Context(), pollID)
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, results)
}

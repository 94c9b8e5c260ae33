// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/livepoll/auth"
	"github.com/danielhkuo/livepoll/cliparse"
	"github.com/danielhkuo/livepoll/middleware"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/service"
)

type VotingHandler struct {
	svc *service.Service
	cfg cliparse.Config
}

func NewVotingHandler(svc *service.Service, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{svc: svc, cfg: cfg}
}

// SubmitVote handles POST /polls/{id}/votes
func (h *VotingHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	var req models.SubmitVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	resp, err := h.svc.SubmitVote(r.Context(), pollID, req.OptionIndex, auth.ProfileIDFromContext(r.Context()))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// GetMyVote handles GET /polls/{id}/my-vote
func (h *VotingHandler) GetMyVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	if pollID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "poll_id is required")
		return
	}

	voted, err := h.svc.HasVoted(r.Context(), pollID, auth.ProfileIDFromContext(r.Context()))
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.MyVoteResponse{
		PollID:   pollID,
		HasVoted: voted,
	})
}

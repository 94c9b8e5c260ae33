// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/feed"
	"github.com/danielhkuo/livepoll/live"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/tally"
	"github.com/danielhkuo/livepoll/telemetry"
)

// listWorkers bounds concurrent vote fetches when listing polls
const listWorkers = 8

// errProfileGone is returned for a valid token whose profile no longer exists
var errProfileGone = apperr.Unauthenticated("profile no longer exists, sign in again")

type Options struct {
	// RequireSignInToVote rejects anonymous votes
	RequireSignInToVote bool
}

// Service implements poll creation, listing, viewing and voting on top of a
// record store and a change feed.
type Service struct {
	store  store.Store
	feed   feed.Feed
	opts   Options
	tracer trace.Tracer
	now    func() time.Time
}

func New(s store.Store, f feed.Feed, opts Options) *Service {
	return &Service{
		store:  s,
		feed:   f,
		opts:   opts,
		tracer: telemetry.Tracer("service"),
		now:    time.Now,
	}
}

// finish records err on span and ends it
func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(apperr.KindOf(err)))
	}
	span.End()
}

// CreatePoll trims the question and options, drops blank options and stores
// the poll. owner is nil for anonymous callers.
func (s *Service) CreatePoll(ctx context.Context, req models.CreatePollRequest, owner *string) (poll models.Poll, err error) {
	ctx, span := s.tracer.Start(ctx, "service.CreatePoll")
	defer func() { finish(span, err) }()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return models.Poll{}, apperr.Validation("question is required")
	}
	if len(req.Options) > models.MaxOptions {
		return models.Poll{}, apperr.Validation("a poll can have at most %d options", models.MaxOptions)
	}

	options := make([]string, 0, len(req.Options))
	for _, opt := range req.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	if len(options) < models.MinOptions {
		return models.Poll{}, apperr.Validation("at least %d non-empty options are required", models.MinOptions)
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	poll = models.Poll{
		ID:        uuid.NewString(),
		Question:  question,
		Options:   options,
		OwnerID:   owner,
		Public:    public,
		CreatedAt: s.now().UTC(),
	}
	span.SetAttributes(attribute.String("poll.id", poll.ID), attribute.Int("poll.options", len(options)))

	if err := s.store.CreatePoll(ctx, poll); err != nil {
		// The owner is the only reference a new poll makes, so a missing
		// reference means the token outlived its profile
		if owner != nil && apperr.Is(err, apperr.KindNotFound) {
			return models.Poll{}, errProfileGone
		}
		return models.Poll{}, apperr.Store("create poll", err)
	}

	metrics.PollsCreated.Inc()
	slog.Info("poll created", "poll_id", poll.ID, "options", len(options), "public", public)
	return poll, nil
}

// ListPolls returns poll summaries, newest first. Vote rows for the listed
// polls are fetched concurrently.
func (s *Service) ListPolls(ctx context.Context, filter store.ListFilter) (summaries []models.PollSummary, err error) {
	ctx, span := s.tracer.Start(ctx, "service.ListPolls")
	defer func() { finish(span, err) }()

	polls, err := s.store.ListPolls(ctx, filter)
	if err != nil {
		return nil, apperr.Store("list polls", err)
	}
	span.SetAttributes(attribute.Int("polls", len(polls)))

	now := s.now()
	summaries = make([]models.PollSummary, len(polls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listWorkers)
	for i, poll := range polls {
		g.Go(func() error {
			votes, err := s.store.ListVotes(gctx, poll.ID)
			if err != nil {
				return apperr.Store("list votes", err)
			}
			t := tally.Aggregate(len(poll.Options), votes)
			summaries[i] = models.PollSummary{
				ID:          poll.ID,
				Question:    poll.Question,
				OptionCount: len(poll.Options),
				TotalVotes:  t.Total,
				Options:     tally.Results(poll, t).Options,
				Public:      poll.Public,
				CreatedAt:   poll.CreatedAt,
				CreatedAgo:  humanize.RelTime(poll.CreatedAt, now, "ago", "from now"),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// results loads a poll and aggregates its votes
func (s *Service) results(ctx context.Context, pollID string) (models.Poll, tally.Tally, error) {
	poll, err := s.store.GetPoll(ctx, pollID)
	if err != nil {
		return models.Poll{}, tally.Tally{}, apperr.Store("get poll", err)
	}
	votes, err := s.store.ListVotes(ctx, pollID)
	if err != nil {
		return models.Poll{}, tally.Tally{}, apperr.Store("list votes", err)
	}
	return poll, tally.Aggregate(len(poll.Options), votes), nil
}

// GetPoll returns the poll, its results and whether voter has voted on it
func (s *Service) GetPoll(ctx context.Context, pollID string, voter *string) (detail models.PollDetail, err error) {
	ctx, span := s.tracer.Start(ctx, "service.GetPoll", trace.WithAttributes(attribute.String("poll.id", pollID)))
	defer func() { finish(span, err) }()

	poll, t, err := s.results(ctx, pollID)
	if err != nil {
		return models.PollDetail{}, err
	}

	hasVoted := false
	if voter != nil {
		if hasVoted, err = s.store.HasVoted(ctx, pollID, *voter); err != nil {
			return models.PollDetail{}, apperr.Store("check vote", err)
		}
	}

	return models.PollDetail{
		Poll:     poll,
		Results:  tally.Results(poll, t),
		HasVoted: hasVoted,
	}, nil
}

// Results returns the aggregated results of a poll
func (s *Service) Results(ctx context.Context, pollID string) (results models.PollResults, err error) {
	ctx, span := s.tracer.Start(ctx, "service.Results", trace.WithAttributes(attribute.String("poll.id", pollID)))
	defer func() { finish(span, err) }()

	poll, t, err := s.results(ctx, pollID)
	if err != nil {
		return models.PollResults{}, err
	}
	return tally.Results(poll, t), nil
}

// SubmitVote records one vote and publishes it to the change feed.
//
// A nil option is rejected before the store is touched. Identified voters get
// one vote per poll; anonymous votes are accepted unless sign-in is required.
// The returned results include the new vote even if the feed is down.
func (s *Service) SubmitVote(ctx context.Context, pollID string, option *int, voter *string) (resp models.SubmitVoteResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "service.SubmitVote", trace.WithAttributes(attribute.String("poll.id", pollID)))
	defer func() {
		finish(span, err)
		switch {
		case err == nil:
			metrics.VotesSubmitted.WithLabelValues(metrics.OutcomeAccepted).Inc()
		case apperr.KindOf(err) == apperr.KindStore || apperr.KindOf(err) == apperr.KindInternal:
			metrics.VotesSubmitted.WithLabelValues(metrics.OutcomeFailed).Inc()
		default:
			metrics.VotesSubmitted.WithLabelValues(metrics.OutcomeRejected).Inc()
		}
	}()

	if option == nil {
		return models.SubmitVoteResponse{}, apperr.Validation("an option must be selected")
	}
	if voter == nil && s.opts.RequireSignInToVote {
		return models.SubmitVoteResponse{}, apperr.Unauthenticated("sign in to vote")
	}

	poll, t, err := s.results(ctx, pollID)
	if err != nil {
		return models.SubmitVoteResponse{}, err
	}
	if *option < 0 || *option >= len(poll.Options) {
		return models.SubmitVoteResponse{}, apperr.Validation("option_index must be between 0 and %d", len(poll.Options)-1)
	}

	if voter != nil {
		voted, err := s.store.HasVoted(ctx, pollID, *voter)
		if err != nil {
			return models.SubmitVoteResponse{}, apperr.Store("check vote", err)
		}
		if voted {
			return models.SubmitVoteResponse{}, apperr.Conflict("already voted on this poll")
		}
	}

	vote := models.Vote{
		ID:          uuid.NewString(),
		PollID:      pollID,
		OptionIndex: *option,
		VoterID:     voter,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.InsertVote(ctx, vote); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return models.SubmitVoteResponse{}, apperr.Conflict("already voted on this poll")
		}
		return models.SubmitVoteResponse{}, apperr.Store("insert vote", err)
	}

	ev := models.EventFromVote(vote)
	if err := s.feed.Publish(ctx, ev); err != nil {
		metrics.PublishFailures.Inc()
		slog.Warn("failed to publish vote event", "poll_id", pollID, "vote_id", vote.ID, "error", err)
	}

	slog.Info("vote recorded", "poll_id", pollID, "vote_id", vote.ID, "option_index", vote.OptionIndex)

	return models.SubmitVoteResponse{
		VoteID:  vote.ID,
		Message: "Vote recorded",
		Results: tally.Results(poll, tally.Fold(t, ev)),
	}, nil
}

// HasVoted reports whether voter has voted on the poll. Anonymous callers
// have never voted.
func (s *Service) HasVoted(ctx context.Context, pollID string, voter *string) (bool, error) {
	if _, err := s.store.GetPoll(ctx, pollID); err != nil {
		return false, apperr.Store("get poll", err)
	}
	if voter == nil {
		return false, nil
	}
	voted, err := s.store.HasVoted(ctx, pollID, *voter)
	if err != nil {
		return false, apperr.Store("check vote", err)
	}
	return voted, nil
}

// OpenLive opens a live view of the poll's tally
func (s *Service) OpenLive(ctx context.Context, pollID string) (*live.View, error) {
	return live.Open(ctx, s.store, s.feed, pollID)
}

// Profile returns a profile by ID
func (s *Service) Profile(ctx context.Context, id string) (models.Profile, error) {
	profile, err := s.store.GetProfile(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return models.Profile{}, errProfileGone
		}
		return models.Profile{}, apperr.Store("get profile", err)
	}
	return profile, nil
}

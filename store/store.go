// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"

	"github.com/danielhkuo/livepoll/models"
)

// Store is the storage port. Implementations return apperr-classified errors:
// NotFound for missing records, Conflict for uniqueness violations and Store
// for everything else.
type Store interface {
	CreatePoll(ctx context.Context, poll models.Poll) error
	ListPolls(ctx context.Context, filter ListFilter) ([]models.Poll, error)
	GetPoll(ctx context.Context, id string) (models.Poll, error)

	ListVotes(ctx context.Context, pollID string) ([]models.Vote, error)
	InsertVote(ctx context.Context, vote models.Vote) error
	HasVoted(ctx context.Context, pollID, voterID string) (bool, error)

	CreateProfile(ctx context.Context, profile models.Profile) error
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	GetProfileByUsername(ctx context.Context, username string) (models.Profile, error)

	Close() error
}

// ListFilter selects polls for listing, newest first.
// With OwnerID set, all of that owner's polls are returned (public or not);
// otherwise only public polls are.
type ListFilter struct {
	OwnerID string
	Limit   int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// EffectiveLimit clamps Limit to (0, MaxListLimit]
func (f ListFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultListLimit
	case f.Limit > MaxListLimit:
		return MaxListLimit
	}
	return f.Limit
}

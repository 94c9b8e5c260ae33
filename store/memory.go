// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/models"
)

// MemoryStore is a process-local Store. Voted polls are tracked per voter as
// a set of poll IDs.
type MemoryStore struct {
	mu       sync.RWMutex
	polls    map[string]models.Poll
	votes    map[string][]models.Vote       // poll_id -> votes
	voted    map[string]map[string]struct{} // voter_id -> poll_ids
	profiles map[string]models.Profile
	byName   map[string]string // username -> profile_id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		polls:    make(map[string]models.Poll),
		votes:    make(map[string][]models.Vote),
		voted:    make(map[string]map[string]struct{}),
		profiles: make(map[string]models.Profile),
		byName:   make(map[string]string),
	}
}

func (m *MemoryStore) Close() error {
	return nil
}

func (m *MemoryStore) CreatePoll(ctx context.Context, poll models.Poll) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("insert poll", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.polls[poll.ID]; exists {
		return apperr.Conflict("poll %s already exists", poll.ID)
	}
	if poll.OwnerID != nil {
		if _, ok := m.profiles[*poll.OwnerID]; !ok {
			return apperr.NotFound("profile", *poll.OwnerID)
		}
	}

	poll.Options = append([]string(nil), poll.Options...)
	m.polls[poll.ID] = poll
	return nil
}

func (m *MemoryStore) ListPolls(ctx context.Context, filter ListFilter) ([]models.Poll, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("list polls", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	polls := []models.Poll{}
	for _, p := range m.polls {
		if filter.OwnerID != "" {
			if p.OwnerID == nil || *p.OwnerID != filter.OwnerID {
				continue
			}
		} else if !p.Public {
			continue
		}
		polls = append(polls, p)
	}

	sort.Slice(polls, func(i, j int) bool {
		if !polls[i].CreatedAt.Equal(polls[j].CreatedAt) {
			return polls[i].CreatedAt.After(polls[j].CreatedAt)
		}
		return polls[i].ID > polls[j].ID
	})

	if limit := filter.EffectiveLimit(); len(polls) > limit {
		polls = polls[:limit]
	}
	return polls, nil
}

func (m *MemoryStore) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	if err := ctx.Err(); err != nil {
		return models.Poll{}, apperr.Store("get poll", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	poll, ok := m.polls[id]
	if !ok {
		return models.Poll{}, apperr.NotFound("poll", id)
	}
	return poll, nil
}

func (m *MemoryStore) ListVotes(ctx context.Context, pollID string) ([]models.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Store("list votes", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	votes := make([]models.Vote, len(m.votes[pollID]))
	copy(votes, m.votes[pollID])
	return votes, nil
}

func (m *MemoryStore) InsertVote(ctx context.Context, vote models.Vote) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("insert vote", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.polls[vote.PollID]; !ok {
		return apperr.NotFound("poll", vote.PollID)
	}
	if vote.VoterID != nil {
		if _, dup := m.voted[*vote.VoterID][vote.PollID]; dup {
			return apperr.Conflict("voter has already voted on poll %s", vote.PollID)
		}
		if m.voted[*vote.VoterID] == nil {
			m.voted[*vote.VoterID] = make(map[string]struct{})
		}
		m.voted[*vote.VoterID][vote.PollID] = struct{}{}
	}

	m.votes[vote.PollID] = append(m.votes[vote.PollID], vote)
	return nil
}

func (m *MemoryStore) HasVoted(ctx context.Context, pollID, voterID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperr.Store("check vote", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.voted[voterID][pollID]
	return ok, nil
}

func (m *MemoryStore) CreateProfile(ctx context.Context, profile models.Profile) error {
	if err := ctx.Err(); err != nil {
		return apperr.Store("insert profile", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, taken := m.byName[profile.Username]; taken {
		return apperr.Conflict("username %s already taken", profile.Username)
	}
	if _, exists := m.profiles[profile.ID]; exists {
		return apperr.Conflict("profile %s already exists", profile.ID)
	}

	m.profiles[profile.ID] = profile
	m.byName[profile.Username] = profile.ID
	return nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return models.Profile{}, apperr.Store("get profile", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[id]
	if !ok {
		return models.Profile{}, apperr.NotFound("profile", id)
	}
	return p, nil
}

func (m *MemoryStore) GetProfileByUsername(ctx context.Context, username string) (models.Profile, error) {
	if err := ctx.Err(); err != nil {
		return models.Profile{}, apperr.Store("get profile", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[username]
	if !ok {
		return models.Profile{}, apperr.NotFound("profile", username)
	}
	return m.profiles[id], nil
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/feed"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
)

// spyStore counts every call that reaches the store
type spyStore struct {
	store.Store
	mu        sync.Mutex
	calls     int
	inserts   int
	insertErr error
}

func (s *spyStore) count() {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
}

func (s *spyStore) GetPoll(ctx context.Context, id string) (models.Poll, error) {
	s.count()
	return s.Store.GetPoll(ctx, id)
}

func (s *spyStore) ListVotes(ctx context.Context, pollID string) ([]models.Vote, error) {
	s.count()
	return s.Store.ListVotes(ctx, pollID)
}

func (s *spyStore) HasVoted(ctx context.Context, pollID, voterID string) (bool, error) {
	s.count()
	return s.Store.HasVoted(ctx, pollID, voterID)
}

func (s *spyStore) InsertVote(ctx context.Context, vote models.Vote) error {
	s.count()
	s.mu.Lock()
	s.inserts++
	s.mu.Unlock()
	if s.insertErr != nil {
		return s.insertErr
	}
	return s.Store.InsertVote(ctx, vote)
}

// brokenFeed fails every publish
type brokenFeed struct {
	feed.Feed
}

func (brokenFeed) Publish(context.Context, models.VoteEvent) error {
	return errors.New("feed unavailable")
}

func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func newTestService(t *testing.T, opts Options) (*Service, *spyStore, *feed.Hub) {
	t.Helper()
	spy := &spyStore{Store: store.NewMemoryStore()}
	hub := feed.NewHub()
	t.Cleanup(func() { hub.Close() })
	return New(spy, hub, opts), spy, hub
}

func createPoll(t *testing.T, svc *Service, options ...string) models.Poll {
	t.Helper()
	poll, err := svc.CreatePoll(context.Background(), models.CreatePollRequest{
		Question: "Best editor?",
		Options:  options,
	}, nil)
	if err != nil {
		t.Fatalf("Failed to create poll: %v", err)
	}
	return poll
}

func TestCreatePoll(t *testing.T) {
	tests := []struct {
		name        string
		req         models.CreatePollRequest
		wantOptions []string
		wantErr     bool
	}{
		{
			name:        "blank options filtered",
			req:         models.CreatePollRequest{Question: "Q?", Options: []string{"", " ", "X", "Y"}},
			wantOptions: []string{"X", "Y"},
		},
		{
			name:        "fields trimmed",
			req:         models.CreatePollRequest{Question: "  Q?  ", Options: []string{" a ", "b "}},
			wantOptions: []string{"a", "b"},
		},
		{
			name:    "empty question",
			req:     models.CreatePollRequest{Question: "   ", Options: []string{"a", "b"}},
			wantErr: true,
		},
		{
			name:    "one option left",
			req:     models.CreatePollRequest{Question: "Q?", Options: []string{"a", "  "}},
			wantErr: true,
		},
		{
			name:    "too many options",
			req:     models.CreatePollRequest{Question: "Q?", Options: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10", "11"}},
			wantErr: true,
		},
		{
			name:        "ten options",
			req:         models.CreatePollRequest{Question: "Q?", Options: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"}},
			wantOptions: []string{"1", "2", "3", "4", "5", "6", "7", "8", "9", "10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, spy, _ := newTestService(t, Options{})

			poll, err := svc.CreatePoll(context.Background(), tt.req, nil)
			if tt.wantErr {
				if !apperr.Is(err, apperr.KindValidation) {
					t.Fatalf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreatePoll failed: %v", err)
			}

			stored, err := spy.Store.GetPoll(context.Background(), poll.ID)
			if err != nil {
				t.Fatalf("Poll not stored: %v", err)
			}
			if len(stored.Options) != len(tt.wantOptions) {
				t.Fatalf("Expected options %v, got %v", tt.wantOptions, stored.Options)
			}
			for i := range tt.wantOptions {
				if stored.Options[i] != tt.wantOptions[i] {
					t.Errorf("Option %d: expected %q, got %q", i, tt.wantOptions[i], stored.Options[i])
				}
			}
		})
	}
}

func TestCreatePoll_OwnerAndVisibility(t *testing.T) {
	svc, spy, _ := newTestService(t, Options{})
	ctx := context.Background()

	profile := models.Profile{ID: "profile-1", Username: "owner", CreatedAt: time.Now()}
	if err := spy.Store.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("Failed to create profile: %v", err)
	}

	poll, err := svc.CreatePoll(ctx, models.CreatePollRequest{Question: "Q?", Options: []string{"a", "b"}}, nil)
	if err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}
	if !poll.Public {
		t.Error("Expected polls to be public by default")
	}
	if poll.OwnerID != nil {
		t.Error("Expected anonymous poll to have no owner")
	}

	owner := strPtr("profile-1")
	poll, err = svc.CreatePoll(ctx, models.CreatePollRequest{Question: "Q?", Options: []string{"a", "b"}, Public: boolPtr(false)}, owner)
	if err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}
	if poll.Public {
		t.Error("Expected private poll")
	}
	if poll.OwnerID == nil || *poll.OwnerID != "profile-1" {
		t.Errorf("Expected owner profile-1, got %v", poll.OwnerID)
	}
}

func TestCreatePoll_OwnerProfileGone(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})

	_, err := svc.CreatePoll(context.Background(), models.CreatePollRequest{
		Question: "Q?",
		Options:  []string{"a", "b"},
	}, strPtr("deleted-profile"))
	if !apperr.Is(err, apperr.KindUnauthenticated) {
		t.Fatalf("Expected unauthenticated error, got %v", err)
	}
}

func TestProfile_Gone(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})

	_, err := svc.Profile(context.Background(), "deleted-profile")
	if !apperr.Is(err, apperr.KindUnauthenticated) {
		t.Fatalf("Expected unauthenticated error, got %v", err)
	}
}

func TestSubmitVote_NilOptionDoesNotTouchStore(t *testing.T) {
	svc, spy, _ := newTestService(t, Options{})
	poll := createPoll(t, svc, "A", "B")
	spy.calls = 0

	_, err := svc.SubmitVote(context.Background(), poll.ID, nil, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if spy.calls != 0 {
		t.Errorf("Expected no store calls, got %d", spy.calls)
	}
}

func TestSubmitVote(t *testing.T) {
	svc, spy, hub := newTestService(t, Options{})
	poll := createPoll(t, svc, "A", "B", "C")
	ctx := context.Background()

	var events []models.VoteEvent
	sub, err := hub.Subscribe(ctx, poll.ID, func(ev models.VoteEvent) { events = append(events, ev) })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	resp, err := svc.SubmitVote(ctx, poll.ID, intPtr(1), nil)
	if err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	if resp.VoteID == "" {
		t.Error("Expected a vote ID")
	}
	if resp.Results.TotalVotes != 1 || resp.Results.Options[1].Votes != 1 {
		t.Errorf("Expected results to include the vote, got %+v", resp.Results)
	}
	if spy.inserts != 1 {
		t.Errorf("Expected 1 insert, got %d", spy.inserts)
	}
	if len(events) != 1 || events[0].VoteID != resp.VoteID || events[0].OptionIndex != 1 {
		t.Errorf("Expected one published event for the vote, got %+v", events)
	}
}

func TestSubmitVote_Rejections(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		opts     Options
		pollID   func(poll models.Poll) string
		option   *int
		voter    *string
		wantKind apperr.Kind
	}{
		{"negative option", Options{}, nil, intPtr(-1), nil, apperr.KindValidation},
		{"option out of range", Options{}, nil, intPtr(2), nil, apperr.KindValidation},
		{"unknown poll", Options{}, func(models.Poll) string { return "missing" }, intPtr(0), nil, apperr.KindNotFound},
		{"anonymous with sign-in required", Options{RequireSignInToVote: true}, nil, intPtr(0), nil, apperr.KindUnauthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, spy, _ := newTestService(t, tt.opts)
			poll := createPoll(t, svc, "A", "B")
			pollID := poll.ID
			if tt.pollID != nil {
				pollID = tt.pollID(poll)
			}

			_, err := svc.SubmitVote(ctx, pollID, tt.option, tt.voter)
			if !apperr.Is(err, tt.wantKind) {
				t.Fatalf("Expected %s, got %v", tt.wantKind, err)
			}
			if spy.inserts != 0 {
				t.Errorf("Expected no insert, got %d", spy.inserts)
			}
		})
	}
}

func TestSubmitVote_OneVotePerIdentifiedVoter(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	poll := createPoll(t, svc, "A", "B")
	ctx := context.Background()
	voter := strPtr("profile-1")

	if _, err := svc.SubmitVote(ctx, poll.ID, intPtr(0), voter); err != nil {
		t.Fatalf("First vote failed: %v", err)
	}
	if _, err := svc.SubmitVote(ctx, poll.ID, intPtr(1), voter); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Expected conflict on second vote, got %v", err)
	}

	// Anonymous votes are not limited
	for i := 0; i < 2; i++ {
		if _, err := svc.SubmitVote(ctx, poll.ID, intPtr(1), nil); err != nil {
			t.Fatalf("Anonymous vote failed: %v", err)
		}
	}

	results, err := svc.Results(ctx, poll.ID)
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if results.TotalVotes != 3 {
		t.Errorf("Expected 3 votes, got %d", results.TotalVotes)
	}
}

func TestSubmitVote_StoreFailure(t *testing.T) {
	svc, spy, hub := newTestService(t, Options{})
	poll := createPoll(t, svc, "A", "B")
	spy.insertErr = apperr.Store("insert vote", errors.New("disk full"))

	published := 0
	sub, _ := hub.Subscribe(context.Background(), poll.ID, func(models.VoteEvent) { published++ })
	defer sub.Unsubscribe()

	_, err := svc.SubmitVote(context.Background(), poll.ID, intPtr(0), nil)
	if !apperr.Is(err, apperr.KindStore) {
		t.Fatalf("Expected store error, got %v", err)
	}
	if published != 0 {
		t.Errorf("Expected nothing published after a failed write, got %d", published)
	}
}

func TestSubmitVote_PublishFailureStillSucceeds(t *testing.T) {
	mem := store.NewMemoryStore()
	svc := New(mem, brokenFeed{}, Options{})
	poll := createPoll(t, svc, "A", "B")

	resp, err := svc.SubmitVote(context.Background(), poll.ID, intPtr(0), nil)
	if err != nil {
		t.Fatalf("Expected vote to succeed despite feed failure, got %v", err)
	}
	if resp.Results.TotalVotes != 1 {
		t.Errorf("Expected 1 vote in results, got %d", resp.Results.TotalVotes)
	}
}

func TestGetPoll(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	poll := createPoll(t, svc, "A", "B", "C")
	ctx := context.Background()
	voter := strPtr("profile-1")

	for _, opt := range []int{0, 0, 1} {
		if _, err := svc.SubmitVote(ctx, poll.ID, intPtr(opt), nil); err != nil {
			t.Fatalf("SubmitVote failed: %v", err)
		}
	}

	detail, err := svc.GetPoll(ctx, poll.ID, voter)
	if err != nil {
		t.Fatalf("GetPoll failed: %v", err)
	}
	if detail.HasVoted {
		t.Error("Expected has_voted false before voting")
	}
	want := []int{67, 33, 0}
	for i, opt := range detail.Results.Options {
		if opt.Percent != want[i] {
			t.Errorf("Option %d: expected %d%%, got %d%%", i, want[i], opt.Percent)
		}
	}
	if len(detail.Results.Segments) != 3 {
		t.Errorf("Expected 3 segments, got %d", len(detail.Results.Segments))
	}

	if _, err := svc.SubmitVote(ctx, poll.ID, intPtr(2), voter); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}
	detail, err = svc.GetPoll(ctx, poll.ID, voter)
	if err != nil {
		t.Fatalf("GetPoll failed: %v", err)
	}
	if !detail.HasVoted {
		t.Error("Expected has_voted true after voting")
	}

	if _, err := svc.GetPoll(ctx, "missing", nil); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Expected not_found, got %v", err)
	}
}

func TestHasVoted(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	poll := createPoll(t, svc, "A", "B")
	ctx := context.Background()

	voted, err := svc.HasVoted(ctx, poll.ID, nil)
	if err != nil || voted {
		t.Errorf("Expected anonymous caller to have not voted, got %v, %v", voted, err)
	}
	if _, err := svc.HasVoted(ctx, "missing", strPtr("p")); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Expected not_found, got %v", err)
	}
}

func TestListPolls(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	ctx := context.Background()

	base := time.Now()
	for i, q := range []string{"first", "second", "third"} {
		svc.now = func() time.Time { return base.Add(time.Duration(i) * time.Minute) }
		poll, err := svc.CreatePoll(ctx, models.CreatePollRequest{Question: q, Options: []string{"a", "b"}}, nil)
		if err != nil {
			t.Fatalf("CreatePoll failed: %v", err)
		}
		for v := 0; v <= i; v++ {
			if _, err := svc.SubmitVote(ctx, poll.ID, intPtr(v%2), nil); err != nil {
				t.Fatalf("SubmitVote failed: %v", err)
			}
		}
	}
	svc.now = func() time.Time { return base.Add(time.Hour) }

	summaries, err := svc.ListPolls(ctx, store.ListFilter{})
	if err != nil {
		t.Fatalf("ListPolls failed: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("Expected 3 polls, got %d", len(summaries))
	}

	wantOrder := []string{"third", "second", "first"}
	wantVotes := []int{3, 2, 1}
	for i, s := range summaries {
		if s.Question != wantOrder[i] {
			t.Errorf("Position %d: expected %q, got %q", i, wantOrder[i], s.Question)
		}
		if s.TotalVotes != wantVotes[i] {
			t.Errorf("Poll %q: expected %d votes, got %d", s.Question, wantVotes[i], s.TotalVotes)
		}
		if s.OptionCount != 2 || len(s.Options) != 2 {
			t.Errorf("Poll %q: expected 2 options", s.Question)
		}
		if s.CreatedAgo == "" {
			t.Errorf("Poll %q: expected created_ago", s.Question)
		}
	}
}

func TestOpenLive_SeesSubmittedVotes(t *testing.T) {
	svc, _, _ := newTestService(t, Options{})
	poll := createPoll(t, svc, "A", "B")
	ctx := context.Background()

	view, err := svc.OpenLive(ctx, poll.ID)
	if err != nil {
		t.Fatalf("OpenLive failed: %v", err)
	}
	defer view.Close()

	if _, err := svc.SubmitVote(ctx, poll.ID, intPtr(1), nil); err != nil {
		t.Fatalf("SubmitVote failed: %v", err)
	}

	select {
	case results := <-view.Updates():
		if results.Options[1].Votes != 1 {
			t.Errorf("Expected live view to count the vote, got %+v", results.Options)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for live update")
	}
}

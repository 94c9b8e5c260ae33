// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"log/slog"
	"sync"

	"github.com/danielhkuo/livepoll/apperr"
	"github.com/danielhkuo/livepoll/feed"
	"github.com/danielhkuo/livepoll/metrics"
	"github.com/danielhkuo/livepoll/models"
	"github.com/danielhkuo/livepoll/store"
	"github.com/danielhkuo/livepoll/tally"
)

// View is one viewer's live tally for a poll.
type View struct {
	poll models.Poll

	sub feed.Subscription

	// fetched holds the vote IDs seen by the initial load
	fetched map[string]struct{}

	mu      sync.Mutex
	pending []models.VoteEvent
	current tally.Tally
	closed  bool

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
	updates chan models.PollResults

	closeOnce sync.Once
}

// Open subscribes to the poll's change feed, then loads the poll and its votes.
// Events delivered while the load is in flight are replayed on top of the
// loaded tally unless the load already contained their vote.
func Open(ctx context.Context, s store.Store, f feed.Feed, pollID string) (*View, error) {
	v := &View{
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		updates: make(chan models.PollResults, 1),
	}

	sub, err := f.Subscribe(ctx, pollID, v.enqueue)
	if err != nil {
		return nil, apperr.Internal("subscribe to change feed", err)
	}

	poll, err := s.GetPoll(ctx, pollID)
	if err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}
	votes, err := s.ListVotes(ctx, pollID)
	if err != nil {
		_ = sub.Unsubscribe()
		return nil, err
	}

	v.poll = poll
	v.sub = sub
	v.fetched = make(map[string]struct{}, len(votes))
	for _, vote := range votes {
		v.fetched[vote.ID] = struct{}{}
	}

	v.mu.Lock()
	v.current = tally.Aggregate(len(poll.Options), votes)
	v.mu.Unlock()

	metrics.LiveViews.Inc()
	go v.run()

	slog.Debug("live view opened", "poll_id", pollID, "votes", len(votes))
	return v, nil
}

// enqueue is the feed handler. It never blocks the publisher.
func (v *View) enqueue(ev models.VoteEvent) {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.pending = append(v.pending, ev)
	v.mu.Unlock()

	select {
	case v.wake <- struct{}{}:
	default:
	}
}

// run folds queued events one at a time until the view is closed
func (v *View) run() {
	defer close(v.stopped)
	defer close(v.updates)

	for {
		select {
		case <-v.done:
			return
		case <-v.wake:
			v.drain()
		}
	}
}

func (v *View) drain() {
	v.mu.Lock()
	batch := v.pending
	v.pending = nil
	v.mu.Unlock()

	changed := false
	for _, ev := range batch {
		select {
		case <-v.done:
			return
		default:
		}

		if ev.PollID != v.poll.ID {
			continue
		}
		if _, seen := v.fetched[ev.VoteID]; seen && ev.VoteID != "" {
			continue
		}

		v.mu.Lock()
		v.current = tally.Fold(v.current, ev)
		v.mu.Unlock()
		changed = true
		metrics.LiveEventsFolded.Inc()
	}

	if changed {
		v.publish(v.Snapshot())
	}
}

// publish replaces any unread update with the latest results
func (v *View) publish(results models.PollResults) {
	for {
		select {
		case v.updates <- results:
			return
		default:
		}
		select {
		case <-v.updates:
		default:
		}
	}
}

// Poll returns the poll this view tracks
func (v *View) Poll() models.Poll {
	return v.poll
}

// Tally returns a copy of the current counts
func (v *View) Tally() tally.Tally {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current.Clone()
}

// Snapshot returns the current results
func (v *View) Snapshot() models.PollResults {
	return tally.Results(v.poll, v.Tally())
}

// Updates delivers the latest results after each folded batch of events.
// Unread results are replaced by newer ones. The channel is closed by Close.
func (v *View) Updates() <-chan models.PollResults {
	return v.updates
}

// Close releases the feed subscription and stops folding. After Close
// returns the tally no longer changes. Close is idempotent.
func (v *View) Close() error {
	var err error
	v.closeOnce.Do(func() {
		v.mu.Lock()
		v.closed = true
		v.pending = nil
		v.mu.Unlock()

		err = v.sub.Unsubscribe()
		close(v.done)
		<-v.stopped

		metrics.LiveViews.Dec()
		slog.Debug("live view closed", "poll_id", v.poll.ID)
	})
	return err
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/danielhkuo/livepoll/models"
)

var ErrClosed = errors.New("feed closed")

// Hub is an in-process Feed. Publish calls every handler registered for the
// event's poll synchronously, in the publisher's goroutine.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*hubSub]struct{} // poll_id -> subscriptions
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[string]map[*hubSub]struct{})}
}

type hubSub struct {
	hub     *Hub
	pollID  string
	handler Handler
	once    sync.Once
}

func (s *hubSub) Unsubscribe() error {
	s.once.Do(func() {
		s.hub.remove(s)
	})
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, pollID string, handler Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	sub := &hubSub{hub: h, pollID: pollID, handler: handler}
	if h.subs[pollID] == nil {
		h.subs[pollID] = make(map[*hubSub]struct{})
	}
	h.subs[pollID][sub] = struct{}{}
	return sub, nil
}

func (h *Hub) remove(sub *hubSub) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.subs[sub.pollID], sub)
	if len(h.subs[sub.pollID]) == 0 {
		delete(h.subs, sub.pollID)
	}
}

func (h *Hub) Publish(ctx context.Context, ev models.VoteEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return ErrClosed
	}
	handlers := make([]Handler, 0, len(h.subs[ev.PollID]))
	for sub := range h.subs[ev.PollID] {
		handlers = append(handlers, sub.handler)
	}
	h.mu.RUnlock()

	// Handlers run outside the lock so they may unsubscribe
	for _, handle := range handlers {
		handle(ev)
	}
	return nil
}

// Subscribers returns the number of subscriptions open for a poll
func (h *Hub) Subscribers(pollID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[pollID])
}

func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	h.subs = make(map[string]map[*hubSub]struct{})
	return nil
}

// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/danielhkuo/livepoll/models"
)

// Handler receives insert events for one poll. Handlers may be invoked from
// a backend's delivery goroutine and should return quickly.
type Handler func(models.VoteEvent)

// Subscription is a live registration on the feed.
// Unsubscribe is idempotent.
type Subscription interface {
	Unsubscribe() error
}

// Feed is the change-feed port: vote insert events fanned out by poll ID.
type Feed interface {
	Publish(ctx context.Context, ev models.VoteEvent) error
	Subscribe(ctx context.Context, pollID string, handler Handler) (Subscription, error)
	Close() error
}

// Backend names accepted by FEED_BACKEND
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendNATS   = "nats"
)

// Options configures New
type Options struct {
	Backend  string
	RedisURL string
	NATSURL  string
}

// New builds the feed selected by opts.Backend
func New(ctx context.Context, opts Options) (Feed, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Backend)) {
	case "", BackendMemory:
		return NewHub(), nil
	case BackendRedis:
		return NewRedisFeed(ctx, opts.RedisURL)
	case BackendNATS:
		return NewNATSFeed(opts.NATSURL)
	}
	return nil, fmt.Errorf("unsupported feed backend %q", opts.Backend)
}

func encodeEvent(ev models.VoteEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode vote event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (models.VoteEvent, error) {
	var ev models.VoteEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return models.VoteEvent{}, fmt.Errorf("decode vote event: %w", err)
	}
	return ev, nil
}

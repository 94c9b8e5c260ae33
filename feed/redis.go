// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/danielhkuo/livepoll/models"
)

// RedisFeed fans vote events out through Redis Pub/Sub, one channel per poll.
type RedisFeed struct {
	client *redis.Client
}

// RedisChannel returns the Pub/Sub channel carrying a poll's vote events
func RedisChannel(pollID string) string {
	return "poll:" + pollID + ":votes"
}

// NewRedisFeed connects to url (redis://[:password@]host:port/db) and pings it
func NewRedisFeed(ctx context.Context, url string) (*RedisFeed, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is required for the redis feed")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	slog.Info("redis feed connected", "addr", opts.Addr)
	return &RedisFeed{client: client}, nil
}

func (f *RedisFeed) Publish(ctx context.Context, ev models.VoteEvent) error {
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, RedisChannel(ev.PollID), data).Err(); err != nil {
		return fmt.Errorf("publish vote event: %w", err)
	}
	return nil
}

type redisSub struct {
	pubsub *redis.PubSub
	once   sync.Once
	err    error
}

func (s *redisSub) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.pubsub.Close()
	})
	return s.err
}

func (f *RedisFeed) Subscribe(ctx context.Context, pollID string, handler Handler) (Subscription, error) {
	pubsub := f.client.Subscribe(ctx, RedisChannel(pollID))

	// Wait for the subscribe confirmation so no event published after
	// Subscribe returns can be missed
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", RedisChannel(pollID), err)
	}

	ch := pubsub.Channel()
	go func() {
		for msg := range ch {
			ev, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				slog.Warn("dropping malformed vote event", "channel", msg.Channel, "error", err)
				continue
			}
			handler(ev)
		}
	}()

	return &redisSub{pubsub: pubsub}, nil
}

func (f *RedisFeed) Close() error {
	return f.client.Close()
}

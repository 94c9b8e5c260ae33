// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/danielhkuo/livepoll/models"
)

// NATSFeed fans vote events out over core NATS subjects, one per poll.
type NATSFeed struct {
	nc *nats.Conn
}

// NATSSubject returns the subject carrying a poll's vote events
func NATSSubject(pollID string) string {
	return "polls." + pollID + ".votes"
}

func NewNATSFeed(url string) (*NATSFeed, error) {
	if url == "" {
		url = nats.DefaultURL
	}

	nc, err := nats.Connect(url,
		nats.Name("livepoll"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	slog.Info("nats feed connected", "url", nc.ConnectedUrl())
	return &NATSFeed{nc: nc}, nil
}

// Publish publishes the event. NATS Publish does not take a context, so the
// context is only checked before publishing.
func (f *NATSFeed) Publish(ctx context.Context, ev models.VoteEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before publish: %w", err)
	}
	data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if err := f.nc.Publish(NATSSubject(ev.PollID), data); err != nil {
		return fmt.Errorf("publish vote event: %w", err)
	}
	return nil
}

type natsSub struct {
	sub  *nats.Subscription
	once sync.Once
	err  error
}

func (s *natsSub) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.sub.Unsubscribe()
	})
	return s.err
}

func (f *NATSFeed) Subscribe(ctx context.Context, pollID string, handler Handler) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sub, err := f.nc.Subscribe(NATSSubject(pollID), func(msg *nats.Msg) {
		ev, err := decodeEvent(msg.Data)
		if err != nil {
			slog.Warn("dropping malformed vote event", "subject", msg.Subject, "error", err)
			return
		}
		handler(ev)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", NATSSubject(pollID), err)
	}

	// Make sure the server registered the interest before returning
	if err := f.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("flush subscription: %w", err)
	}

	return &natsSub{sub: sub}, nil
}

func (f *NATSFeed) Close() error {
	if err := f.nc.Drain(); err != nil {
		f.nc.Close()
		return err
	}
	return nil
}

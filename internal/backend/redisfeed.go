package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/jonathan/applypilot/internal/feed"
	"github.com/jonathan/applypilot/internal/types"
)

// RedisFeed implements the change-feed transport on Redis pub/sub. One
// channel carries one (identity, kind) pair, so a subscription is already
// scoped to its owner.
type RedisFeed struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisFeed creates a feed transport over the given client.
func NewRedisFeed(client *redis.Client, log zerolog.Logger) *RedisFeed {
	return &RedisFeed{
		client: client,
		log:    log.With().Str("component", "redis_feed").Logger(),
	}
}

// ChannelName returns the pub/sub channel for one (identity, kind) pair.
func ChannelName(owner types.Identity, kind types.Kind) string {
	return fmt.Sprintf("applypilot:%s:%s", owner, kind)
}

// Subscribe opens a pub/sub subscription and delivers each payload to the
// handler until the subscription is closed.
func (f *RedisFeed) Subscribe(ctx context.Context, owner types.Identity, kind types.Kind, handler func(payload []byte)) (feed.Subscription, error) {
	ps := f.client.Subscribe(ctx, ChannelName(owner, kind))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, &types.TransportError{Op: "subscribe " + string(kind), Cause: err}
	}

	go func() {
		for msg := range ps.Channel() {
			handler([]byte(msg.Payload))
		}
	}()

	f.log.Debug().Str("identity", owner.String()).Str("kind", string(kind)).Msg("subscribed")
	return &redisSubscription{ps: ps}, nil
}

// Publish pushes a change event onto its owner's channel. Used by tooling
// and tests to simulate backend notifications.
func (f *RedisFeed) Publish(ctx context.Context, owner types.Identity, ev types.ChangeEvent) error {
	payload, err := feed.EncodeEnvelope(ev)
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, ChannelName(owner, ev.Kind), payload).Err(); err != nil {
		return &types.TransportError{Op: "publish " + string(ev.Kind), Cause: err}
	}
	return nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	once sync.Once
	err  error
}

// Unsubscribe closes the pub/sub channel. Only the first call takes effect.
func (s *redisSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.err = s.ps.Close()
	})
	return s.err
}

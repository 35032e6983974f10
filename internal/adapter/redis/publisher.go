package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/retry"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	goredis "github.com/redis/go-redis/v9"
)

// Publisher is the sink that publishes envelopes on a Redis Pub/Sub channel
// for hosts that consume the stream through Redis.
type Publisher struct {
	rdb     goredis.Cmdable
	channel string
}

var _ domain.Sink = (*Publisher)(nil)

func NewPublisher(rdb goredis.Cmdable, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) Name() string { return "redis" }

func (p *Publisher) Deliver(ctx context.Context, env domain.WireEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal envelope: %w", err))
	}
	if err := p.rdb.Publish(ctx, p.channel, data).Err(); err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return retry.Permanent(err)
		}
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}
	return nil
}

// Ping is the readiness check for the Redis connection.
func Ping(rdb goredis.Cmdable) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}

package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/retry"
	"github.com/centrifugal/centrifuge"
)

// History controls how many envelopes stay available for hosts that
// reconnect and recover their position in Channel.
type History struct {
	Size int
	TTL  time.Duration
}

// Publisher is the sink that fans envelopes out to connected hosts.
type Publisher struct {
	node      *centrifuge.Node
	history   History
	wsMetrics *metrics.WebSocketMetrics
}

var _ domain.Sink = (*Publisher)(nil)

func NewPublisher(node *centrifuge.Node, history History, wsMetrics *metrics.WebSocketMetrics) *Publisher {
	return &Publisher{node: node, history: history, wsMetrics: wsMetrics}
}

func (p *Publisher) Name() string { return "websocket" }

func (p *Publisher) Deliver(ctx context.Context, env domain.WireEnvelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(env)
	if err != nil {
		return retry.Permanent(fmt.Errorf("marshal envelope: %w", err))
	}

	opts := []centrifuge.PublishOption{centrifuge.WithIdempotencyKey(env.ID.String())}
	if p.history.Size > 0 && p.history.TTL > 0 {
		opts = append(opts, centrifuge.WithHistory(p.history.Size, p.history.TTL))
	}

	if _, err := p.node.Publish(Channel, data, opts...); err != nil {
		if p.wsMetrics != nil {
			p.wsMetrics.PublishFailures.Inc()
		}
		return fmt.Errorf("publish to channel %s: %w", Channel, err)
	}

	if p.wsMetrics != nil {
		p.wsMetrics.MessagesPublished.Inc()
	}
	return nil
}

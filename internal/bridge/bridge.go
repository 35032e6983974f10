package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/jonboulle/clockwork"
)

type Bridge struct {
	notifier domain.Notifier
	clock    clockwork.Clock
	metrics  *metrics.BridgeMetrics
	table    []Mapping
}

// New creates a bridge over the full mapping table. m may be nil.
func New(notifier domain.Notifier, clock clockwork.Clock, m *metrics.BridgeMetrics) *Bridge {
	return &Bridge{
		notifier: notifier,
		clock:    clock,
		metrics:  m,
		table:    table,
	}
}

// Translate turns o into the envelope described by m.
func Translate(m Mapping, o domain.Occurrence, at time.Time) (domain.Envelope, error) {
	return domain.NewEnvelope(m.Event, m.Extract(o), at)
}

// Emit publishes a payload-less lifecycle envelope.
func (b *Bridge) Emit(ctx context.Context, name domain.EventName) error {
	env, err := domain.NewEnvelope(name, nil, b.clock.Now())
	if err != nil {
		return err
	}
	if err := b.notifier.Notify(ctx, env); err != nil {
		b.metrics.Failed(string(name))
		return fmt.Errorf("failed to notify %s: %w", name, err)
	}
	b.metrics.Emitted(string(name))
	return nil
}

// Install registers one listener per table row. On a pub/sub failure every
// handle installed so far is released before the error is returned.
func (b *Bridge) Install(ctx context.Context, chat domain.ChatTransport, pubsub domain.PubSubTransport, broadcasterID string) ([]domain.Subscription, error) {
	listenCtx := context.WithoutCancel(ctx)
	subs := make([]domain.Subscription, 0, len(b.table))

	for _, m := range b.table {
		listener := b.listener(listenCtx, m)

		switch m.Source {
		case SourceChat:
			subs = append(subs, chat.On(m.Kind, listener))
		case SourcePubSub:
			sub, err := pubsub.Subscribe(ctx, m.Kind, broadcasterID, listener)
			if err != nil {
				if relErr := release(ctx, subs); relErr != nil {
					slog.ErrorContext(ctx, "Failed to release listeners after subscribe failure", "error", relErr)
				}
				return nil, fmt.Errorf("failed to subscribe to %s: %w", m.Kind, err)
			}
			subs = append(subs, sub)
		}
	}

	b.metrics.Subscribed(len(subs))
	slog.InfoContext(ctx, "Installed upstream listeners", "count", len(subs), "broadcaster_id", broadcasterID)
	return subs, nil
}

// Release removes every handle, waiting for all removals to finish.
func (b *Bridge) Release(ctx context.Context, subs []domain.Subscription) error {
	b.metrics.Subscribed(-len(subs))
	return release(ctx, subs)
}

func release(ctx context.Context, subs []domain.Subscription) error {
	var errs []error
	for _, sub := range subs {
		if err := sub.Remove(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Bridge) listener(ctx context.Context, m Mapping) domain.Listener {
	return func(o domain.Occurrence) {
		defer func() {
			if r := recover(); r != nil {
				b.metrics.Failed(string(m.Event))
				slog.ErrorContext(ctx, "Listener panicked", "event", m.Event, "kind", m.Kind, "panic", r)
			}
		}()

		env, err := Translate(m, o, b.clock.Now())
		if err != nil {
			b.metrics.Failed(string(m.Event))
			slog.ErrorContext(ctx, "Failed to translate occurrence", "event", m.Event, "kind", m.Kind, "error", err)
			return
		}

		if err := b.notifier.Notify(ctx, env); err != nil {
			b.metrics.Failed(string(m.Event))
			slog.WarnContext(ctx, "Failed to notify envelope", "event", m.Event, "error", err)
			return
		}
		b.metrics.Emitted(string(m.Event))
	}
}

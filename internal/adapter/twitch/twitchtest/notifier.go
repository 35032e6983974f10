package twitchtest

import (
	"context"
	"slices"
	"sync"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
)

// Notifier records every envelope it is handed.
type Notifier struct {
	NotifyFn func(ctx context.Context, env domain.Envelope) error

	mu        sync.Mutex
	envelopes []domain.Envelope
}

func (n *Notifier) Notify(ctx context.Context, env domain.Envelope) error {
	if n.NotifyFn != nil {
		if err := n.NotifyFn(ctx, env); err != nil {
			return err
		}
	}
	n.mu.Lock()
	n.envelopes = append(n.envelopes, env)
	n.mu.Unlock()
	return nil
}

func (n *Notifier) Envelopes() []domain.Envelope {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.envelopes)
}

// Names lists the recorded event names in emission order.
func (n *Notifier) Names() []domain.EventName {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]domain.EventName, len(n.envelopes))
	for i, env := range n.envelopes {
		names[i] = env.Name
	}
	return names
}

// Count returns how many envelopes named name were recorded.
func (n *Notifier) Count(name domain.EventName) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, env := range n.envelopes {
		if env.Name == name {
			c++
		}
	}
	return c
}

func (n *Notifier) Reset() {
	n.mu.Lock()
	n.envelopes = nil
	n.mu.Unlock()
}

package twitchtest

import (
	"context"
	"sync"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
)

// PubSub is a PubSubTransport driven by the test.
type PubSub struct {
	SubscribeFn func(ctx context.Context, kind domain.EventKind, broadcasterID string) error

	mu        sync.Mutex
	nextID    int
	listeners map[domain.EventKind]map[int]domain.Listener
	removed   int
	closed    bool
}

func NewPubSub() *PubSub {
	return &PubSub{listeners: make(map[domain.EventKind]map[int]domain.Listener)}
}

func (p *PubSub) Subscribe(ctx context.Context, kind domain.EventKind, broadcasterID string, fn domain.Listener) (domain.Subscription, error) {
	if p.SubscribeFn != nil {
		if err := p.SubscribeFn(ctx, kind, broadcasterID); err != nil {
			return nil, err
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	if p.listeners[kind] == nil {
		p.listeners[kind] = make(map[int]domain.Listener)
	}
	p.listeners[kind][id] = fn

	return &subscription{remove: func() {
		p.mu.Lock()
		delete(p.listeners[kind], id)
		p.removed++
		p.mu.Unlock()
	}}, nil
}

func (p *PubSub) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return nil
}

func (p *PubSub) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Removed counts subscriptions released through their handle.
func (p *PubSub) Removed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removed
}

func (p *PubSub) Listeners(kind domain.EventKind) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.listeners[kind])
}

// Emit delivers o synchronously to every listener registered for o.Kind.
func (p *PubSub) Emit(o domain.Occurrence) {
	p.mu.Lock()
	fns := make([]domain.Listener, 0, len(p.listeners[o.Kind]))
	for _, fn := range p.listeners[o.Kind] {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(o)
	}
}

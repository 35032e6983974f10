// Package twitchtest provides in-memory upstream transports. Test use only.
package twitchtest

import (
	"context"
	"slices"
	"sync"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
)

type subscription struct {
	once   sync.Once
	remove func()
}

func (s *subscription) Remove(context.Context) error {
	s.once.Do(s.remove)
	return nil
}

// Chat is a ChatTransport driven by the test. By default Connect reports a
// successful connection and blocks until Disconnect.
type Chat struct {
	ConnectFn func(ctx context.Context) error
	SayFn     func(message string) error

	mu           sync.Mutex
	nextID       int
	listeners    map[domain.EventKind]map[int]domain.Listener
	onConnect    map[int]func()
	onDisconnect map[int]func(error)
	said         []string
	disconnects  int

	done     chan struct{}
	doneOnce sync.Once
}

func NewChat() *Chat {
	return &Chat{
		listeners:    make(map[domain.EventKind]map[int]domain.Listener),
		onConnect:    make(map[int]func()),
		onDisconnect: make(map[int]func(error)),
		done:         make(chan struct{}),
	}
}

func (c *Chat) On(kind domain.EventKind, fn domain.Listener) domain.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	if c.listeners[kind] == nil {
		c.listeners[kind] = make(map[int]domain.Listener)
	}
	c.listeners[kind][id] = fn

	return &subscription{remove: func() {
		c.mu.Lock()
		delete(c.listeners[kind], id)
		c.mu.Unlock()
	}}
}

func (c *Chat) OnConnect(fn func()) domain.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.onConnect[id] = fn
	return &subscription{remove: func() {
		c.mu.Lock()
		delete(c.onConnect, id)
		c.mu.Unlock()
	}}
}

func (c *Chat) OnDisconnect(fn func(error)) domain.Subscription {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.onDisconnect[id] = fn
	return &subscription{remove: func() {
		c.mu.Lock()
		delete(c.onDisconnect, id)
		c.mu.Unlock()
	}}
}

func (c *Chat) Connect(ctx context.Context) error {
	if c.ConnectFn != nil {
		return c.ConnectFn(ctx)
	}

	c.FireConnect()
	select {
	case <-c.done:
		c.FireDisconnect(nil)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Chat) Disconnect() error {
	c.mu.Lock()
	c.disconnects++
	c.mu.Unlock()
	c.doneOnce.Do(func() { close(c.done) })
	return nil
}

// Disconnects reports how often Disconnect was called.
func (c *Chat) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

func (c *Chat) Say(message string) error {
	if c.SayFn != nil {
		if err := c.SayFn(message); err != nil {
			return err
		}
	}
	c.mu.Lock()
	c.said = append(c.said, message)
	c.mu.Unlock()
	return nil
}

func (c *Chat) Said() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.said)
}

// Emit delivers o synchronously to every listener registered for o.Kind.
func (c *Chat) Emit(o domain.Occurrence) {
	c.mu.Lock()
	fns := make([]domain.Listener, 0, len(c.listeners[o.Kind]))
	for _, fn := range c.listeners[o.Kind] {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(o)
	}
}

// Listeners counts the active listeners for kind.
func (c *Chat) Listeners(kind domain.EventKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners[kind])
}

// TotalListeners counts every active occurrence listener.
func (c *Chat) TotalListeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, m := range c.listeners {
		n += len(m)
	}
	return n
}

func (c *Chat) FireConnect() {
	c.mu.Lock()
	fns := make([]func(), 0, len(c.onConnect))
	for _, fn := range c.onConnect {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (c *Chat) FireDisconnect(err error) {
	c.mu.Lock()
	fns := make([]func(error), 0, len(c.onDisconnect))
	for _, fn := range c.onDisconnect {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

package twitch

import (
	"context"
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

// hooks is a set of callbacks that can be removed individually.
type hooks[F any] struct {
	mu   sync.RWMutex
	next int
	fns  map[int]F
}

func (h *hooks[F]) add(fn F) domain.Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.fns == nil {
		h.fns = make(map[int]F)
	}
	id := h.next
	h.next++
	h.fns[id] = fn

	return &subscription{remove: func() {
		h.mu.Lock()
		delete(h.fns, id)
		h.mu.Unlock()
	}}
}

// snapshot copies the callbacks so they run without holding the lock.
func (h *hooks[F]) snapshot() []F {
	h.mu.RLock()
	defer h.mu.RUnlock()

	fns := make([]F, 0, len(h.fns))
	for _, fn := range h.fns {
		fns = append(fns, fn)
	}
	return fns
}

func (h *hooks[F]) len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.fns)
}

// listenerSet routes occurrences to the listeners registered for their kind.
type listenerSet struct {
	mu    sync.Mutex
	kinds map[domain.EventKind]*hooks[domain.Listener]
}

func newListenerSet() *listenerSet {
	return &listenerSet{kinds: make(map[domain.EventKind]*hooks[domain.Listener])}
}

func (l *listenerSet) forKind(kind domain.EventKind) *hooks[domain.Listener] {
	l.mu.Lock()
	defer l.mu.Unlock()

	h, ok := l.kinds[kind]
	if !ok {
		h = &hooks[domain.Listener]{}
		l.kinds[kind] = h
	}
	return h
}

func (l *listenerSet) on(kind domain.EventKind, fn domain.Listener) domain.Subscription {
	return l.forKind(kind).add(fn)
}

func (l *listenerSet) dispatch(occurrences ...domain.Occurrence) {
	for _, o := range occurrences {
		for _, fn := range l.forKind(o.Kind).snapshot() {
			fn(o)
		}
	}
}

func (l *listenerSet) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, h := range l.kinds {
		n += h.len()
	}
	return n
}

// Package notifier delivers envelopes to the host asynchronously. Envelopes
// pass through a single FIFO queue, so every sink sees them in emission order.
package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/retry"
	"github.com/jonboulle/clockwork"
)

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrClosed    = errors.New("notifier closed")
)

type Options struct {
	Namespace      string
	QueueSize      int
	EnqueueTimeout time.Duration
}

type Notifier struct {
	sinks   []domain.Sink
	opts    Options
	clock   clockwork.Clock
	metrics *metrics.NotifierMetrics
	policy  retry.Policy

	mu     sync.RWMutex
	closed bool
	queue  chan domain.Envelope

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

var _ domain.Notifier = (*Notifier)(nil)

// New starts the delivery worker. Metrics may be nil.
func New(sinks []domain.Sink, opts Options, clock clockwork.Clock, m *metrics.NotifierMetrics) *Notifier {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1024
	}
	ctx, cancel := context.WithCancel(context.Background())

	n := &Notifier{
		sinks:   sinks,
		opts:    opts,
		clock:   clock,
		metrics: m,
		policy:  retry.SinkPolicy(clock),
		queue:   make(chan domain.Envelope, opts.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go n.run()
	return n
}

// Notify enqueues env. It waits at most EnqueueTimeout for room and drops
// the envelope with ErrQueueFull when the queue stays full.
func (n *Notifier) Notify(ctx context.Context, env domain.Envelope) error {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return ErrClosed
	}

	select {
	case n.queue <- env:
		n.metrics.SetDepth(len(n.queue))
		return nil
	default:
	}

	timer := n.clock.NewTimer(n.opts.EnqueueTimeout)
	defer timer.Stop()

	select {
	case n.queue <- env:
		n.metrics.SetDepth(len(n.queue))
		return nil
	case <-timer.Chan():
		n.metrics.Drop()
		slog.WarnContext(ctx, "Dropping envelope, notifier queue full", "event", env.Name, "queue_size", cap(n.queue))
		return ErrQueueFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *Notifier) run() {
	defer close(n.done)
	for env := range n.queue {
		n.metrics.SetDepth(len(n.queue))
		n.deliver(env)
	}
}

func (n *Notifier) deliver(env domain.Envelope) {
	wire := env.Wire(n.opts.Namespace)
	for _, sink := range n.sinks {
		err := retry.DoVoid(n.ctx, n.policy, retry.Transient, func() error {
			return sink.Deliver(n.ctx, wire)
		})
		n.metrics.Delivered(sink.Name(), err)
		if err != nil {
			slog.Error("Failed to deliver envelope", "sink", sink.Name(), "event", wire.Name, "id", wire.ID, "error", err)
		}
	}
}

// Close stops accepting envelopes and drains the queue. Deliveries still
// pending when ctx ends are abandoned.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.queue)
	n.mu.Unlock()

	select {
	case <-n.done:
		n.cancel()
		return nil
	case <-ctx.Done():
		n.cancel()
		<-n.done
		return fmt.Errorf("notifier drain: %w", ctx.Err())
	}
}

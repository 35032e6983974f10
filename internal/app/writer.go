package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"golang.org/x/time/rate"
)

const chatQueueSize = 64

// chatWriter sends chat messages in submission order, paced by the chat rate limit.
type chatWriter struct {
	chat    domain.ChatTransport
	limiter *rate.Limiter
	metrics *metrics.CommandMetrics

	queue    chan string
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func newChatWriter(chat domain.ChatTransport, perWindow int, window time.Duration, m *metrics.CommandMetrics) *chatWriter {
	ctx, cancel := context.WithCancel(context.Background())
	w := &chatWriter{
		chat:    chat,
		limiter: rate.NewLimiter(rate.Every(window/time.Duration(perWindow)), perWindow),
		metrics: m,
		queue:   make(chan string, chatQueueSize),
		ctx:     ctx,
		cancel:  cancel,
	}
	w.wg.Go(w.run)
	return w
}

func (w *chatWriter) enqueue(ctx context.Context, msg string) error {
	select {
	case <-w.ctx.Done():
		return domain.ErrWriterClosed
	default:
	}

	select {
	case w.queue <- msg:
		w.metrics.SetChatQueueDepth(len(w.queue))
		return nil
	case <-w.ctx.Done():
		return domain.ErrWriterClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *chatWriter) run() {
	for {
		select {
		case <-w.ctx.Done():
			return
		case msg := <-w.queue:
			w.metrics.SetChatQueueDepth(len(w.queue))
			if err := w.limiter.Wait(w.ctx); err != nil {
				return
			}
			w.send(msg)
		}
	}
}

func (w *chatWriter) send(msg string) {
	if err := w.chat.Say(msg); err != nil {
		slog.Warn("Failed to send chat message", "error", err)
	}
}

// stop discards queued messages and waits for the run goroutine to exit.
func (w *chatWriter) stop() {
	w.stopOnce.Do(w.cancel)
	w.wg.Wait()
	w.metrics.SetChatQueueDepth(0)
}

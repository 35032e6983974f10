package postgres

import (
	"context"
	"log/slog"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/jonboulle/clockwork"
)

// JournalSink records every delivered envelope for replay.
type JournalSink struct {
	repo domain.JournalRepository
}

var _ domain.Sink = (*JournalSink)(nil)

func NewJournalSink(repo domain.JournalRepository) *JournalSink {
	return &JournalSink{repo: repo}
}

func (s *JournalSink) Name() string { return "journal" }

func (s *JournalSink) Deliver(ctx context.Context, env domain.WireEnvelope) error {
	_, err := s.repo.Append(ctx, env)
	return err
}

// Pruner deletes journal rows older than the retention window.
type Pruner struct {
	repo      domain.JournalRepository
	retention time.Duration
	interval  time.Duration
	clock     clockwork.Clock
	metrics   *metrics.DatabaseMetrics
}

func NewPruner(repo domain.JournalRepository, retention time.Duration, clock clockwork.Clock, m *metrics.DatabaseMetrics) *Pruner {
	interval := retention / 24
	if interval < time.Minute {
		interval = time.Minute
	}
	return &Pruner{repo: repo, retention: retention, interval: interval, clock: clock, metrics: m}
}

// Run prunes once immediately and then on every interval until ctx ends.
func (p *Pruner) Run(ctx context.Context) {
	ticker := p.clock.NewTicker(p.interval)
	defer ticker.Stop()

	p.prune(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := p.clock.Now().Add(-p.retention)
	n, err := p.repo.PruneBefore(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("Failed to prune event journal", "cutoff", cutoff, "error", err)
		}
		return
	}
	p.metrics.Pruned(n)
	if n > 0 {
		slog.Info("Pruned event journal", "rows", n, "cutoff", cutoff)
	}
}

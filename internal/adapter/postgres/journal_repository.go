package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	appendEnvelope = `
INSERT INTO event_journal (id, name, payload, emitted_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id
RETURNING seq`

	listAfter = `
SELECT seq, id, name, payload, emitted_at
FROM event_journal
WHERE seq > $1
ORDER BY seq
LIMIT $2`

	pruneBefore = `DELETE FROM event_journal WHERE emitted_at < $1`
)

type JournalRepo struct {
	pool *pgxpool.Pool
}

var _ domain.JournalRepository = (*JournalRepo)(nil)

func NewJournalRepo(pool *pgxpool.Pool) *JournalRepo {
	return &JournalRepo{pool: pool}
}

// Append stores env and returns its sequence number. Appending the same
// envelope id twice returns the original sequence number.
func (r *JournalRepo) Append(ctx context.Context, env domain.WireEnvelope) (int64, error) {
	payload := env.Payload
	if payload == nil {
		payload = map[string]any{}
	}

	var seq int64
	err := r.pool.QueryRow(ctx, appendEnvelope, env.ID, env.Name, payload, env.EmittedAt).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("failed to append envelope: %w", err)
	}
	return seq, nil
}

func (r *JournalRepo) ListAfter(ctx context.Context, afterSeq int64, limit int) ([]domain.JournalEntry, error) {
	rows, err := r.pool.Query(ctx, listAfter, afterSeq, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.JournalEntry, error) {
		var e domain.JournalEntry
		err := row.Scan(&e.Seq, &e.Envelope.ID, &e.Envelope.Name, &e.Envelope.Payload, &e.Envelope.EmittedAt)
		e.Envelope.EmittedAt = e.Envelope.EmittedAt.UTC()
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan journal: %w", err)
	}
	return entries, nil
}

func (r *JournalRepo) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, pruneBefore, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune journal: %w", err)
	}
	return tag.RowsAffected(), nil
}

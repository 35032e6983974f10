package domain

import (
	"context"
	"time"
)

// JournalEntry is a persisted wire envelope with its replay cursor.
type JournalEntry struct {
	Seq      int64        `json:"seq"`
	Envelope WireEnvelope `json:"envelope"`
}

// JournalRepository persists delivered envelopes so a reconnecting host can catch up.
type JournalRepository interface {
	Append(ctx context.Context, env WireEnvelope) (int64, error)
	ListAfter(ctx context.Context, afterSeq int64, limit int) ([]JournalEntry, error)
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

package domain

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// Envelope is the normalized outbound notification. Build it through NewEnvelope.
type Envelope struct {
	ID        uuid.UUID
	Name      EventName
	Payload   map[string]any
	EmittedAt time.Time
}

// NewEnvelope validates name against the catalogue and copies payload.
// Catalogue fields absent from payload are set to nil so the key set always
// equals the field set.
func NewEnvelope(name EventName, payload map[string]any, emittedAt time.Time) (Envelope, error) {
	fields, ok := catalogue[name]
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}

	for key := range payload {
		if !slices.Contains(fields, key) {
			return Envelope{}, fmt.Errorf("%w: %q on %q", ErrUnexpectedField, key, name)
		}
	}

	copied := make(map[string]any, len(fields))
	for _, f := range fields {
		copied[f] = payload[f]
	}

	return Envelope{
		ID:        uuid.New(),
		Name:      name,
		Payload:   copied,
		EmittedAt: emittedAt.UTC(),
	}, nil
}

// WireEnvelope is the JSON shape handed to the host.
type WireEnvelope struct {
	ID        uuid.UUID      `json:"id"`
	Name      string         `json:"name"`
	Payload   map[string]any `json:"payload"`
	EmittedAt time.Time      `json:"emittedAt"`
}

// Wire prefixes the event name with namespace, e.g. "twitch-message".
func (e Envelope) Wire(namespace string) WireEnvelope {
	return WireEnvelope{
		ID:        e.ID,
		Name:      namespace + "-" + string(e.Name),
		Payload:   maps.Clone(e.Payload),
		EmittedAt: e.EmittedAt,
	}
}

// Notifier accepts envelopes for asynchronous delivery to the host.
type Notifier interface {
	Notify(ctx context.Context, env Envelope) error
}

// Sink delivers a wire envelope to one host-facing channel.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, env WireEnvelope) error
}

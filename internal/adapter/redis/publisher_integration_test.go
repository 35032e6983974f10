package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Connects(t *testing.T) {
	client := setupTestClient(t)

	require.NoError(t, Ping(client)(context.Background()))
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "://nope", nil)

	assert.ErrorContains(t, err, "failed to parse redis URL")
}

func TestPublisher_Deliver(t *testing.T) {
	client := setupTestClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "twitch:events")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	env := domain.WireEnvelope{
		ID:        uuid.New(),
		Name:      "twitch-bits",
		Payload:   map[string]any{"user": "alice", "amount": 100, "message": "cheer100"},
		EmittedAt: time.Now().UTC(),
	}
	pub := NewPublisher(client, "twitch:events")
	require.NoError(t, pub.Deliver(ctx, env))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var got domain.WireEnvelope
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, env.ID, got.ID)
	assert.Equal(t, "twitch-bits", got.Name)
	assert.Equal(t, "alice", got.Payload["user"])
	assert.Equal(t, "redis", pub.Name())
}

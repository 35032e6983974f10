package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope_FillsFieldSet(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))

	env, err := NewEnvelope(EventMessage, map[string]any{FieldUser: "bob", FieldMessage: "hi"}, at)
	require.NoError(t, err)

	assert.Equal(t, EventMessage, env.Name)
	assert.Equal(t, map[string]any{FieldUser: "bob", FieldMessage: "hi", FieldRaw: nil}, env.Payload)
	assert.Equal(t, at.UTC(), env.EmittedAt)
	assert.NotEqual(t, [16]byte{}, [16]byte(env.ID))
}

func TestNewEnvelope_CopiesPayload(t *testing.T) {
	payload := map[string]any{FieldUser: "bob"}
	env, err := NewEnvelope(EventJoin, payload, time.Now())
	require.NoError(t, err)

	payload[FieldUser] = "mallory"
	assert.Equal(t, "bob", env.Payload[FieldUser])
}

func TestNewEnvelope_RejectsUnknownName(t *testing.T) {
	_, err := NewEnvelope("not-an-event", nil, time.Now())
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestNewEnvelope_RejectsForeignField(t *testing.T) {
	_, err := NewEnvelope(EventBan, map[string]any{FieldUser: "bob", FieldDuration: 10}, time.Now())
	assert.ErrorIs(t, err, ErrUnexpectedField)
}

func TestNewEnvelope_LifecycleHasEmptyPayload(t *testing.T) {
	for _, name := range []EventName{EventLoad, EventLoaded, EventOpen, EventClose, EventUnload, EventError, EventChatOpen} {
		env, err := NewEnvelope(name, nil, time.Now())
		require.NoError(t, err, name)
		assert.Empty(t, env.Payload, name)
		assert.True(t, name.IsLifecycle())
	}
}

func TestEnvelope_Wire(t *testing.T) {
	env, err := NewEnvelope(EventSlow, map[string]any{FieldEnabled: true, FieldDelay: 30}, time.Now())
	require.NoError(t, err)

	wire := env.Wire("twitch")
	assert.Equal(t, "twitch-slow", wire.Name)
	assert.Equal(t, env.ID, wire.ID)
	assert.Equal(t, env.Payload, wire.Payload)
}

func TestCatalogue_Size(t *testing.T) {
	names := EventNames()
	assert.Len(t, names, 41)

	fields, ok := Fields(EventBits)
	require.True(t, ok)
	assert.Equal(t, []string{FieldUser, FieldAmount, FieldMessage, FieldRaw}, fields)

	_, ok = Fields("nope")
	assert.False(t, ok)
}

func TestCredentials_Validate(t *testing.T) {
	assert.NoError(t, Credentials{ClientID: "id", AccessToken: "tok"}.Validate())
	assert.ErrorIs(t, Credentials{ClientID: "id"}.Validate(), ErrInvalidCredentials)
	assert.ErrorIs(t, Credentials{AccessToken: "tok"}.Validate(), ErrInvalidCredentials)
}

func TestUpstreamError(t *testing.T) {
	err := &UpstreamError{Op: "get clips", StatusCode: 429, Message: "too many requests"}
	assert.True(t, err.Throttled())
	assert.False(t, err.Unauthorized())
	assert.Equal(t, "get clips: twitch responded 429: too many requests", err.Error())
}

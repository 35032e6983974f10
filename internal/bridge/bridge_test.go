package bridge

import (
	"context"
	"errors"
	"maps"
	"slices"
	"testing"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/adapter/twitch/twitchtest"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullOccurrence(kind domain.EventKind) domain.Occurrence {
	return domain.Occurrence{
		Kind:     kind,
		Channel:  "somechannel",
		User:     "bob",
		Target:   "otherchannel",
		Message:  "hello",
		Title:    "Hydrate",
		Info:     map[string]any{"months": "3"},
		Enabled:  true,
		Delay:    30,
		Viewers:  12,
		Count:    4,
		Duration: 600,
		Amount:   100,
		Auto:     true,
		Raw:      map[string]any{"line": "@raw"},
	}
}

func TestTable_CoversCatalogueOnce(t *testing.T) {
	events := make(map[domain.EventName]int)
	kinds := make(map[domain.EventKind]int)
	for _, m := range Table() {
		events[m.Event]++
		kinds[m.Kind]++
		require.NotNil(t, m.Extract, m.Kind)
	}

	for _, name := range domain.EventNames() {
		if name.IsLifecycle() {
			assert.Zero(t, events[name], "lifecycle event %s must not be mapped", name)
			continue
		}
		assert.Equal(t, 1, events[name], "event %s", name)
	}
	for kind, n := range kinds {
		assert.Equal(t, 1, n, "kind %s mapped more than once", kind)
	}
}

func TestTranslate_EveryMappingMatchesCatalogue(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, m := range Table() {
		t.Run(string(m.Event), func(t *testing.T) {
			env, err := Translate(m, fullOccurrence(m.Kind), at)
			require.NoError(t, err)

			want, ok := domain.Fields(m.Event)
			require.True(t, ok)
			assert.Equal(t, m.Event, env.Name)
			assert.ElementsMatch(t, want, slices.Collect(maps.Keys(env.Payload)))
			assert.Equal(t, at, env.EmittedAt)
		})
	}
}

func TestTranslate_FieldValues(t *testing.T) {
	byEvent := make(map[domain.EventName]Mapping)
	for _, m := range Table() {
		byEvent[m.Event] = m
	}
	at := time.Now()

	tests := []struct {
		event domain.EventName
		want  map[string]any
	}{
		{domain.EventTimeout, map[string]any{"user": "bob", "duration": 600}},
		{domain.EventFollowerOnly, map[string]any{"enabled": true, "delay": 30}},
		{domain.EventHost, map[string]any{"target": "otherchannel", "viewers": 12}},
		{domain.EventHosted, map[string]any{"channel": "somechannel", "auto": true, "viewers": 12}},
		{domain.EventHostsRemaining, map[string]any{"numberOfHosts": 4}},
		{domain.EventUnhost, map[string]any{"channel": "somechannel"}},
		{domain.EventBits, map[string]any{"user": "bob", "amount": 100, "message": "hello", "raw": map[string]any{"line": "@raw"}}},
	}

	for _, tt := range tests {
		t.Run(string(tt.event), func(t *testing.T) {
			m := byEvent[tt.event]
			env, err := Translate(m, fullOccurrence(m.Kind), at)
			require.NoError(t, err)
			assert.Equal(t, tt.want, env.Payload)
		})
	}
}

func TestInstall_EveryKindYieldsExactlyOneEnvelope(t *testing.T) {
	notifier := &twitchtest.Notifier{}
	chat := twitchtest.NewChat()
	pubsub := twitchtest.NewPubSub()
	b := New(notifier, clockwork.NewFakeClock(), nil)

	subs, err := b.Install(context.Background(), chat, pubsub, "1234")
	require.NoError(t, err)
	assert.Len(t, subs, len(Table()))

	for _, m := range Table() {
		notifier.Reset()
		o := fullOccurrence(m.Kind)
		if m.Source == SourcePubSub {
			pubsub.Emit(o)
		} else {
			chat.Emit(o)
		}
		assert.Equal(t, []domain.EventName{m.Event}, notifier.Names(), "kind %s", m.Kind)
	}
}

func TestInstall_ChannelPointRedeem(t *testing.T) {
	notifier := &twitchtest.Notifier{}
	pubsub := twitchtest.NewPubSub()
	b := New(notifier, clockwork.NewFakeClock(), nil)

	_, err := b.Install(context.Background(), twitchtest.NewChat(), pubsub, "1234")
	require.NoError(t, err)

	raw := map[string]any{"id": "redemption-1"}
	pubsub.Emit(domain.Occurrence{
		Kind:    domain.KindRewardRedemption,
		User:    "bob",
		Title:   "Hydrate",
		Message: "cheers",
		Raw:     raw,
	})

	envs := notifier.Envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, domain.EventChannelPointRedeem, envs[0].Name)
	assert.Equal(t, map[string]any{
		"user":    "bob",
		"title":   "Hydrate",
		"message": "cheers",
		"raw":     raw,
	}, envs[0].Payload)
	assert.Equal(t, "twitch-channel-point-redeem", envs[0].Wire("twitch").Name)
}

func TestListener_FailureIsIsolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBridgeMetrics(reg)

	notifier := &twitchtest.Notifier{NotifyFn: func(_ context.Context, env domain.Envelope) error {
		switch env.Name {
		case domain.EventMessage:
			panic("boom")
		case domain.EventJoin:
			return errors.New("queue full")
		}
		return nil
	}}
	chat := twitchtest.NewChat()
	b := New(notifier, clockwork.NewFakeClock(), m)

	_, err := b.Install(context.Background(), chat, twitchtest.NewPubSub(), "1234")
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		chat.Emit(fullOccurrence(domain.KindChatMessage))
		chat.Emit(fullOccurrence(domain.KindChatJoin))
		chat.Emit(fullOccurrence(domain.KindChatPart))
	})

	assert.Equal(t, []domain.EventName{domain.EventPart}, notifier.Names())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchFailures.WithLabelValues("message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DispatchFailures.WithLabelValues("join")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Envelopes.WithLabelValues("part")))
}

func TestInstall_PubSubFailureReleasesEverything(t *testing.T) {
	chat := twitchtest.NewChat()
	pubsub := twitchtest.NewPubSub()
	pubsub.SubscribeFn = func(_ context.Context, kind domain.EventKind, _ string) error {
		if kind == domain.KindCheer {
			return errors.New("403 forbidden")
		}
		return nil
	}
	b := New(&twitchtest.Notifier{}, clockwork.NewFakeClock(), nil)

	subs, err := b.Install(context.Background(), chat, pubsub, "1234")
	require.Error(t, err)
	assert.Nil(t, subs)
	assert.Contains(t, err.Error(), "channel.cheer")

	assert.Zero(t, chat.TotalListeners())
	assert.Zero(t, pubsub.Listeners(domain.KindRewardRedemption))
	assert.Equal(t, 1, pubsub.Removed())
}

func TestRelease_IsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewBridgeMetrics(reg)
	chat := twitchtest.NewChat()
	pubsub := twitchtest.NewPubSub()
	b := New(&twitchtest.Notifier{}, clockwork.NewFakeClock(), m)

	subs, err := b.Install(context.Background(), chat, pubsub, "1234")
	require.NoError(t, err)
	assert.Equal(t, float64(len(subs)), testutil.ToFloat64(m.ActiveSubscriptions))

	require.NoError(t, b.Release(context.Background(), subs))
	for _, sub := range subs {
		require.NoError(t, sub.Remove(context.Background()))
	}

	assert.Zero(t, chat.TotalListeners())
	assert.Equal(t, 2, pubsub.Removed())
	assert.Zero(t, testutil.ToFloat64(m.ActiveSubscriptions))
}

func TestEmit_Lifecycle(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	notifier := &twitchtest.Notifier{}
	b := New(notifier, clock, nil)

	require.NoError(t, b.Emit(context.Background(), domain.EventLoad))
	envs := notifier.Envelopes()
	require.Len(t, envs, 1)
	assert.Equal(t, domain.EventLoad, envs[0].Name)
	assert.Empty(t, envs[0].Payload)
	assert.Equal(t, clock.Now(), envs[0].EmittedAt)

	assert.ErrorIs(t, b.Emit(context.Background(), "bogus"), domain.ErrUnknownEvent)
}

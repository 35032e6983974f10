package twitch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/nicklaw5/helix/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventSubServer struct {
	*httptest.Server
	keepalive int
	sessions  atomic.Int32
	conns     chan *websocket.Conn

	mu  sync.Mutex
	all []*websocket.Conn
}

func newEventSubServer(t *testing.T) *eventSubServer {
	t.Helper()
	s := &eventSubServer{keepalive: 10, conns: make(chan *websocket.Conn, 8)}
	upgrader := websocket.Upgrader{}

	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.all = append(s.all, conn)
		s.mu.Unlock()

		n := s.sessions.Add(1)
		_ = conn.WriteJSON(map[string]any{
			"metadata": map[string]any{"message_id": fmt.Sprintf("welcome-%d", n), "message_type": "session_welcome"},
			"payload": map[string]any{"session": map[string]any{
				"id":                        fmt.Sprintf("session-%d", n),
				"status":                    "connected",
				"keepalive_timeout_seconds": s.keepalive,
			}},
		})
		s.conns <- conn
	}))

	t.Cleanup(func() {
		s.mu.Lock()
		for _, c := range s.all {
			_ = c.Close()
		}
		s.mu.Unlock()
		s.Close()
	})
	return s
}

func (s *eventSubServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *eventSubServer) next(t *testing.T) *websocket.Conn {
	t.Helper()
	select {
	case c := <-s.conns:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("no eventsub connection")
		return nil
	}
}

func notification(id string, kind domain.EventKind, event any) map[string]any {
	return map[string]any{
		"metadata": map[string]any{
			"message_id":        id,
			"message_type":      "notification",
			"subscription_type": string(kind),
		},
		"payload": map[string]any{
			"subscription": map[string]any{"type": string(kind), "status": "enabled"},
			"event":        event,
		},
	}
}

var redemptionEvent = map[string]any{
	"id":                     "redemption-1",
	"broadcaster_user_id":    "1234",
	"broadcaster_user_login": "streamer",
	"user_id":                "42",
	"user_login":             "bob",
	"user_name":              "Bob",
	"user_input":             "cheers",
	"status":                 "unfulfilled",
	"reward":                 map[string]any{"id": "reward-1", "title": "Hydrate", "cost": 100},
}

type mockEventSubAPI struct {
	createFn func(payload *helix.EventSubSubscription) (*helix.EventSubSubscriptionsResponse, error)

	mu      sync.Mutex
	created []helix.EventSubSubscription
	removed []string
}

func (m *mockEventSubAPI) CreateEventSubSubscription(payload *helix.EventSubSubscription) (*helix.EventSubSubscriptionsResponse, error) {
	m.mu.Lock()
	m.created = append(m.created, *payload)
	n := len(m.created)
	m.mu.Unlock()

	if m.createFn != nil {
		return m.createFn(payload)
	}
	resp := &helix.EventSubSubscriptionsResponse{}
	resp.StatusCode = http.StatusAccepted
	resp.Data.EventSubSubscriptions = []helix.EventSubSubscription{{ID: fmt.Sprintf("sub-%d", n), Type: payload.Type}}
	return resp, nil
}

func (m *mockEventSubAPI) RemoveEventSubSubscription(id string) (*helix.RemoveEventSubSubscriptionParamsResponse, error) {
	m.mu.Lock()
	m.removed = append(m.removed, id)
	m.mu.Unlock()

	resp := &helix.RemoveEventSubSubscriptionParamsResponse{}
	resp.StatusCode = http.StatusNoContent
	return resp, nil
}

func (m *mockEventSubAPI) Created() []helix.EventSubSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]helix.EventSubSubscription(nil), m.created...)
}

func (m *mockEventSubAPI) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

func openEventSub(t *testing.T, srv *eventSubServer, api EventSubAPI, clock clockwork.Clock) *EventSub {
	t.Helper()
	es, err := OpenEventSub(context.Background(), api, EventSubOptions{URL: srv.wsURL(), Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = es.Close() })
	return es
}

func collect(t *testing.T, es *EventSub, kind domain.EventKind) <-chan domain.Occurrence {
	t.Helper()
	got := make(chan domain.Occurrence, 8)
	_, err := es.Subscribe(context.Background(), kind, "1234", func(o domain.Occurrence) { got <- o })
	require.NoError(t, err)
	return got
}

func receive(t *testing.T, got <-chan domain.Occurrence) domain.Occurrence {
	t.Helper()
	select {
	case o := <-got:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("no occurrence delivered")
		return domain.Occurrence{}
	}
}

func TestEventSub_SubscribeAndNotify(t *testing.T) {
	srv := newEventSubServer(t)
	api := &mockEventSubAPI{}
	es := openEventSub(t, srv, api, clockwork.NewFakeClock())
	conn := srv.next(t)

	got := collect(t, es, domain.KindRewardRedemption)

	created := api.Created()
	require.Len(t, created, 1)
	assert.Equal(t, string(domain.KindRewardRedemption), created[0].Type)
	assert.Equal(t, "1", created[0].Version)
	assert.Equal(t, "1234", created[0].Condition.BroadcasterUserID)
	assert.Equal(t, "websocket", created[0].Transport.Method)
	assert.Equal(t, "session-1", created[0].Transport.SessionID)

	require.NoError(t, conn.WriteJSON(notification("m-1", domain.KindRewardRedemption, redemptionEvent)))

	o := receive(t, got)
	assert.Equal(t, domain.KindRewardRedemption, o.Kind)
	assert.Equal(t, "bob", o.User)
	assert.Equal(t, "Hydrate", o.Title)
	assert.Equal(t, "cheers", o.Message)
	raw, ok := o.Raw.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "redemption-1", raw["id"])
}

func TestEventSub_Cheer(t *testing.T) {
	srv := newEventSubServer(t)
	es := openEventSub(t, srv, &mockEventSubAPI{}, clockwork.NewFakeClock())
	conn := srv.next(t)
	got := collect(t, es, domain.KindCheer)

	require.NoError(t, conn.WriteJSON(notification("m-1", domain.KindCheer, map[string]any{
		"is_anonymous":           false,
		"user_login":             "alice",
		"user_name":              "Alice",
		"broadcaster_user_login": "streamer",
		"message":                "Cheer100 great play",
		"bits":                   100,
	})))
	require.NoError(t, conn.WriteJSON(notification("m-2", domain.KindCheer, map[string]any{
		"is_anonymous": true,
		"user_login":   nil,
		"user_name":    nil,
		"message":      "Cheer5",
		"bits":         5,
	})))

	named := receive(t, got)
	assert.Equal(t, "alice", named.User, "user is the login, not the display name")
	assert.Equal(t, 100, named.Amount)
	assert.Equal(t, "Cheer100 great play", named.Message)

	anonymous := receive(t, got)
	assert.Empty(t, anonymous.User, "no user is invented for anonymous cheers")
	assert.Equal(t, 5, anonymous.Amount)
	raw, ok := anonymous.Raw.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, raw["is_anonymous"])
}

func TestEventSub_DuplicateMessageDeliveredOnce(t *testing.T) {
	srv := newEventSubServer(t)
	es := openEventSub(t, srv, &mockEventSubAPI{}, clockwork.NewFakeClock())
	conn := srv.next(t)
	got := collect(t, es, domain.KindRewardRedemption)

	frame := notification("m-1", domain.KindRewardRedemption, redemptionEvent)
	require.NoError(t, conn.WriteJSON(frame))
	require.NoError(t, conn.WriteJSON(frame))
	require.NoError(t, conn.WriteJSON(notification("m-2", domain.KindRewardRedemption, redemptionEvent)))

	receive(t, got)
	receive(t, got)
	select {
	case <-got:
		t.Fatal("duplicate message was delivered")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEventSub_RemoveDeletesUpstream(t *testing.T) {
	srv := newEventSubServer(t)
	api := &mockEventSubAPI{}
	es := openEventSub(t, srv, api, clockwork.NewFakeClock())
	srv.next(t)

	sub, err := es.Subscribe(context.Background(), domain.KindCheer, "1234", func(domain.Occurrence) {})
	require.NoError(t, err)
	assert.Equal(t, 1, es.Listeners())

	require.NoError(t, sub.Remove(context.Background()))
	require.NoError(t, sub.Remove(context.Background()))

	assert.Equal(t, []string{"sub-1"}, api.Removed())
	assert.Zero(t, es.Listeners())
}

func TestEventSub_SubscribeFailure(t *testing.T) {
	srv := newEventSubServer(t)
	api := &mockEventSubAPI{
		createFn: func(*helix.EventSubSubscription) (*helix.EventSubSubscriptionsResponse, error) {
			resp := &helix.EventSubSubscriptionsResponse{}
			resp.StatusCode = http.StatusForbidden
			resp.ErrorMessage = "subscription missing proper authorization"
			return resp, nil
		},
	}
	es := openEventSub(t, srv, api, clockwork.NewFakeClock())
	srv.next(t)

	_, err := es.Subscribe(context.Background(), domain.KindCheer, "1234", func(domain.Occurrence) {})

	upstream, ok := errors.AsType[*domain.UpstreamError](err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, upstream.StatusCode)
	assert.Zero(t, es.Listeners())
}

func TestEventSub_UnsupportedKind(t *testing.T) {
	srv := newEventSubServer(t)
	api := &mockEventSubAPI{}
	es := openEventSub(t, srv, api, clockwork.NewFakeClock())

	_, err := es.Subscribe(context.Background(), domain.KindChatMessage, "1234", func(domain.Occurrence) {})

	require.Error(t, err)
	assert.Empty(t, api.Created())
}

func TestEventSub_FollowsReconnect(t *testing.T) {
	srv := newEventSubServer(t)
	api := &mockEventSubAPI{}
	es := openEventSub(t, srv, api, clockwork.NewFakeClock())
	first := srv.next(t)
	got := collect(t, es, domain.KindRewardRedemption)

	require.NoError(t, first.WriteJSON(map[string]any{
		"metadata": map[string]any{"message_id": "r-1", "message_type": "session_reconnect"},
		"payload": map[string]any{"session": map[string]any{
			"id":            "session-1",
			"status":        "reconnecting",
			"reconnect_url": srv.wsURL(),
		}},
	}))
	second := srv.next(t)

	require.NoError(t, second.WriteJSON(notification("m-1", domain.KindRewardRedemption, redemptionEvent)))
	assert.Equal(t, "bob", receive(t, got).User)
	assert.Len(t, api.Created(), 1, "subscriptions carry over on reconnect")
}

func TestEventSub_KeepaliveLossRestoresSession(t *testing.T) {
	srv := newEventSubServer(t)
	api := &mockEventSubAPI{}
	clock := clockwork.NewFakeClock()
	es := openEventSub(t, srv, api, clock)
	srv.next(t)
	collect(t, es, domain.KindCheer)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(10*time.Second + keepaliveGrace)

	second := srv.next(t)
	require.Eventually(t, func() bool { return len(api.Created()) == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "session-2", api.Created()[1].Transport.SessionID)

	got := make(chan domain.Occurrence, 1)
	_, err := es.Subscribe(context.Background(), domain.KindRewardRedemption, "1234", func(o domain.Occurrence) { got <- o })
	require.NoError(t, err)
	require.NoError(t, second.WriteJSON(notification("m-1", domain.KindRewardRedemption, redemptionEvent)))
	assert.Equal(t, "Hydrate", receive(t, got).Title)
}

func TestOpenEventSub_RequiresWelcome(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		_ = conn.WriteJSON(map[string]any{"metadata": map[string]any{"message_type": "session_keepalive"}})
	}))
	defer srv.Close()

	_, err := OpenEventSub(context.Background(), &mockEventSubAPI{}, EventSubOptions{
		URL:   "ws" + strings.TrimPrefix(srv.URL, "http"),
		Clock: clockwork.NewFakeClock(),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "session_welcome")
}

func TestEventSub_CloseIdempotent(t *testing.T) {
	srv := newEventSubServer(t)
	es, err := OpenEventSub(context.Background(), &mockEventSubAPI{}, EventSubOptions{URL: srv.wsURL(), Clock: clockwork.NewFakeClock()})
	require.NoError(t, err)

	require.NoError(t, es.Close())
	assert.NoError(t, es.Close())
}

package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/retry"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/nicklaw5/helix/v2"
)

const (
	DefaultEventSubURL = "wss://eventsub.wss.twitch.tv/ws"

	welcomeTimeout   = 10 * time.Second
	keepaliveGrace   = 5 * time.Second
	defaultKeepalive = 10 * time.Second
	recentMessageIDs = 128
)

const (
	messageWelcome      = "session_welcome"
	messageKeepalive    = "session_keepalive"
	messageNotification = "notification"
	messageReconnect    = "session_reconnect"
	messageRevocation   = "revocation"
)

// EventSubAPI is the part of the Helix client that manages subscriptions.
type EventSubAPI interface {
	CreateEventSubSubscription(payload *helix.EventSubSubscription) (*helix.EventSubSubscriptionsResponse, error)
	RemoveEventSubSubscription(id string) (*helix.RemoveEventSubSubscriptionParamsResponse, error)
}

type eventSubSession struct {
	ID                      string `json:"id"`
	Status                  string `json:"status"`
	KeepaliveTimeoutSeconds int    `json:"keepalive_timeout_seconds"`
	ReconnectURL            string `json:"reconnect_url"`
}

type eventSubMessage struct {
	Metadata struct {
		MessageID        string `json:"message_id"`
		MessageType      string `json:"message_type"`
		SubscriptionType string `json:"subscription_type"`
	} `json:"metadata"`
	Payload struct {
		Session      *eventSubSession `json:"session"`
		Subscription *struct {
			ID     string `json:"id"`
			Type   string `json:"type"`
			Status string `json:"status"`
		} `json:"subscription"`
		Event json.RawMessage `json:"event"`
	} `json:"payload"`
}

type inbound struct {
	conn *websocket.Conn
	msg  eventSubMessage
	err  error
}

type eventSubEntry struct {
	kind          domain.EventKind
	broadcasterID string

	mu sync.Mutex
	id string
}

func (e *eventSubEntry) setID(id string) {
	e.mu.Lock()
	e.id = id
	e.mu.Unlock()
}

func (e *eventSubEntry) getID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

type EventSubOptions struct {
	URL    string
	Clock  clockwork.Clock
	Dialer *websocket.Dialer
}

// EventSub is a channel notification stream over the EventSub WebSocket
// transport. Subscriptions are bound to the current session id and recreated
// when the session has to be replaced.
type EventSub struct {
	api       EventSubAPI
	url       string
	dialer    *websocket.Dialer
	clock     clockwork.Clock
	listeners *listenerSet
	policy    retry.Policy

	mu        sync.Mutex
	conn      *websocket.Conn
	sessionID string
	keepalive time.Duration
	subs      map[*eventSubEntry]struct{}

	// owned by supervise
	seen  map[string]struct{}
	order []string

	inbox     chan inbound
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// OpenEventSub dials the EventSub endpoint and waits for the welcome message.
func OpenEventSub(ctx context.Context, api EventSubAPI, opts EventSubOptions) (*EventSub, error) {
	if opts.URL == "" {
		opts.URL = DefaultEventSubURL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}

	e := &EventSub{
		api:       api,
		url:       opts.URL,
		dialer:    opts.Dialer,
		clock:     opts.Clock,
		listeners: newListenerSet(),
		policy: retry.Policy{
			MaxAttempts:      5,
			InitialBackoff:   time.Second,
			RateLimitBackoff: 10 * time.Second,
			MaxBackoff:       30 * time.Second,
			Clock:            opts.Clock,
		},
		subs:  make(map[*eventSubEntry]struct{}),
		seen:  make(map[string]struct{}),
		inbox: make(chan inbound, 64),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())

	conn, session, err := e.dial(ctx, e.url)
	if err != nil {
		e.cancel()
		return nil, err
	}
	e.adopt(conn, session)
	e.wg.Go(e.supervise)

	slog.DebugContext(ctx, "EventSub connected", "session_id", session.ID, "keepalive", e.window())
	return e, nil
}

func (e *EventSub) dial(ctx context.Context, url string) (*websocket.Conn, *eventSubSession, error) {
	conn, _, err := e.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to dial eventsub: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(welcomeTimeout))
	var msg eventSubMessage
	if err := conn.ReadJSON(&msg); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to read eventsub welcome: %w", err)
	}
	if msg.Metadata.MessageType != messageWelcome || msg.Payload.Session == nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("expected %s, got %q", messageWelcome, msg.Metadata.MessageType)
	}
	_ = conn.SetReadDeadline(time.Time{})

	return conn, msg.Payload.Session, nil
}

// adopt makes conn the live connection and closes the previous one.
func (e *EventSub) adopt(conn *websocket.Conn, session *eventSubSession) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx.Err() != nil {
		_ = conn.Close()
		return false
	}

	old := e.conn
	e.conn = conn
	e.sessionID = session.ID
	e.keepalive = time.Duration(session.KeepaliveTimeoutSeconds) * time.Second
	e.wg.Go(func() { e.read(conn) })

	if old != nil {
		_ = old.Close()
	}
	return true
}

func (e *EventSub) current() (*websocket.Conn, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conn, e.sessionID
}

// window is how long the stream may stay silent before it counts as lost.
func (e *EventSub) window() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	keepalive := e.keepalive
	if keepalive <= 0 {
		keepalive = defaultKeepalive
	}
	return keepalive + keepaliveGrace
}

func (e *EventSub) read(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		var in inbound
		in.conn, in.err = conn, err
		if err == nil {
			if err := json.Unmarshal(data, &in.msg); err != nil {
				slog.Warn("Failed to decode EventSub message", "error", err)
				continue
			}
		}

		select {
		case e.inbox <- in:
		case <-e.ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

func (e *EventSub) supervise() {
	timer := e.clock.NewTimer(e.window())
	defer timer.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return

		case in := <-e.inbox:
			conn, _ := e.current()
			if in.err != nil {
				if in.conn == conn && e.ctx.Err() == nil {
					slog.Warn("EventSub connection closed", "error", in.err)
					e.recover()
					timer.Reset(e.window())
				}
				continue
			}
			if in.conn == conn {
				timer.Reset(e.window())
			}
			e.handle(in.msg)

		case <-timer.Chan():
			slog.Warn("EventSub keepalive missed", "window", e.window())
			e.recover()
			timer.Reset(e.window())
		}
	}
}

func (e *EventSub) handle(msg eventSubMessage) {
	switch msg.Metadata.MessageType {
	case messageKeepalive:
	case messageNotification:
		if e.duplicate(msg.Metadata.MessageID) {
			return
		}
		e.notify(msg)
	case messageReconnect:
		if msg.Payload.Session == nil || msg.Payload.Session.ReconnectURL == "" {
			return
		}
		e.migrate(msg.Payload.Session.ReconnectURL)
	case messageRevocation:
		if sub := msg.Payload.Subscription; sub != nil {
			slog.Warn("EventSub subscription revoked", "type", sub.Type, "status", sub.Status)
		}
	default:
		slog.Debug("Ignoring EventSub message", "type", msg.Metadata.MessageType)
	}
}

// duplicate reports whether id was seen recently. Twitch may redeliver.
func (e *EventSub) duplicate(id string) bool {
	if id == "" {
		return false
	}
	if _, ok := e.seen[id]; ok {
		return true
	}
	e.seen[id] = struct{}{}
	e.order = append(e.order, id)
	if len(e.order) > recentMessageIDs {
		delete(e.seen, e.order[0])
		e.order = e.order[1:]
	}
	return false
}

func (e *EventSub) notify(msg eventSubMessage) {
	kind := domain.EventKind(msg.Metadata.SubscriptionType)
	decode, ok := eventDecoders[kind]
	if !ok {
		slog.Debug("Ignoring EventSub notification", "type", kind)
		return
	}

	o, err := decode(msg.Payload.Event)
	if err != nil {
		slog.Warn("Failed to decode EventSub event", "type", kind, "error", err)
		return
	}
	e.listeners.dispatch(o)
}

// migrate follows a session_reconnect. Subscriptions carry over to the new
// connection, so nothing is recreated.
func (e *EventSub) migrate(url string) {
	conn, session, err := e.dial(e.ctx, url)
	if err != nil {
		slog.Warn("EventSub reconnect failed, opening a new session", "error", err)
		e.recover()
		return
	}
	if e.adopt(conn, session) {
		slog.Info("EventSub session migrated", "session_id", session.ID)
	}
}

// recover opens a fresh session and recreates every live subscription on it.
func (e *EventSub) recover() {
	err := retry.DoVoid(e.ctx, e.policy, retry.Always, func() error {
		conn, session, err := e.dial(e.ctx, e.url)
		if err != nil {
			return err
		}
		if !e.adopt(conn, session) {
			return context.Canceled
		}
		return nil
	})
	if err != nil {
		if e.ctx.Err() == nil {
			slog.Error("EventSub session could not be restored", "error", err)
		}
		return
	}

	e.mu.Lock()
	entries := make([]*eventSubEntry, 0, len(e.subs))
	for entry := range e.subs {
		entries = append(entries, entry)
	}
	e.mu.Unlock()

	for _, entry := range entries {
		err := retry.DoVoid(e.ctx, e.policy, classifyHelixError, func() error { return e.create(entry) })
		if err != nil {
			slog.Error("Failed to recreate EventSub subscription", "type", entry.kind, "error", err)
		}
	}
	_, sessionID := e.current()
	slog.Info("EventSub session restored", "session_id", sessionID, "subscriptions", len(entries))
}

func (e *EventSub) create(entry *eventSubEntry) error {
	_, sessionID := e.current()
	resp, err := e.api.CreateEventSubSubscription(&helix.EventSubSubscription{
		Type:    string(entry.kind),
		Version: "1",
		Condition: helix.EventSubCondition{
			BroadcasterUserID: entry.broadcasterID,
		},
		Transport: helix.EventSubTransport{
			Method:    "websocket",
			SessionID: sessionID,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create eventsub subscription: %w", err)
	}
	if err := checkResponse("create eventsub subscription", resp.ResponseCommon, http.StatusAccepted); err != nil {
		return err
	}
	if len(resp.Data.EventSubSubscriptions) == 0 {
		return errors.New("no eventsub subscription returned")
	}

	entry.setID(resp.Data.EventSubSubscriptions[0].ID)
	return nil
}

func (e *EventSub) Subscribe(ctx context.Context, kind domain.EventKind, broadcasterID string, fn domain.Listener) (domain.Subscription, error) {
	if _, ok := eventDecoders[kind]; !ok {
		return nil, fmt.Errorf("unsupported eventsub type %q", kind)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry := &eventSubEntry{kind: kind, broadcasterID: broadcasterID}
	if err := e.create(entry); err != nil {
		return nil, err
	}

	local := e.listeners.on(kind, fn)
	e.mu.Lock()
	e.subs[entry] = struct{}{}
	e.mu.Unlock()

	return &remoteSubscription{stream: e, entry: entry, local: local}, nil
}

// Close ends the stream. Subscriptions still registered are dropped by Twitch
// together with the session.
func (e *EventSub) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.cancel()
		conn := e.conn
		e.mu.Unlock()

		if conn != nil {
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			err = conn.Close()
		}
		e.wg.Wait()
	})
	return err
}

// Listeners counts the active listeners across all kinds.
func (e *EventSub) Listeners() int {
	return e.listeners.count()
}

type remoteSubscription struct {
	stream *EventSub
	entry  *eventSubEntry
	local  domain.Subscription
	once   sync.Once
}

// Remove detaches the listener and deletes the subscription upstream. A
// subscription Twitch already dropped counts as removed.
func (s *remoteSubscription) Remove(ctx context.Context) error {
	var err error
	s.once.Do(func() {
		_ = s.local.Remove(ctx)

		s.stream.mu.Lock()
		delete(s.stream.subs, s.entry)
		s.stream.mu.Unlock()

		id := s.entry.getID()
		if id == "" {
			return
		}
		resp, rerr := s.stream.api.RemoveEventSubSubscription(id)
		if rerr != nil {
			err = fmt.Errorf("failed to delete eventsub subscription: %w", rerr)
			return
		}
		err = checkResponse("delete eventsub subscription", resp.ResponseCommon, http.StatusNoContent, http.StatusNotFound)
	})
	return err
}

var eventDecoders = map[domain.EventKind]func(json.RawMessage) (domain.Occurrence, error){
	domain.KindRewardRedemption: decodeRedemption,
	domain.KindCheer:            decodeCheer,
}

func rawEvent(data json.RawMessage) map[string]any {
	var raw map[string]any
	_ = json.Unmarshal(data, &raw)
	return raw
}

func decodeRedemption(data json.RawMessage) (domain.Occurrence, error) {
	var event helix.EventSubChannelPointsCustomRewardRedemptionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.Occurrence{}, err
	}
	return domain.Occurrence{
		Kind:    domain.KindRewardRedemption,
		Channel: event.BroadcasterUserLogin,
		User:    event.UserLogin,
		Title:   event.Reward.Title,
		Message: event.UserInput,
		Raw:     rawEvent(data),
	}, nil
}

func decodeCheer(data json.RawMessage) (domain.Occurrence, error) {
	var event helix.EventSubChannelCheerEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.Occurrence{}, err
	}
	// Anonymous cheers carry no user; is_anonymous stays visible in raw.
	return domain.Occurrence{
		Kind:    domain.KindCheer,
		Channel: event.BroadcasterUserLogin,
		User:    event.UserLogin,
		Amount:  event.Bits,
		Message: event.Message,
		Raw:     rawEvent(data),
	}, nil
}

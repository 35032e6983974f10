package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/bridge"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/correlation"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var errChatClosed = errors.New("chat connection closed before it was established")

const defaultChatStopTimeout = 5 * time.Second

type Options struct {
	ConnectTimeout        time.Duration
	ChatMessagesPerWindow int
	ChatRateWindow        time.Duration

	// ChatStopTimeout bounds how long teardown waits for the chat connection
	// to return. Zero means five seconds.
	ChatStopTimeout time.Duration
}

// Manager is the sole owner of the upstream session. All transitions are
// serialized by mu; readers use the atomic session pointer without locking.
type Manager struct {
	connector domain.Connector
	bridge    *bridge.Bridge
	clock     clockwork.Clock
	opts      Options
	metrics   *metrics.LifecycleMetrics
	commands  *metrics.CommandMetrics

	mu      sync.Mutex
	creds   *domain.Credentials
	state   atomic.Int32
	current atomic.Pointer[session]
}

// NewManager creates a manager with no session. Metrics may be nil.
func NewManager(connector domain.Connector, b *bridge.Bridge, clock clockwork.Clock, opts Options, lm *metrics.LifecycleMetrics, cm *metrics.CommandMetrics) *Manager {
	if opts.ChatStopTimeout <= 0 {
		opts.ChatStopTimeout = defaultChatStopTimeout
	}
	return &Manager{
		connector: connector,
		bridge:    b,
		clock:     clock,
		opts:      opts,
		metrics:   lm,
		commands:  cm,
	}
}

// Status reports the current state and, when loaded, the session identity.
func (m *Manager) Status() domain.SessionStatus {
	status := domain.SessionStatus{State: m.State().String()}
	if s := m.current.Load(); s != nil {
		identity := s.identity
		status.ID = s.id
		status.Identity = &identity
	}
	return status
}

func (m *Manager) State() domain.SessionState {
	return domain.SessionState(m.state.Load())
}

// Ready reports whether a session is loaded.
func (m *Manager) Ready() bool {
	return m.current.Load() != nil
}

// Load opens a session with creds. It fails with ErrSessionActive when one is
// already loaded.
func (m *Manager) Load(ctx context.Context, creds domain.Credentials) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(ctx, creds)
}

// Unload tears down the session if there is one. It always emits unload.
func (m *Manager) Unload(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unload(ctx)
}

// Reload replaces the session using the credentials of the last Init.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds == nil {
		m.metrics.Transition("reload", "error")
		return domain.ErrNoCredentials
	}
	m.unload(ctx)
	return m.load(ctx, *m.creds)
}

// Init stores creds and reloads, replacing any existing session.
func (m *Manager) Init(ctx context.Context, creds domain.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.creds = &creds
	m.unload(ctx)
	return m.load(ctx, creds)
}

func (m *Manager) setState(s domain.SessionState) {
	m.state.Store(int32(s))
	m.metrics.SetState(int32(s))
}

func (m *Manager) emit(ctx context.Context, name domain.EventName) {
	if err := m.bridge.Emit(ctx, name); err != nil {
		slog.WarnContext(ctx, "Failed to emit lifecycle event", "event", name, "error", err)
	}
}

func (m *Manager) load(ctx context.Context, creds domain.Credentials) error {
	if m.current.Load() != nil {
		m.metrics.Transition("load", "rejected")
		return domain.ErrSessionActive
	}

	start := m.clock.Now()
	m.setState(domain.StateLoading)
	m.emit(ctx, domain.EventLoad)

	s, err := m.open(ctx, creds)
	if err != nil {
		m.setState(domain.StateUnloaded)
		m.emit(ctx, domain.EventError)
		m.metrics.Transition("load", "error")
		slog.ErrorContext(ctx, "Failed to load session", "error", err)
		return err
	}

	m.current.Store(s)
	m.setState(domain.StateLoaded)
	m.emit(ctx, domain.EventLoaded)
	m.metrics.Transition("load", "ok")
	m.metrics.ObserveLoad(m.clock.Since(start).Seconds())

	slog.InfoContext(correlation.WithSessionID(ctx, s.id), "Session loaded",
		"login", s.identity.Login,
		"broadcaster_id", s.identity.ID,
		"subscriptions", len(s.subs))
	return nil
}

// open runs every load step. On failure everything acquired so far is released.
func (m *Manager) open(ctx context.Context, creds domain.Credentials) (_ *session, err error) {
	s := &session{id: uuid.NewString()}
	ctx = correlation.WithSessionID(ctx, s.id)

	defer func() {
		if err != nil {
			m.teardown(ctx, s)
		}
	}()

	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthFailure, err)
	}

	s.api, err = m.connector.Authenticate(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrAuthFailure, err)
	}

	s.pubsub, err = m.connector.OpenPubSub(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("%w: pubsub: %w", domain.ErrTransportConnect, err)
	}

	me, err := s.api.GetMe(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityResolution, err)
	}
	if me == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIdentityResolution, domain.ErrNotFound)
	}
	s.identity = me.Identity()

	s.chat, err = m.connector.OpenChat(creds, s.identity)
	if err != nil {
		return nil, fmt.Errorf("%w: chat: %w", domain.ErrTransportConnect, err)
	}

	connected := make(chan struct{})
	var connectedOnce sync.Once
	listenCtx := context.WithoutCancel(ctx)
	s.lifecycle = append(s.lifecycle,
		s.chat.OnConnect(func() {
			m.emit(listenCtx, domain.EventOpen)
			connectedOnce.Do(func() { close(connected) })
		}),
		s.chat.OnDisconnect(func(cause error) {
			if cause != nil {
				slog.WarnContext(listenCtx, "Chat disconnected", "error", cause)
			}
			m.emit(listenCtx, domain.EventClose)
		}),
	)

	s.subs, err = m.bridge.Install(ctx, s.chat, s.pubsub, s.identity.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrTransportConnect, err)
	}

	if err := m.connectChat(ctx, s, connected); err != nil {
		return nil, fmt.Errorf("%w: chat: %w", domain.ErrTransportConnect, err)
	}
	m.emit(ctx, domain.EventChatOpen)

	s.writer = newChatWriter(s.chat, m.opts.ChatMessagesPerWindow, m.opts.ChatRateWindow, m.commands)
	return s, nil
}

// connectChat starts the chat connection in the background and waits for the
// first outcome.
func (m *Manager) connectChat(ctx context.Context, s *session, connected <-chan struct{}) error {
	connCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancelConnect = cancel

	ended := make(chan error, 1)
	s.connectWg.Go(func() {
		ended <- s.chat.Connect(connCtx)
	})

	timer := m.clock.NewTimer(m.opts.ConnectTimeout)
	defer timer.Stop()

	select {
	case <-connected:
		return nil
	case err := <-ended:
		if err == nil {
			err = errChatClosed
		}
		return err
	case <-timer.Chan():
		return fmt.Errorf("not connected after %s", m.opts.ConnectTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) unload(ctx context.Context) {
	if s := m.current.Swap(nil); s != nil {
		m.setState(domain.StateUnloading)
		m.teardown(correlation.WithSessionID(ctx, s.id), s)
		slog.InfoContext(ctx, "Session unloaded", "session_id", s.id, "login", s.identity.Login)
	}
	m.setState(domain.StateUnloaded)
	m.emit(ctx, domain.EventUnload)
	m.metrics.Transition("unload", "ok")
}

// teardown releases whatever s holds. It tolerates partially opened sessions.
func (m *Manager) teardown(ctx context.Context, s *session) {
	if s.writer != nil {
		s.writer.stop()
	}

	if s.cancelConnect != nil {
		if err := s.chat.Disconnect(); err != nil {
			slog.WarnContext(ctx, "Failed to disconnect chat", "error", err)
		}
		s.cancelConnect()
		m.awaitChat(ctx, s)
	}

	if len(s.subs) > 0 {
		if err := m.bridge.Release(ctx, s.subs); err != nil {
			slog.WarnContext(ctx, "Failed to release subscriptions", "error", err)
		}
	}
	for _, sub := range s.lifecycle {
		_ = sub.Remove(ctx)
	}

	if s.pubsub != nil {
		if err := s.pubsub.Close(); err != nil {
			slog.WarnContext(ctx, "Failed to close pubsub", "error", err)
		}
	}
}

// awaitChat waits for the chat connection goroutine to return. The wait is
// bounded by ChatStopTimeout so a transport that ignores cancellation cannot
// hold mu forever. Cancellation of ctx does not shorten it.
func (m *Manager) awaitChat(ctx context.Context, s *session) {
	stopped := make(chan struct{})
	go func() {
		s.connectWg.Wait()
		close(stopped)
	}()

	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.ChatStopTimeout)
	defer cancel()

	select {
	case <-stopped:
	case <-waitCtx.Done():
		slog.WarnContext(ctx, "Chat connection did not stop, abandoning it", "timeout", m.opts.ChatStopTimeout)
	}
}

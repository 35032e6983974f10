package twitch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	twitch "github.com/gempir/go-twitch-irc/v4"
)

// Chat is the IRC chat connection of one session, joined to the identity's
// own channel. Occurrences are delivered on the IRC client's goroutine.
type Chat struct {
	client    *twitch.Client
	channel   string
	listeners *listenerSet

	connect    hooks[func()]
	disconnect hooks[func(error)]
	closed     atomic.Bool
	stop       chan struct{}
	stopOnce   sync.Once
}

// ChatOptions overrides the IRC endpoint, mainly for tests.
type ChatOptions struct {
	Address string
	TLS     bool
}

func NewChat(creds domain.Credentials, identity domain.Identity, opts ChatOptions) *Chat {
	client := twitch.NewClient(identity.Login, "oauth:"+strings.TrimPrefix(creds.AccessToken, "oauth:"))
	client.Capabilities = []string{twitch.TagsCapability, twitch.CommandsCapability, twitch.MembershipCapability}
	if opts.Address != "" {
		client.IrcAddress = opts.Address
		client.TLS = opts.TLS
	}

	c := &Chat{
		client:    client,
		channel:   strings.ToLower(identity.Login),
		listeners: newListenerSet(),
		stop:      make(chan struct{}),
	}
	client.Join(c.channel)

	client.OnConnect(c.handleConnect)
	client.OnPrivateMessage(func(m twitch.PrivateMessage) { c.listeners.dispatch(classifyPrivate(m)...) })
	client.OnWhisperMessage(func(m twitch.WhisperMessage) { c.listeners.dispatch(classifyWhisper(m)...) })
	client.OnClearChatMessage(func(m twitch.ClearChatMessage) { c.listeners.dispatch(classifyClearChat(m)...) })
	client.OnRoomStateMessage(func(m twitch.RoomStateMessage) { c.listeners.dispatch(classifyRoomState(m)...) })
	client.OnUserNoticeMessage(func(m twitch.UserNoticeMessage) { c.listeners.dispatch(classifyUserNotice(m)...) })
	client.OnUserJoinMessage(func(m twitch.UserJoinMessage) { c.listeners.dispatch(classifyJoin(m)...) })
	client.OnUserPartMessage(func(m twitch.UserPartMessage) { c.listeners.dispatch(classifyPart(m)...) })
	client.OnNoticeMessage(func(m twitch.NoticeMessage) { c.listeners.dispatch(classifyNotice(m)...) })
	client.OnUnsetMessage(func(m twitch.RawMessage) { c.listeners.dispatch(classifyUnset(m)...) })

	return c
}

func (c *Chat) handleConnect() {
	// A Disconnect that raced the dial must still win.
	if c.closed.Load() {
		_ = c.client.Disconnect()
		return
	}
	slog.Debug("Chat connected", "channel", c.channel)
	for _, fn := range c.connect.snapshot() {
		fn()
	}
}

func (c *Chat) On(kind domain.EventKind, fn domain.Listener) domain.Subscription {
	return c.listeners.on(kind, fn)
}

func (c *Chat) OnConnect(fn func()) domain.Subscription {
	return c.connect.add(fn)
}

func (c *Chat) OnDisconnect(fn func(error)) domain.Subscription {
	return c.disconnect.add(fn)
}

// Connect blocks while the IRC client is running, including its own
// reconnects. It returns nil after Disconnect and ctx.Err() once ctx is done.
//
// The IRC client cannot be stopped before it has logged in, so Connect does
// not wait for it after Disconnect or cancellation. A client that logs in
// later is disconnected by handleConnect.
func (c *Chat) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return nil
	}

	result := make(chan error, 1)
	go func() { result <- c.client.Connect() }()

	var err error
	select {
	case err = <-result:
		if errors.Is(err, twitch.ErrClientDisconnected) {
			err = nil
		}
	case <-c.stop:
	case <-ctx.Done():
		_ = c.Disconnect()
	}

	for _, fn := range c.disconnect.snapshot() {
		fn(err)
	}
	if err == nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (c *Chat) Disconnect() error {
	c.closed.Store(true)
	c.stopOnce.Do(func() { close(c.stop) })
	err := c.client.Disconnect()
	if errors.Is(err, twitch.ErrConnectionIsNotOpen) {
		return nil
	}
	return err
}

func (c *Chat) Say(message string) error {
	if c.closed.Load() {
		return domain.ErrWriterClosed
	}
	c.client.Say(c.channel, message)
	return nil
}

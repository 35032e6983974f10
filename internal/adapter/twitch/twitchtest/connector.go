package twitchtest

import (
	"context"
	"fmt"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
)

// Connector hands out the configured transports. Unset functions fall back
// to API, Chat and PubSub; nil handles fail with "not implemented".
type Connector struct {
	AuthenticateFn func(ctx context.Context, creds domain.Credentials) (domain.ChannelAPI, error)
	OpenPubSubFn   func(ctx context.Context, creds domain.Credentials) (domain.PubSubTransport, error)
	OpenChatFn     func(creds domain.Credentials, identity domain.Identity) (domain.ChatTransport, error)

	API    domain.ChannelAPI
	Chat   *Chat
	PubSub *PubSub
}

func (c *Connector) Authenticate(ctx context.Context, creds domain.Credentials) (domain.ChannelAPI, error) {
	if c.AuthenticateFn != nil {
		return c.AuthenticateFn(ctx, creds)
	}
	if c.API == nil {
		return nil, fmt.Errorf("not implemented")
	}
	return c.API, nil
}

func (c *Connector) OpenPubSub(ctx context.Context, creds domain.Credentials) (domain.PubSubTransport, error) {
	if c.OpenPubSubFn != nil {
		return c.OpenPubSubFn(ctx, creds)
	}
	if c.PubSub == nil {
		return nil, fmt.Errorf("not implemented")
	}
	return c.PubSub, nil
}

func (c *Connector) OpenChat(creds domain.Credentials, identity domain.Identity) (domain.ChatTransport, error) {
	if c.OpenChatFn != nil {
		return c.OpenChatFn(creds, identity)
	}
	if c.Chat == nil {
		return nil, fmt.Errorf("not implemented")
	}
	return c.Chat, nil
}

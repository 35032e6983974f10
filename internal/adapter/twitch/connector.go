package twitch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/version"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/nicklaw5/helix/v2"
)

const helixTimeout = 10 * time.Second

type ConnectorOptions struct {
	HelixBaseURL string // empty means the public Helix API
	EventSubURL  string
	Chat         ChatOptions
	Clock        clockwork.Clock
}

// Connector builds per-session Twitch handles from host supplied credentials.
type Connector struct {
	opts       ConnectorOptions
	httpClient *http.Client
	dialer     *websocket.Dialer

	// validate is (*helix.Client).ValidateToken, replaceable because the
	// validation endpoint is fixed to id.twitch.tv.
	validate func(c *helix.Client, token string) (bool, *helix.ValidateTokenResponse, error)
}

func NewConnector(opts ConnectorOptions) *Connector {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Connector{
		opts:       opts,
		httpClient: &http.Client{Timeout: helixTimeout},
		dialer:     &websocket.Dialer{HandshakeTimeout: welcomeTimeout},
		validate:   (*helix.Client).ValidateToken,
	}
}

func (c *Connector) newHelix(creds domain.Credentials) (*helix.Client, error) {
	client, err := helix.NewClient(&helix.Options{
		ClientID:        creds.ClientID,
		UserAccessToken: creds.AccessToken,
		UserAgent:       version.UserAgent(),
		HTTPClient:      c.httpClient,
		APIBaseURL:      c.opts.HelixBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create helix client: %w", err)
	}
	return client, nil
}

// Authenticate validates the token and checks it was issued to the given
// client id.
func (c *Connector) Authenticate(ctx context.Context, creds domain.Credentials) (domain.ChannelAPI, error) {
	client, err := c.newHelix(creds)
	if err != nil {
		return nil, err
	}

	valid, resp, err := c.validate(client, creds.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}
	if !valid {
		status := http.StatusUnauthorized
		message := "invalid access token"
		if resp != nil && resp.StatusCode != 0 {
			status = resp.StatusCode
			if resp.ErrorMessage != "" {
				message = resp.ErrorMessage
			}
		}
		return nil, &domain.UpstreamError{Op: "validate token", StatusCode: status, Message: message}
	}
	if resp.Data.ClientID != creds.ClientID {
		return nil, errors.New("access token was issued to a different client id")
	}

	slog.DebugContext(ctx, "Token validated", "login", resp.Data.Login, "scopes", resp.Data.Scopes, "expires_in", resp.Data.ExpiresIn)
	return NewAPI(client), nil
}

func (c *Connector) OpenPubSub(ctx context.Context, creds domain.Credentials) (domain.PubSubTransport, error) {
	client, err := c.newHelix(creds)
	if err != nil {
		return nil, err
	}
	return OpenEventSub(ctx, client, EventSubOptions{
		URL:    c.opts.EventSubURL,
		Clock:  c.opts.Clock,
		Dialer: c.dialer,
	})
}

func (c *Connector) OpenChat(creds domain.Credentials, identity domain.Identity) (domain.ChatTransport, error) {
	if identity.Login == "" {
		return nil, errors.New("identity has no login")
	}
	return NewChat(creds, identity, c.opts.Chat), nil
}

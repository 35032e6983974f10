package app

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Gateway passes host commands through to the live session. Every call fails
// with ErrNoActiveSession when no session is loaded; upstream errors are
// returned unmodified.
type Gateway struct {
	manager *Manager
	metrics *metrics.CommandMetrics
	lookups singleflight.Group
}

func NewGateway(manager *Manager, m *metrics.CommandMetrics) *Gateway {
	return &Gateway{manager: manager, metrics: m}
}

func (g *Gateway) session() (*session, error) {
	s := g.manager.current.Load()
	if s == nil {
		return nil, domain.ErrNoActiveSession
	}
	return s, nil
}

func (g *Gateway) observe(command string, err error) {
	g.metrics.Observe(command, err)
}

// Say queues message for the session's own channel.
func (g *Gateway) Say(ctx context.Context, message string) error {
	return g.write(ctx, "say", "", message)
}

// Action queues message as a /me action.
func (g *Gateway) Action(ctx context.Context, message string) error {
	return g.write(ctx, "action", "/me ", message)
}

// Whisper sends message to user through the Helix whisper endpoint. Unlike
// chat writes it is not queued, so upstream failures reach the caller.
func (g *Gateway) Whisper(ctx context.Context, user, message string) error {
	_, err := call(g, "whisper", func(s *session) (struct{}, error) {
		switch {
		case strings.TrimSpace(user) == "":
			return struct{}{}, domain.ErrMissingRecipient
		case strings.TrimSpace(message) == "":
			return struct{}{}, domain.ErrEmptyMessage
		}
		return struct{}{}, s.api.SendWhisper(ctx, s.identity.ID, user, message)
	})
	return err
}

func (g *Gateway) write(ctx context.Context, command, prefix, message string) error {
	s, err := g.session()
	if err != nil {
		g.observe(command, err)
		return err
	}
	if strings.TrimSpace(message) == "" {
		g.observe(command, domain.ErrEmptyMessage)
		return domain.ErrEmptyMessage
	}

	err = s.writer.enqueue(ctx, prefix+message)
	if errors.Is(err, domain.ErrWriterClosed) {
		// The session was unloaded between the lookup and the enqueue.
		err = domain.ErrNoActiveSession
	}
	g.observe(command, err)
	return err
}

// call runs fn against the live session and records the outcome.
func call[T any](g *Gateway, command string, fn func(s *session) (T, error)) (T, error) {
	s, err := g.session()
	if err != nil {
		g.observe(command, err)
		var zero T
		return zero, err
	}

	v, err := fn(s)
	g.observe(command, err)
	return v, err
}

// shared collapses concurrent identical lookups against the same session.
func shared[T any](g *Gateway, command, key string, fn func(s *session) (T, error)) (T, error) {
	return call(g, command, func(s *session) (T, error) {
		v, err, _ := g.lookups.Do(s.id+"|"+command+"|"+key, func() (any, error) {
			return fn(s)
		})
		if err != nil {
			var zero T
			return zero, err
		}
		return v.(T), nil
	})
}

func (g *Gateway) BitsLeaderboard(ctx context.Context, q domain.BitsLeaderboardQuery) (*domain.BitsLeaderboard, error) {
	return call(g, "bits_leaderboard", func(s *session) (*domain.BitsLeaderboard, error) {
		return s.api.BitsLeaderboard(ctx, q)
	})
}

// CreateClip clips the session's own broadcast.
func (g *Gateway) CreateClip(ctx context.Context) (*domain.ClipCreated, error) {
	return call(g, "create_clip", func(s *session) (*domain.ClipCreated, error) {
		return s.api.CreateClip(ctx, s.identity.ID)
	})
}

func (g *Gateway) GetClipByID(ctx context.Context, id string) (*domain.Clip, error) {
	return shared(g, "get_clip", id, func(s *session) (*domain.Clip, error) {
		return s.api.GetClipByID(ctx, id)
	})
}

func (g *Gateway) GetClipsForBroadcaster(ctx context.Context, f domain.ClipFilter) (*domain.ClipPage, error) {
	return call(g, "get_clips", func(s *session) (*domain.ClipPage, error) {
		return s.api.GetClips(ctx, s.identity.ID, f)
	})
}

func (g *Gateway) GetGameByID(ctx context.Context, id string) (*domain.Game, error) {
	return shared(g, "get_game", "id:"+id, func(s *session) (*domain.Game, error) {
		return firstGame(s.api.GetGames(ctx, []string{id}, nil))
	})
}

func (g *Gateway) GetGameByName(ctx context.Context, name string) (*domain.Game, error) {
	return shared(g, "get_game", "name:"+name, func(s *session) (*domain.Game, error) {
		return firstGame(s.api.GetGames(ctx, nil, []string{name}))
	})
}

func (g *Gateway) GetGamesByNames(ctx context.Context, names []string) ([]domain.Game, error) {
	return call(g, "get_games", func(s *session) ([]domain.Game, error) {
		return s.api.GetGames(ctx, nil, names)
	})
}

func firstGame(games []domain.Game, err error) (*domain.Game, error) {
	if err != nil {
		return nil, err
	}
	if len(games) == 0 {
		return nil, domain.ErrNotFound
	}
	return &games[0], nil
}

func (g *Gateway) GetTopGames(ctx context.Context, first int, after string) (*domain.GamePage, error) {
	return call(g, "get_top_games", func(s *session) (*domain.GamePage, error) {
		return s.api.GetTopGames(ctx, first, after)
	})
}

// CheckUserBan reports whether userID is banned from the session's channel.
func (g *Gateway) CheckUserBan(ctx context.Context, userID string) (bool, error) {
	return shared(g, "check_ban", userID, func(s *session) (bool, error) {
		return s.api.IsBanned(ctx, s.identity.ID, userID)
	})
}

// CheckUserMod reports whether userID moderates the session's channel.
func (g *Gateway) CheckUserMod(ctx context.Context, userID string) (bool, error) {
	return shared(g, "check_mod", userID, func(s *session) (bool, error) {
		return s.api.IsModerator(ctx, s.identity.ID, userID)
	})
}

// GetFollows lists followers of the session's channel.
func (g *Gateway) GetFollows(ctx context.Context, f domain.FollowFilter) (*domain.FollowPage, error) {
	return call(g, "get_follows", func(s *session) (*domain.FollowPage, error) {
		return s.api.GetFollowers(ctx, s.identity.ID, f)
	})
}

func (g *Gateway) GetMe(ctx context.Context) (*domain.User, error) {
	return shared(g, "get_me", "", func(s *session) (*domain.User, error) {
		return s.api.GetMe(ctx)
	})
}

func (g *Gateway) GetUserByName(ctx context.Context, login string) (*domain.User, error) {
	return shared(g, "get_user", strings.ToLower(login), func(s *session) (*domain.User, error) {
		return s.api.GetUserByName(ctx, login)
	})
}

// StartCommercial runs an ad break of length seconds on the session's channel.
func (g *Gateway) StartCommercial(ctx context.Context, length int) (*domain.Commercial, error) {
	return call(g, "start_commercial", func(s *session) (*domain.Commercial, error) {
		if !slices.Contains(domain.CommercialLengths, length) {
			return nil, domain.ErrInvalidCommercialLength
		}
		return s.api.StartCommercial(ctx, s.identity.ID, length)
	})
}

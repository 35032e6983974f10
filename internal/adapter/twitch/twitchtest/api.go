package twitchtest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
)

// ChannelAPI is a function-field fake. Unset functions fail with "not implemented",
// except GetMe which falls back to Me.
type ChannelAPI struct {
	Me *domain.User

	GetMeFn           func(ctx context.Context) (*domain.User, error)
	GetUserByNameFn   func(ctx context.Context, login string) (*domain.User, error)
	BitsLeaderboardFn func(ctx context.Context, q domain.BitsLeaderboardQuery) (*domain.BitsLeaderboard, error)
	CreateClipFn      func(ctx context.Context, broadcasterID string) (*domain.ClipCreated, error)
	GetClipByIDFn     func(ctx context.Context, id string) (*domain.Clip, error)
	GetClipsFn        func(ctx context.Context, broadcasterID string, f domain.ClipFilter) (*domain.ClipPage, error)
	GetGamesFn        func(ctx context.Context, ids, names []string) ([]domain.Game, error)
	GetTopGamesFn     func(ctx context.Context, first int, after string) (*domain.GamePage, error)
	IsBannedFn        func(ctx context.Context, broadcasterID, userID string) (bool, error)
	IsModeratorFn     func(ctx context.Context, broadcasterID, userID string) (bool, error)
	GetFollowersFn    func(ctx context.Context, broadcasterID string, f domain.FollowFilter) (*domain.FollowPage, error)
	StartCommercialFn func(ctx context.Context, broadcasterID string, length int) (*domain.Commercial, error)
	SendWhisperFn     func(ctx context.Context, fromUserID, toLogin, message string) error

	calls atomic.Int32

	mu       sync.Mutex
	whispers []Whisper
}

// Whisper is a recorded outbound whisper.
type Whisper struct {
	From    string
	To      string
	Message string
}

var errNotImplemented = fmt.Errorf("not implemented")

// Calls counts every method invocation.
func (a *ChannelAPI) Calls() int { return int(a.calls.Load()) }

func (a *ChannelAPI) GetMe(ctx context.Context) (*domain.User, error) {
	a.calls.Add(1)
	if a.GetMeFn != nil {
		return a.GetMeFn(ctx)
	}
	if a.Me != nil {
		return a.Me, nil
	}
	return nil, errNotImplemented
}

func (a *ChannelAPI) GetUserByName(ctx context.Context, login string) (*domain.User, error) {
	a.calls.Add(1)
	if a.GetUserByNameFn != nil {
		return a.GetUserByNameFn(ctx, login)
	}
	return nil, errNotImplemented
}

func (a *ChannelAPI) BitsLeaderboard(ctx context.Context, q domain.BitsLeaderboardQuery) (*domain.BitsLeaderboard, error) {
	a.calls.Add(1)
	if a.BitsLeaderboardFn != nil {
		return a.BitsLeaderboardFn(ctx, q)
	}
	return nil, errNotImplemented
}

func (a *ChannelAPI) CreateClip(ctx context.Context, broadcasterID string) (*domain.ClipCreated, error) {
	a.calls.Add(1)
	if a.CreateClipFn != nil {
		return a.CreateClipFn(ctx, broadcasterID)
	}
	return nil, errNotImplemented
}

func (a *ChannelAPI) GetClipByID(ctx context.Context, id string) (*domain.Clip, error) {
	a.calls.Add(1)
	if a.GetClipByIDFn != nil {
		return a.GetClipByIDFn(ctx, id)
	}
	return nil, errNotImplemented
}

func (a *ChannelAPI) GetClips(ctx context.Context, broadcasterID string, f domain.ClipFilter) (*domain.ClipPage, error) {
	a.calls.Add(1)
	if a.GetClipsFn != nil {
		return a.GetClipsFn(ctx, broadcasterID, f)
	}
	return nil, errNotImplemented
}

func (a *ChannelAPI) GetGames(ctx context.Context, ids, names []string) ([]domain.Game, error) {
	a.calls.Add(1)
	if a.GetGamesFn != nil {
		return a.GetGamesFn(ctx, ids, names)
	}
	return nil, errNotImplemented
}

func (a *ChannelAPI) GetTopGames(ctx context.Context, first int, after string) (*domain.GamePage, error) {
	a.calls.Add(1)
	if a.GetTopGamesFn != nil {
		return a.GetTopGamesFn(ctx, first, after)
	}
	return nil, errNotImplemented
}

func (a *ChannelAPI) IsBanned(ctx context.Context, broadcasterID, userID string) (bool, error) {
	a.calls.Add(1)
	if a.IsBannedFn != nil {
		return a.IsBannedFn(ctx, broadcasterID, userID)
	}
	return false, errNotImplemented
}

func (a *ChannelAPI) IsModerator(ctx context.Context, broadcasterID, userID string) (bool, error) {
	a.calls.Add(1)
	if a.IsModeratorFn != nil {
		return a.IsModeratorFn(ctx, broadcasterID, userID)
	}
	return false, errNotImplemented
}

func (a *ChannelAPI) GetFollowers(ctx context.Context, broadcasterID string, f domain.FollowFilter) (*domain.FollowPage, error) {
	a.calls.Add(1)
	if a.GetFollowersFn != nil {
		return a.GetFollowersFn(ctx, broadcasterID, f)
	}
	return nil, errNotImplemented
}

func (a *ChannelAPI) StartCommercial(ctx context.Context, broadcasterID string, length int) (*domain.Commercial, error) {
	a.calls.Add(1)
	if a.StartCommercialFn != nil {
		return a.StartCommercialFn(ctx, broadcasterID, length)
	}
	return nil, errNotImplemented
}

// SendWhisper records the whisper unless SendWhisperFn fails it.
func (a *ChannelAPI) SendWhisper(ctx context.Context, fromUserID, toLogin, message string) error {
	a.calls.Add(1)
	if a.SendWhisperFn != nil {
		if err := a.SendWhisperFn(ctx, fromUserID, toLogin, message); err != nil {
			return err
		}
	}
	a.mu.Lock()
	a.whispers = append(a.whispers, Whisper{From: fromUserID, To: toLogin, Message: message})
	a.mu.Unlock()
	return nil
}

func (a *ChannelAPI) Whispers() []Whisper {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.whispers)
}

package twitch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/nicklaw5/helix/v2"
)

// API implements domain.ChannelAPI on a Helix client holding the session's
// user token. The Helix client takes no context, so ctx is only checked
// before each call; the HTTP client timeout bounds the call itself.
type API struct {
	client *helix.Client
}

func NewAPI(client *helix.Client) *API {
	return &API{client: client}
}

func (a *API) GetMe(ctx context.Context) (*domain.User, error) {
	return a.getUser(ctx, "get me", &helix.UsersParams{})
}

func (a *API) GetUserByName(ctx context.Context, login string) (*domain.User, error) {
	return a.getUser(ctx, "get user", &helix.UsersParams{Logins: []string{login}})
}

func (a *API) getUser(ctx context.Context, op string, params *helix.UsersParams) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.GetUsers(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := checkResponse(op, resp.ResponseCommon); err != nil {
		return nil, err
	}
	if len(resp.Data.Users) == 0 {
		return nil, domain.ErrNotFound
	}

	u := resp.Data.Users[0]
	return &domain.User{
		ID:              u.ID,
		Login:           u.Login,
		DisplayName:     u.DisplayName,
		Type:            u.Type,
		BroadcasterType: u.BroadcasterType,
		Description:     u.Description,
		ProfileImageURL: u.ProfileImageURL,
		CreatedAt:       u.CreatedAt.Time,
	}, nil
}

func (a *API) BitsLeaderboard(ctx context.Context, q domain.BitsLeaderboardQuery) (*domain.BitsLeaderboard, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.GetBitsLeaderboard(&helix.BitsLeaderboardParams{
		Count:     q.Count,
		Period:    q.Period,
		StartedAt: q.StartedAt,
		UserID:    q.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("get bits leaderboard: %w", err)
	}
	if err := checkResponse("get bits leaderboard", resp.ResponseCommon); err != nil {
		return nil, err
	}

	board := &domain.BitsLeaderboard{
		Entries:   make([]domain.BitsLeader, 0, len(resp.Data.UserBitTotals)),
		Total:     resp.Data.Total,
		StartedAt: resp.Data.DateRange.StartedAt.Time,
		EndedAt:   resp.Data.DateRange.EndedAt.Time,
	}
	for _, t := range resp.Data.UserBitTotals {
		board.Entries = append(board.Entries, domain.BitsLeader{
			UserID:    t.UserID,
			UserLogin: t.UserLogin,
			UserName:  t.UserName,
			Rank:      t.Rank,
			Score:     t.Score,
		})
	}
	return board, nil
}

func (a *API) CreateClip(ctx context.Context, broadcasterID string) (*domain.ClipCreated, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.CreateClip(&helix.CreateClipParams{BroadcasterID: broadcasterID})
	if err != nil {
		return nil, fmt.Errorf("create clip: %w", err)
	}
	if err := checkResponse("create clip", resp.ResponseCommon); err != nil {
		return nil, err
	}
	if len(resp.Data.ClipEditURLs) == 0 {
		return nil, domain.ErrNotFound
	}

	c := resp.Data.ClipEditURLs[0]
	return &domain.ClipCreated{ID: c.ID, EditURL: c.EditURL}, nil
}

func (a *API) GetClipByID(ctx context.Context, id string) (*domain.Clip, error) {
	page, err := a.clips(ctx, &helix.ClipsParams{IDs: []string{id}})
	if err != nil {
		return nil, err
	}
	if len(page.Clips) == 0 {
		return nil, domain.ErrNotFound
	}
	return &page.Clips[0], nil
}

func (a *API) GetClips(ctx context.Context, broadcasterID string, f domain.ClipFilter) (*domain.ClipPage, error) {
	params := &helix.ClipsParams{
		BroadcasterID: broadcasterID,
		First:         f.First,
		After:         f.After,
	}
	if !f.StartedAt.IsZero() {
		params.StartedAt = helix.Time{Time: f.StartedAt}
	}
	if !f.EndedAt.IsZero() {
		params.EndedAt = helix.Time{Time: f.EndedAt}
	}
	return a.clips(ctx, params)
}

func (a *API) clips(ctx context.Context, params *helix.ClipsParams) (*domain.ClipPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.GetClips(params)
	if err != nil {
		return nil, fmt.Errorf("get clips: %w", err)
	}
	if err := checkResponse("get clips", resp.ResponseCommon); err != nil {
		return nil, err
	}

	page := &domain.ClipPage{
		Clips:  make([]domain.Clip, 0, len(resp.Data.Clips)),
		Cursor: resp.Data.Pagination.Cursor,
	}
	for _, c := range resp.Data.Clips {
		created, _ := time.Parse(time.RFC3339, c.CreatedAt)
		page.Clips = append(page.Clips, domain.Clip{
			ID:              c.ID,
			URL:             c.URL,
			EmbedURL:        c.EmbedURL,
			BroadcasterID:   c.BroadcasterID,
			BroadcasterName: c.BroadcasterName,
			CreatorID:       c.CreatorID,
			CreatorName:     c.CreatorName,
			VideoID:         c.VideoID,
			GameID:          c.GameID,
			Title:           c.Title,
			ViewCount:       c.ViewCount,
			Duration:        c.Duration,
			ThumbnailURL:    c.ThumbnailURL,
			CreatedAt:       created,
		})
	}
	return page, nil
}

func (a *API) GetGames(ctx context.Context, ids, names []string) ([]domain.Game, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.GetGames(&helix.GamesParams{IDs: ids, Names: names})
	if err != nil {
		return nil, fmt.Errorf("get games: %w", err)
	}
	if err := checkResponse("get games", resp.ResponseCommon); err != nil {
		return nil, err
	}
	return toGames(resp.Data.Games), nil
}

func (a *API) GetTopGames(ctx context.Context, first int, after string) (*domain.GamePage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.GetTopGames(&helix.TopGamesParams{First: first, After: after})
	if err != nil {
		return nil, fmt.Errorf("get top games: %w", err)
	}
	if err := checkResponse("get top games", resp.ResponseCommon); err != nil {
		return nil, err
	}
	return &domain.GamePage{Games: toGames(resp.Data.Games), Cursor: resp.Data.Pagination.Cursor}, nil
}

func toGames(games []helix.Game) []domain.Game {
	out := make([]domain.Game, 0, len(games))
	for _, g := range games {
		out = append(out, domain.Game{ID: g.ID, Name: g.Name, BoxArtURL: g.BoxArtURL})
	}
	return out
}

func (a *API) IsBanned(ctx context.Context, broadcasterID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	resp, err := a.client.GetBannedUsers(&helix.BannedUsersParams{BroadcasterID: broadcasterID, UserID: userID})
	if err != nil {
		return false, fmt.Errorf("get banned users: %w", err)
	}
	if err := checkResponse("get banned users", resp.ResponseCommon); err != nil {
		return false, err
	}
	return len(resp.Data.Bans) > 0, nil
}

func (a *API) IsModerator(ctx context.Context, broadcasterID, userID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	resp, err := a.client.GetModerators(&helix.GetModeratorsParams{BroadcasterID: broadcasterID, UserIDs: []string{userID}})
	if err != nil {
		return false, fmt.Errorf("get moderators: %w", err)
	}
	if err := checkResponse("get moderators", resp.ResponseCommon); err != nil {
		return false, err
	}
	return len(resp.Data.Moderators) > 0, nil
}

func (a *API) GetFollowers(ctx context.Context, broadcasterID string, f domain.FollowFilter) (*domain.FollowPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.GetChannelFollows(&helix.GetChannelFollowsParams{
		BroadcasterID: broadcasterID,
		UserID:        f.UserID,
		First:         f.First,
		After:         f.After,
	})
	if err != nil {
		return nil, fmt.Errorf("get channel followers: %w", err)
	}
	if err := checkResponse("get channel followers", resp.ResponseCommon); err != nil {
		return nil, err
	}

	page := &domain.FollowPage{
		Follows: make([]domain.Follow, 0, len(resp.Data.Channels)),
		Total:   resp.Data.Total,
		Cursor:  resp.Data.Pagination.Cursor,
	}
	for _, c := range resp.Data.Channels {
		page.Follows = append(page.Follows, domain.Follow{
			UserID:     c.UserID,
			UserLogin:  c.UserLogin,
			UserName:   c.UserName,
			FollowedAt: c.FollowedAt.Time,
		})
	}
	return page, nil
}

func (a *API) StartCommercial(ctx context.Context, broadcasterID string, length int) (*domain.Commercial, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	resp, err := a.client.StartCommercial(&helix.StartCommercialParams{
		BroadcasterID: broadcasterID,
		Length:        helix.AdLengthEnum(length),
	})
	if err != nil {
		return nil, fmt.Errorf("start commercial: %w", err)
	}
	if err := checkResponse("start commercial", resp.ResponseCommon); err != nil {
		return nil, err
	}
	if len(resp.Data.AdDetails) == 0 {
		return &domain.Commercial{Length: length}, nil
	}

	ad := resp.Data.AdDetails[0]
	return &domain.Commercial{Length: ad.Length, Message: ad.Message, RetryAfter: ad.RetryAfter}, nil
}

// SendWhisper resolves toLogin and whispers message from fromUserID. Twitch
// answers 204 even when it silently drops a whisper.
func (a *API) SendWhisper(ctx context.Context, fromUserID, toLogin, message string) error {
	to, err := a.GetUserByName(ctx, strings.ToLower(strings.TrimPrefix(toLogin, "@")))
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	resp, err := a.client.SendUserWhisper(&helix.SendUserWhisperParams{
		FromUserID: fromUserID,
		ToUserID:   to.ID,
		Message:    message,
	})
	if err != nil {
		return fmt.Errorf("send whisper: %w", err)
	}
	return checkResponse("send whisper", resp.ResponseCommon)
}

package domain

import (
	"context"
	"time"
)

type User struct {
	ID              string    `json:"id"`
	Login           string    `json:"login"`
	DisplayName     string    `json:"displayName"`
	Type            string    `json:"type"`
	BroadcasterType string    `json:"broadcasterType"`
	Description     string    `json:"description"`
	ProfileImageURL string    `json:"profileImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (u User) Identity() Identity {
	return Identity{ID: u.ID, Login: u.Login, DisplayName: u.DisplayName}
}

type BitsLeaderboardQuery struct {
	Count     int
	Period    string // day, week, month, year or all
	StartedAt time.Time
	UserID    string
}

type BitsLeader struct {
	UserID    string `json:"userId"`
	UserLogin string `json:"userLogin"`
	UserName  string `json:"userName"`
	Rank      int    `json:"rank"`
	Score     int    `json:"score"`
}

type BitsLeaderboard struct {
	Entries   []BitsLeader `json:"entries"`
	Total     int          `json:"total"`
	StartedAt time.Time    `json:"startedAt"`
	EndedAt   time.Time    `json:"endedAt"`
}

type ClipCreated struct {
	ID      string `json:"id"`
	EditURL string `json:"editUrl"`
}

type Clip struct {
	ID              string    `json:"id"`
	URL             string    `json:"url"`
	EmbedURL        string    `json:"embedUrl"`
	BroadcasterID   string    `json:"broadcasterId"`
	BroadcasterName string    `json:"broadcasterName"`
	CreatorID       string    `json:"creatorId"`
	CreatorName     string    `json:"creatorName"`
	VideoID         string    `json:"videoId"`
	GameID          string    `json:"gameId"`
	Title           string    `json:"title"`
	ViewCount       int       `json:"viewCount"`
	Duration        float64   `json:"duration"`
	ThumbnailURL    string    `json:"thumbnailUrl"`
	CreatedAt       time.Time `json:"createdAt"`
}

type ClipFilter struct {
	StartedAt time.Time
	EndedAt   time.Time
	First     int
	After     string
}

type ClipPage struct {
	Clips  []Clip `json:"clips"`
	Cursor string `json:"cursor,omitempty"`
}

type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"boxArtUrl"`
}

type GamePage struct {
	Games  []Game `json:"games"`
	Cursor string `json:"cursor,omitempty"`
}

type FollowFilter struct {
	UserID string
	First  int
	After  string
}

type Follow struct {
	UserID     string    `json:"userId"`
	UserLogin  string    `json:"userLogin"`
	UserName   string    `json:"userName"`
	FollowedAt time.Time `json:"followedAt"`
}

type FollowPage struct {
	Follows []Follow `json:"follows"`
	Total   int      `json:"total"`
	Cursor  string   `json:"cursor,omitempty"`
}

type Commercial struct {
	Length     int    `json:"length"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retryAfter"`
}

// CommercialLengths are the durations in seconds Twitch accepts.
var CommercialLengths = []int{30, 60, 90, 120, 150, 180}

// ChannelAPI is the authenticated Helix surface used by a session.
// Lookups that find nothing return ErrNotFound.
type ChannelAPI interface {
	GetMe(ctx context.Context) (*User, error)
	GetUserByName(ctx context.Context, login string) (*User, error)
	BitsLeaderboard(ctx context.Context, q BitsLeaderboardQuery) (*BitsLeaderboard, error)
	CreateClip(ctx context.Context, broadcasterID string) (*ClipCreated, error)
	GetClipByID(ctx context.Context, id string) (*Clip, error)
	GetClips(ctx context.Context, broadcasterID string, f ClipFilter) (*ClipPage, error)
	GetGames(ctx context.Context, ids, names []string) ([]Game, error)
	GetTopGames(ctx context.Context, first int, after string) (*GamePage, error)
	IsBanned(ctx context.Context, broadcasterID, userID string) (bool, error)
	IsModerator(ctx context.Context, broadcasterID, userID string) (bool, error)
	GetFollowers(ctx context.Context, broadcasterID string, f FollowFilter) (*FollowPage, error)
	StartCommercial(ctx context.Context, broadcasterID string, length int) (*Commercial, error)
	SendWhisper(ctx context.Context, fromUserID, toLogin, message string) error
}

package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/adapter/metrics"
	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/config"
	"github.com/labstack/echo/v4"
)

type lifecycle interface {
	Init(ctx context.Context, creds domain.Credentials) error
	Reload(ctx context.Context) error
	Unload(ctx context.Context)
	Status() domain.SessionStatus
}

type commands interface {
	Say(ctx context.Context, message string) error
	Action(ctx context.Context, message string) error
	Whisper(ctx context.Context, user, message string) error

	BitsLeaderboard(ctx context.Context, q domain.BitsLeaderboardQuery) (*domain.BitsLeaderboard, error)
	CreateClip(ctx context.Context) (*domain.ClipCreated, error)
	GetClipByID(ctx context.Context, id string) (*domain.Clip, error)
	GetClipsForBroadcaster(ctx context.Context, f domain.ClipFilter) (*domain.ClipPage, error)
	GetGameByID(ctx context.Context, id string) (*domain.Game, error)
	GetGameByName(ctx context.Context, name string) (*domain.Game, error)
	GetGamesByNames(ctx context.Context, names []string) ([]domain.Game, error)
	GetTopGames(ctx context.Context, first int, after string) (*domain.GamePage, error)
	CheckUserBan(ctx context.Context, userID string) (bool, error)
	CheckUserMod(ctx context.Context, userID string) (bool, error)
	GetFollows(ctx context.Context, f domain.FollowFilter) (*domain.FollowPage, error)
	GetMe(ctx context.Context) (*domain.User, error)
	GetUserByName(ctx context.Context, login string) (*domain.User, error)
	StartCommercial(ctx context.Context, length int) (*domain.Commercial, error)
}

type journalReader interface {
	ListAfter(ctx context.Context, afterSeq int64, limit int) ([]domain.JournalEntry, error)
}

type listenerCounter interface {
	Count() int
}

// Deps are the collaborators the control API serves. Journal and Listeners
// may be nil when the matching backend is not configured.
type Deps struct {
	Lifecycle        lifecycle
	Commands         commands
	Journal          journalReader
	Listeners        listenerCounter
	WebsocketHandler http.Handler
	MetricsHandler   http.Handler
	HTTPMetrics      *metrics.HTTPMetrics
	HealthChecks     []HealthCheck
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	lifecycle lifecycle
	commands  commands
	journal   journalReader
	listeners listenerCounter

	websocketHandler http.Handler
	metricsHandler   http.Handler
	httpMetrics      *metrics.HTTPMetrics

	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:             e,
		config:           cfg,
		lifecycle:        deps.Lifecycle,
		commands:         deps.Commands,
		journal:          deps.Journal,
		listeners:        deps.Listeners,
		websocketHandler: deps.WebsocketHandler,
		metricsHandler:   deps.MetricsHandler,
		httpMetrics:      deps.HTTPMetrics,
		healthChecks:     deps.HealthChecks,
		startTime:        time.Now(),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}

// ServeHTTP lets tests drive the full middleware stack.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

func respond(c echo.Context, status int, body any) error {
	if err := c.JSON(status, body); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

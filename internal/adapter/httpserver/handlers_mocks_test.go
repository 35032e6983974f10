package httpserver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/config"
	"github.com/stretchr/testify/require"
)

// --- Mock implementations ---

type mockLifecycle struct {
	initFn   func(ctx context.Context, creds domain.Credentials) error
	reloadFn func(ctx context.Context) error
	unloadFn func(ctx context.Context)
	statusFn func() domain.SessionStatus
}

func (m *mockLifecycle) Init(ctx context.Context, creds domain.Credentials) error {
	if m.initFn != nil {
		return m.initFn(ctx, creds)
	}
	return nil
}

func (m *mockLifecycle) Reload(ctx context.Context) error {
	if m.reloadFn != nil {
		return m.reloadFn(ctx)
	}
	return nil
}

func (m *mockLifecycle) Unload(ctx context.Context) {
	if m.unloadFn != nil {
		m.unloadFn(ctx)
	}
}

func (m *mockLifecycle) Status() domain.SessionStatus {
	if m.statusFn != nil {
		return m.statusFn()
	}
	return domain.SessionStatus{State: domain.StateUnloaded.String()}
}

// mockCommands answers every call without a configured function as if no
// session were loaded.
type mockCommands struct {
	sayFn             func(ctx context.Context, message string) error
	actionFn          func(ctx context.Context, message string) error
	whisperFn         func(ctx context.Context, user, message string) error
	bitsFn            func(ctx context.Context, q domain.BitsLeaderboardQuery) (*domain.BitsLeaderboard, error)
	createClipFn      func(ctx context.Context) (*domain.ClipCreated, error)
	getClipFn         func(ctx context.Context, id string) (*domain.Clip, error)
	listClipsFn       func(ctx context.Context, f domain.ClipFilter) (*domain.ClipPage, error)
	getGameFn         func(ctx context.Context, id string) (*domain.Game, error)
	gameByNameFn      func(ctx context.Context, name string) (*domain.Game, error)
	gamesByNamesFn    func(ctx context.Context, names []string) ([]domain.Game, error)
	topGamesFn        func(ctx context.Context, first int, after string) (*domain.GamePage, error)
	checkBanFn        func(ctx context.Context, userID string) (bool, error)
	checkModFn        func(ctx context.Context, userID string) (bool, error)
	followsFn         func(ctx context.Context, f domain.FollowFilter) (*domain.FollowPage, error)
	meFn              func(ctx context.Context) (*domain.User, error)
	userByNameFn      func(ctx context.Context, login string) (*domain.User, error)
	startCommercialFn func(ctx context.Context, length int) (*domain.Commercial, error)
}

func (m *mockCommands) Say(ctx context.Context, message string) error {
	if m.sayFn != nil {
		return m.sayFn(ctx, message)
	}
	return domain.ErrNoActiveSession
}

func (m *mockCommands) Action(ctx context.Context, message string) error {
	if m.actionFn != nil {
		return m.actionFn(ctx, message)
	}
	return domain.ErrNoActiveSession
}

func (m *mockCommands) Whisper(ctx context.Context, user, message string) error {
	if m.whisperFn != nil {
		return m.whisperFn(ctx, user, message)
	}
	return domain.ErrNoActiveSession
}

func (m *mockCommands) BitsLeaderboard(ctx context.Context, q domain.BitsLeaderboardQuery) (*domain.BitsLeaderboard, error) {
	if m.bitsFn != nil {
		return m.bitsFn(ctx, q)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) CreateClip(ctx context.Context) (*domain.ClipCreated, error) {
	if m.createClipFn != nil {
		return m.createClipFn(ctx)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) GetClipByID(ctx context.Context, id string) (*domain.Clip, error) {
	if m.getClipFn != nil {
		return m.getClipFn(ctx, id)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) GetClipsForBroadcaster(ctx context.Context, f domain.ClipFilter) (*domain.ClipPage, error) {
	if m.listClipsFn != nil {
		return m.listClipsFn(ctx, f)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) GetGameByID(ctx context.Context, id string) (*domain.Game, error) {
	if m.getGameFn != nil {
		return m.getGameFn(ctx, id)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) GetGameByName(ctx context.Context, name string) (*domain.Game, error) {
	if m.gameByNameFn != nil {
		return m.gameByNameFn(ctx, name)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) GetGamesByNames(ctx context.Context, names []string) ([]domain.Game, error) {
	if m.gamesByNamesFn != nil {
		return m.gamesByNamesFn(ctx, names)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) GetTopGames(ctx context.Context, first int, after string) (*domain.GamePage, error) {
	if m.topGamesFn != nil {
		return m.topGamesFn(ctx, first, after)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) CheckUserBan(ctx context.Context, userID string) (bool, error) {
	if m.checkBanFn != nil {
		return m.checkBanFn(ctx, userID)
	}
	return false, domain.ErrNoActiveSession
}

func (m *mockCommands) CheckUserMod(ctx context.Context, userID string) (bool, error) {
	if m.checkModFn != nil {
		return m.checkModFn(ctx, userID)
	}
	return false, domain.ErrNoActiveSession
}

func (m *mockCommands) GetFollows(ctx context.Context, f domain.FollowFilter) (*domain.FollowPage, error) {
	if m.followsFn != nil {
		return m.followsFn(ctx, f)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) GetMe(ctx context.Context) (*domain.User, error) {
	if m.meFn != nil {
		return m.meFn(ctx)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) GetUserByName(ctx context.Context, login string) (*domain.User, error) {
	if m.userByNameFn != nil {
		return m.userByNameFn(ctx, login)
	}
	return nil, domain.ErrNoActiveSession
}

func (m *mockCommands) StartCommercial(ctx context.Context, length int) (*domain.Commercial, error) {
	if m.startCommercialFn != nil {
		return m.startCommercialFn(ctx, length)
	}
	return nil, domain.ErrNoActiveSession
}

type mockJournal struct {
	listAfterFn func(ctx context.Context, afterSeq int64, limit int) ([]domain.JournalEntry, error)
}

func (m *mockJournal) ListAfter(ctx context.Context, afterSeq int64, limit int) ([]domain.JournalEntry, error) {
	if m.listAfterFn != nil {
		return m.listAfterFn(ctx, afterSeq, limit)
	}
	return nil, nil
}

type fixedListeners int

func (f fixedListeners) Count() int { return int(f) }

// --- Test helpers ---

// newTestServer builds a server with the full middleware stack and no API token.
func newTestServer(t *testing.T, opts ...func(*Deps)) *Server {
	t.Helper()

	deps := Deps{
		Lifecycle: &mockLifecycle{},
		Commands:  &mockCommands{},
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv := NewServer(&config.Config{Port: "0", AppEnv: "development", APIRateLimit: 1000, APIRateBurst: 1000}, deps)
	require.NotNil(t, srv)
	return srv
}

func withLifecycle(l lifecycle) func(*Deps) {
	return func(d *Deps) { d.Lifecycle = l }
}

func withCommands(c commands) func(*Deps) {
	return func(d *Deps) { d.Commands = c }
}

func withJournal(j journalReader) func(*Deps) {
	return func(d *Deps) { d.Journal = j }
}

func withListeners(l listenerCounter) func(*Deps) {
	return func(d *Deps) { d.Listeners = l }
}

func withHealthChecks(checks ...HealthCheck) func(*Deps) {
	return func(d *Deps) { d.HealthChecks = checks }
}

// do sends a request through the server and returns the recorder.
func do(t *testing.T, srv *Server, method, target, body string, mods ...func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, mod := range mods {
		mod(req)
	}

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

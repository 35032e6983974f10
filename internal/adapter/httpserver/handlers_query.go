package httpserver

import (
	"net/http"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	apperrors "github.com/EvntBoard/plugin-twitch/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type commercialRequest struct {
	Length int `json:"length"`
}

func (s *Server) registerQueryRoutes(g *echo.Group) {
	g.GET("/bits/leaderboard", s.handleBitsLeaderboard)

	g.POST("/clips", s.handleCreateClip)
	g.GET("/clips", s.handleListClips)
	g.GET("/clips/:id", s.handleGetClip)

	g.GET("/games", s.handleGamesByName)
	g.GET("/games/top", s.handleTopGames)
	g.GET("/games/:id", s.handleGetGame)

	g.GET("/moderation/bans/:userId", s.handleCheckBan)
	g.GET("/moderation/moderators/:userId", s.handleCheckMod)

	g.GET("/follows", s.handleFollows)

	g.GET("/users/me", s.handleMe)
	g.GET("/users/:login", s.handleUserByLogin)

	g.POST("/commercial", s.handleCommercial)
}

func bindError(err error) error {
	return apperrors.ValidationError("invalid query parameters").WithField("detail", err.Error())
}

func (s *Server) handleBitsLeaderboard(c echo.Context) error {
	var q domain.BitsLeaderboardQuery
	err := echo.QueryParamsBinder(c).
		Int("count", &q.Count).
		String("period", &q.Period).
		Time("startedAt", &q.StartedAt, time.RFC3339).
		String("userId", &q.UserID).
		BindError()
	if err != nil {
		return bindError(err)
	}

	board, err := s.commands.BitsLeaderboard(c.Request().Context(), q)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, board)
}

func (s *Server) handleCreateClip(c echo.Context) error {
	clip, err := s.commands.CreateClip(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, clip)
}

func (s *Server) handleGetClip(c echo.Context) error {
	clip, err := s.commands.GetClipByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, clip)
}

func (s *Server) handleListClips(c echo.Context) error {
	var f domain.ClipFilter
	err := echo.QueryParamsBinder(c).
		Time("startedAt", &f.StartedAt, time.RFC3339).
		Time("endedAt", &f.EndedAt, time.RFC3339).
		Int("first", &f.First).
		String("after", &f.After).
		BindError()
	if err != nil {
		return bindError(err)
	}

	page, err := s.commands.GetClipsForBroadcaster(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, page)
}

func (s *Server) handleGetGame(c echo.Context) error {
	game, err := s.commands.GetGameByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, game)
}

// handleGamesByName resolves one name to a single game and several names to
// the list of games Twitch knows.
func (s *Server) handleGamesByName(c echo.Context) error {
	var names []string
	if err := echo.QueryParamsBinder(c).Strings("name", &names).BindError(); err != nil {
		return bindError(err)
	}

	ctx := c.Request().Context()
	switch len(names) {
	case 0:
		return apperrors.ValidationError("at least one name parameter is required")
	case 1:
		game, err := s.commands.GetGameByName(ctx, names[0])
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, game)
	default:
		games, err := s.commands.GetGamesByNames(ctx, names)
		if err != nil {
			return err
		}
		return respond(c, http.StatusOK, map[string]any{"games": games})
	}
}

func (s *Server) handleTopGames(c echo.Context) error {
	var (
		first int
		after string
	)
	err := echo.QueryParamsBinder(c).
		Int("first", &first).
		String("after", &after).
		BindError()
	if err != nil {
		return bindError(err)
	}

	page, err := s.commands.GetTopGames(c.Request().Context(), first, after)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, page)
}

func (s *Server) handleCheckBan(c echo.Context) error {
	banned, err := s.commands.CheckUserBan(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]bool{"banned": banned})
}

func (s *Server) handleCheckMod(c echo.Context) error {
	mod, err := s.commands.CheckUserMod(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, map[string]bool{"moderator": mod})
}

func (s *Server) handleFollows(c echo.Context) error {
	var f domain.FollowFilter
	err := echo.QueryParamsBinder(c).
		String("userId", &f.UserID).
		Int("first", &f.First).
		String("after", &f.After).
		BindError()
	if err != nil {
		return bindError(err)
	}

	page, err := s.commands.GetFollows(c.Request().Context(), f)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, page)
}

func (s *Server) handleMe(c echo.Context) error {
	user, err := s.commands.GetMe(c.Request().Context())
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

func (s *Server) handleUserByLogin(c echo.Context) error {
	user, err := s.commands.GetUserByName(c.Request().Context(), c.Param("login"))
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, user)
}

func (s *Server) handleCommercial(c echo.Context) error {
	var req commercialRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	commercial, err := s.commands.StartCommercial(c.Request().Context(), req.Length)
	if err != nil {
		return err
	}
	return respond(c, http.StatusOK, commercial)
}

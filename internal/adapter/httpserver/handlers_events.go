package httpserver

import (
	"net/http"

	apperrors "github.com/EvntBoard/plugin-twitch/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

const (
	defaultReplayLimit = 100
	maxReplayLimit     = 1000
)

func (s *Server) registerEventRoutes(g *echo.Group) {
	g.GET("/events", s.handleReplayEvents)
}

// handleReplayEvents returns journalled envelopes after the given cursor so
// a host that was offline can catch up before following the live stream.
func (s *Server) handleReplayEvents(c echo.Context) error {
	if s.journal == nil {
		return apperrors.NotFoundError("event journal is not configured")
	}

	var after int64
	limit := defaultReplayLimit
	err := echo.QueryParamsBinder(c).
		Int64("after", &after).
		Int("limit", &limit).
		BindError()
	if err != nil {
		return bindError(err)
	}
	if after < 0 {
		return apperrors.ValidationError("after must not be negative").WithField("after", after)
	}
	if limit <= 0 || limit > maxReplayLimit {
		return apperrors.ValidationError("limit out of range").
			WithField("limit", limit).
			WithField("max", maxReplayLimit)
	}

	entries, err := s.journal.ListAfter(c.Request().Context(), after, limit)
	if err != nil {
		return apperrors.InternalError("failed to read event journal", err)
	}

	next := after
	if len(entries) > 0 {
		next = entries[len(entries)-1].Seq
	}
	return respond(c, http.StatusOK, map[string]any{"events": entries, "next": next})
}

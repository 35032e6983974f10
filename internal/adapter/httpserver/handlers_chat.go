package httpserver

import (
	"net/http"

	apperrors "github.com/EvntBoard/plugin-twitch/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type chatRequest struct {
	User    string `json:"user"`
	Message string `json:"message"`
}

var (
	queued = map[string]string{"status": "queued"}
	sent   = map[string]string{"status": "sent"}
)

func (s *Server) registerChatRoutes(g *echo.Group) {
	g.POST("/chat/say", s.handleSay)
	g.POST("/chat/action", s.handleAction)
	g.POST("/chat/whisper", s.handleWhisper)
}

func bindChat(c echo.Context) (chatRequest, error) {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return req, apperrors.ValidationError("invalid request body")
	}
	return req, nil
}

// Chat writes are accepted once queued; the writer paces them out.
func (s *Server) handleSay(c echo.Context) error {
	req, err := bindChat(c)
	if err != nil {
		return err
	}
	if err := s.commands.Say(c.Request().Context(), req.Message); err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, queued)
}

func (s *Server) handleAction(c echo.Context) error {
	req, err := bindChat(c)
	if err != nil {
		return err
	}
	if err := s.commands.Action(c.Request().Context(), req.Message); err != nil {
		return err
	}
	return respond(c, http.StatusAccepted, queued)
}

// Whispers go straight to Helix, so the response reflects the upstream outcome.
func (s *Server) handleWhisper(c echo.Context) error {
	req, err := bindChat(c)
	if err != nil {
		return err
	}
	if err := s.commands.Whisper(c.Request().Context(), req.User, req.Message); err != nil {
		return err
	}
	return respond(c, http.StatusOK, sent)
}

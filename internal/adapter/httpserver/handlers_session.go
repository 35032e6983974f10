package httpserver

import (
	"net/http"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	apperrors "github.com/EvntBoard/plugin-twitch/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

type initRequest struct {
	ClientID    string `json:"clientId"`
	AccessToken string `json:"accessToken"`
}

type sessionResponse struct {
	domain.SessionStatus
	Listeners *int `json:"listeners,omitempty"`
}

func (s *Server) registerSessionRoutes(g *echo.Group) {
	g.GET("/session", s.handleSessionStatus)
	g.POST("/session/init", s.handleSessionInit)
	g.POST("/session/reload", s.handleSessionReload)
	g.POST("/session/unload", s.handleSessionUnload)
}

func (s *Server) handleSessionStatus(c echo.Context) error {
	resp := sessionResponse{SessionStatus: s.lifecycle.Status()}
	if s.listeners != nil {
		n := s.listeners.Count()
		resp.Listeners = &n
	}
	return respond(c, http.StatusOK, resp)
}

func (s *Server) handleSessionInit(c echo.Context) error {
	var req initRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("invalid request body")
	}

	creds := domain.Credentials{ClientID: req.ClientID, AccessToken: req.AccessToken}
	if err := s.lifecycle.Init(c.Request().Context(), creds); err != nil {
		return err
	}
	return respond(c, http.StatusOK, s.lifecycle.Status())
}

func (s *Server) handleSessionReload(c echo.Context) error {
	if err := s.lifecycle.Reload(c.Request().Context()); err != nil {
		return err
	}
	return respond(c, http.StatusOK, s.lifecycle.Status())
}

// Unloading never fails; it is a no-op without a session.
func (s *Server) handleSessionUnload(c echo.Context) error {
	s.lifecycle.Unload(c.Request().Context())
	return respond(c, http.StatusOK, s.lifecycle.Status())
}

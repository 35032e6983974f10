package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/EvntBoard/plugin-twitch/internal/platform/version"
	"github.com/labstack/echo/v4"
)

const (
	startupProbeTimeout   = 2 * time.Second
	readinessProbeTimeout = 5 * time.Second
)

// HealthCheck probes one sink backend (Redis, Postgres) for the startup and
// readiness endpoints.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx)
}

// handleLiveness only proves the process serves requests. Twitch being
// unreachable or no session being loaded never makes the bridge unlive.
func (s *Server) handleLiveness(c echo.Context) error {
	uptime := time.Since(s.startTime).Seconds()

	response := map[string]any{
		"status":  "ok",
		"uptime":  uptime,
		"session": s.lifecycle.Status().State,
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}

	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessProbeTimeout)
	defer cancel()

	return s.runHealthChecks(c, ctx)
}

// runHealthChecks runs every sink backend check concurrently. The first
// failing check in registration order is reported as failed_check; the
// outcome of every check is listed under checks.
func (s *Server) runHealthChecks(c echo.Context, ctx context.Context) error {
	results := make([]error, len(s.healthChecks))
	var wg sync.WaitGroup
	for i, hc := range s.healthChecks {
		wg.Go(func() { results[i] = hc.Check(ctx) })
	}
	wg.Wait()

	checks := make(map[string]string, len(s.healthChecks))
	response := map[string]any{"status": "ready", "checks": checks}
	status := http.StatusOK
	for i, hc := range s.healthChecks {
		if results[i] == nil {
			checks[hc.Name] = "ok"
			continue
		}
		checks[hc.Name] = results[i].Error()
		if status == http.StatusOK {
			status = http.StatusServiceUnavailable
			response["status"] = "unhealthy"
			response["failed_check"] = hc.Name
			response["error"] = results[i].Error()
		}
	}

	if err := c.JSON(status, response); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}

package httpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/correlation"
	apperrors "github.com/EvntBoard/plugin-twitch/internal/platform/errors"
	"github.com/centrifugal/centrifuge"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// hostUserID is the centrifuge user every authenticated host connects as.
const hostUserID = "host"

const maxRequestIDLength = 64

// correlationMiddleware reuses the caller's X-Request-ID so host and bridge
// logs line up, and echoes the ID back.
func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(echo.HeaderXRequestID)
		if id == "" || len(id) > maxRequestIDLength {
			id = correlation.NewID()
		}
		c.Response().Header().Set(echo.HeaderXRequestID, id)

		ctx := correlation.WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func ErrorHandlingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var structuredErr *apperrors.Error
			if httpErr, ok := errors.AsType[*echo.HTTPError](err); ok {
				structuredErr = WrapHTTPError(httpErr)
				if structuredErr.HTTPStatus() != httpErr.Code {
					return err
				}
			} else {
				structuredErr = apperrors.AsStructuredError(mapDomainError(err))
			}
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation:
		slog.InfoContext(ctx, "Validation error", attrs...)
	case apperrors.TypeUnauthorized:
		slog.WarnContext(ctx, "Unauthorized", attrs...)
	case apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Not found", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	case apperrors.TypeExternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := "internal server error"
	if httpErr.Message != nil {
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthorized
	case http.StatusNotFound:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		errType = apperrors.TypeExternal
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}

// mapDomainError translates session and upstream failures into API errors.
// Errors that are already structured pass through unchanged.
func mapDomainError(err error) error {
	if _, ok := errors.AsType[*apperrors.Error](err); ok {
		return err
	}

	if upstream, ok := errors.AsType[*domain.UpstreamError](err); ok {
		return apperrors.ExternalError("twitch request failed", err).
			WithField("operation", upstream.Op).
			WithField("upstream_status", upstream.StatusCode)
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return apperrors.ValidationError(err.Error())
	case errors.Is(err, domain.ErrNoActiveSession),
		errors.Is(err, domain.ErrSessionActive),
		errors.Is(err, domain.ErrNoCredentials),
		errors.Is(err, domain.ErrWriterClosed):
		return apperrors.ConflictError(err.Error(), err)
	case errors.Is(err, domain.ErrNotFound):
		return apperrors.NotFoundError("resource not found")
	case errors.Is(err, domain.ErrAuthFailure),
		errors.Is(err, domain.ErrIdentityResolution),
		errors.Is(err, domain.ErrTransportConnect):
		return apperrors.ExternalError("failed to open twitch session", err)
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.ExternalError("twitch did not answer in time", err)
	}
	return err
}

// requireAPIToken guards the control API with a bearer token. It is a no-op
// when no token is configured.
func (s *Server) requireAPIToken() echo.MiddlewareFunc {
	return middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
		Skipper: func(echo.Context) bool {
			return s.config.APIToken == ""
		},
		KeyLookup:  "header:" + echo.HeaderAuthorization,
		AuthScheme: "Bearer",
		Validator: func(key string, _ echo.Context) (bool, error) {
			return tokenMatches(key, s.config.APIToken), nil
		},
		ErrorHandler: func(err error, _ echo.Context) error {
			return apperrors.UnauthorizedError("missing or invalid API token")
		},
	})
}

// websocketAuthMiddleware checks the API token (header or token query
// parameter, since browsers cannot set headers on WebSocket upgrades) and
// hands centrifuge the host credentials.
func (s *Server) websocketAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.APIToken != "" {
			token := r.URL.Query().Get("token")
			if token == "" {
				token = strings.TrimPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer ")
			}
			if !tokenMatches(token, s.config.APIToken) {
				http.Error(w, "missing or invalid API token", http.StatusUnauthorized)
				return
			}
		}

		cred := &centrifuge.Credentials{UserID: hostUserID}
		r = r.WithContext(centrifuge.SetCredentials(r.Context(), cred))

		next.ServeHTTP(w, r)
	})
}

func tokenMatches(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAuthFailure        = errors.New("authentication failed")
	ErrIdentityResolution = errors.New("identity resolution failed")
	ErrTransportConnect   = errors.New("transport connect failed")
	ErrNoActiveSession    = errors.New("no active session")
	ErrSessionActive      = errors.New("session is active")
	ErrNoCredentials      = errors.New("no credentials")
	ErrUnknownEvent       = errors.New("unknown event")
	ErrUnexpectedField    = errors.New("unexpected payload field")
	ErrNotFound           = errors.New("not found")
	ErrWriterClosed       = errors.New("chat writer closed")

	// ErrInvalidInput is wrapped by every argument validation failure.
	ErrInvalidInput            = errors.New("invalid input")
	ErrInvalidCredentials      = fmt.Errorf("%w: client id and access token are required", ErrInvalidInput)
	ErrEmptyMessage            = fmt.Errorf("%w: message must not be empty", ErrInvalidInput)
	ErrMissingRecipient        = fmt.Errorf("%w: whisper recipient must not be empty", ErrInvalidInput)
	ErrInvalidCommercialLength = fmt.Errorf("%w: commercial length must be one of 30, 60, 90, 120, 150, 180", ErrInvalidInput)
)

// UpstreamError is a non-2xx answer from the Twitch API.
type UpstreamError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: twitch responded %d: %s", e.Op, e.StatusCode, e.Message)
}

// Throttled reports whether Twitch rejected the call for rate limiting.
func (e *UpstreamError) Throttled() bool {
	return e.StatusCode == 429
}

// Unauthorized reports whether the token was rejected.
func (e *UpstreamError) Unauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

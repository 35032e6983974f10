package twitch

import (
	"errors"
	"net/http"
	"slices"

	"github.com/EvntBoard/plugin-twitch/internal/domain"
	"github.com/EvntBoard/plugin-twitch/internal/platform/retry"
	"github.com/nicklaw5/helix/v2"
)

// checkResponse turns a non-success Helix status into an UpstreamError.
// When want is empty any 2xx status is accepted.
func checkResponse(op string, resp helix.ResponseCommon, want ...int) error {
	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if len(want) > 0 {
		ok = slices.Contains(want, resp.StatusCode)
	}
	if ok {
		return nil
	}

	message := resp.ErrorMessage
	if message == "" {
		message = resp.Error
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &domain.UpstreamError{Op: op, StatusCode: resp.StatusCode, Message: message}
}

// classifyHelixError decides whether a failed Helix call is worth repeating.
func classifyHelixError(err error) retry.Action {
	upstream, ok := errors.AsType[*domain.UpstreamError](err)
	if !ok {
		return retry.Retry
	}
	switch {
	case upstream.Throttled():
		return retry.After
	case upstream.StatusCode >= 500:
		return retry.Retry
	default:
		return retry.Stop
	}
}

package websocket

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
)

// originRule matches one WS_ALLOWED_ORIGINS entry. A host starting with "*."
// matches any subdomain of the rest, never the bare domain.
type originRule struct {
	scheme string
	host   string // includes the port, if any
	suffix string // set for wildcard rules, e.g. ".example.com"
}

func (r originRule) matches(u *url.URL) bool {
	if u.Scheme != r.scheme {
		return false
	}
	if r.suffix != "" {
		return strings.HasSuffix(u.Host, r.suffix) && len(u.Host) > len(r.suffix)
	}
	return u.Host == r.host
}

// NewCheckOrigin returns the CheckOrigin function for the host stream.
// Requests without an Origin header come from non-browser hosts and are
// always accepted. A single "*" entry accepts every origin. In development,
// loopback origins are accepted as well.
func NewCheckOrigin(allowed []string, isDevelopment bool) func(r *http.Request) bool {
	rules := make([]originRule, 0, len(allowed))
	allowAll := false
	for _, a := range allowed {
		if a == "*" {
			allowAll = true
			continue
		}
		if rule, ok := parseRule(a); ok {
			rules = append(rules, rule)
		} else {
			slog.Warn("Ignoring malformed allowed origin", "origin", a)
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}

		u, err := url.Parse(strings.TrimSuffix(origin, "/"))
		if err == nil {
			for _, rule := range rules {
				if rule.matches(u) {
					return true
				}
			}
			if isDevelopment && isLoopback(u) {
				return true
			}
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func parseRule(raw string) (originRule, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return originRule{}, false
	}
	rule := originRule{scheme: u.Scheme, host: u.Host}
	if rest, ok := strings.CutPrefix(u.Host, "*"); ok {
		if !strings.HasPrefix(rest, ".") || len(rest) < 2 {
			return originRule{}, false
		}
		rule.suffix = rest
	}
	return rule, true
}

func isLoopback(u *url.URL) bool {
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

package auth

import (
	"strings"
	"time"
)

// Outcome is the guard's verdict for one request.
type Outcome int

const (
	Allow Outcome = iota
	RedirectToLogin
)

func (o Outcome) String() string {
	if o == Allow {
		return "allow"
	}
	return "redirect_to_login"
}

// Decision is what the HTTP layer acts on. Refresh is set whenever the
// request carried a valid session and holds the re-issued token.
type Decision struct {
	Outcome       Outcome
	Identity      Identity
	Authenticated bool
	Refresh       string
	RefreshUntil  time.Time
}

// DefaultPublicPaths are reachable without a session. Entries ending in "/"
// match as prefixes, others match exactly.
var DefaultPublicPaths = []string{
	"/login",
	"/register",
	"/static/",
	"/healthz",
	"/readyz",
	"/metrics",
}

type Guard struct {
	sessions *SessionManager
	exact    map[string]bool
	prefixes []string
}

func NewGuard(sessions *SessionManager, publicPaths ...string) *Guard {
	if len(publicPaths) == 0 {
		publicPaths = DefaultPublicPaths
	}
	g := &Guard{sessions: sessions, exact: make(map[string]bool)}
	for _, p := range publicPaths {
		if strings.HasSuffix(p, "/") {
			g.prefixes = append(g.prefixes, p)
		} else {
			g.exact[p] = true
		}
	}
	return g
}

// IsPublic reports whether path is on the allow-list.
func (g *Guard) IsPublic(path string) bool {
	if g.exact[path] {
		return true
	}
	for _, p := range g.prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Decide lets public paths through and requires a valid, unexpired token
// everywhere else. An invalid token is treated exactly like no token.
func (g *Guard) Decide(path, token string, now time.Time) Decision {
	var d Decision
	if id, err := g.sessions.Validate(token, now); err == nil {
		d.Identity = id
		d.Authenticated = true
		if refreshed, until, err := g.sessions.Issue(id, now); err == nil {
			d.Refresh = refreshed
			d.RefreshUntil = until
		}
	}

	if d.Authenticated || g.IsPublic(path) {
		d.Outcome = Allow
	} else {
		d.Outcome = RedirectToLogin
	}
	return d
}

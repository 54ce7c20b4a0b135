package http

import (
	"net/http"
	"time"

	"fintrack/internal/auth"
	"fintrack/internal/log"
)

// sessionMiddleware applies the guard's decision: it slides the session
// cookie forward on every authenticated request and sends everyone else to
// the login page, or a 401 for the JSON API.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(SessionCookieName); err == nil {
			token = c.Value
		}

		d := s.guard.Decide(r.URL.Path, token, s.now())
		if d.Refresh != "" {
			s.setSessionCookie(w, d.Refresh, d.RefreshUntil)
		}

		if d.Outcome == auth.RedirectToLogin {
			s.metrics.SessionRedirects.Inc()
			if token != "" {
				// expired or forged; drop it so the browser stops sending it
				s.clearSessionCookie(w)
			}
			if isAPIRequest(r) {
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}

		if d.Authenticated {
			ctx := auth.WithIdentity(r.Context(), d.Identity)
			ctx = log.WithLogger(ctx, log.FromContext(ctx).With(log.FieldUserID, d.Identity.UserID))
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(s.svc.Sessions.IdleTimeout().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// startSession issues a fresh token for a user who just proved who they are.
func (s *Server) startSession(w http.ResponseWriter, id auth.Identity) error {
	token, expires, err := s.svc.Sessions.Issue(id, s.now())
	if err != nil {
		return err
	}
	s.setSessionCookie(w, token, expires)
	return nil
}

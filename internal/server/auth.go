package server

import (
	"net/http"
	"time"
)

const tokenCookieName = "vgt_token"

// requireToken guards the debug console. The token arrives either as a
// query parameter (copied from the startup banner or `vgt token`) or as the
// cookie set on the first tokened request. Every valid request is served
// directly; the console is a JSON API, not a page to redirect around.
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("token"); q != "" {
			if q != s.token {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			// Remember the token so follow-up requests can drop the param.
			http.SetCookie(w, &http.Cookie{
				Name:     tokenCookieName,
				Value:    s.token,
				Path:     "/",
				HttpOnly: true,
				MaxAge:   int(24 * time.Hour / time.Second),
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r)
			return
		}

		c, err := r.Cookie(tokenCookieName)
		if err != nil || c.Value != s.token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

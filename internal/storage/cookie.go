package storage

import (
	"net/http"
	"time"
)

// CookieTier mirrors assignments into HTTP cookies so other contexts (edge
// rules, other subdomains, the client itself) can read them without hitting
// the primary store. Values written during a request are visible to reads
// in the same request, before the response goes out.
type CookieTier struct {
	r       *http.Request
	w       http.ResponseWriter
	maxAge  time.Duration
	pending map[string]string
}

func NewCookieTier(w http.ResponseWriter, r *http.Request, maxAge time.Duration) *CookieTier {
	return &CookieTier{r: r, w: w, maxAge: maxAge, pending: make(map[string]string)}
}

func (t *CookieTier) Get(key string) (string, bool) {
	if v, ok := t.pending[key]; ok {
		return v, true
	}
	c, err := t.r.Cookie(key)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

func (t *CookieTier) Set(key, value string) {
	t.pending[key] = value
	http.SetCookie(t.w, &http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		MaxAge:   int(t.maxAge / time.Second),
		SameSite: http.SameSiteLaxMode,
	})
}

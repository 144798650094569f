package tokens

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/tumioparbe/web/internal/model"
)

// CookieConfig controls the token cookies. The access cookie must be
// shorter lived than the refresh cookie.
type CookieConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Secure     bool
}

// DefaultCookieConfig is 24h for the access cookie and 30 days for the refresh cookie.
var DefaultCookieConfig = CookieConfig{
	AccessTTL:  24 * time.Hour,
	RefreshTTL: 30 * 24 * time.Hour,
}

// CookieStore reads token cookies from a request and writes them to its
// response. It remembers its own writes, so a Load after Save or Clear in
// the same request observes them. Header writes are serialized so API calls
// of one request may run concurrently.
type CookieStore struct {
	w   http.ResponseWriter
	r   *http.Request
	cfg CookieConfig
	now func() time.Time

	mu      sync.Mutex
	written *model.TokenPair
	cleared bool
}

// NewCookieStore builds a cookie store for one request. w may be nil for
// read-only use.
func NewCookieStore(w http.ResponseWriter, r *http.Request, cfg CookieConfig) *CookieStore {
	return &CookieStore{w: w, r: r, cfg: cfg, now: time.Now}
}

func (s *CookieStore) Save(_ context.Context, pair model.TokenPair) error {
	if s.w == nil {
		return ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	http.SetCookie(s.w, s.cookie(AccessCookie, pair.Access, now, s.cfg.AccessTTL))
	http.SetCookie(s.w, s.cookie(RefreshCookie, pair.Refresh, now, s.cfg.RefreshTTL))
	s.written = &pair
	s.cleared = false
	return nil
}

func (s *CookieStore) Load(context.Context) *model.TokenPair {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleared {
		return nil
	}
	if s.written != nil {
		return complete(s.written)
	}
	return complete(&model.TokenPair{
		Access:  s.value(AccessCookie),
		Refresh: s.value(RefreshCookie),
	})
}

func (s *CookieStore) Clear(context.Context) error {
	if s.w == nil {
		return ErrReadOnly
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, name := range []string{AccessCookie, RefreshCookie} {
		http.SetCookie(s.w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HttpOnly: true,
			Secure:   s.cfg.Secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
	s.written = nil
	s.cleared = true
	return nil
}

// AccessToken returns the raw access cookie, the only thing request-level
// guards look at.
func (s *CookieStore) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cleared {
		return ""
	}
	if s.written != nil {
		return s.written.Access
	}
	return s.value(AccessCookie)
}

func (s *CookieStore) value(name string) string {
	if s.r == nil {
		return ""
	}
	c, err := s.r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *CookieStore) cookie(name, value string, now time.Time, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		Expires:  now.Add(ttl),
		HttpOnly: true,
		Secure:   s.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Package browser binds every request to the state of the browser that
// sent it: its client storage namespace, token store, session and an API
// client carrying its tokens.
package browser

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tumioparbe/web/internal/api"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/session"
	"github.com/tumioparbe/web/internal/storage"
	"github.com/tumioparbe/web/internal/tokens"
)

// CookieName is the browser id cookie
const CookieName = "sid"

// Browser is the per-request view of one browser
type Browser struct {
	ID      string
	Storage storage.Storage
	Cookies *tokens.CookieStore
	Tokens  tokens.Store
	Session *session.Store
	API     *api.Client
}

type Config struct {
	Cookies tokens.CookieConfig
	// IDTTL is the lifetime of the browser id cookie
	IDTTL time.Duration
}

type ctxKey struct{}

// Middleware resolves, or assigns, the browser id and stores a Browser in
// the request context.
func Middleware(backend storage.Backend, client *api.Client, cfg Config) func(http.Handler) http.Handler {
	if cfg.IDTTL <= 0 {
		cfg.IDTTL = cfg.Cookies.RefreshTTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, fresh := browserID(r)
			if fresh {
				http.SetCookie(w, &http.Cookie{
					Name:     CookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(cfg.IDTTL.Seconds()),
					HttpOnly: true,
					Secure:   cfg.Cookies.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := logctx.Into(r.Context(), logctx.From(r.Context()).With(slog.String("sid", id[:8])))
			b := Open(ctx, backend, client, id, w, r, cfg.Cookies)
			next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, ctxKey{}, b)))
		})
	}
}

// Open assembles the Browser for id over one request/response pair.
func Open(ctx context.Context, backend storage.Backend, client *api.Client, id string, w http.ResponseWriter, r *http.Request, cc tokens.CookieConfig) *Browser {
	st := storage.Scope(backend, id)
	cookies := tokens.NewCookieStore(w, r, cc)
	ts := tokens.NewDual(tokens.NewLocalStore(st), cookies)
	return &Browser{
		ID:      id,
		Storage: st,
		Cookies: cookies,
		Tokens:  ts,
		Session: session.Open(ctx, st, ts),
		API:     client.WithTokens(ts),
	}
}

// From returns the Browser stored by Middleware.
func From(ctx context.Context) (*Browser, bool) {
	b, ok := ctx.Value(ctxKey{}).(*Browser)
	return b, ok
}

func browserID(r *http.Request) (string, bool) {
	if c, err := r.Cookie(CookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String(), false
		}
	}
	return uuid.NewString(), true
}

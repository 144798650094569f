// Package guard decides, for one page view, whether the browser may see it
// or must be redirected. It is the authority for session state: an expired
// access token is refreshed here, once per check.
package guard

import (
	"context"
	"log/slog"
	"time"

	"github.com/tumioparbe/web/internal/auth"
	"github.com/tumioparbe/web/internal/metrics"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/session"
)

const (
	LoginPath     = "/login"
	DashboardPath = "/dashboard"
)

//go:generate mockgen -source=guard.go -destination=mocks/refresher.go -package=mocks

// Refresher trades a refresh token for a new access token
type Refresher interface {
	RefreshToken(ctx context.Context, refresh string) (string, error)
}

// Policy is what a page requires of the session
type Policy struct {
	RequireAuth bool
	AdminOnly   bool
}

// Decision is the outcome of a check. An empty Redirect lets the page render.
type Decision struct {
	Redirect string
}

func (d Decision) Allowed() bool { return d.Redirect == "" }

type Guard struct {
	refresher Refresher
	metrics   *metrics.Metrics
	now       func() time.Time
}

func New(r Refresher, m *metrics.Metrics) *Guard {
	return &Guard{refresher: r, metrics: m, now: time.Now}
}

// Check runs the guard for one view:
//  1. no tokens on an authenticated page sends the browser to login;
//  2. an expired access token is refreshed once; a failed refresh logs out
//     and, on an authenticated page, sends the browser to login;
//  3. an admin page seen by a non-admin sends the browser to the dashboard.
func (g *Guard) Check(ctx context.Context, s *session.Store, p Policy) Decision {
	log := logctx.From(ctx)

	pair := s.Tokens().Load(ctx)
	if pair == nil && p.RequireAuth {
		return g.redirect(LoginPath)
	}

	if pair != nil && auth.TokenExpired(pair.Access, g.now()) {
		access, err := g.refresher.RefreshToken(ctx, pair.Refresh)
		if err == nil {
			err = s.RefreshAccess(ctx, access)
		}
		if err != nil {
			log.Info("guard_refresh_failed", slog.String("err", err.Error()))
			g.metrics.Refresh(metrics.RefreshFailed)
			if lerr := s.Logout(ctx); lerr != nil {
				log.Warn("guard_logout_failed", slog.String("err", lerr.Error()))
			}
			if p.RequireAuth {
				return g.redirect(LoginPath)
			}
		} else {
			g.metrics.Refresh(metrics.RefreshOK)
		}
	}

	if p.AdminOnly && !s.Session(ctx).IsAdmin() {
		return g.redirect(DashboardPath)
	}

	return Decision{}
}

func (g *Guard) redirect(to string) Decision {
	g.metrics.GuardRedirect(to)
	return Decision{Redirect: to}
}

// Package handlers serves the web front pages. Every handler works on the
// Browser the browser middleware put in the request context.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/tumioparbe/web/internal/api"
	"github.com/tumioparbe/web/internal/browser"
	"github.com/tumioparbe/web/internal/guard"
	"github.com/tumioparbe/web/internal/metrics"
	"github.com/tumioparbe/web/internal/middleware"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/registration"
	"github.com/tumioparbe/web/internal/view"
)

// Handler holds what the page handlers share
type Handler struct {
	views        *view.Renderer
	guard        *guard.Guard
	metrics      *metrics.Metrics
	otpLimiter   *middleware.RateLimiter
	registration registration.Config
	countdown    *registration.Countdown

	closeOnce sync.Once
	done      chan struct{}
}

type Options struct {
	Views   *view.Renderer
	Guard   *guard.Guard
	Metrics *metrics.Metrics
	// OTPLimiter bounds OTP sends per phone number
	OTPLimiter   *middleware.RateLimiter
	Registration registration.Config
}

func New(opts Options) *Handler {
	return &Handler{
		views:        opts.Views,
		guard:        opts.Guard,
		metrics:      opts.Metrics,
		otpLimiter:   opts.OTPLimiter,
		registration: opts.Registration,
		countdown:    registration.NewCountdown(),
		done:         make(chan struct{}),
	}
}

// Close ends the open countdown streams. It is meant for server shutdown.
func (h *Handler) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// current returns the request's Browser, answering 500 when the browser
// middleware is missing.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) (*browser.Browser, bool) {
	b, ok := browser.From(r.Context())
	if !ok {
		logctx.From(r.Context()).Error("browser_missing", slog.String("path", r.URL.Path))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
	return b, ok
}

// enter runs the auth guard with p and follows its redirect. The page may
// render only when ok is true.
func (h *Handler) enter(w http.ResponseWriter, r *http.Request, p guard.Policy) (*browser.Browser, bool) {
	b, ok := h.current(w, r)
	if !ok {
		return nil, false
	}
	if d := h.guard.Check(r.Context(), b.Session, p); !d.Allowed() {
		http.Redirect(w, r, d.Redirect, http.StatusFound)
		return nil, false
	}
	return b, true
}

// page builds the common page data and consumes the pending flash.
func (h *Handler) page(r *http.Request, b *browser.Browser, title string) view.Page {
	sess := b.Session.Session(r.Context())
	return view.Page{
		Title:   title,
		Path:    r.URL.Path,
		Flash:   b.TakeFlash(r.Context()),
		User:    sess.User,
		IsAdmin: sess.IsAdmin(),
		Form:    map[string]string{},
		Errors:  map[string]string{},
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, p view.Page) {
	if err := h.views.Render(w, status, name, p); err != nil {
		logctx.From(r.Context()).Error("render_failed", slog.String("page", name), slog.String("err", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// seeOther ends a form post with a redirect to a page.
func seeOther(w http.ResponseWriter, r *http.Request, to string) {
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// apiFailed handles a failed platform call on a guarded page. A call that
// lost the session sends the browser to login; anything else is flashed
// and the browser is sent to back.
func (h *Handler) apiFailed(w http.ResponseWriter, r *http.Request, b *browser.Browser, err error, title, back string) {
	ctx := r.Context()
	logctx.From(ctx).Warn("api_call_failed", slog.String("path", r.URL.Path), slog.String("err", err.Error()))

	if sessionLost(ctx, b, err) {
		if lerr := b.Session.Logout(ctx); lerr != nil {
			logctx.From(ctx).Warn("logout_failed", slog.String("err", lerr.Error()))
		}
		b.SetFlash(ctx, browser.FlashError, "Session expired", "Please log in again.")
		seeOther(w, r, guard.LoginPath)
		return
	}

	b.SetFlash(ctx, browser.FlashError, title, api.Message(err, "Please try again later."))
	seeOther(w, r, back)
}

func sessionLost(ctx context.Context, b *browser.Browser, err error) bool {
	if errors.Is(err, api.ErrNoRefreshToken) || api.IsUnauthorized(err) {
		return true
	}
	return !b.Session.Session(ctx).IsAuthenticated()
}

// fieldErrors copies validation messages into the page.
func fieldErrors(p *view.Page, err error) bool {
	var ve registration.ValidationErrors
	if !errors.As(err, &ve) {
		return false
	}
	for k, v := range ve {
		p.Errors[k] = v
	}
	return true
}

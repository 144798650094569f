package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tumioparbe/web/internal/auth"
	"github.com/tumioparbe/web/internal/browser"
	"github.com/tumioparbe/web/internal/guard"
	"github.com/tumioparbe/web/internal/middleware"
	"github.com/tumioparbe/web/internal/model"
	"github.com/tumioparbe/web/internal/pkg/logctx"
	"github.com/tumioparbe/web/internal/registration"
)

// AdminDashboardPath is where admins land after login
const AdminDashboardPath = "/admin/dashboard"

// LoginPage handles GET /login. A browser that still holds a usable session,
// after at most one refresh, goes straight to where it was headed.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	b, ok := h.current(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	returnURL := localPath(r.URL.Query().Get(middleware.ReturnURLParam))

	h.guard.Check(ctx, b.Session, guard.Policy{})
	if sess := b.Session.Session(ctx); sess.IsAuthenticated() && sess.User != nil && h.syncAccessCookie(r, b, sess.Tokens) {
		http.Redirect(w, r, landing(returnURL, sess.IsAdmin()), http.StatusFound)
		return
	}

	p := h.page(r, b, "Log in")
	p.Form[middleware.ReturnURLParam] = returnURL
	h.render(w, r, http.StatusOK, "login", p)
}

// syncAccessCookie makes sure the access cookie would pass the edge guard,
// rewriting the cookies from the session's pair when it would not. It
// reports false when the browser should see the login form instead.
func (h *Handler) syncAccessCookie(r *http.Request, b *browser.Browser, pair *model.TokenPair) bool {
	now := time.Now()
	if !auth.TokenExpired(b.Cookies.AccessToken(), now) {
		return true
	}
	if pair == nil || auth.TokenExpired(pair.Access, now) {
		return false
	}
	if err := b.Cookies.Save(r.Context(), *pair); err != nil {
		logctx.From(r.Context()).Warn("access_cookie_restore_failed", slog.String("err", err.Error()))
		return false
	}
	return true
}

// Login handles POST /login: password login, then the profile fetch, then
// the session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	b, ok := h.current(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	log := logctx.From(ctx)

	phone := strings.TrimSpace(r.PostFormValue("phone"))
	password := r.PostFormValue("password")
	returnURL := localPath(r.PostFormValue(middleware.ReturnURLParam))

	p := h.page(r, b, "Log in")
	p.Form["phone"] = phone
	p.Form[middleware.ReturnURLParam] = returnURL

	fieldErrors(&p, registration.ValidatePhone(phone))
	fieldErrors(&p, registration.ValidatePassword(password))
	if len(p.Errors) > 0 {
		h.render(w, r, http.StatusUnprocessableEntity, "login", p)
		return
	}

	pair, err := b.API.Login(ctx, phone, password)
	if err == nil {
		// the profile call below must carry the new bearer
		err = b.Tokens.Save(ctx, pair)
	}
	if err != nil {
		log.Info("login_failed", slog.String("phone", logctx.MaskPhone(phone)), slog.String("err", err.Error()))
		p.Flash = &browser.Flash{Kind: browser.FlashError, Title: "Login failed", Message: "Please check your phone number and password."}
		h.render(w, r, http.StatusUnauthorized, "login", p)
		return
	}

	user, err := b.API.GetProfile(ctx)
	if err == nil {
		err = b.Session.Login(ctx, pair, user)
	}
	if err != nil {
		log.Warn("login_profile_failed", slog.String("phone", logctx.MaskPhone(phone)), slog.String("err", err.Error()))
		if lerr := b.Session.Logout(ctx); lerr != nil {
			log.Warn("logout_failed", slog.String("err", lerr.Error()))
		}
		p.Flash = &browser.Flash{Kind: browser.FlashError, Title: "Login failed", Message: "Please try again later."}
		h.render(w, r, http.StatusBadGateway, "login", p)
		return
	}

	log.Info("login_succeeded", slog.Int64("user_id", user.ID), slog.String("phone", logctx.MaskPhone(phone)))
	b.SetFlash(ctx, browser.FlashSuccess, "Login successful", "Welcome back!")
	seeOther(w, r, landing(returnURL, user.IsAdmin))
}

// Logout handles POST /logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	b, ok := h.current(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := b.Session.Logout(ctx); err != nil {
		logctx.From(ctx).Warn("logout_failed", slog.String("err", err.Error()))
	}
	b.SetFlash(ctx, browser.FlashInfo, "Logged out", "")
	seeOther(w, r, guard.LoginPath)
}

// landing picks the page after login: a local returnUrl, else the
// dashboard for the role.
func landing(returnURL string, admin bool) string {
	if p := localPath(returnURL); p != "" {
		return p
	}
	if admin {
		return AdminDashboardPath
	}
	return guard.DashboardPath
}

// localPath keeps returnUrl only when it is a path on this site other than
// the login page itself.
func localPath(s string) string {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return ""
	}
	if s == guard.LoginPath || strings.HasPrefix(s, guard.LoginPath+"?") {
		return ""
	}
	return s
}

package handlers

import (
	"net/http"

	"github.com/tumioparbe/web/internal/guard"
)

// Home handles GET /. The page is public; an expired session is still
// refreshed so the header shows the right links.
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	b, ok := h.enter(w, r, guard.Policy{})
	if !ok {
		return
	}
	h.render(w, r, http.StatusOK, "home", h.page(r, b, ""))
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	b, ok := h.current(w, r)
	if !ok {
		return
	}
	p := h.page(r, b, "Page not found")
	p.Data = "The page you are looking for does not exist or has been moved."
	h.render(w, r, http.StatusNotFound, "error", p)
}

// Health handles GET /health
func Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

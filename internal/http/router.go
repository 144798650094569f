package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tumioparbe/web/internal/api"
	"github.com/tumioparbe/web/internal/browser"
	"github.com/tumioparbe/web/internal/guard"
	"github.com/tumioparbe/web/internal/http/handlers"
	"github.com/tumioparbe/web/internal/metrics"
	"github.com/tumioparbe/web/internal/middleware"
	"github.com/tumioparbe/web/internal/storage"
)

// Deps is everything the router wires together
type Deps struct {
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Handlers *handlers.Handler
	Storage  storage.Backend
	API      *api.Client
	Browser  browser.Config
	// GuardPrefixes are the paths the edge guard protects
	GuardPrefixes []string
	// FormLimiter bounds form posts per client address, nil disables it
	FormLimiter *middleware.RateLimiter
	// TrustProxy takes the client address from proxy headers
	TrustProxy bool
}

// NewRouter creates the web front router with all routes configured
func NewRouter(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	if d.TrustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logging(d.Logger, d.Metrics))
	r.Use(chimw.Recoverer)

	r.Get("/health", handlers.Health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.EdgeGuard(d.GuardPrefixes, guard.LoginPath, d.Metrics))
		r.Use(browser.Middleware(d.Storage, d.API, d.Browser))
		if d.FormLimiter != nil {
			r.Use(middleware.RateLimitPosts(d.FormLimiter, middleware.GetIPKey))
		}

		h := d.Handlers
		r.Get("/", h.Home)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Route("/register", func(r chi.Router) {
			r.Get("/", h.RegisterPage)
			r.Post("/", h.Register)
			r.Post("/resend", h.Resend)
			r.Post("/change", h.ChangePhone)
			r.Get("/countdown", h.Countdown)
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/", h.Dashboard)
			r.Get("/profile", h.ProfilePage)
			r.Post("/profile", h.UpdateProfile)
			r.Get("/students", h.StudentsPage)
			r.Post("/students", h.AddStudent)
			r.Get("/courses", h.CoursesPage)
			r.Get("/payments", h.PaymentsPage)
			r.Post("/payments", h.PayInvoice)
			r.Get("/analytics", h.Analytics)
		})

		r.Get("/admin/dashboard", h.AdminDashboard)
		r.NotFound(h.NotFound)
	})

	return r
}

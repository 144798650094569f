package middleware

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tumioparbe/web/internal/auth"
	"github.com/tumioparbe/web/internal/metrics"
	"github.com/tumioparbe/web/internal/tokens"
)

// ReturnURLParam carries the originally requested path to the login page
const ReturnURLParam = "returnUrl"

// EdgeGuard bounces requests for the protected prefixes to the login page
// unless the access cookie holds an unexpired token. It looks at nothing
// but that cookie and never refreshes.
func EdgeGuard(prefixes []string, loginPath string, m *metrics.Metrics) func(http.Handler) http.Handler {
	now := time.Now
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !matchesPrefix(r.URL.Path, prefixes) {
				next.ServeHTTP(w, r)
				return
			}

			access := ""
			if c, err := r.Cookie(tokens.AccessCookie); err == nil {
				access = c.Value
			}

			if access == "" || auth.TokenExpired(access, now()) {
				m.EdgeRedirect()
				target := loginPath + "?" + url.Values{ReturnURLParam: {r.URL.Path}}.Encode()
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// matchesPrefix matches whole path segments: "/dashboard" covers
// "/dashboard" and "/dashboard/x" but not "/dashboards".
func matchesPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimRight(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

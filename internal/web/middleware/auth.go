package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/JonMunkholm/matricula/internal/logging"
)

// RequireAdmin redirects requests without a signed-in user to loginPath.
// The stored token is only checked for presence and expiry here; the admin
// panel validates it against the API profile endpoint when it loads.
func RequireAdmin(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger := logging.FromContext(r.Context())

			sess := SessionFrom(r.Context())
			if sess == nil {
				logger.Error("auth: no session bound to request", "path", r.URL.Path)
				http.Error(w, "session unavailable", http.StatusInternalServerError)
				return
			}

			_, ok, err := sess.User(r.Context())
			if err != nil {
				logger.Error("auth: session lookup failed", "error", err)
				http.Error(w, "session unavailable", http.StatusServiceUnavailable)
				return
			}
			if !ok {
				logger.Info("auth: redirecting to login",
					"path", r.URL.Path,
					"method", r.Method,
				)
				RedirectToLogin(w, r, loginPath)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RedirectToLogin sends the browser to loginPath, remembering where it was
// headed for GET requests.
func RedirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	target := loginPath
	if r.Method == http.MethodGet && r.URL.Path != loginPath {
		target += "?next=" + url.QueryEscape(r.URL.RequestURI())
	}
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// SafeNext returns next when it is a local path, otherwise fallback.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return fallback
	}
	return next
}

package middleware

import (
	"net/http"
	"strings"

	"github.com/hangarhq/flightgate/internal/http/response"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/security"
)

// CSRFConfig decides which requests the double-submit guard covers.
// HEAD and OPTIONS always pass. GET passes unless its path matches a
// protected prefix (state-changing reads). Everything else is guarded
// unless its path matches a bypass prefix (credential-issuing endpoints
// that run before any cookie exists).
type CSRFConfig struct {
	ProtectedGETPrefixes []string
	BypassPrefixes       []string
	Validate             func(submitted, stored string) bool
}

func CSRFGuard(cfg CSRFConfig) func(http.Handler) http.Handler {
	validate := cfg.Validate
	if validate == nil {
		validate = func(submitted, stored string) bool { return false }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !csrfGuarded(r, cfg) {
				observability.RecordCSRFDecision(r.Context(), "exempt")
				next.ServeHTTP(w, r)
				return
			}

			submitted := r.Header.Get(security.CSRFHeader)
			stored := security.GetCookie(r, security.CSRFCookieName)
			if !validate(submitted, stored) {
				observability.RecordCSRFDecision(r.Context(), "rejected")
				observability.Audit(r, "csrf_rejected", "method", r.Method, "path", r.URL.Path)
				response.Error(w, r, http.StatusForbidden, response.CodeForbidden, "csrf validation failed", nil)
				return
			}
			observability.RecordCSRFDecision(r.Context(), "accepted")
			next.ServeHTTP(w, r)
		})
	}
}

func csrfGuarded(r *http.Request, cfg CSRFConfig) bool {
	switch r.Method {
	case http.MethodHead, http.MethodOptions:
		return false
	case http.MethodGet:
		return hasPrefix(r.URL.Path, cfg.ProtectedGETPrefixes)
	default:
		return !hasPrefix(r.URL.Path, cfg.BypassPrefixes)
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

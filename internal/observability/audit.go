package observability

import (
	"log/slog"
	"net/http"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Audit records a security-relevant decision with enough context for audit
// trails. Response bodies stay generic; the specific reason lives here,
// keyed by the request id the router minted.
func Audit(r *http.Request, event string, attrs ...any) {
	entry := make([]any, 0, 10+len(attrs))
	entry = append(entry,
		"event", event,
		"method", r.Method,
		"path", r.URL.Path,
		"remote", r.RemoteAddr,
		"request_id", chimiddleware.GetReqID(r.Context()),
	)
	entry = append(entry, attrs...)
	slog.InfoContext(r.Context(), "audit", entry...)
}

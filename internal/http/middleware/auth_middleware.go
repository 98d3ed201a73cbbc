package middleware

import (
	"context"
	"net/http"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/http/response"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/security"
	"github.com/hangarhq/flightgate/internal/service"
)

// SessionAuth validates the session token and installs the principal on the
// request context. The token cookie wins over the Authorization header so
// browser sessions and API-key bearer credentials can coexist on one
// request.
func SessionAuth(verifier service.SessionVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := security.GetCookie(r, security.SessionCookieName)
			source := "cookie"
			if raw == "" {
				raw = bearerToken(r)
				source = "bearer"
			}
			if raw == "" {
				observability.RecordSessionValidation(r.Context(), "missing", "none")
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "missing session token", nil)
				return
			}
			principal, err := verifier.VerifySession(raw)
			if err != nil {
				observability.RecordSessionValidation(r.Context(), "invalid", source)
				observability.Audit(r, "session_rejected", "reason", err.Error(), "source", source)
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "invalid session token", nil)
				return
			}
			observability.RecordSessionValidation(r.Context(), "valid", source)
			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(domain.Principal)
	return p, ok
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hangarhq/flightgate/internal/http/response"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/service"
)

type contextKey string

const (
	PrincipalContextKey contextKey = "principal"
	AdmissionContextKey contextKey = "admission"
)

// APIKeyGate is the outermost admission check: every request under the API
// prefix must present a valid key before any session logic runs. The key is
// read from the Authorization bearer value first, then the x-api-key
// header. All rejections share one body; the reason goes to the audit log.
func APIKeyGate(admitter service.APIKeyAdmitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := bearerToken(r)
			if presented == "" {
				presented = strings.TrimSpace(r.Header.Get("x-api-key"))
			}
			if presented == "" {
				observability.RecordAPIKeyAdmission(r.Context(), "missing")
				observability.Audit(r, "api_key_rejected", "reason", "missing")
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or missing api key", nil)
				return
			}
			adm, err := admitter.Admit(r.Context(), presented)
			if err != nil {
				observability.Audit(r, "api_key_rejected", "reason", err.Error())
				response.Error(w, r, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or missing api key", nil)
				return
			}
			ctx := context.WithValue(r.Context(), AdmissionContextKey, adm)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func AdmissionFromContext(ctx context.Context) (*service.AdmittedContext, bool) {
	a, ok := ctx.Value(AdmissionContextKey).(*service.AdmittedContext)
	return a, ok
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}

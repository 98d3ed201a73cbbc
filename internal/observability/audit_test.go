package observability

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

func TestAuditRecordsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:4711"
	req = req.WithContext(context.WithValue(req.Context(), chimiddleware.RequestIDKey, "req-77"))

	Audit(req, "login_failed", "reason", "invalid_credentials")

	out := buf.String()
	for _, want := range []string{
		"event=login_failed",
		"method=POST",
		"path=/api/v1/auth/login",
		"remote=203.0.113.9:4711",
		"request_id=req-77",
		"reason=invalid_credentials",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("audit line missing %q: %s", want, out)
		}
	}
}

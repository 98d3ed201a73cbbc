package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hangarhq/flightgate/internal/service"
)

type fakeAdmitter struct {
	accept string
	last   string
}

func (f *fakeAdmitter) Admit(_ context.Context, presented string) (*service.AdmittedContext, error) {
	f.last = presented
	if presented == f.accept {
		return &service.AdmittedContext{KeyID: 1, UserID: 42}, nil
	}
	return nil, service.ErrAPIKeyRejected
}

func TestAPIKeyGateMissingKey(t *testing.T) {
	h := APIKeyGate(&fakeAdmitter{accept: "fgk_good"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schools/1", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without api key, got %d", rr.Code)
	}
}

func TestAPIKeyGateRejectedKey(t *testing.T) {
	h := APIKeyGate(&fakeAdmitter{accept: "fgk_good"})(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schools/1", nil)
	req.Header.Set("x-api-key", "fgk_bad")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for rejected key, got %d", rr.Code)
	}
}

func TestAPIKeyGateAdmitsAndExposesContext(t *testing.T) {
	var got *service.AdmittedContext
	h := APIKeyGate(&fakeAdmitter{accept: "fgk_good"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = AdmissionFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schools/1", nil)
	req.Header.Set("x-api-key", "fgk_good")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if got == nil || got.UserID != 42 {
		t.Fatalf("admission context = %+v, want UserID 42", got)
	}
}

func TestAPIKeyGateBearerWinsOverHeader(t *testing.T) {
	adm := &fakeAdmitter{accept: "fgk_bearer"}
	h := APIKeyGate(adm)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/schools/1", nil)
	req.Header.Set("Authorization", "Bearer fgk_bearer")
	req.Header.Set("x-api-key", "fgk_header")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if adm.last != "fgk_bearer" {
		t.Fatalf("admitted %q, want the bearer value", adm.last)
	}
}

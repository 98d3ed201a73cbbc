package app

import (
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/hangarhq/flightgate/internal/config"
	"github.com/hangarhq/flightgate/internal/observability"
)

func TestNewAssignsDependencies(t *testing.T) {
	cfg := &config.Config{Env: "test", HTTPAddr: ":0"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	server := &http.Server{Addr: ":0", ReadHeaderTimeout: time.Second}
	runtime := &observability.Runtime{}

	a := New(cfg, logger, server, runtime)
	if a.Config != cfg || a.Logger != logger || a.Server != server || a.Observability != runtime {
		t.Fatal("expected app dependencies to be assigned")
	}
}

func TestProvideServerTimeouts(t *testing.T) {
	cfg := &config.Config{HTTPAddr: ":9999"}
	srv := provideServer(cfg, http.NewServeMux())
	if srv.Addr != ":9999" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.ReadHeaderTimeout <= 0 || srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 {
		t.Error("server must set request timeouts")
	}
}

func TestProvideStoresFallBackWithoutRedis(t *testing.T) {
	if providePendingAuthStore(nil) == nil {
		t.Error("expected in-memory pending auth store")
	}
	cfg := &config.Config{AbuseFreeAttempts: 3, AbuseBaseDelay: time.Second, AbuseMultiplier: 2, AbuseMaxDelay: time.Minute, AbuseResetWindow: time.Hour}
	if provideAbuseGuard(cfg, nil) == nil {
		t.Error("expected in-memory abuse guard")
	}
}

func TestProvideTokenServiceSecureCookiesInProduction(t *testing.T) {
	cfg := &config.Config{
		Env:           "production",
		JWTIssuer:     "flightgate",
		JWTAudience:   "flightgate-api",
		SessionSecret: "0123456789abcdef0123456789abcdef",
		SessionTTL:    time.Hour,
	}
	ts := provideTokenService(cfg, provideJWTManager(cfg))
	cookies := ts.ClearSessionCookies()
	for _, c := range cookies {
		if !c.Secure {
			t.Errorf("cookie %s must be secure in production", c.Name)
		}
	}
}

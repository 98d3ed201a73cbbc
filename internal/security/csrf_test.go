package security

import (
	"strings"
	"testing"
	"time"
)

func TestCSRFTokenRoundTrip(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := NewCSRFToken(time.Hour, now)
	if err != nil {
		t.Fatalf("NewCSRFToken() error = %v", err)
	}
	if !strings.Contains(tok.Value, ".") {
		t.Fatalf("token %q missing embedded expiry", tok.Value)
	}
	if !ValidateCSRFToken(tok.Value, tok.Value, now) {
		t.Error("matching pair should validate")
	}
	if !ValidateCSRFToken(tok.Value, tok.Value, now.Add(59*time.Minute)) {
		t.Error("pair should validate just before expiry")
	}
}

func TestCSRFTokenExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, err := NewCSRFToken(time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	if ValidateCSRFToken(tok.Value, tok.Value, now.Add(61*time.Minute)) {
		t.Error("expired pair must fail even when values match")
	}
}

func TestCSRFTokenMismatchAndMalformed(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a, err := NewCSRFToken(time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewCSRFToken(time.Hour, now)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		submitted string
		stored    string
	}{
		{"different tokens", a.Value, b.Value},
		{"empty submitted", "", a.Value},
		{"empty stored", a.Value, ""},
		{"stored without expiry", a.Value, "no-dot-here"},
		{"stored with bad expiry", a.Value, "rand.notanumber"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if ValidateCSRFToken(tt.submitted, tt.stored, now) {
				t.Error("expected validation failure")
			}
		})
	}
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/security"
)

// totpTestSecret is the RFC 6238 reference secret ("12345678901234567890"
// in base32); at t=59s the expected code is 287082.
const totpTestSecret = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

const totpTestCode = "287082"

func totpTestClock() time.Time { return time.Unix(59, 0) }

func newAuthServiceForTest(t *testing.T, users *fakeUserRepo, guard AuthAbuseGuard) (*AuthService, *MemoryPendingAuthStore) {
	t.Helper()
	pending := NewMemoryPendingAuthStore().WithClock(totpTestClock)
	tokens := newTokenServiceForTest(t, totpTestClock)
	svc := NewAuthService(users, tokens, pending, guard, testLogger(), 5*time.Minute).WithClock(totpTestClock)
	return svc, pending
}

func testUser(t *testing.T, mfaEnabled bool) *domain.User {
	t.Helper()
	hash, err := security.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	u := &domain.User{
		ID:           7,
		Email:        "pilot@example.com",
		PasswordHash: hash,
		Role:         domain.RoleInstructor,
		SchoolID:     uintPtr(3),
		MFAEnabled:   mfaEnabled,
	}
	if mfaEnabled {
		u.MFASecret = totpTestSecret
	}
	return u
}

func TestLoginWithoutMFA(t *testing.T) {
	svc, _ := newAuthServiceForTest(t, newFakeUserRepo(testUser(t, false)), nil)

	res, err := svc.Login(context.Background(), LoginInput{
		Email:    "pilot@example.com",
		Password: "correct horse battery staple",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Token == "" {
		t.Error("expected a session token")
	}
	if res.CSRF.Value == "" {
		t.Error("expected a csrf token")
	}
	if res.Principal.UserID != 7 || res.Principal.Role != domain.RoleInstructor {
		t.Errorf("unexpected principal: %+v", res.Principal)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	svc, _ := newAuthServiceForTest(t, newFakeUserRepo(testUser(t, false)), nil)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.com", "correct horse battery staple"},
		{"wrong password", "pilot@example.com", "wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), LoginInput{Email: tt.email, Password: tt.password})
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestLoginMFAChallengeAndVerify(t *testing.T) {
	svc, _ := newAuthServiceForTest(t, newFakeUserRepo(testUser(t, true)), nil)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginInput{
		Email:    "pilot@example.com",
		Password: "correct horse battery staple",
	})
	var mfaErr *MFARequiredError
	if !errors.As(err, &mfaErr) {
		t.Fatalf("Login() error = %v, want MFARequiredError", err)
	}
	if mfaErr.PendingID == "" {
		t.Fatal("expected a pending id")
	}

	res, err := svc.VerifyMFA(ctx, mfaErr.PendingID, totpTestCode, "203.0.113.9")
	if err != nil {
		t.Fatalf("VerifyMFA() error = %v", err)
	}
	if res.Token == "" {
		t.Error("expected a session token after mfa")
	}

	// The pending entry is consumed; replaying the id must fail.
	if _, err := svc.VerifyMFA(ctx, mfaErr.PendingID, totpTestCode, "203.0.113.9"); !errors.Is(err, ErrPendingAuthExpired) {
		t.Errorf("replay VerifyMFA() error = %v, want ErrPendingAuthExpired", err)
	}
}

func TestLoginSingleShotMFA(t *testing.T) {
	svc, _ := newAuthServiceForTest(t, newFakeUserRepo(testUser(t, true)), nil)

	res, err := svc.Login(context.Background(), LoginInput{
		Email:    "pilot@example.com",
		Password: "correct horse battery staple",
		Code:     totpTestCode,
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Token == "" {
		t.Error("expected a session token")
	}
}

func TestVerifyMFAWrongCodeKeepsPending(t *testing.T) {
	svc, _ := newAuthServiceForTest(t, newFakeUserRepo(testUser(t, true)), nil)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginInput{Email: "pilot@example.com", Password: "correct horse battery staple"})
	var mfaErr *MFARequiredError
	if !errors.As(err, &mfaErr) {
		t.Fatalf("Login() error = %v, want MFARequiredError", err)
	}

	if _, err := svc.VerifyMFA(ctx, mfaErr.PendingID, "000000", ""); !errors.Is(err, ErrInvalidMFACode) {
		t.Fatalf("VerifyMFA() error = %v, want ErrInvalidMFACode", err)
	}

	// A wrong code must not consume the pending entry.
	if _, err := svc.VerifyMFA(ctx, mfaErr.PendingID, totpTestCode, ""); err != nil {
		t.Errorf("VerifyMFA() after wrong code error = %v", err)
	}
}

func TestVerifyMFACodeFormat(t *testing.T) {
	svc, pending := newAuthServiceForTest(t, newFakeUserRepo(testUser(t, true)), nil)
	ctx := context.Background()
	if err := pending.Create(ctx, "pending-1", PendingAuth{UserID: 7, CreatedAt: totpTestClock()}, time.Minute); err != nil {
		t.Fatal(err)
	}

	for _, code := range []string{"", "12345", "1234567", "abcdef", "12 456"} {
		if _, err := svc.VerifyMFA(ctx, "pending-1", code, ""); !errors.Is(err, ErrMFACodeFormat) {
			t.Errorf("VerifyMFA(%q) error = %v, want ErrMFACodeFormat", code, err)
		}
	}
}

func TestVerifyMFAUnknownPending(t *testing.T) {
	svc, _ := newAuthServiceForTest(t, newFakeUserRepo(testUser(t, true)), nil)
	if _, err := svc.VerifyMFA(context.Background(), "no-such-id", totpTestCode, ""); !errors.Is(err, ErrPendingAuthExpired) {
		t.Errorf("VerifyMFA() error = %v, want ErrPendingAuthExpired", err)
	}
}

func TestLoginCooldownAfterRepeatedFailures(t *testing.T) {
	guard := NewMemoryAuthAbuseGuard(AuthAbusePolicy{
		FreeAttempts: 1,
		BaseDelay:    2 * time.Second,
		Multiplier:   2,
		MaxDelay:     time.Minute,
		ResetWindow:  time.Hour,
	}).WithClock(totpTestClock)
	svc, _ := newAuthServiceForTest(t, newFakeUserRepo(testUser(t, false)), guard)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := svc.Login(ctx, LoginInput{Email: "pilot@example.com", Password: "wrong", IP: "198.51.100.4"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d error = %v, want ErrInvalidCredentials", i, err)
		}
	}

	_, err := svc.Login(ctx, LoginInput{Email: "pilot@example.com", Password: "correct horse battery staple", IP: "198.51.100.4"})
	var cooldown *CooldownError
	if !errors.As(err, &cooldown) {
		t.Fatalf("Login() error = %v, want CooldownError", err)
	}
	if cooldown.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want > 0", cooldown.RetryAfter)
	}
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/repository"
	"github.com/hangarhq/flightgate/internal/security"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password;
	// the two are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidMFACode     = errors.New("invalid verification code")
	ErrMFACodeFormat      = errors.New("malformed verification code")
	ErrPendingAuthExpired = errors.New("pending authentication not found or expired")
)

// MFARequiredError signals that the password check passed but a second
// factor is outstanding. PendingID is the one-time correlation id the
// client must present to complete the login.
type MFARequiredError struct {
	PendingID string
}

func (e *MFARequiredError) Error() string { return "MFA verification required" }

// CooldownError reports that an identity or source IP is in a failure
// cooldown and how long until the next attempt is accepted.
type CooldownError struct {
	RetryAfter time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

var mfaCodePattern = regexp.MustCompile(`^\d{6}$`)

type LoginInput struct {
	Email    string
	Password string
	// Code optionally carries a TOTP code for single-shot login.
	Code string
	IP   string
}

type LoginResult struct {
	Token     string
	CSRF      security.CSRFToken
	Principal domain.Principal
}

type AuthService struct {
	users      repository.UserRepository
	tokens     *TokenService
	pending    PendingAuthStore
	guard      AuthAbuseGuard
	logger     *slog.Logger
	pendingTTL time.Duration
	now        func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	tokens *TokenService,
	pending PendingAuthStore,
	guard AuthAbuseGuard,
	logger *slog.Logger,
	pendingTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		pending:    pending,
		guard:      guard,
		logger:     logger,
		pendingTTL: pendingTTL,
		now:        time.Now,
	}
}

func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login verifies the password and, when MFA is enabled for the account,
// either parks the login behind a pending-auth entry (no code supplied) or
// completes it in one shot (code supplied). A failed second factor never
// advances state.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if cooldown, err := s.checkGuard(ctx, AuthAbuseScopeLogin, in.Email, in.IP); err != nil {
		return nil, err
	} else if cooldown > 0 {
		observability.RecordAuthLogin(ctx, "cooldown")
		return nil, &CooldownError{RetryAfter: cooldown}
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.registerFailure(ctx, AuthAbuseScopeLogin, in.Email, in.IP)
			observability.RecordAuthLogin(ctx, "invalid_credentials")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !security.CheckPassword(user.PasswordHash, in.Password) {
		s.registerFailure(ctx, AuthAbuseScopeLogin, in.Email, in.IP)
		observability.RecordAuthLogin(ctx, "invalid_credentials")
		return nil, ErrInvalidCredentials
	}

	if !user.MFAEnabled {
		s.resetGuard(ctx, AuthAbuseScopeLogin, in.Email, in.IP)
		observability.RecordAuthLogin(ctx, "success")
		observability.RecordMFATransition(ctx, "direct", "success")
		return s.issue(user)
	}

	if in.Code == "" {
		pendingID := uuid.NewString()
		pa := PendingAuth{UserID: user.ID, CreatedAt: s.now()}
		if err := s.pending.Create(ctx, pendingID, pa, s.pendingTTL); err != nil {
			return nil, fmt.Errorf("create pending auth: %w", err)
		}
		observability.RecordMFATransition(ctx, "password_verified", "pending")
		return nil, &MFARequiredError{PendingID: pendingID}
	}

	if err := s.verifyCode(ctx, user, in.Code, in.IP); err != nil {
		return nil, err
	}
	s.resetGuard(ctx, AuthAbuseScopeLogin, in.Email, in.IP)
	s.resetGuard(ctx, AuthAbuseScopeMFA, in.Email, in.IP)
	observability.RecordAuthLogin(ctx, "success")
	observability.RecordMFATransition(ctx, "single_shot", "success")
	return s.issue(user)
}

// VerifyMFA completes a login parked by a previous password-only attempt.
// The pending entry is consumed only on success; a wrong code leaves it in
// place for another try within the TTL.
func (s *AuthService) VerifyMFA(ctx context.Context, pendingID, code, ip string) (*LoginResult, error) {
	pa, ok, err := s.pending.Get(ctx, pendingID)
	if err != nil {
		return nil, fmt.Errorf("load pending auth: %w", err)
	}
	if !ok {
		observability.RecordMFATransition(ctx, "verify", "unknown_pending")
		return nil, ErrPendingAuthExpired
	}

	user, err := s.users.FindByID(ctx, pa.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			_ = s.pending.Delete(ctx, pendingID)
			return nil, ErrPendingAuthExpired
		}
		return nil, err
	}

	if cooldown, err := s.checkGuard(ctx, AuthAbuseScopeMFA, user.Email, ip); err != nil {
		return nil, err
	} else if cooldown > 0 {
		return nil, &CooldownError{RetryAfter: cooldown}
	}

	if err := s.verifyCode(ctx, user, code, ip); err != nil {
		return nil, err
	}

	if err := s.pending.Delete(ctx, pendingID); err != nil {
		s.logger.Warn("failed to consume pending auth", "error", err)
	}
	s.resetGuard(ctx, AuthAbuseScopeLogin, user.Email, ip)
	s.resetGuard(ctx, AuthAbuseScopeMFA, user.Email, ip)
	observability.RecordAuthLogin(ctx, "success")
	observability.RecordMFATransition(ctx, "verify", "success")
	return s.issue(user)
}

func (s *AuthService) verifyCode(ctx context.Context, user *domain.User, code, ip string) error {
	// Reject malformed codes before touching the TOTP machinery; format
	// failures do not count toward the abuse state.
	if !mfaCodePattern.MatchString(code) {
		observability.RecordMFATransition(ctx, "verify", "malformed_code")
		return ErrMFACodeFormat
	}
	if !security.VerifyTOTP(user.MFASecret, code, s.now()) {
		s.registerFailure(ctx, AuthAbuseScopeMFA, user.Email, ip)
		observability.RecordMFATransition(ctx, "verify", "invalid_code")
		return ErrInvalidMFACode
	}
	return nil
}

func (s *AuthService) issue(user *domain.User) (*LoginResult, error) {
	principal := user.Principal()
	token, err := s.tokens.IssueSession(principal)
	if err != nil {
		return nil, fmt.Errorf("issue session: %w", err)
	}
	csrf, err := s.tokens.IssueCSRF()
	if err != nil {
		return nil, fmt.Errorf("issue csrf token: %w", err)
	}
	return &LoginResult{Token: token, CSRF: csrf, Principal: principal}, nil
}

func (s *AuthService) checkGuard(ctx context.Context, scope AuthAbuseScope, identity, ip string) (time.Duration, error) {
	if s.guard == nil {
		return 0, nil
	}
	return s.guard.Check(ctx, scope, identity, ip)
}

func (s *AuthService) registerFailure(ctx context.Context, scope AuthAbuseScope, identity, ip string) {
	if s.guard == nil {
		return
	}
	if _, err := s.guard.RegisterFailure(ctx, scope, identity, ip); err != nil {
		s.logger.Warn("failed to record auth failure", "scope", string(scope), "error", err)
	}
}

func (s *AuthService) resetGuard(ctx context.Context, scope AuthAbuseScope, identity, ip string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Reset(ctx, scope, identity, ip); err != nil {
		s.logger.Warn("failed to reset auth abuse state", "scope", string(scope), "error", err)
	}
}

package service

import (
	"net/http"
	"time"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/security"
)

// TokenService mints and verifies session tokens and CSRF token pairs.
// Tokens are superseded by issuing new ones, never revoked in place.
type TokenService struct {
	jwtMgr        *security.JWTManager
	sessionTTL    time.Duration
	secureCookies bool
	now           func() time.Time
}

func NewTokenService(jwtMgr *security.JWTManager, sessionTTL time.Duration, secureCookies bool) *TokenService {
	return &TokenService{
		jwtMgr:        jwtMgr,
		sessionTTL:    sessionTTL,
		secureCookies: secureCookies,
		now:           time.Now,
	}
}

func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	s.jwtMgr.WithClock(now)
	return s
}

func (s *TokenService) IssueSession(p domain.Principal) (string, error) {
	return s.jwtMgr.SignSession(p, s.sessionTTL)
}

// VerifySession parses and validates a raw session token. The typed
// security errors it returns are for audit logging; handlers map every one
// of them to the same 401.
func (s *TokenService) VerifySession(raw string) (domain.Principal, error) {
	claims, err := s.jwtMgr.ParseSession(raw)
	if err != nil {
		return domain.Principal{}, err
	}
	return claims.Principal()
}

func (s *TokenService) IssueCSRF() (security.CSRFToken, error) {
	return security.NewCSRFToken(s.sessionTTL, s.now())
}

func (s *TokenService) ValidateCSRF(submitted, stored string) bool {
	return security.ValidateCSRFToken(submitted, stored, s.now())
}

// SessionCookies builds the login cookie pair: the session cookie is
// httpOnly, the CSRF cookie is script-readable so the client can mirror it
// into the request header; both share SameSite and Secure attributes. The
// CSRF cookie max-age tracks the token's remaining life.
func (s *TokenService) SessionCookies(token string, csrf security.CSRFToken) []*http.Cookie {
	csrfMaxAge := int(csrf.ExpiresAt.Sub(s.now()).Seconds())
	if csrfMaxAge < 0 {
		csrfMaxAge = 0
	}
	return []*http.Cookie{
		{
			Name:     security.SessionCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   int(s.sessionTTL.Seconds()),
			HttpOnly: true,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteStrictMode,
		},
		{
			Name:     security.CSRFCookieName,
			Value:    csrf.Value,
			Path:     "/",
			MaxAge:   csrfMaxAge,
			HttpOnly: false,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteStrictMode,
		},
	}
}

func (s *TokenService) ClearSessionCookies() []*http.Cookie {
	expire := func(name string, httpOnly bool) *http.Cookie {
		return &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: httpOnly,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteStrictMode,
		}
	}
	return []*http.Cookie{
		expire(security.SessionCookieName, true),
		expire(security.CSRFCookieName, false),
	}
}

package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	CSRFHeader        = "X-CSRF-Token"
	CSRFCookieName    = "csrf-token"
	SessionCookieName = "token"
)

// CSRFToken is a double-submit token. The encoded value carries its own
// expiry so validation needs no server-side store beyond the cookie.
type CSRFToken struct {
	Value     string
	ExpiresAt time.Time
}

func NewCSRFToken(ttl time.Duration, now time.Time) (CSRFToken, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return CSRFToken{}, fmt.Errorf("generate csrf token: %w", err)
	}
	expiresAt := now.Add(ttl).Truncate(time.Second)
	value := base64.RawURLEncoding.EncodeToString(buf) + "." + strconv.FormatInt(expiresAt.Unix(), 10)
	return CSRFToken{Value: value, ExpiresAt: expiresAt}, nil
}

// ValidateCSRFToken reports whether the header-submitted and cookie-stored
// tokens match. Comparison is constant-time; a stored token past its
// embedded expiry fails even when the values are byte-equal.
func ValidateCSRFToken(submitted, stored string, now time.Time) bool {
	if submitted == "" || stored == "" {
		return false
	}
	exp, ok := csrfExpiry(stored)
	if !ok || now.After(exp) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(submitted), []byte(stored)) == 1
}

func csrfExpiry(token string) (time.Time, bool) {
	idx := strings.LastIndexByte(token, '.')
	if idx < 0 {
		return time.Time{}, false
	}
	unix, err := strconv.ParseInt(token[idx+1:], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}

func GetCookie(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

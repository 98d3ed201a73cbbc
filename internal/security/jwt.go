package security

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/hangarhq/flightgate/internal/domain"
)

// Verification failures are typed so services can log a precise reason code,
// but every caller facing the client collapses them to a uniform 401.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature mismatch")
)

// clockSkewLeeway bounds the tolerated clock skew on exp/iat/nbf checks.
const clockSkewLeeway = 30 * time.Second

type SessionClaims struct {
	Role         domain.Role `json:"role"`
	SchoolID     *uint       `json:"school_id,omitempty"`
	StudentID    *uint       `json:"student_id,omitempty"`
	InstructorID *uint       `json:"instructor_id,omitempty"`
	jwt.RegisteredClaims
}

// Principal rebuilds the request principal from verified claims.
func (c *SessionClaims) Principal() (domain.Principal, error) {
	id64, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return domain.Principal{}, ErrTokenMalformed
	}
	if !c.Role.Valid() {
		return domain.Principal{}, ErrTokenMalformed
	}
	return domain.Principal{
		UserID:       uint(id64),
		Role:         c.Role,
		SchoolID:     c.SchoolID,
		StudentID:    c.StudentID,
		InstructorID: c.InstructorID,
	}, nil
}

// JWTManager signs and verifies session tokens with a single
// constructor-injected HS256 secret. No package-level signing state exists.
type JWTManager struct {
	issuer   string
	audience string
	secret   []byte
	now      func() time.Time
}

func NewJWTManager(issuer, audience, secret string) *JWTManager {
	return &JWTManager{
		issuer:   issuer,
		audience: audience,
		secret:   []byte(secret),
		now:      time.Now,
	}
}

// WithClock fixes the time source, making issuance deterministic in tests.
func (m *JWTManager) WithClock(now func() time.Time) *JWTManager {
	m.now = now
	return m
}

func (m *JWTManager) SignSession(p domain.Principal, ttl time.Duration) (string, error) {
	now := m.now()
	claims := SessionClaims{
		Role:         p.Role,
		SchoolID:     p.SchoolID,
		StudentID:    p.StudentID,
		InstructorID: p.InstructorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   strconv.FormatUint(uint64(p.UserID), 10),
			Audience:  []string{m.audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) ParseSession(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (any, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, ErrTokenSignature
		}
		return m.secret, nil
	},
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithLeeway(clockSkewLeeway),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, classifyJWTError(err)
	}
	if !tok.Valid {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}

func classifyJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	default:
		return ErrTokenMalformed
	}
}

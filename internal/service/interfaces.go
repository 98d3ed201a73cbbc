package service

import (
	"context"

	"github.com/hangarhq/flightgate/internal/domain"
)

// SessionVerifier is what the session-authentication middleware needs from
// the token service.
type SessionVerifier interface {
	VerifySession(raw string) (domain.Principal, error)
}

// APIKeyAdmitter is what the API-key gate middleware needs.
type APIKeyAdmitter interface {
	Admit(ctx context.Context, presented string) (*AdmittedContext, error)
}

// Authorizer applies the role hierarchy and resource-scoping rules.
type Authorizer interface {
	Authorize(ctx context.Context, p domain.Principal, action Action, res ResourceRef) error
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/observability"
	"github.com/hangarhq/flightgate/internal/repository"
	"github.com/hangarhq/flightgate/internal/security"
)

// ErrAPIKeyRejected covers every admission failure: unknown, revoked, or
// expired keys. Callers answer with the same 401 regardless; the wrapped
// reason is for the audit log only.
var ErrAPIKeyRejected = errors.New("api key rejected")

// ErrInvalidKeyRequest reports a malformed key-generation request.
var ErrInvalidKeyRequest = errors.New("invalid api key request")

const touchUsageTimeout = 5 * time.Second

// AdmittedContext is attached to requests that passed the API-key gate.
type AdmittedContext struct {
	KeyID  uint
	UserID uint
	Label  string
}

// APIKeyView is the safe listing shape: no hash, no plaintext, only the
// display fragment.
type APIKeyView struct {
	ID         uint       `json:"id"`
	Label      string     `json:"label"`
	LastSix    string     `json:"lastSix"`
	IsActive   bool       `json:"isActive"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// GeneratedKey carries the plaintext exactly once, at creation. It is
// never persisted and never shown again.
type GeneratedKey struct {
	Plaintext string
	Record    *domain.APIKey
}

type APIKeyService struct {
	keys   repository.APIKeyRepository
	logger *slog.Logger
	now    func() time.Time
}

func NewAPIKeyService(keys repository.APIKeyRepository, logger *slog.Logger) *APIKeyService {
	return &APIKeyService{keys: keys, logger: logger, now: time.Now}
}

func (s *APIKeyService) WithClock(now func() time.Time) *APIKeyService {
	s.now = now
	return s
}

// Admit checks a presented key against the stored digests. The last-used
// timestamp is updated asynchronously so a slow write never delays the
// request.
func (s *APIKeyService) Admit(ctx context.Context, presented string) (*AdmittedContext, error) {
	hash := security.HashAPIKey(presented)
	key, err := s.keys.FindByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			observability.RecordAPIKeyAdmission(ctx, "unknown")
			return nil, fmt.Errorf("%w: unknown key", ErrAPIKeyRejected)
		}
		return nil, err
	}
	if !key.IsActive {
		observability.RecordAPIKeyAdmission(ctx, "revoked")
		return nil, fmt.Errorf("%w: revoked", ErrAPIKeyRejected)
	}
	if key.ExpiresAt != nil && key.ExpiresAt.Before(s.now()) {
		observability.RecordAPIKeyAdmission(ctx, "expired")
		return nil, fmt.Errorf("%w: expired", ErrAPIKeyRejected)
	}

	observability.RecordAPIKeyAdmission(ctx, "admitted")
	usedAt := s.now()
	go func() {
		touchCtx, cancel := context.WithTimeout(context.Background(), touchUsageTimeout)
		defer cancel()
		if err := s.keys.TouchUsage(touchCtx, key.ID, usedAt); err != nil {
			s.logger.Warn("failed to update api key usage", "key_id", key.ID, "error", err)
		}
	}()

	return &AdmittedContext{KeyID: key.ID, UserID: key.UserID, Label: key.Label}, nil
}

// Generate mints a new key for the owner. Duration is expressed as a value
// plus a calendar unit; expiry is computed with calendar arithmetic so
// "1 months" from Jan 31 lands on the civil date, not a fixed hour count.
func (s *APIKeyService) Generate(ctx context.Context, ownerID uint, label string, durationValue int, durationType string) (*GeneratedKey, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", ErrInvalidKeyRequest)
	}
	if durationValue <= 0 {
		return nil, fmt.Errorf("%w: duration value must be positive", ErrInvalidKeyRequest)
	}
	expiresAt, err := addKeyDuration(s.now(), durationValue, durationType)
	if err != nil {
		return nil, err
	}

	plaintext, err := security.NewAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	record := &domain.APIKey{
		UserID:    ownerID,
		Label:     label,
		KeyHash:   security.HashAPIKey(plaintext),
		LastSix:   security.LastSix(plaintext),
		IsActive:  true,
		ExpiresAt: &expiresAt,
	}
	if err := s.keys.Create(ctx, record); err != nil {
		return nil, err
	}
	return &GeneratedKey{Plaintext: plaintext, Record: record}, nil
}

func (s *APIKeyService) List(ctx context.Context, ownerID uint) ([]APIKeyView, error) {
	keys, err := s.keys.ListByUserID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	views := make([]APIKeyView, 0, len(keys))
	for _, k := range keys {
		views = append(views, APIKeyView{
			ID:         k.ID,
			Label:      k.Label,
			LastSix:    k.LastSix,
			IsActive:   k.IsActive,
			ExpiresAt:  k.ExpiresAt,
			LastUsedAt: k.LastUsedAt,
			CreatedAt:  k.CreatedAt,
		})
	}
	return views, nil
}

// Revoke deactivates a key. Revocation takes effect on the next admission
// check; it does not claw back requests already in flight.
func (s *APIKeyService) Revoke(ctx context.Context, id uint) error {
	return s.keys.SetActive(ctx, id, false)
}

// RevokeOwned revokes a key only when it belongs to ownerID. A key owned by
// someone else is reported as not found, same as a key that does not exist.
func (s *APIKeyService) RevokeOwned(ctx context.Context, ownerID, id uint) error {
	return s.keys.RevokeOwned(ctx, id, ownerID)
}

func addKeyDuration(from time.Time, value int, unit string) (time.Time, error) {
	switch unit {
	case "days":
		return from.AddDate(0, 0, value), nil
	case "weeks":
		return from.AddDate(0, 0, 7*value), nil
	case "months":
		return from.AddDate(0, value, 0), nil
	case "years":
		return from.AddDate(value, 0, 0), nil
	default:
		return time.Time{}, fmt.Errorf("%w: unknown duration type %q", ErrInvalidKeyRequest, unit)
	}
}

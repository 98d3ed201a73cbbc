package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/hangarhq/flightgate/internal/domain"
	"github.com/hangarhq/flightgate/internal/observability"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

type APIKeyRepository interface {
	Create(ctx context.Context, key *domain.APIKey) error
	FindByHash(ctx context.Context, hash string) (*domain.APIKey, error)
	ListByUserID(ctx context.Context, userID uint) ([]domain.APIKey, error)
	SetActive(ctx context.Context, id uint, active bool) error
	// RevokeOwned deactivates a key only when userID owns it. Unknown and
	// foreign ids both come back as ErrAPIKeyNotFound.
	RevokeOwned(ctx context.Context, id, userID uint) error
	// TouchUsage updates last_used_at. Callers invoke it off the critical
	// path; a failure is logged, never surfaced to the request.
	TouchUsage(ctx context.Context, id uint, at time.Time) error
}

type GormAPIKeyRepository struct{ db *gorm.DB }

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository { return &GormAPIKeyRepository{db: db} }

func (r *GormAPIKeyRepository) Create(ctx context.Context, key *domain.APIKey) error {
	if err := r.db.WithContext(ctx).Create(key).Error; err != nil {
		observability.RecordRepositoryOperation(ctx, "api_key", "create", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "create", "success")
	return nil
}

func (r *GormAPIKeyRepository) FindByHash(ctx context.Context, hash string) (*domain.APIKey, error) {
	var k domain.APIKey
	err := r.db.WithContext(ctx).Where("key_hash = ?", hash).First(&k).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(ctx, "api_key", "find_by_hash", "not_found")
			return nil, ErrAPIKeyNotFound
		}
		observability.RecordRepositoryOperation(ctx, "api_key", "find_by_hash", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "find_by_hash", "success")
	return &k, nil
}

func (r *GormAPIKeyRepository) ListByUserID(ctx context.Context, userID uint) ([]domain.APIKey, error) {
	var keys []domain.APIKey
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "api_key", "list_by_user_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "list_by_user_id", "success")
	return keys, nil
}

func (r *GormAPIKeyRepository) SetActive(ctx context.Context, id uint, active bool) error {
	res := r.db.WithContext(ctx).Model(&domain.APIKey{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "api_key", "set_active", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "api_key", "set_active", "not_found")
		return ErrAPIKeyNotFound
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "set_active", "success")
	return nil
}

func (r *GormAPIKeyRepository) RevokeOwned(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Model(&domain.APIKey{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_active", false)
	if res.Error != nil {
		observability.RecordRepositoryOperation(ctx, "api_key", "revoke_owned", "error")
		return res.Error
	}
	if res.RowsAffected == 0 {
		observability.RecordRepositoryOperation(ctx, "api_key", "revoke_owned", "not_found")
		return ErrAPIKeyNotFound
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "revoke_owned", "success")
	return nil
}

func (r *GormAPIKeyRepository) TouchUsage(ctx context.Context, id uint, at time.Time) error {
	err := r.db.WithContext(ctx).Model(&domain.APIKey{}).Where("id = ?", id).Update("last_used_at", at).Error
	if err != nil {
		observability.RecordRepositoryOperation(ctx, "api_key", "touch_usage", "error")
		return err
	}
	observability.RecordRepositoryOperation(ctx, "api_key", "touch_usage", "success")
	return nil
}

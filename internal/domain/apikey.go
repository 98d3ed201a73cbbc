package domain

import "time"

// APIKey is a persisted application credential. The plaintext secret is
// returned to the caller exactly once, at creation; only the digest and the
// display fragment survive. Revocation flips IsActive so the audit history
// of the key is preserved.
type APIKey struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	Label      string     `gorm:"size:128;not null" json:"label"`
	KeyHash    string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	LastSix    string     `gorm:"size:6;not null" json:"last_six"`
	IsActive   bool       `gorm:"not null;default:true" json:"is_active"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at,omitempty"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

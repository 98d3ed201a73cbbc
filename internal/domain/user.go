package domain

import "time"

type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name         string `gorm:"size:255" json:"name"`
	PasswordHash string `gorm:"size:128;not null" json:"-"`
	Role         Role   `gorm:"size:32;not null" json:"role"`
	SchoolID     *uint  `gorm:"index" json:"school_id,omitempty"`
	StudentID    *uint  `gorm:"index" json:"student_id,omitempty"`
	InstructorID *uint  `gorm:"index" json:"instructor_id,omitempty"`

	// Second-factor registration. Whether a login attempt is still awaiting
	// the second factor is tracked per attempt in the pending-auth store,
	// never as a flag on this row.
	MFAEnabled bool   `gorm:"not null;default:false" json:"mfa_enabled"`
	MFASecret  string `gorm:"size:64" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) Principal() Principal {
	return Principal{
		UserID:       u.ID,
		Role:         u.Role,
		SchoolID:     u.SchoolID,
		StudentID:    u.StudentID,
		InstructorID: u.InstructorID,
	}
}

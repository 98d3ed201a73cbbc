package domain

import "time"

type School struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"size:255;not null" json:"name"`

	// Membership lists consulted by the authorization resolver. A
	// school_admin or instructor may only act within schools that list them.
	Admins      []User `gorm:"many2many:school_admins" json:"-"`
	Instructors []User `gorm:"many2many:school_instructors" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Student struct {
	ID       uint `gorm:"primaryKey" json:"id"`
	SchoolID uint `gorm:"index;not null" json:"school_id"`
	// UserID is the owning account; a student principal may only touch the
	// record whose UserID equals its own id.
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	FirstName string    `gorm:"size:128" json:"first_name"`
	LastName  string    `gorm:"size:128" json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

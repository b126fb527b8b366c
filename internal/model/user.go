package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an app account. Identity is established by an external
// provider; the engine only ever sees the authenticated user id.
type User struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Email    string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Name     string    `json:"name" gorm:"size:100;not null"`
	Locale   string    `json:"locale" gorm:"size:10;not null;default:'en'"`
	Timezone string    `json:"timezone" gorm:"size:64;not null;default:'UTC'"` // IANA zone name

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Subscription backs the entitlement check: a user is a current subscriber
// while expires_at is in the future. Receipt verification happens upstream.
type Subscription struct {
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Plan      string    `json:"plan" gorm:"size:32;default:'monthly'"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

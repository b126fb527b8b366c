package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeviceToken is a push token registered by a user's device. Tokens are
// globally unique; at steady state exactly one token per user is active
// (registering a new one deactivates the rest).
type DeviceToken struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID   uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index"`
	Token    string    `json:"token" gorm:"size:512;not null;uniqueIndex"`
	Platform string    `json:"platform" gorm:"size:16;not null;default:'ios'"`
	IsActive bool      `json:"is_active" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d *DeviceToken) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

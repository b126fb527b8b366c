package model

import (
	"time"

	"github.com/google/uuid"
)

// Preferences holds per-user notification settings. One row per user.
// Quiet times are local times of day ("HH:MM") in the user's timezone;
// the quiet window may wrap past midnight (quiet_start > quiet_end).
type Preferences struct {
	UserID     uuid.UUID `json:"user_id" gorm:"type:uuid;primaryKey"`
	Frequency  int       `json:"frequency" gorm:"not null;default:2"` // notifications per day, 1-4
	QuietStart string    `json:"quiet_start" gorm:"size:5;not null;default:'22:00'"`
	QuietEnd   string    `json:"quiet_end" gorm:"size:5;not null;default:'08:00'"`
	AllowPush  bool      `json:"allow_push" gorm:"not null;default:true"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

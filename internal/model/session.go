package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionStatus is the lifecycle state of a mood session.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// DefaultSessionDays is the session duration when the client does not ask
// for a specific one.
const DefaultSessionDays = 7

// Session is a user's active run through one content category.
// At most one session per user may be active at any instant; completed and
// cancelled are terminal.
type Session struct {
	ID              uuid.UUID     `json:"id" gorm:"type:uuid;primaryKey"`
	UserID          uuid.UUID     `json:"user_id" gorm:"type:uuid;not null;index"`
	CategoryID      uuid.UUID     `json:"category_id" gorm:"type:uuid;not null"`
	Status          SessionStatus `json:"status" gorm:"size:16;not null;default:'active';index"`
	StartedAt       time.Time     `json:"started_at" gorm:"not null"`
	EndsAt          time.Time     `json:"ends_at" gorm:"not null"`
	FrequencyPerDay int           `json:"frequency_per_day" gorm:"not null"` // snapshot of preference at start, 1-4

	Category  *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AppEvent is an insert-only analytics row. Nothing in the engine reads it
// back; it exists for offline analysis.
type AppEvent struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    *uuid.UUID `json:"user_id" gorm:"type:uuid;index"`
	Name      string     `json:"name" gorm:"size:64;not null"`
	Payload   string     `json:"payload" gorm:"type:text"`
	CreatedAt time.Time  `json:"created_at"`
}

func (e *AppEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

package repository

import (
	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"gorm.io/gorm"
)

// EventRepository is the insert-only analytics sink.
type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Record appends one analytics event. Failures are the caller's to ignore;
// analytics must never block the main flow.
func (r *EventRepository) Record(userID uuid.UUID, name, payload string) error {
	event := model.AppEvent{
		UserID:  &userID,
		Name:    name,
		Payload: payload,
	}
	return r.db.Create(&event).Error
}

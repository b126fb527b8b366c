package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EntryStatus is the delivery state of a planned notification.
type EntryStatus string

const (
	EntryStatusScheduled EntryStatus = "scheduled"
	EntryStatusSent      EntryStatus = "sent"
	EntryStatusFailed    EntryStatus = "failed"
	EntryStatusSkipped   EntryStatus = "skipped"
)

// ScheduleEntry is one planned future notification for a user. Created by
// the planner, status-mutated only by the dispatcher (or skipped when its
// session ends or a replan supersedes it). Never physically deleted.
type ScheduleEntry struct {
	ID            uuid.UUID   `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID   `json:"user_id" gorm:"type:uuid;not null;index:idx_entry_user_at"`
	SessionID     *uuid.UUID  `json:"session_id" gorm:"type:uuid;index"`
	AffirmationID *uuid.UUID  `json:"affirmation_id" gorm:"type:uuid"` // nil when selection found no eligible item
	ScheduledAt   time.Time   `json:"scheduled_at" gorm:"not null;index:idx_entry_user_at;index:idx_entry_due"`
	Status        EntryStatus `json:"status" gorm:"size:16;not null;default:'scheduled';index:idx_entry_due"`

	// Retry bookkeeping persisted so a process restart keeps retry state.
	Attempts      int        `json:"attempts" gorm:"not null;default:0"`
	NextAttemptAt *time.Time `json:"next_attempt_at"`
	SentAt        *time.Time `json:"sent_at"`

	Affirmation *Affirmation `json:"affirmation,omitempty" gorm:"foreignKey:AffirmationID"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (e *ScheduleEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Delivery attempt results recorded in SentLog.
const (
	SendResultSuccess   = "success"
	SendResultTransient = "transient_failure"
	SendResultPermanent = "permanent_failure"
	SendResultSkipped   = "skipped"
)

// Skip / failure codes recorded in SentLog.ErrorCode.
const (
	SendErrNoActiveToken = "no_active_token"
	SendErrPushDisabled  = "push_disabled"
	SendErrNoPayload     = "no_payload"
)

// SentLog is the append-only audit trail: exactly one row per delivery
// attempt outcome for a schedule entry.
type SentLog struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ScheduleEntryID uuid.UUID `json:"schedule_entry_id" gorm:"type:uuid;not null;index"`
	Attempt         int       `json:"attempt" gorm:"not null"`
	SentAt          time.Time `json:"sent_at" gorm:"not null"`
	Result          string    `json:"result" gorm:"size:32;not null"`
	DeliveryID      string    `json:"delivery_id" gorm:"size:128"`
	ErrorCode       string    `json:"error_code" gorm:"size:64"`
	CreatedAt       time.Time `json:"created_at"`
}

func (l *SentLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

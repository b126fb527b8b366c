package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"gorm.io/gorm"
)

// ScheduleRepository handles database operations for ScheduleEntry and the
// append-only SentLog.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a new schedule entry
func (r *ScheduleRepository) Create(entry *model.ScheduleEntry) error {
	return r.db.Create(entry).Error
}

// ListDue returns scheduled entries whose send time (and retry backoff, if
// any) has passed, oldest first, bounded to limit.
func (r *ScheduleRepository) ListDue(now time.Time, limit int) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.
		Where("status = ? AND scheduled_at <= ?", model.EntryStatusScheduled, now).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// Claim leases a due entry ahead of delivery by pushing next_attempt_at
// past the current tick under a status guard. Concurrent dispatchers race
// on the guarded update: the loser changes zero rows and moves on, so an
// entry reaches the gateway at most once per lease. A crash mid-delivery
// lets the entry fall due again when the lease expires.
func (r *ScheduleRepository) Claim(id uuid.UUID, now time.Time, lease time.Duration) (int64, error) {
	res := r.db.Model(&model.ScheduleEntry{}).
		Where("id = ? AND status = ?", id, model.EntryStatusScheduled).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Update("next_attempt_at", now.Add(lease))
	return res.RowsAffected, res.Error
}

// Upcoming returns the user's next pending entries, soonest first.
func (r *ScheduleRepository) Upcoming(userID uuid.UUID, after time.Time, limit int) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.
		Where("user_id = ? AND status = ? AND scheduled_at > ?", userID, model.EntryStatusScheduled, after).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}

// ListByUser returns all of a user's entries ordered by send time.
func (r *ScheduleRepository) ListByUser(userID uuid.UUID) ([]model.ScheduleEntry, error) {
	var entries []model.ScheduleEntry
	err := r.db.
		Where("user_id = ?", userID).
		Order("scheduled_at ASC").
		Find(&entries).Error
	return entries, err
}

// LastPlannedAt returns the latest slot instant ever planned for a session,
// or the zero time when none exists.
func (r *ScheduleRepository) LastPlannedAt(sessionID uuid.UUID) (time.Time, error) {
	var entry model.ScheduleEntry
	err := r.db.
		Where("session_id = ?", sessionID).
		Order("scheduled_at DESC").
		First(&entry).Error
	if err == gorm.ErrRecordNotFound {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return entry.ScheduledAt, nil
}

// SkipPendingBySession transitions a session's not-yet-sent entries to
// skipped. Used when a session ends.
func (r *ScheduleRepository) SkipPendingBySession(sessionID uuid.UUID) (int64, error) {
	res := r.db.Model(&model.ScheduleEntry{}).
		Where("session_id = ? AND status = ?", sessionID, model.EntryStatusScheduled).
		Update("status", model.EntryStatusSkipped)
	return res.RowsAffected, res.Error
}

// SkipFutureByUser supersedes the user's future pending entries during a
// rebuild. Sent and failed entries are immutable history and stay untouched.
func (r *ScheduleRepository) SkipFutureByUser(userID uuid.UUID, after time.Time) (int64, error) {
	res := r.db.Model(&model.ScheduleEntry{}).
		Where("user_id = ? AND status = ? AND scheduled_at > ?", userID, model.EntryStatusScheduled, after).
		Update("status", model.EntryStatusSkipped)
	return res.RowsAffected, res.Error
}

// MarkTerminal transitions an entry from scheduled to a terminal status.
// The status guard makes the transition at-most-once even with concurrent
// dispatchers; callers must check the returned row count.
func (r *ScheduleRepository) MarkTerminal(id uuid.UUID, status model.EntryStatus, attempts int, sentAt *time.Time) (int64, error) {
	updates := map[string]interface{}{
		"status":   status,
		"attempts": attempts,
	}
	if sentAt != nil {
		updates["sent_at"] = *sentAt
	}
	res := r.db.Model(&model.ScheduleEntry{}).
		Where("id = ? AND status = ?", id, model.EntryStatusScheduled).
		Updates(updates)
	return res.RowsAffected, res.Error
}

// UpdateRetryState persists attempt count and the earliest next retry
// instant for an entry that stays scheduled.
func (r *ScheduleRepository) UpdateRetryState(id uuid.UUID, attempts int, nextAttemptAt time.Time) error {
	return r.db.Model(&model.ScheduleEntry{}).
		Where("id = ? AND status = ?", id, model.EntryStatusScheduled).
		Updates(map[string]interface{}{
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
		}).Error
}

// AppendLog inserts one SentLog audit row for a delivery attempt outcome.
func (r *ScheduleRepository) AppendLog(log *model.SentLog) error {
	return r.db.Create(log).Error
}

// LogsForEntry returns the audit trail of an entry, oldest attempt first.
func (r *ScheduleRepository) LogsForEntry(entryID uuid.UUID) ([]model.SentLog, error) {
	var logs []model.SentLog
	err := r.db.
		Where("schedule_entry_id = ?", entryID).
		Order("attempt ASC").
		Find(&logs).Error
	return logs, err
}

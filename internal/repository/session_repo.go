package repository

import (
	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"gorm.io/gorm"
)

// SessionRepository handles database operations for Session
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session
func (r *SessionRepository) Create(session *model.Session) error {
	return r.db.Create(session).Error
}

// FindActive returns the user's active session with its category preloaded,
// or gorm.ErrRecordNotFound
func (r *SessionRepository) FindActive(userID uuid.UUID) (*model.Session, error) {
	var session model.Session
	err := r.db.Preload("Category").
		Where("user_id = ? AND status = ?", userID, model.SessionStatusActive).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// FindActiveByID returns the active session with the given id owned by the
// user, or gorm.ErrRecordNotFound
func (r *SessionRepository) FindActiveByID(id, userID uuid.UUID) (*model.Session, error) {
	var session model.Session
	err := r.db.
		Where("id = ? AND user_id = ? AND status = ?", id, userID, model.SessionStatusActive).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// End transitions an active session to the given terminal status. Returns
// zero rows affected when the session was already terminal (terminal states
// are immutable).
func (r *SessionRepository) End(id uuid.UUID, status model.SessionStatus) (int64, error) {
	res := r.db.Model(&model.Session{}).
		Where("id = ? AND status = ?", id, model.SessionStatusActive).
		Update("status", status)
	return res.RowsAffected, res.Error
}

// ListActive returns all currently active sessions, used by the nightly
// horizon refresh.
func (r *SessionRepository) ListActive() ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.Where("status = ?", model.SessionStatusActive).Find(&sessions).Error
	return sessions, err
}

package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/apperr"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/repository"
	"gorm.io/gorm"
)

// EndReasonCompleted marks a natural session finish; any other reason
// cancels.
const EndReasonCompleted = "completed"

// SessionService owns the session lifecycle: at most one active session per
// user, terminal states immutable.
type SessionService struct {
	db           *gorm.DB
	entitlements Entitlements
	planner      *Planner
	events       *repository.EventRepository
}

func NewSessionService(db *gorm.DB, entitlements Entitlements, planner *Planner) *SessionService {
	return &SessionService{
		db:           db,
		entitlements: entitlements,
		planner:      planner,
		events:       repository.NewEventRepository(db),
	}
}

// Start begins a new session for the user, atomically cancelling any
// existing active one (and its pending entries) in the same transaction,
// then triggers a plan rebuild for the session's lifetime.
func (s *SessionService) Start(ctx context.Context, userID uuid.UUID, req model.StartSessionRequest) (*model.Session, error) {
	subscribed, err := s.entitlements.IsSubscriber(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !subscribed {
		return nil, apperr.ErrNotEntitled
	}

	users := repository.NewUserRepository(s.db)
	content := repository.NewContentRepository(s.db)

	if _, err := users.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	frequency := req.FrequencyPerDay
	if frequency == 0 {
		if prefs, err := users.GetPreferences(userID); err == nil {
			frequency = prefs.Frequency
		} else {
			frequency = 2
		}
	}
	if frequency < 1 || frequency > 4 {
		return nil, apperr.Invalid("frequency_per_day", "must be between 1 and 4")
	}

	duration := req.DurationDays
	if duration == 0 {
		duration = model.DefaultSessionDays
	}
	if duration < 1 || duration > 90 {
		return nil, apperr.Invalid("duration_days", "must be between 1 and 90")
	}

	category, err := content.FindCategory(req.CategoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if !category.IsActive {
		return nil, apperr.Invalid("category_id", "category is not active")
	}

	now := time.Now().UTC()
	session := &model.Session{
		UserID:          userID,
		CategoryID:      category.ID,
		Status:          model.SessionStatusActive,
		StartedAt:       now,
		EndsAt:          now.AddDate(0, 0, duration),
		FrequencyPerDay: frequency,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions := repository.NewSessionRepository(tx)
		schedules := repository.NewScheduleRepository(tx)

		old, err := sessions.FindActive(userID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if old != nil {
			if _, err := sessions.End(old.ID, model.SessionStatusCancelled); err != nil {
				return err
			}
			if _, err := schedules.SkipPendingBySession(old.ID); err != nil {
				return err
			}
		}
		return sessions.Create(session)
	})
	if err != nil {
		// The partial unique index on active sessions rejects the loser of a
		// concurrent start race.
		if isUniqueViolation(err) {
			return nil, apperr.ErrConflict
		}
		return nil, err
	}

	// Planner failures are internal: recorded and logged, never surfaced to
	// the client that started the session.
	if err := s.planner.Rebuild(ctx, userID, now); err != nil {
		log.Printf("⚠️ Plan rebuild after session start failed for user %s: %v", userID, err)
	}

	_ = s.events.Record(userID, "session_started", `{"category":"`+category.Key+`"}`)
	return session, nil
}

// End finishes the user's session with the given reason. Pending schedule
// entries are skipped synchronously in the same transaction, so no stale
// entry can fire after this returns.
func (s *SessionService) End(ctx context.Context, sessionID, userID uuid.UUID, reason string) error {
	status := model.SessionStatusCancelled
	if reason == EndReasonCompleted {
		status = model.SessionStatusCompleted
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessions := repository.NewSessionRepository(tx)
		schedules := repository.NewScheduleRepository(tx)

		session, err := sessions.FindActiveByID(sessionID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.ErrNotFound
			}
			return err
		}
		changed, err := sessions.End(session.ID, status)
		if err != nil {
			return err
		}
		if changed == 0 {
			return apperr.ErrNotFound
		}
		_, err = schedules.SkipPendingBySession(session.ID)
		return err
	})
	if err != nil {
		return err
	}

	_ = s.events.Record(userID, "session_ended", `{"reason":"`+reason+`"}`)
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// GetActive returns the user's active session, or nil when there is none.
func (s *SessionService) GetActive(ctx context.Context, userID uuid.UUID) (*model.Session, error) {
	session, err := repository.NewSessionRepository(s.db).FindActive(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

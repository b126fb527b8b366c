package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/apperr"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/repository"
	"gorm.io/gorm"
)

// PreferenceService validates and stores notification preferences. Every
// accepted mutation triggers a plan rebuild for that user; a rejected one
// leaves the stored preferences untouched.
type PreferenceService struct {
	db      *gorm.DB
	planner *Planner
	events  *repository.EventRepository
}

func NewPreferenceService(db *gorm.DB, planner *Planner) *PreferenceService {
	return &PreferenceService{
		db:      db,
		planner: planner,
		events:  repository.NewEventRepository(db),
	}
}

// Get returns the user's stored preferences, or defaults when none exist yet.
func (s *PreferenceService) Get(ctx context.Context, userID uuid.UUID) (*model.Preferences, error) {
	prefs, err := repository.NewUserRepository(s.db).GetPreferences(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &model.Preferences{
			UserID:     userID,
			Frequency:  2,
			QuietStart: "22:00",
			QuietEnd:   "08:00",
			AllowPush:  true,
		}, nil
	}
	return prefs, err
}

// Update applies the requested preference changes. allow_push=false also
// deactivates every device token; flipping it back on reactivates the most
// recently updated one.
func (s *PreferenceService) Update(ctx context.Context, userID uuid.UUID, req model.UpdatePreferencesRequest) (*model.Preferences, error) {
	users := repository.NewUserRepository(s.db)

	if _, err := users.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	prefs, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	allowPushWas := prefs.AllowPush

	if req.Frequency != nil {
		if *req.Frequency < 1 || *req.Frequency > 4 {
			return nil, apperr.Invalid("frequency", "must be between 1 and 4")
		}
		prefs.Frequency = *req.Frequency
	}
	if req.QuietStart != nil {
		if _, err := ParseClock(*req.QuietStart); err != nil {
			return nil, apperr.Invalid("quiet_start", err.Error())
		}
		prefs.QuietStart = *req.QuietStart
	}
	if req.QuietEnd != nil {
		if _, err := ParseClock(*req.QuietEnd); err != nil {
			return nil, apperr.Invalid("quiet_end", err.Error())
		}
		prefs.QuietEnd = *req.QuietEnd
	}
	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			return nil, apperr.Invalid("timezone", "unknown IANA zone "+*req.Timezone)
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txUsers := repository.NewUserRepository(tx)
		devices := repository.NewDeviceRepository(tx)

		if req.Timezone != nil {
			if err := txUsers.UpdateTimezone(userID, *req.Timezone); err != nil {
				return err
			}
		}
		if req.AllowPush != nil {
			prefs.AllowPush = *req.AllowPush
		}
		if err := txUsers.SavePreferences(prefs); err != nil {
			return err
		}
		if req.AllowPush != nil && *req.AllowPush != allowPushWas {
			if *req.AllowPush {
				return devices.ReactivateLatest(userID)
			}
			return devices.DeactivateAll(userID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Replanning is internal: log failures, never surface them to the client
	// whose preference change already committed.
	if err := s.planner.Rebuild(ctx, userID, time.Now().UTC()); err != nil {
		log.Printf("⚠️ Plan rebuild after preference change failed for user %s: %v", userID, err)
	}

	_ = s.events.Record(userID, "preferences_updated", "")
	return prefs, nil
}

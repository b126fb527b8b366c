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

// Planner turns a user's preferences and active session into concrete
// future schedule entries. All writes for one run happen in a single
// transaction: a failed run leaves the prior plan untouched.
type Planner struct {
	db       *gorm.DB
	cooldown time.Duration
}

func NewPlanner(db *gorm.DB, cooldownDays int) *Planner {
	return &Planner{
		db:       db,
		cooldown: time.Duration(cooldownDays) * 24 * time.Hour,
	}
}

// planInput is the validated, resolved state a run works from.
type planInput struct {
	user      *model.User
	loc       *time.Location
	session   *model.Session
	frequency int
	quietFrom int
	quietTo   int
}

// Rebuild replaces the user's future pending entries with a fresh plan from
// now to the session horizon. Sent and failed entries stay untouched; the
// replaced ones are transitioned to skipped, never deleted. Called on
// session start and on any preference change.
func (p *Planner) Rebuild(ctx context.Context, userID uuid.UUID, now time.Time) error {
	in, err := p.resolve(userID)
	if err != nil {
		return err
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedules := repository.NewScheduleRepository(tx)
		if _, err := schedules.SkipFutureByUser(userID, now); err != nil {
			return err
		}
		if in.session == nil {
			return nil
		}
		return p.plan(tx, in, now, now)
	})
}

// Refresh extends the user's plan past the latest already-planned instant.
// Re-running it with unchanged preferences and session is a no-op: existing
// future entries are left alone, never duplicated.
func (p *Planner) Refresh(ctx context.Context, userID uuid.UUID, now time.Time) error {
	in, err := p.resolve(userID)
	if err != nil {
		return err
	}
	if in.session == nil {
		return nil
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		schedules := repository.NewScheduleRepository(tx)
		lastPlanned, err := schedules.LastPlannedAt(in.session.ID)
		if err != nil {
			return err
		}
		from := now
		if lastPlanned.After(from) {
			from = lastPlanned
		}
		return p.plan(tx, in, from, now)
	})
}

// RefreshAll runs Refresh for every user with an active session. Wired to
// the nightly cron job; per-user failures are logged and do not stop the
// sweep.
func (p *Planner) RefreshAll(ctx context.Context, now time.Time) {
	sessions, err := repository.NewSessionRepository(p.db).ListActive()
	if err != nil {
		log.Printf("⚠️ Planner sweep: listing active sessions failed: %v", err)
		return
	}
	for _, s := range sessions {
		if err := p.Refresh(ctx, s.UserID, now); err != nil {
			log.Printf("⚠️ Planner sweep: refresh for user %s failed: %v", s.UserID, err)
		}
	}
}

// resolve loads and validates everything a run needs. Invalid preferences
// fail the whole run here, before any write.
func (p *Planner) resolve(userID uuid.UUID) (*planInput, error) {
	users := repository.NewUserRepository(p.db)
	sessions := repository.NewSessionRepository(p.db)

	user, err := users.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	loc, err := time.LoadLocation(user.Timezone)
	if err != nil {
		return nil, apperr.Invalid("timezone", "unknown IANA zone "+user.Timezone)
	}

	session, err := sessions.FindActive(userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	in := &planInput{user: user, loc: loc, session: session}

	prefs, err := users.GetPreferences(userID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// No stored preferences: fall back to the session's snapshot.
		if session != nil {
			in.frequency = session.FrequencyPerDay
			in.quietFrom, _ = ParseClock("22:00")
			in.quietTo, _ = ParseClock("08:00")
		}
		return in, nil
	}

	if prefs.Frequency < 1 || prefs.Frequency > 4 {
		return nil, apperr.Invalid("frequency", "must be between 1 and 4")
	}
	from, err := ParseClock(prefs.QuietStart)
	if err != nil {
		return nil, apperr.Invalid("quiet_start", err.Error())
	}
	to, err := ParseClock(prefs.QuietEnd)
	if err != nil {
		return nil, apperr.Invalid("quiet_end", err.Error())
	}

	in.frequency = prefs.Frequency
	in.quietFrom = from
	in.quietTo = to
	return in, nil
}

// plan generates entries for every slot strictly after from and inside
// [session.started_at, session.ends_at). Content is picked and its usage
// stamped per slot inside the surrounding transaction, so concurrent runs
// observe the cooldown immediately. A slot with no eligible content becomes
// a skipped entry with no payload rather than aborting the run.
func (p *Planner) plan(tx *gorm.DB, in *planInput, from, now time.Time) error {
	schedules := repository.NewScheduleRepository(tx)
	content := repository.NewContentRepository(tx)
	session := in.session

	endLocal := session.EndsAt.In(in.loc)
	day := from.In(in.loc)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, in.loc)

	for !day.After(endLocal) {
		for _, slot := range daySlots(day.Year(), day.Month(), day.Day(), in.loc, in.quietFrom, in.quietTo, in.frequency) {
			if !slot.After(from) || !slot.After(now) {
				continue
			}
			if slot.Before(session.StartedAt) || !slot.Before(session.EndsAt) {
				continue
			}

			entry := model.ScheduleEntry{
				UserID:      in.user.ID,
				SessionID:   &session.ID,
				ScheduledAt: slot,
				Status:      model.EntryStatusScheduled,
			}

			affirmation, err := content.PickEligible(in.user.ID, session.CategoryID, in.user.Locale, slot, p.cooldown)
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				// Category exhausted for this slot; record it and move on.
				entry.AffirmationID = nil
				entry.Status = model.EntryStatusSkipped
			case err != nil:
				return err
			default:
				entry.AffirmationID = &affirmation.ID
				if err := content.MarkUsed(in.user.ID, affirmation.ID, slot); err != nil {
					return err
				}
			}

			if err := schedules.Create(&entry); err != nil {
				return err
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return nil
}

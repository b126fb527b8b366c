package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/revzworks/soulbuddy/internal/config"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/repository"
	"github.com/revzworks/soulbuddy/pkg/push"
	"gorm.io/gorm"
)

// Dispatcher drains due schedule entries on a fixed tick and drives them to
// a terminal state through the push gateway. Retry state lives on the entry
// row, so a restart resumes where the previous process stopped.
type Dispatcher struct {
	db      *gorm.DB
	gateway push.Gateway
	cfg     config.DispatcherConfig

	schedules *repository.ScheduleRepository
	devices   *repository.DeviceRepository
	users     *repository.UserRepository
	content   *repository.ContentRepository
}

func NewDispatcher(db *gorm.DB, gateway push.Gateway, cfg config.DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		db:        db,
		gateway:   gateway,
		cfg:       cfg,
		schedules: repository.NewScheduleRepository(db),
		devices:   repository.NewDeviceRepository(db),
		users:     repository.NewUserRepository(db),
		content:   repository.NewContentRepository(db),
	}
}

// Run drives the tick loop until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.TickInterval)
	defer ticker.Stop()

	log.Printf("📮 Dispatcher running (tick=%s, batch=%d)", d.cfg.TickInterval, d.cfg.BatchSize)
	for {
		select {
		case <-ctx.Done():
			log.Println("📮 Dispatcher stopping")
			return
		case <-ticker.C:
			if _, err := d.ProcessDue(ctx, time.Now().UTC()); err != nil {
				log.Printf("⚠️ Dispatcher tick failed: %v", err)
			}
		}
	}
}

// ProcessDue handles one tick: every due entry is claimed, then taken to an
// outcome, and a failure on one entry never aborts the rest of the batch.
// Returns how many entries this dispatcher claimed.
func (d *Dispatcher) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	entries, err := d.schedules.ListDue(now, d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range entries {
		// claim before send; the loser of a concurrent-dispatcher race
		// changes zero rows and leaves the entry to the winner
		claimed, err := d.schedules.Claim(entries[i].ID, now, d.cfg.TickInterval)
		if err != nil {
			log.Printf("⚠️ Claim of entry %s failed: %v", entries[i].ID, err)
			continue
		}
		if claimed == 0 {
			continue
		}
		processed++
		if err := d.process(ctx, &entries[i], now); err != nil {
			log.Printf("⚠️ Delivery of entry %s failed: %v", entries[i].ID, err)
		}
	}
	return processed, nil
}

func (d *Dispatcher) process(ctx context.Context, entry *model.ScheduleEntry, now time.Time) error {
	// allow_push is checked at send time: entries stay scheduled in the DB
	// when the user opts out, but nothing may be delivered.
	prefs, err := d.users.GetPreferences(entry.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if prefs != nil && !prefs.AllowPush {
		return d.skip(entry, now, model.SendErrPushDisabled)
	}

	device, err := d.devices.FindActive(entry.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return d.skip(entry, now, model.SendErrNoActiveToken)
		}
		return err
	}

	if entry.AffirmationID == nil {
		return d.skip(entry, now, model.SendErrNoPayload)
	}
	payload, err := d.buildPayload(entry)
	if err != nil {
		return err
	}

	attempts := entry.Attempts
	for try := 0; try < d.cfg.MaxAttempts; try++ {
		callCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		receipt, sendErr := d.gateway.Send(callCtx, device.Token, payload)
		cancel()
		attempts++

		if sendErr == nil {
			sentAt := now
			if err := d.schedules.AppendLog(&model.SentLog{
				ScheduleEntryID: entry.ID,
				Attempt:         attempts,
				SentAt:          sentAt,
				Result:          model.SendResultSuccess,
				DeliveryID:      receipt.DeliveryID,
			}); err != nil {
				return err
			}
			_, err := d.schedules.MarkTerminal(entry.ID, model.EntryStatusSent, attempts, &sentAt)
			return err
		}

		var gwErr *push.Error
		if errors.As(sendErr, &gwErr) && !gwErr.Temporary() {
			// Invalid token: terminal failure, and the token is retired so
			// later entries skip instead of hammering the gateway.
			if err := d.schedules.AppendLog(&model.SentLog{
				ScheduleEntryID: entry.ID,
				Attempt:         attempts,
				SentAt:          now,
				Result:          model.SendResultPermanent,
				ErrorCode:       string(gwErr.Code),
			}); err != nil {
				return err
			}
			if err := d.devices.DeactivateByID(device.ID); err != nil {
				return err
			}
			_, err := d.schedules.MarkTerminal(entry.ID, model.EntryStatusFailed, attempts, nil)
			return err
		}

		code := string(push.CodeUnreachable)
		if gwErr != nil {
			code = string(gwErr.Code)
		}
		if err := d.schedules.AppendLog(&model.SentLog{
			ScheduleEntryID: entry.ID,
			Attempt:         attempts,
			SentAt:          now,
			Result:          model.SendResultTransient,
			ErrorCode:       code,
		}); err != nil {
			return err
		}

		if try < d.cfg.MaxAttempts-1 {
			timer := time.NewTimer(d.backoff(attempts))
			select {
			case <-ctx.Done():
				timer.Stop()
				// shutdown mid-batch: persist retry state and hand the
				// entry to a later tick
				return d.schedules.UpdateRetryState(entry.ID, attempts, now.Add(d.backoff(attempts)))
			case <-timer.C:
			}
		}
	}

	// In-pass attempts exhausted. Within the grace window the entry stays
	// scheduled for a later tick; beyond it the entry is failed for good.
	if now.Sub(entry.ScheduledAt) > d.cfg.GraceWindow {
		_, err := d.schedules.MarkTerminal(entry.ID, model.EntryStatusFailed, attempts, nil)
		return err
	}
	return d.schedules.UpdateRetryState(entry.ID, attempts, now.Add(d.backoff(attempts)))
}

func (d *Dispatcher) buildPayload(entry *model.ScheduleEntry) (push.Payload, error) {
	affirmation, err := d.content.FindAffirmation(*entry.AffirmationID)
	if err != nil {
		return push.Payload{}, err
	}

	title := "SoulBuddy"
	data := map[string]string{
		"type":     "affirmation",
		"entry_id": entry.ID.String(),
	}
	if category, err := d.content.FindCategory(affirmation.CategoryID); err == nil {
		title = category.Name
		data["category"] = category.Key
	}

	return push.Payload{Title: title, Body: affirmation.Text, Data: data}, nil
}

// skip retires an entry without delivery and logs why.
func (d *Dispatcher) skip(entry *model.ScheduleEntry, now time.Time, code string) error {
	if err := d.schedules.AppendLog(&model.SentLog{
		ScheduleEntryID: entry.ID,
		Attempt:         entry.Attempts + 1,
		SentAt:          now,
		Result:          model.SendResultSkipped,
		ErrorCode:       code,
	}); err != nil {
		return err
	}
	_, err := d.schedules.MarkTerminal(entry.ID, model.EntryStatusSkipped, entry.Attempts+1, nil)
	return err
}

// backoff doubles per attempt from the configured base, capped at 16x.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.cfg.RetryBaseDelay
	for i := 1; i < attempt && delay < d.cfg.RetryBaseDelay*16; i++ {
		delay *= 2
	}
	if delay > d.cfg.RetryBaseDelay*16 {
		delay = d.cfg.RetryBaseDelay * 16
	}
	return delay
}

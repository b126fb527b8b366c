package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/config"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/repository"
	"github.com/revzworks/soulbuddy/pkg/push"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func testDispatcherConfig() config.DispatcherConfig {
	return config.DispatcherConfig{
		TickInterval:   time.Minute,
		BatchSize:      50,
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		SendTimeout:    time.Second,
		GraceWindow:    15 * time.Minute,
	}
}

// dueEntry creates a user with prefs, a device and one due schedule entry.
func dueEntry(t *testing.T, db *gorm.DB, now time.Time, overdue time.Duration) (*model.User, *model.DeviceToken, *model.ScheduleEntry) {
	t.Helper()

	user := createUser(t, db, "UTC")
	createPreferences(t, db, user.ID, 2, "22:00", "08:00", true)
	device := createDevice(t, db, user.ID, true)

	category := createCategory(t, db, "calm-"+uuid.NewString(), 3)
	var affirmation model.Affirmation
	require.NoError(t, db.First(&affirmation, "category_id = ?", category.ID).Error)

	entry := &model.ScheduleEntry{
		UserID:        user.ID,
		AffirmationID: &affirmation.ID,
		ScheduledAt:   now.Add(-overdue),
		Status:        model.EntryStatusScheduled,
	}
	require.NoError(t, db.Create(entry).Error)
	return user, device, entry
}

func reload(t *testing.T, db *gorm.DB, id uuid.UUID) *model.ScheduleEntry {
	t.Helper()
	var entry model.ScheduleEntry
	require.NoError(t, db.First(&entry, "id = ?", id).Error)
	return &entry
}

func entryLogs(t *testing.T, db *gorm.DB, id uuid.UUID) []model.SentLog {
	t.Helper()
	logs, err := repository.NewScheduleRepository(db).LogsForEntry(id)
	require.NoError(t, err)
	return logs
}

func TestDispatcherDeliversDueEntry(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	d := NewDispatcher(db, gateway, testDispatcherConfig())

	now := time.Now().UTC()
	_, device, entry := dueEntry(t, db, now, time.Minute)

	processed, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 1, processed)
	require.Equal(t, []string{device.Token}, gateway.tokens)

	got := reload(t, db, entry.ID)
	require.Equal(t, model.EntryStatusSent, got.Status)
	require.NotNil(t, got.SentAt)
	require.Equal(t, 1, got.Attempts)

	logs := entryLogs(t, db, entry.ID)
	require.Len(t, logs, 1)
	require.Equal(t, model.SendResultSuccess, logs[0].Result)
	require.NotEmpty(t, logs[0].DeliveryID)
}

func TestDispatcherIgnoresFutureEntries(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	d := NewDispatcher(db, gateway, testDispatcherConfig())

	now := time.Now().UTC()
	_, _, entry := dueEntry(t, db, now, -time.Hour) // scheduled an hour from now

	processed, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)
	require.Zero(t, processed)
	require.Equal(t, model.EntryStatusScheduled, reload(t, db, entry.ID).Status)
}

// Scenario: gateway reports the token invalid.
func TestDispatcherPermanentFailureRetiresToken(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	d := NewDispatcher(db, gateway, testDispatcherConfig())

	now := time.Now().UTC()
	_, device, entry := dueEntry(t, db, now, time.Minute)
	gateway.fail(device.Token, &push.Error{Code: push.CodeInvalidToken})

	_, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)

	got := reload(t, db, entry.ID)
	require.Equal(t, model.EntryStatusFailed, got.Status)

	var reloadedDevice model.DeviceToken
	require.NoError(t, db.First(&reloadedDevice, "id = ?", device.ID).Error)
	require.False(t, reloadedDevice.IsActive)

	logs := entryLogs(t, db, entry.ID)
	require.Len(t, logs, 1)
	require.Equal(t, model.SendResultPermanent, logs[0].Result)
	require.Equal(t, string(push.CodeInvalidToken), logs[0].ErrorCode)
}

func TestDispatcherSkipsWithoutActiveToken(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	d := NewDispatcher(db, gateway, testDispatcherConfig())

	now := time.Now().UTC()
	_, device, entry := dueEntry(t, db, now, time.Minute)
	require.NoError(t, db.Model(device).Update("is_active", false).Error)

	_, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)
	require.Zero(t, gateway.calls)

	got := reload(t, db, entry.ID)
	require.Equal(t, model.EntryStatusSkipped, got.Status)

	logs := entryLogs(t, db, entry.ID)
	require.Len(t, logs, 1)
	require.Equal(t, model.SendResultSkipped, logs[0].Result)
	require.Equal(t, model.SendErrNoActiveToken, logs[0].ErrorCode)
}

// Scenario: allow_push flipped off mid-session. Entries stay in the DB but
// nothing is delivered.
func TestDispatcherHonorsAllowPush(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	d := NewDispatcher(db, gateway, testDispatcherConfig())

	now := time.Now().UTC()
	user, _, entry := dueEntry(t, db, now, time.Minute)
	require.NoError(t, db.Model(&model.Preferences{}).
		Where("user_id = ?", user.ID).
		Update("allow_push", false).Error)

	_, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)
	require.Zero(t, gateway.calls)

	got := reload(t, db, entry.ID)
	require.Equal(t, model.EntryStatusSkipped, got.Status)

	logs := entryLogs(t, db, entry.ID)
	require.Len(t, logs, 1)
	require.Equal(t, model.SendErrPushDisabled, logs[0].ErrorCode)
}

func TestDispatcherTransientFailureStaysScheduledWithinGrace(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	cfg := testDispatcherConfig()
	d := NewDispatcher(db, gateway, cfg)

	now := time.Now().UTC()
	_, device, entry := dueEntry(t, db, now, time.Minute) // well inside grace
	gateway.fail(device.Token,
		&push.Error{Code: push.CodeUnreachable},
		&push.Error{Code: push.CodeRateLimited},
		&push.Error{Code: push.CodeUnreachable},
	)

	_, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, cfg.MaxAttempts, gateway.calls)

	got := reload(t, db, entry.ID)
	require.Equal(t, model.EntryStatusScheduled, got.Status, "entry stays scheduled for a later tick")
	require.Equal(t, cfg.MaxAttempts, got.Attempts)
	require.NotNil(t, got.NextAttemptAt)
	require.True(t, got.NextAttemptAt.After(now))

	logs := entryLogs(t, db, entry.ID)
	require.Len(t, logs, cfg.MaxAttempts)
	for _, l := range logs {
		require.Equal(t, model.SendResultTransient, l.Result)
	}

	// retry state persisted: the entry is not due again until the backoff passes
	processed, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)
	require.Zero(t, processed)
}

func TestDispatcherTransientFailureBeyondGraceFails(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	d := NewDispatcher(db, gateway, testDispatcherConfig())

	now := time.Now().UTC()
	_, device, entry := dueEntry(t, db, now, 20*time.Minute) // past the 15m grace
	gateway.fail(device.Token,
		&push.Error{Code: push.CodeUnreachable},
		&push.Error{Code: push.CodeUnreachable},
		&push.Error{Code: push.CodeUnreachable},
	)

	_, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)

	got := reload(t, db, entry.ID)
	require.Equal(t, model.EntryStatusFailed, got.Status)
}

// A claimed entry belongs to the claiming dispatcher until its lease
// expires; a second dispatcher sharing the database never reaches the
// gateway for it.
func TestDispatcherClaimPreventsDoubleSend(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	cfg := testDispatcherConfig()
	d := NewDispatcher(db, gateway, cfg)

	now := time.Now().UTC()
	_, _, entry := dueEntry(t, db, now, time.Minute)

	schedules := repository.NewScheduleRepository(db)
	claimed, err := schedules.Claim(entry.ID, now, cfg.TickInterval)
	require.NoError(t, err)
	require.EqualValues(t, 1, claimed)

	// the claim is exclusive: a second claim at the same instant loses
	claimed, err = schedules.Claim(entry.ID, now, cfg.TickInterval)
	require.NoError(t, err)
	require.Zero(t, claimed)

	processed, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)
	require.Zero(t, processed)
	require.Zero(t, gateway.calls)
	require.Equal(t, model.EntryStatusScheduled, reload(t, db, entry.ID).Status)

	// once the lease expires the entry is due again and delivers normally
	later := now.Add(cfg.TickInterval + time.Second)
	processed, err = d.ProcessDue(context.Background(), later)
	require.NoError(t, err)
	require.Equal(t, 1, processed)
	require.Equal(t, model.EntryStatusSent, reload(t, db, entry.ID).Status)
}

func TestDispatcherRetryWaitStopsOnShutdown(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	cfg := testDispatcherConfig()
	cfg.RetryBaseDelay = time.Hour
	d := NewDispatcher(db, gateway, cfg)

	now := time.Now().UTC()
	_, device, entry := dueEntry(t, db, now, time.Minute)
	gateway.fail(device.Token, &push.Error{Code: push.CodeUnreachable})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := d.ProcessDue(ctx, now)
		errCh <- err
	}()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("dispatcher kept waiting out the retry backoff after shutdown")
	}

	got := reload(t, db, entry.ID)
	require.Equal(t, model.EntryStatusScheduled, got.Status)
	require.Equal(t, 1, got.Attempts)
	require.NotNil(t, got.NextAttemptAt)
	require.Equal(t, 1, gateway.calls)
}

func TestDispatcherIsolatesPerEntryFailures(t *testing.T) {
	db := newTestDB(t)
	gateway := newFakeGateway()
	d := NewDispatcher(db, gateway, testDispatcherConfig())

	now := time.Now().UTC()
	_, badDevice, badEntry := dueEntry(t, db, now, time.Minute)
	_, _, goodEntry := dueEntry(t, db, now, time.Minute)

	// unclassified errors count as transient
	gateway.fail(badDevice.Token,
		errors.New("boom"), errors.New("boom"), errors.New("boom"))

	processed, err := d.ProcessDue(context.Background(), now)
	require.NoError(t, err)
	require.Equal(t, 2, processed)

	require.Equal(t, model.EntryStatusScheduled, reload(t, db, badEntry.ID).Status)
	require.Equal(t, model.EntryStatusSent, reload(t, db, goodEntry.ID).Status)
}

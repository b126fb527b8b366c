package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/apperr"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }
func boolPtr(v bool) *bool    { return &v }

func newPreferenceService(db *gorm.DB) *PreferenceService {
	return NewPreferenceService(db, NewPlanner(db, 30))
}

func TestPreferencesDefaultsWhenUnset(t *testing.T) {
	db := newTestDB(t)
	svc := newPreferenceService(db)
	user := createUser(t, db, "UTC")

	prefs, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, prefs.Frequency)
	require.Equal(t, "22:00", prefs.QuietStart)
	require.Equal(t, "08:00", prefs.QuietEnd)
	require.True(t, prefs.AllowPush)
}

func TestPreferencesUpdatePersists(t *testing.T) {
	db := newTestDB(t)
	svc := newPreferenceService(db)
	user := createUser(t, db, "UTC")

	prefs, err := svc.Update(context.Background(), user.ID, model.UpdatePreferencesRequest{
		Frequency:  intPtr(3),
		QuietStart: strPtr("23:30"),
		QuietEnd:   strPtr("07:00"),
		Timezone:   strPtr("Europe/Istanbul"),
	})
	require.NoError(t, err)
	require.Equal(t, 3, prefs.Frequency)
	require.Equal(t, "23:30", prefs.QuietStart)

	stored, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 3, stored.Frequency)
	require.Equal(t, "23:30", stored.QuietStart)
	require.Equal(t, "07:00", stored.QuietEnd)

	var reloaded model.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	require.Equal(t, "Europe/Istanbul", reloaded.Timezone)
}

func TestPreferencesRejectionLeavesStoredValues(t *testing.T) {
	db := newTestDB(t)
	svc := newPreferenceService(db)
	user := createUser(t, db, "UTC")
	createPreferences(t, db, user.ID, 2, "22:00", "08:00", true)

	cases := []model.UpdatePreferencesRequest{
		{Frequency: intPtr(0)},
		{Frequency: intPtr(5)},
		{QuietStart: strPtr("banana")},
		{QuietEnd: strPtr("24:00")},
		{Timezone: strPtr("Mars/Olympus")},
	}
	for _, req := range cases {
		_, err := svc.Update(context.Background(), user.ID, req)
		require.Error(t, err)
		require.True(t, apperr.IsValidation(err), "got %v", err)
	}

	stored, err := svc.Get(context.Background(), user.ID)
	require.NoError(t, err)
	require.Equal(t, 2, stored.Frequency)
	require.Equal(t, "22:00", stored.QuietStart)
	require.Equal(t, "08:00", stored.QuietEnd)
}

func TestPreferencesUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := newPreferenceService(db)

	_, err := svc.Update(context.Background(), uuid.New(), model.UpdatePreferencesRequest{
		Frequency: intPtr(2),
	})
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPreferencesAllowPushTogglesTokens(t *testing.T) {
	db := newTestDB(t)
	svc := newPreferenceService(db)
	user := createUser(t, db, "UTC")
	createPreferences(t, db, user.ID, 2, "22:00", "08:00", true)

	older := createDevice(t, db, user.ID, true)
	require.NoError(t, db.Model(older).
		Update("updated_at", time.Now().UTC().Add(-time.Hour)).Error)
	newer := createDevice(t, db, user.ID, true)

	_, err := svc.Update(context.Background(), user.ID, model.UpdatePreferencesRequest{
		AllowPush: boolPtr(false),
	})
	require.NoError(t, err)

	var active int64
	require.NoError(t, db.Model(&model.DeviceToken{}).
		Where("user_id = ? AND is_active", user.ID).Count(&active).Error)
	require.Zero(t, active)

	// flipping back on restores only the most recently updated token
	_, err = svc.Update(context.Background(), user.ID, model.UpdatePreferencesRequest{
		AllowPush: boolPtr(true),
	})
	require.NoError(t, err)

	var reloadedOlder, reloadedNewer model.DeviceToken
	require.NoError(t, db.First(&reloadedOlder, "id = ?", older.ID).Error)
	require.NoError(t, db.First(&reloadedNewer, "id = ?", newer.ID).Error)
	require.False(t, reloadedOlder.IsActive)
	require.True(t, reloadedNewer.IsActive)
}

func TestPreferencesChangeReplansActiveSession(t *testing.T) {
	db := newTestDB(t)
	svc := newPreferenceService(db)
	user := createUser(t, db, "UTC")
	createPreferences(t, db, user.ID, 1, "22:00", "08:00", true)
	category := createCategory(t, db, "calm", 40)

	now := time.Now().UTC()
	createSession(t, db, user.ID, category.ID, 1, now, 7)
	planner := NewPlanner(db, 30)
	require.NoError(t, planner.Rebuild(context.Background(), user.ID, now))

	before := listEntries(t, db, user.ID)
	require.NotEmpty(t, before)

	_, err := svc.Update(context.Background(), user.ID, model.UpdatePreferencesRequest{
		Frequency: intPtr(4),
	})
	require.NoError(t, err)

	var scheduled, skipped int
	for _, e := range listEntries(t, db, user.ID) {
		switch e.Status {
		case model.EntryStatusScheduled:
			scheduled++
		case model.EntryStatusSkipped:
			skipped++
		}
	}
	require.GreaterOrEqual(t, skipped, len(before)-1, "old plan superseded")
	require.Greater(t, scheduled, len(before), "replanned at the higher frequency")
}

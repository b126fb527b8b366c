package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/repository"
	"github.com/revzworks/soulbuddy/pkg/push"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an isolated in-memory database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_busy_timeout=5000", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// one connection serializes concurrent writers the way sqlite expects
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Subscription{},
		&model.Preferences{},
		&model.Category{},
		&model.Affirmation{},
		&model.ContentUsage{},
		&model.Session{},
		&model.ScheduleEntry{},
		&model.DeviceToken{},
		&model.SentLog{},
		&model.AppEvent{},
	))

	// AutoMigrate cannot express the partial index behind the one active
	// session per user guarantee, so it is created by hand here, same as in
	// the server's migration fallback.
	require.NoError(t, db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active ON sessions (user_id) WHERE status = 'active'`,
	).Error)
	return db
}

func createUser(t *testing.T, db *gorm.DB, timezone string) *model.User {
	t.Helper()
	user := &model.User{
		Email:    uuid.NewString() + "@soulbuddy.local",
		Name:     "Test User",
		Locale:   "en",
		Timezone: timezone,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func createPreferences(t *testing.T, db *gorm.DB, userID uuid.UUID, frequency int, quietStart, quietEnd string, allowPush bool) *model.Preferences {
	t.Helper()
	prefs := &model.Preferences{
		UserID:     userID,
		Frequency:  frequency,
		QuietStart: quietStart,
		QuietEnd:   quietEnd,
		AllowPush:  allowPush,
	}
	require.NoError(t, db.Create(prefs).Error)
	return prefs
}

func createCategory(t *testing.T, db *gorm.DB, key string, itemCount int) *model.Category {
	t.Helper()
	category := &model.Category{Key: key, Locale: "en", Name: key, IsActive: true}
	require.NoError(t, db.Create(category).Error)

	for i := 0; i < itemCount; i++ {
		affirmation := &model.Affirmation{
			CategoryID: category.ID,
			Text:       fmt.Sprintf("%s affirmation %d", key, i),
			Locale:     "en",
			Intensity:  1,
			IsActive:   true,
		}
		require.NoError(t, db.Create(affirmation).Error)
	}
	return category
}

func createSession(t *testing.T, db *gorm.DB, userID, categoryID uuid.UUID, frequency int, startedAt time.Time, days int) *model.Session {
	t.Helper()
	session := &model.Session{
		UserID:          userID,
		CategoryID:      categoryID,
		Status:          model.SessionStatusActive,
		StartedAt:       startedAt,
		EndsAt:          startedAt.AddDate(0, 0, days),
		FrequencyPerDay: frequency,
	}
	require.NoError(t, db.Create(session).Error)
	return session
}

func createDevice(t *testing.T, db *gorm.DB, userID uuid.UUID, active bool) *model.DeviceToken {
	t.Helper()
	device := &model.DeviceToken{
		UserID:   userID,
		Token:    "tok-" + uuid.NewString(),
		Platform: "ios",
		IsActive: active,
	}
	require.NoError(t, db.Create(device).Error)
	return device
}

func listEntries(t *testing.T, db *gorm.DB, userID uuid.UUID) []model.ScheduleEntry {
	t.Helper()
	entries, err := repository.NewScheduleRepository(db).ListByUser(userID)
	require.NoError(t, err)
	return entries
}

// fakeEntitlements answers the subscriber check without a store.
type fakeEntitlements struct {
	subscribed bool
}

func (f fakeEntitlements) IsSubscriber(ctx context.Context, userID uuid.UUID) (bool, error) {
	return f.subscribed, nil
}

// fakeGateway scripts gateway responses per token. A token with no scripted
// errors always succeeds.
type fakeGateway struct {
	mu     sync.Mutex
	errs   map[string][]error // consumed front to back
	calls  int
	tokens []string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{errs: map[string][]error{}}
}

func (g *fakeGateway) fail(token string, errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[token] = append(g.errs[token], errs...)
}

func (g *fakeGateway) Send(ctx context.Context, token string, payload push.Payload) (*push.Receipt, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	g.tokens = append(g.tokens, token)

	if queue := g.errs[token]; len(queue) > 0 {
		err := queue[0]
		g.errs[token] = queue[1:]
		return nil, err
	}
	return &push.Receipt{DeliveryID: fmt.Sprintf("delivery-%d", g.calls)}, nil
}

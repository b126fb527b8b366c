package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository handles database operations for User, Preferences and
// Subscription rows.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user
func (r *UserRepository) Create(user *model.User) error {
	return r.db.Create(user).Error
}

// FindByID finds a user by UUID
func (r *UserRepository) FindByID(id uuid.UUID) (*model.User, error) {
	var user model.User
	err := r.db.Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// UpdateTimezone stores a new IANA timezone for the user
func (r *UserRepository) UpdateTimezone(userID uuid.UUID, tz string) error {
	return r.db.Model(&model.User{}).
		Where("id = ?", userID).
		Update("timezone", tz).Error
}

// GetPreferences returns the user's preferences row, or gorm.ErrRecordNotFound
func (r *UserRepository) GetPreferences(userID uuid.UUID) (*model.Preferences, error) {
	var prefs model.Preferences
	err := r.db.Where("user_id = ?", userID).First(&prefs).Error
	if err != nil {
		return nil, err
	}
	return &prefs, nil
}

// SavePreferences upserts the user's preferences row
func (r *UserRepository) SavePreferences(prefs *model.Preferences) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"frequency":   prefs.Frequency,
			"quiet_start": prefs.QuietStart,
			"quiet_end":   prefs.QuietEnd,
			"allow_push":  prefs.AllowPush,
			"updated_at":  time.Now().UTC(),
		}),
	}).Create(prefs).Error
}

// FindSubscription returns the user's subscription row, or gorm.ErrRecordNotFound
func (r *UserRepository) FindSubscription(userID uuid.UUID) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.Where("user_id = ?", userID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeviceRepository handles database operations for DeviceToken
type DeviceRepository struct {
	db *gorm.DB
}

func NewDeviceRepository(db *gorm.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert adds a device token or re-activates an existing one (tokens are
// globally unique; a token moving between accounts is re-owned on conflict).
func (r *DeviceRepository) Upsert(device *model.DeviceToken) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"user_id":    device.UserID,
			"platform":   device.Platform,
			"is_active":  true,
			"updated_at": time.Now().UTC(),
		}),
	}).Create(device).Error
}

// FindActive returns the user's most recently updated active token, or
// gorm.ErrRecordNotFound
func (r *DeviceRepository) FindActive(userID uuid.UUID) (*model.DeviceToken, error) {
	var device model.DeviceToken
	err := r.db.
		Where("user_id = ? AND is_active = ?", userID, true).
		Order("updated_at DESC, created_at DESC").
		First(&device).Error
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// DeactivateAll deactivates every token the user has registered.
func (r *DeviceRepository) DeactivateAll(userID uuid.UUID) error {
	return r.db.Model(&model.DeviceToken{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Update("is_active", false).Error
}

// DeactivateOthers deactivates all of the user's tokens except the given one.
func (r *DeviceRepository) DeactivateOthers(userID uuid.UUID, keepToken string) error {
	return r.db.Model(&model.DeviceToken{}).
		Where("user_id = ? AND token != ? AND is_active = ?", userID, keepToken, true).
		Update("is_active", false).Error
}

// DeactivateByID deactivates one token, e.g. after the gateway reported it
// invalid.
func (r *DeviceRepository) DeactivateByID(id uuid.UUID) error {
	return r.db.Model(&model.DeviceToken{}).
		Where("id = ?", id).
		Update("is_active", false).Error
}

// ReactivateLatest re-activates the user's most recently updated token if
// one exists. Used when allow_push flips back on.
func (r *DeviceRepository) ReactivateLatest(userID uuid.UUID) error {
	var device model.DeviceToken
	err := r.db.
		Where("user_id = ?", userID).
		Order("updated_at DESC, created_at DESC").
		First(&device).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	return r.db.Model(&device).Update("is_active", true).Error
}

package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/apperr"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/repository"
	"gorm.io/gorm"
)

// DeviceService manages push token registration. Registering a token
// deactivates the user's other tokens, so at steady state exactly one token
// per user is active.
type DeviceService struct {
	db *gorm.DB
}

func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{db: db}
}

// Register upserts the token for the user and deactivates their others.
func (s *DeviceService) Register(ctx context.Context, userID uuid.UUID, req model.RegisterDeviceRequest) (*model.DeviceToken, error) {
	if req.Token == "" {
		return nil, apperr.Invalid("token", "must not be empty")
	}
	platform := req.Platform
	if platform == "" {
		platform = "ios"
	}

	if _, err := repository.NewUserRepository(s.db).FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}

	device := &model.DeviceToken{
		UserID:   userID,
		Token:    req.Token,
		Platform: platform,
		IsActive: true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		devices := repository.NewDeviceRepository(tx)
		if err := devices.Upsert(device); err != nil {
			return err
		}
		return devices.DeactivateOthers(userID, req.Token)
	})
	if err != nil {
		return nil, err
	}
	return device, nil
}

package repository

import (
	"time"

	"github.com/google/uuid"
	"github.com/revzworks/soulbuddy/internal/model"
	"gorm.io/gorm"
)

// ContentRepository handles database operations for the content catalog:
// categories, affirmations and per-user usage history.
type ContentRepository struct {
	db *gorm.DB
}

func NewContentRepository(db *gorm.DB) *ContentRepository {
	return &ContentRepository{db: db}
}

// FindCategory finds a category by UUID
func (r *ContentRepository) FindCategory(id uuid.UUID) (*model.Category, error) {
	var category model.Category
	err := r.db.Where("id = ?", id).First(&category).Error
	if err != nil {
		return nil, err
	}
	return &category, nil
}

// FindAffirmation finds an affirmation by UUID
func (r *ContentRepository) FindAffirmation(id uuid.UUID) (*model.Affirmation, error) {
	var affirmation model.Affirmation
	err := r.db.Where("id = ?", id).First(&affirmation).Error
	if err != nil {
		return nil, err
	}
	return &affirmation, nil
}

// PickEligible selects one affirmation for a slot: active item in an active
// category, matching locale and category, and not used for this user within
// the cooldown window relative to the slot instant. Least-recently-used
// items come first; ties break randomly so repeated plans do not replay the
// same order. Returns gorm.ErrRecordNotFound when the category is exhausted.
func (r *ContentRepository) PickEligible(userID, categoryID uuid.UUID, locale string, slotAt time.Time, cooldown time.Duration) (*model.Affirmation, error) {
	cutoff := slotAt.Add(-cooldown)

	var affirmation model.Affirmation
	err := r.db.
		Joins("JOIN categories ON categories.id = affirmations.category_id").
		Where("affirmations.category_id = ? AND affirmations.locale = ?", categoryID, locale).
		Where("affirmations.is_active = ? AND categories.is_active = ?", true, true).
		Where(`NOT EXISTS (
			SELECT 1 FROM content_usages
			WHERE content_usages.user_id = ?
			  AND content_usages.affirmation_id = affirmations.id
			  AND content_usages.used_at > ?)`, userID, cutoff).
		Order("affirmations.last_used_at IS NOT NULL, affirmations.last_used_at, RANDOM()").
		First(&affirmation).Error
	if err != nil {
		return nil, err
	}
	return &affirmation, nil
}

// MarkUsed records a selection in the per-user usage history and stamps the
// item's last_used_at. Called at selection time so concurrent planning runs
// see the cooldown immediately.
func (r *ContentRepository) MarkUsed(userID, affirmationID uuid.UUID, usedAt time.Time) error {
	usage := model.ContentUsage{
		UserID:        userID,
		AffirmationID: affirmationID,
		UsedAt:        usedAt,
	}
	if err := r.db.Create(&usage).Error; err != nil {
		return err
	}
	return r.db.Model(&model.Affirmation{}).
		Where("id = ?", affirmationID).
		Update("last_used_at", usedAt).Error
}

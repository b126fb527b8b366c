package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category groups affirmations, keyed by (key, locale). Inactive categories
// are never picked for new sessions or schedules.
type Category struct {
	ID       uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Key      string    `json:"key" gorm:"size:64;not null;uniqueIndex:idx_category_key_locale"`
	Locale   string    `json:"locale" gorm:"size:10;not null;uniqueIndex:idx_category_key_locale"`
	Name     string    `json:"name" gorm:"size:120;not null"`
	IsActive bool      `json:"is_active" gorm:"not null;default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Affirmation is a single piece of deliverable content. LastUsedAt orders
// least-recently-used selection; the correctness gate for repeats is the
// per-user ContentUsage history, not this column.
type Affirmation struct {
	ID         uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	CategoryID uuid.UUID  `json:"category_id" gorm:"type:uuid;not null;index"`
	Text       string     `json:"text" gorm:"type:text;not null"`
	Locale     string     `json:"locale" gorm:"size:10;not null;index"`
	Intensity  int        `json:"intensity" gorm:"not null;default:1"` // 1-3
	Tags       []string   `json:"tags" gorm:"serializer:json"`
	IsActive   bool       `json:"is_active" gorm:"not null;default:true"`
	LastUsedAt *time.Time `json:"last_used_at"`

	Category  *Category `json:"-" gorm:"foreignKey:CategoryID"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Affirmation) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ContentUsage records that an affirmation was scheduled for a user at a
// given instant. The planner consults it to enforce the 30-day per-user
// cooldown; rows are written at selection time, not delivery time.
type ContentUsage struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	UserID        uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index:idx_usage_user_item"`
	AffirmationID uuid.UUID `json:"affirmation_id" gorm:"type:uuid;not null;index:idx_usage_user_item"`
	UsedAt        time.Time `json:"used_at" gorm:"not null"`
	CreatedAt     time.Time `json:"created_at"`
}

func (u *ContentUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

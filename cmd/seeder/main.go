package main

import (
	"fmt"
	"log"
	"time"

	"github.com/revzworks/soulbuddy/internal/config"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/repository"
	"github.com/revzworks/soulbuddy/pkg/auth"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var categories = map[string][]string{
	"calm": {
		"You are allowed to slow down.",
		"Your breath is an anchor you carry everywhere.",
		"Nothing needs to be solved in this exact minute.",
		"Stillness is productive too.",
		"You have survived every hard day so far.",
	},
	"confidence": {
		"You bring something to the room nobody else can.",
		"You are more capable than you feel right now.",
		"Progress counts even when it is quiet.",
		"Your voice deserves the space it takes.",
		"Doubt is a visitor, not a resident.",
	},
	"sleep": {
		"The day is done; it no longer needs you.",
		"Rest is how tomorrow gets easier.",
		"You can put every thought down until morning.",
		"Your body knows how to rest. Let it.",
	},
}

func main() {
	// Load config
	cfg := config.Load()

	// Force DB logging off to avoid noise
	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to Database")

	// ==================== Content Catalog ====================
	log.Println("🌱 Seeding categories and affirmations...")
	for key, texts := range categories {
		var category model.Category
		err := db.Where("key = ? AND locale = ?", key, "en").First(&category).Error
		if err == gorm.ErrRecordNotFound {
			category = model.Category{Key: key, Locale: "en", Name: title(key), IsActive: true}
			if err := db.Create(&category).Error; err != nil {
				log.Fatalf("❌ Failed to create category %s: %v", key, err)
			}
		} else if err != nil {
			log.Fatalf("❌ Failed to look up category %s: %v", key, err)
		}

		for _, text := range texts {
			var count int64
			db.Model(&model.Affirmation{}).Where("category_id = ? AND text = ?", category.ID, text).Count(&count)
			if count > 0 {
				continue
			}
			affirmation := model.Affirmation{
				CategoryID: category.ID,
				Text:       text,
				Locale:     "en",
				Intensity:  1,
				Tags:       []string{key},
				IsActive:   true,
			}
			if err := db.Create(&affirmation).Error; err != nil {
				log.Fatalf("❌ Failed to create affirmation: %v", err)
			}
		}
	}

	// ==================== Demo Users ====================
	log.Println("🌱 Seeding 5 demo users...")
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)
	userRepo := repository.NewUserRepository(db)

	for i := 1; i <= 5; i++ {
		email := fmt.Sprintf("user%d@soulbuddy.local", i)

		var user model.User
		err := db.Where("email = ?", email).First(&user).Error
		if err == gorm.ErrRecordNotFound {
			user = model.User{
				Email:    email,
				Name:     fmt.Sprintf("Demo User %d", i),
				Locale:   "en",
				Timezone: "Europe/Istanbul",
			}
			if err := userRepo.Create(&user); err != nil {
				log.Fatalf("❌ Failed to create user: %v", err)
			}

			prefs := model.Preferences{
				UserID:     user.ID,
				Frequency:  2,
				QuietStart: "22:00",
				QuietEnd:   "08:00",
				AllowPush:  true,
			}
			if err := db.Create(&prefs).Error; err != nil {
				log.Fatalf("❌ Failed to create preferences: %v", err)
			}

			sub := model.Subscription{
				UserID:    user.ID,
				Plan:      "monthly",
				ExpiresAt: time.Now().AddDate(0, 1, 0),
			}
			if err := db.Create(&sub).Error; err != nil {
				log.Fatalf("❌ Failed to create subscription: %v", err)
			}
		} else if err != nil {
			log.Fatalf("❌ Failed to look up user: %v", err)
		}

		token, err := jwtManager.GenerateToken(user.ID, user.Email, user.Name)
		if err != nil {
			log.Fatalf("❌ Failed to generate dev token: %v", err)
		}
		log.Printf("🔑 %s → %s", email, token)
	}

	log.Println("✅ Seeding complete")
}

func title(key string) string {
	if key == "" {
		return key
	}
	return string(key[0]-('a'-'A')) + key[1:]
}

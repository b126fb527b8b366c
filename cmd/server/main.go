package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/revzworks/soulbuddy/internal/config"
	"github.com/revzworks/soulbuddy/internal/handler"
	"github.com/revzworks/soulbuddy/internal/middleware"
	"github.com/revzworks/soulbuddy/internal/model"
	"github.com/revzworks/soulbuddy/internal/repository"
	"github.com/revzworks/soulbuddy/internal/service"
	"github.com/revzworks/soulbuddy/migrations"
	"github.com/revzworks/soulbuddy/pkg/auth"
	"github.com/revzworks/soulbuddy/pkg/push"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           SoulBuddy Notification Engine
// @version         1.0
// @description     Schedule planning and push delivery API for the SoulBuddy app.

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      api.localhost
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()

	// `server rollback` reverts the last migration and exits
	if len(os.Args) > 1 && os.Args[1] == "rollback" {
		if err := migrations.Rollback(cfg.DB.URL()); err != nil {
			log.Fatalf("❌ Rollback failed: %v", err)
		}
		return
	}

	log.Printf("🚀 Starting SoulBuddy API Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		if err := db.AutoMigrate(
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
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
		// AutoMigrate cannot express partial indexes; without this one the
		// concurrent session-start race is only caught in application code.
		if err := db.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_one_active ON sessions (user_id) WHERE status = 'active'`,
		).Error; err != nil {
			log.Fatalf("❌ Failed to create session index: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("❌ Failed to connect to Redis: %v", err)
	}
	log.Println("✅ Connected to Redis")

	// ==================== Push Gateway (FCM) ====================
	var gateway push.Gateway
	fcm, err := push.NewFCM(cfg.Firebase.CredentialsFile)
	if err != nil {
		log.Printf("⚠️ Failed to initialize FCM: %v (push delivery disabled)", err)
	}
	if fcm != nil {
		gateway = fcm
	}

	// ==================== Initialize Layers ====================
	// JWT Manager
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	deviceRepo := repository.NewDeviceRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	contentRepo := repository.NewContentRepository(db)

	// Services
	entitlements := service.NewSubscriptionEntitlements(userRepo, rdb)
	planner := service.NewPlanner(db, cfg.Planner.CooldownDays)
	sessionService := service.NewSessionService(db, entitlements, planner)
	preferenceService := service.NewPreferenceService(db, planner)
	deviceService := service.NewDeviceService(db)

	// ==================== Background Workers ====================
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	if gateway != nil {
		dispatcher := service.NewDispatcher(db, gateway, cfg.Dispatcher)
		go dispatcher.Run(workerCtx)
	} else {
		log.Println("⚠️ Dispatcher not started: no push gateway configured")
	}

	// Nightly horizon refresh keeps plans filled for long-running sessions.
	refresher := cron.New(cron.WithSeconds())
	if _, err := refresher.AddFunc(cfg.Planner.RefreshCron, func() {
		planner.RefreshAll(workerCtx, time.Now().UTC())
	}); err != nil {
		log.Fatalf("❌ Invalid planner refresh cron %q: %v", cfg.Planner.RefreshCron, err)
	}
	refresher.Start()
	defer refresher.Stop()

	// Handlers
	sessionHandler := handler.NewSessionHandler(sessionService)
	preferenceHandler := handler.NewPreferenceHandler(preferenceService)
	deviceHandler := handler.NewDeviceHandler(deviceService)
	meHandler := handler.NewMeHandler(userRepo, deviceRepo, scheduleRepo, contentRepo, sessionService, preferenceService, entitlements)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Swagger configuration
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	// Global middleware
	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "soulbuddy-api",
			"time":    time.Now().Format(time.RFC3339),
		})
	})

	// ==================== API Routes ====================
	api := router.Group("/api/v1")
	{
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager, rdb))
		{
			protected.GET("/me", meHandler.Get)
			protected.PUT("/me/preferences", preferenceHandler.Update)
			protected.POST("/me/devices", deviceHandler.Register)

			protected.GET("/me/session", sessionHandler.GetActive)
			protected.POST("/me/session", sessionHandler.Start)
			protected.DELETE("/me/session/:id", sessionHandler.End)
		}
	}

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 SoulBuddy API running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	workerCancel()
	log.Println("✅ Server exited gracefully")
}

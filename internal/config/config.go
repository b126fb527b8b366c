package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	JWT        JWTConfig
	Firebase   FirebaseConfig
	CORS       CORSConfig
	Dispatcher DispatcherConfig
	Planner    PlannerConfig
}

type AppConfig struct {
	Env  string
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=UTC"
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	return "postgres://" + d.User + ":" + d.Password +
		"@" + d.Host + ":" + d.Port +
		"/" + d.Name + "?sslmode=" + d.SSLMode
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
}

type FirebaseConfig struct {
	CredentialsFile string
}

type CORSConfig struct {
	Origins []string
}

// DispatcherConfig tunes the delivery loop. GraceWindow bounds how long past
// scheduled_at an entry keeps being retried before it is marked failed.
type DispatcherConfig struct {
	TickInterval   time.Duration
	BatchSize      int
	MaxAttempts    int
	RetryBaseDelay time.Duration
	SendTimeout    time.Duration
	GraceWindow    time.Duration
}

// PlannerConfig tunes schedule generation. RefreshCron is a robfig/cron spec
// (with seconds) for the nightly horizon refresh.
type PlannerConfig struct {
	CooldownDays int
	RefreshCron  string
}

// Load reads configuration from .env file and environment variables
func Load() *Config {
	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading from environment variables")
	}

	return &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "soulbuddy"),
			Password: getEnv("DB_PASSWORD", "soulbuddy"),
			Name:     getEnv("DB_NAME", "soulbuddy"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getDuration("JWT_EXPIRY", 24*time.Hour),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		CORS: CORSConfig{
			Origins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		},
		Dispatcher: DispatcherConfig{
			TickInterval:   getDuration("DISPATCH_TICK_INTERVAL", 60*time.Second),
			BatchSize:      getInt("DISPATCH_BATCH_SIZE", 100),
			MaxAttempts:    getInt("DISPATCH_MAX_ATTEMPTS", 3),
			RetryBaseDelay: getDuration("DISPATCH_RETRY_BASE_DELAY", 2*time.Second),
			SendTimeout:    getDuration("DISPATCH_SEND_TIMEOUT", 5*time.Second),
			GraceWindow:    getDuration("DISPATCH_GRACE_WINDOW", 15*time.Minute),
		},
		Planner: PlannerConfig{
			CooldownDays: getInt("PLANNER_COOLDOWN_DAYS", 30),
			RefreshCron:  getEnv("PLANNER_REFRESH_CRON", "0 30 3 * * *"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

package config

import (
	"PinguinTube/models"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

type Config struct {
	Port string

	StorageDriver string
	DBHost        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBPort        string
	DBSSLMode     string

	// Часовой пояс календарного дня для экранного времени
	TimeZone string
	Location *time.Location

	JWTSecret     string
	SessionSecret string
	SessionTTL    time.Duration
	QRTokenTTL    time.Duration

	RedisURL string

	FirebaseCredentialsPath string

	LogLevel  string
	LogFormat string

	// Запросов устройства в минуту на сессию
	DeviceRateLimit int
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnvOrDefault("PORT", "8000"),
		StorageDriver:           getEnvOrDefault("STORAGE_DRIVER", StorageDriverPostgres),
		DBHost:                  os.Getenv("DB_HOST"),
		DBUser:                  os.Getenv("DB_USER"),
		DBPassword:              os.Getenv("DB_PASSWORD"),
		DBName:                  os.Getenv("DB_NAME"),
		DBPort:                  getEnvOrDefault("DB_PORT", "5432"),
		DBSSLMode:               os.Getenv("DB_SSLMODE"),
		TimeZone:                getEnvOrDefault("APP_TIMEZONE", "Asia/Almaty"),
		JWTSecret:               os.Getenv("JWT_SECRET"),
		SessionSecret:           os.Getenv("SESSION_SECRET"),
		RedisURL:                os.Getenv("REDIS_URL"),
		FirebaseCredentialsPath: os.Getenv("FIREBASE_CREDENTIALS_PATH"),
		LogLevel:                getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:               getEnvOrDefault("LOG_FORMAT", "json"),
	}

	var err error
	if cfg.SessionTTL, err = getEnvAsDurationOrDefault("SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.QRTokenTTL, err = getEnvAsDurationOrDefault("QR_TOKEN_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DeviceRateLimit, err = getEnvAsIntOrDefault("DEVICE_RATE_LIMIT", 120); err != nil {
		return nil, err
	}

	if cfg.Location, err = time.LoadLocation(cfg.TimeZone); err != nil {
		return nil, fmt.Errorf("invalid APP_TIMEZONE %q: %w", cfg.TimeZone, err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = cfg.JWTSecret
	}
	if cfg.SessionTTL >= cfg.QRTokenTTL {
		return nil, fmt.Errorf("SESSION_TTL (%s) must be shorter than QR_TOKEN_TTL (%s)", cfg.SessionTTL, cfg.QRTokenTTL)
	}

	switch cfg.StorageDriver {
	case StorageDriverPostgres, StorageDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}

	// Используем значение из DB_SSLMODE или "require" для Render
	if cfg.DBSSLMode == "" {
		if strings.Contains(cfg.DBHost, "render.com") {
			cfg.DBSSLMode = "require"
		} else {
			cfg.DBSSLMode = "disable"
		}
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode, c.TimeZone)
}

func InitDatabase(cfg *Config, log *zap.Logger) (*gorm.DB, error) {
	log.Info("Connecting to database",
		zap.String("host", cfg.DBHost),
		zap.String("user", cfg.DBUser),
		zap.String("dbname", cfg.DBName),
		zap.String("port", cfg.DBPort),
		zap.String("sslmode", cfg.DBSSLMode),
	)

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Parent{},
		&models.Child{},
		&models.Command{},
		&models.ScreenTimeRecord{},
		&models.DeviceSession{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	log.Info("Successfully connected to database")
	return db, nil
}

// InitFirebase возвращает клиент FCM. Без FIREBASE_CREDENTIALS_PATH возвращает nil, nil.
func InitFirebase(ctx context.Context, cfg *Config) (*messaging.Client, error) {
	if cfg.FirebaseCredentialsPath == "" {
		return nil, nil
	}
	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsPath)
	app, err := firebase.NewApp(ctx, nil, opt)
	if err != nil {
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("error initializing FCM client: %w", err)
	}
	return client, nil
}

// InitRedis без REDIS_URL возвращает nil, nil
func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.RedisURL == "" {
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	return client, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvAsIntOrDefault(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvAsDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

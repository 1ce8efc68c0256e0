package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"catalog-service/internal/importer"
	"catalog-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisURL string

	// Server
	Port        string
	Environment string

	// JWT
	JWTSecret string

	// CORS
	AllowedOrigins []string

	// Eventing (optional)
	NATSURL string

	// Pagination
	DefaultPageSize int
	MaxPageSize     int

	// Import pipeline
	FallbackCategory    string
	WeightMarkerPhrase  string
	ImportProgressEvery int
	ImportGraceDelay    time.Duration
	StreamKeepAlive     time.Duration
	ImportAliases       importer.FieldAliases
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	defaultPageSize, _ := strconv.Atoi(getEnv("DEFAULT_PAGE_SIZE", "20"))
	maxPageSize, _ := strconv.Atoi(getEnv("MAX_PAGE_SIZE", "100"))
	progressEvery, _ := strconv.Atoi(getEnv("IMPORT_PROGRESS_EVERY", "10"))
	graceSeconds, _ := strconv.Atoi(getEnv("IMPORT_GRACE_DELAY_SECONDS", "5"))
	keepAliveSeconds, _ := strconv.Atoi(getEnv("STREAM_KEEPALIVE_SECONDS", "30"))

	defaults := importer.DefaultAliases()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "catalog_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key"),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", nil),

		NATSURL: os.Getenv("NATS_URL"),

		DefaultPageSize: defaultPageSize,
		MaxPageSize:     maxPageSize,

		FallbackCategory:    getEnv("FALLBACK_CATEGORY", "OTROS"),
		WeightMarkerPhrase:  getEnv("WEIGHT_MARKER_PHRASE", importer.DefaultWeightMarker),
		ImportProgressEvery: progressEvery,
		ImportGraceDelay:    time.Duration(graceSeconds) * time.Second,
		StreamKeepAlive:     time.Duration(keepAliveSeconds) * time.Second,
		ImportAliases: importer.FieldAliases{
			Code:  getEnvList("IMPORT_CODE_ALIASES", defaults.Code),
			Name:  getEnvList("IMPORT_NAME_ALIASES", defaults.Name),
			Stock: getEnvList("IMPORT_STOCK_ALIASES", defaults.Stock),
			Price: getEnvList("IMPORT_PRICE_ALIASES", defaults.Price),
		},
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(
		&models.Category{},
		&models.Product{},
	); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvList reads a comma-separated list, falling back to defaults when the
// variable is unset or empty.
func getEnvList(key string, defaults []string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return defaults
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaults
	}
	return values
}

package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config holds the service configuration, read from the environment.
type Config struct {
	Port            string
	DatabaseURL     string
	StatementBucket string
	ExtractionURL   string
	AllowedOrigins  []string
}

// Load reads configuration from environment variables. godotenv.Load in
// main populates the environment from .env first.
func Load() Config {
	cfg := Config{
		Port:            getenv("PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		StatementBucket: os.Getenv("STATEMENT_BUCKET"),
		ExtractionURL:   getenv("EXTRACTION_SERVICE_URL", "http://localhost:9090"),
		AllowedOrigins:  splitOrigins(getenv("ALLOWED_ORIGINS", "http://localhost:3000")),
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = dsnFromParts()
	}
	return cfg
}

// InitDB opens the postgres connection.
func InitDB(cfg Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return db
}

func dsnFromParts() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		getenv("DB_HOST", "localhost"),
		getenv("DB_USER", "postgres"),
		getenv("DB_PASSWORD", "postgres"),
		getenv("DB_NAME", "statements"),
		getenv("DB_PORT", "5432"),
		getenv("DB_SSLMODE", "disable"),
	)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitOrigins(s string) []string {
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

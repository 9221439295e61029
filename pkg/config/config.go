package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// Base URL overrides for the external service APIs. Empty means the
	// real endpoints; local mock servers point these elsewhere.
	ChatworkBaseURL   string
	GoogleChatBaseURL string
	GmailEndpoint     string

	AutoSyncEnabled bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	accessExpiry := 15 * time.Minute
	if exp := os.Getenv("JWT_ACCESS_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			accessExpiry = parsed
		}
	}

	refreshExpiry := 168 * time.Hour // 7 days
	if exp := os.Getenv("JWT_REFRESH_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			refreshExpiry = parsed
		}
	}

	autoSync := true
	if v := os.Getenv("AUTO_SYNC_ENABLED"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			autoSync = parsed
		}
	}

	return &Config{
		Port:              getEnv("PORT", "8080"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		JWTSecret:         getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:   accessExpiry,
		JWTRefreshExpiry:  refreshExpiry,
		ChatworkBaseURL:   getEnv("CHATWORK_API_BASE", ""),
		GoogleChatBaseURL: getEnv("GOOGLE_CHAT_API_BASE", ""),
		GmailEndpoint:     getEnv("GMAIL_API_ENDPOINT", ""),
		AutoSyncEnabled:   autoSync,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

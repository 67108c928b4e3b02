package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// LINE Messaging API credentials. These may legitimately be empty at
	// startup; the webhook handler refuses events until both are set.
	LineChannelSecret      string
	LineChannelAccessToken string
	LineAPIBaseURL         string

	// Security settings
	JWTSecret            string
	CronSecret           string
	DashboardTokenExpiry time.Duration

	// Report settings
	DashboardBaseURL string
	// Fixed amount subtracted from income before the unknown-expense
	// residual is taken. Zero keeps the plain income-minus-expense rule.
	UnknownExpenseBaseline int64
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from /backend)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	lineChannelSecret := getEnv("LINE_CHANNEL_SECRET", "")
	lineChannelAccessToken := getEnv("LINE_CHANNEL_ACCESS_TOKEN", "")
	if lineChannelSecret == "" || lineChannelAccessToken == "" {
		log.Println("WARNING: LINE credentials are not fully configured. The webhook will reject all events until LINE_CHANNEL_SECRET and LINE_CHANNEL_ACCESS_TOKEN are set.")
	}

	jwtSecret := getRequiredEnv("JWT_SECRET")
	cronSecret := getEnv("CRON_SECRET", "")
	if cronSecret == "" {
		log.Println("WARNING: CRON_SECRET not set. The monthly reminder endpoint will reject all requests.")
	}

	frontendBaseURL := getEnv("APP_BASE_URL", "http://localhost:3000")

	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./tofuledger.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// LINE
		LineChannelSecret:      lineChannelSecret,
		LineChannelAccessToken: lineChannelAccessToken,
		LineAPIBaseURL:         getEnv("LINE_API_BASE_URL", ""),

		// Security
		JWTSecret:            jwtSecret,
		CronSecret:           cronSecret,
		DashboardTokenExpiry: getEnvAsDuration("DASHBOARD_TOKEN_EXPIRY", 24*time.Hour),

		// Report
		DashboardBaseURL:       frontendBaseURL,
		UnknownExpenseBaseline: getEnvAsInt64("UNKNOWN_EXPENSE_BASELINE", 0),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, DashboardURL=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.DashboardBaseURL)
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

// getRequiredEnv retrieves an environment variable or terminates the application if not set.
func getRequiredEnv(key string) string {
	value, exists := os.LookupEnv(key)
	if !exists || strings.TrimSpace(value) == "" {
		log.Fatalf("FATAL: Required environment variable %s is not set or is empty. Application cannot start securely.", key)
	}
	return value
}

// getEnvAsInt64 retrieves an environment variable as an int64 or returns a fallback.
func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

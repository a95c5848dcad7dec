package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Port        string
	DatabaseURL string
	Version     string
	LogLevel    string

	SendGridAPIKey       string // Provider API key; sending is disabled without it
	WebhookSigningSecret string // Secret used to verify inbound webhook signatures
	DefaultFromEmail     string // Sender address used when a request omits one
	DefaultFromName      string
	DefaultReplyTo       string

	MaxRecipientsPerCall int // Provider cap on recipients per call (R)
	MaxCallsPerSecond    int // Provider cap on calls per second (C)
	SendDelayMillis      int // Inter-call delay override; 0 derives it from C

	WebhookRateLimit  int // Max webhook requests per source IP per window
	WebhookRateWindow int // Rate limit window in seconds

	DedupeCacheSize int // Max entries in the in-memory idempotency cache
	DedupeCacheTTL  int // Cache entry lifetime in minutes
}

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Version:     getEnv("VERSION", "1.0.0"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		SendGridAPIKey:       os.Getenv("SENDGRID_API_KEY"),
		WebhookSigningSecret: os.Getenv("WEBHOOK_SIGNING_SECRET"),
		DefaultFromEmail:     getEnv("DEFAULT_FROM_EMAIL", "campaigns@leadflow.app"),
		DefaultFromName:      getEnv("DEFAULT_FROM_NAME", "Leadflow"),
		DefaultReplyTo:       os.Getenv("DEFAULT_REPLY_TO"),

		MaxRecipientsPerCall: getEnvInt("MAX_RECIPIENTS_PER_CALL", 50),
		MaxCallsPerSecond:    getEnvInt("MAX_CALLS_PER_SECOND", 2),
		SendDelayMillis:      getEnvInt("SEND_DELAY_MILLIS", 0),

		WebhookRateLimit:  getEnvInt("WEBHOOK_RATE_LIMIT", 100),
		WebhookRateWindow: getEnvInt("WEBHOOK_RATE_WINDOW_SECONDS", 60),

		DedupeCacheSize: getEnvInt("DEDUPE_CACHE_SIZE", 1000),
		DedupeCacheTTL:  getEnvInt("DEDUPE_CACHE_TTL_MINUTES", 60),
	}

	return config
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "leadflow").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type CheckoutConfig struct {
	Provider      string
	BaseURL       string
	KeyID         string
	KeySecret     string
	WebhookSecret string
	Currency      string
	DisplayName   string
	ThemeColor    string
}

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// PubNub configuration
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Checkout gateway configuration
	Checkout CheckoutConfig

	// Collection names (the document store identifiers)
	EventsCollection   string
	BookingsCollection string
	PaymentsCollection string

	// Timeout configuration
	CheckoutTimeout time.Duration
	ScanStatusTTL   time.Duration
	ScanSessionTTL  time.Duration

	// Cleanup configuration
	CleanupInterval time.Duration

	// Support handoff
	SupportEmail string

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	// Missing .env is fine, real env vars still apply.
	_ = godotenv.Load()

	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// PubNub
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Checkout gateway
		Checkout: CheckoutConfig{
			Provider:      getEnv("CHECKOUT_PROVIDER", "razorpay"),
			BaseURL:       getEnv("CHECKOUT_BASE_URL", "https://api.razorpay.com"),
			KeyID:         getEnv("CHECKOUT_KEY_ID", ""),
			KeySecret:     getEnv("CHECKOUT_KEY_SECRET", ""),
			WebhookSecret: getEnv("CHECKOUT_WEBHOOK_SECRET", ""),
			Currency:      getEnv("CHECKOUT_CURRENCY", "INR"),
			DisplayName:   getEnv("CHECKOUT_DISPLAY_NAME", "Campus Events"),
			ThemeColor:    getEnv("CHECKOUT_THEME_COLOR", "#6366F1"),
		},

		// Collections
		EventsCollection:   getEnv("EVENTS_COLLECTION", "events"),
		BookingsCollection: getEnv("BOOKINGS_COLLECTION", "bookings"),
		PaymentsCollection: getEnv("PAYMENTS_COLLECTION", "payments"),

		// Timeouts
		CheckoutTimeout: getEnvAsDuration("CHECKOUT_TIMEOUT", "15m"),
		ScanStatusTTL:   getEnvAsDuration("SCAN_STATUS_TTL", "3s"),
		ScanSessionTTL:  getEnvAsDuration("SCAN_SESSION_TTL", "12h"),

		// Cleanup
		CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", "1h"),

		// Support
		SupportEmail: getEnv("SUPPORT_EMAIL", "support@campus-events.local"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

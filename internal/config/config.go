package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	AppEnv      string
	ServiceName string
	StoreDriver string

	MongoURI string
	DBName   string

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminEmail      string
	AdminPassword   string

	StripeSecretKey     string
	StripeWebhookSecret string
	PaymentCurrency     string

	ResendAPIKey        string
	ResendFromEmail     string
	ResendVerifiedEmail string
	ResendReplyTo       string

	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string

	FrontendURL   string
	AuthRateLimit float64
	AuthRateBurst int
	LogFile       string
}

// Load reads the process environment, optionally seeded from a .env file.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	return Config{
		Port:        getEnvOrDefault("PORT", "5000"),
		AppEnv:      getEnvOrDefault("APP_ENV", "development"),
		ServiceName: getEnvOrDefault("SERVICE_NAME", "storefront-api"),
		StoreDriver: getEnvOrDefault("STORE_DRIVER", "mongo"),

		MongoURI: getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		DBName:   getEnvOrDefault("DB_NAME", "storefront"),

		JWTSecret:       getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:  getDurationEnv("ACCESS_TOKEN_TTL", 7*24*60, time.Minute),
		RefreshTokenTTL: getDurationEnv("REFRESH_TOKEN_TTL", 30, 24*time.Hour),
		AdminEmail:      getEnvOrDefault("ADMIN_EMAIL", ""),
		AdminPassword:   getEnvOrDefault("ADMIN_PASSWORD", ""),

		StripeSecretKey:     getEnvOrDefault("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnvOrDefault("STRIPE_WEBHOOK_SECRET", ""),
		PaymentCurrency:     getEnvOrDefault("PAYMENT_CURRENCY", "usd"),

		ResendAPIKey:        getEnvOrDefault("RESEND_API_KEY", ""),
		ResendFromEmail:     getEnvOrDefault("RESEND_FROM_EMAIL", "onboarding@resend.dev"),
		ResendVerifiedEmail: getEnvOrDefault("RESEND_VERIFIED_EMAIL", ""),
		ResendReplyTo:       getEnvOrDefault("RESEND_REPLY_TO", ""),

		RedisAddr:    getEnvOrDefault("REDIS_ADDR", ""),
		KafkaBrokers: getListEnv("KAFKA_BROKERS"),
		KafkaTopic:   getEnvOrDefault("KAFKA_TOPIC", "storefront-orders"),

		FrontendURL:   getEnvOrDefault("FRONTEND_URL", "http://localhost:3000"),
		AuthRateLimit: getFloatEnv("AUTH_RATE_LIMIT", 2),
		AuthRateBurst: getIntEnv("AUTH_RATE_BURST", 5),
		LogFile:       getEnvOrDefault("LOG_FILE", ""),
	}
}

func (c Config) Production() bool {
	return c.AppEnv == "production"
}

func (c Config) PaymentsEnabled() bool {
	return c.StripeSecretKey != ""
}

package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Daraja   DarajaConfig
	Checkout CheckoutConfig
	Ticket   TicketConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Path string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DarajaConfig configures the mobile-money push-payment provider
type DarajaConfig struct {
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	Environment    string // "sandbox" or "production"
	CallbackURL    string
}

// CheckoutConfig bounds the order/payment state machine
type CheckoutConfig struct {
	// PaymentCeiling is how long an order may stay in-flight before the
	// expiry worker force-fails it with payment_timeout.
	PaymentCeiling time.Duration
	// ExpirySweepInterval is how often the expiry worker scans.
	ExpirySweepInterval time.Duration
}

// TicketConfig configures ticket issuance
type TicketConfig struct {
	// TokenSecret signs the scannable proof-of-purchase tokens.
	TokenSecret string
}

func Load() (*Config, error) {
	// Load .env files if they exist (try .env.local first, then .env)
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Host: getEnv("HOST", "localhost"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DATABASE_PATH", "tikiti.db"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Daraja: DarajaConfig{
			ConsumerKey:    getEnv("DARAJA_CONSUMER_KEY", ""),
			ConsumerSecret: getEnv("DARAJA_CONSUMER_SECRET", ""),
			ShortCode:      getEnv("DARAJA_SHORT_CODE", "174379"),
			Passkey:        getEnv("DARAJA_PASSKEY", ""),
			Environment:    getEnv("DARAJA_ENVIRONMENT", "sandbox"),
			CallbackURL:    getEnv("DARAJA_CALLBACK_URL", "http://localhost:8080/payments/callback"),
		},
		Checkout: CheckoutConfig{
			PaymentCeiling:      getEnvAsDuration("PAYMENT_CEILING", 5*time.Minute),
			ExpirySweepInterval: getEnvAsDuration("EXPIRY_SWEEP_INTERVAL", 30*time.Second),
		},
		Ticket: TicketConfig{
			TokenSecret: getEnv("TICKET_TOKEN_SECRET", "change-me-in-production"),
		},
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration
type Config struct {
	AppPort string `envconfig:"APP_PORT" default:"8080"`
	AppEnv  string `envconfig:"APP_ENV" default:"development"`

	// Public base URL used to build shareable bill links
	BaseURL string `envconfig:"BASE_URL" default:"http://localhost:8080"`

	// Database
	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     string `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"postgres"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName     string `envconfig:"DB_NAME" default:"digibill"`
	DBURL      string `envconfig:"DB_URL"`

	// Redis (OTP store)
	RedisURL      string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`

	// SMS gateway
	SMSBaseURL     string `envconfig:"SMS_BASE_URL" default:"https://cloudsms.digialaya.com/ApiSmsHttp"`
	SMSUserID      string `envconfig:"SMS_USER_ID"`
	SMSPassword    string `envconfig:"SMS_PASSWORD"`
	SMSSenderID    string `envconfig:"SMS_SENDER_ID"`
	SMSServiceName string `envconfig:"SMS_SERVICE_NAME"`
	SMSMessageType string `envconfig:"SMS_MESSAGE_TYPE"`
	OTPTemplateID  string `envconfig:"OTP_TEMPLATE_ID"`
	BillTemplateID string `envconfig:"BILL_TEMPLATE_ID"`

	// Fixed "123456" codes instead of SMS delivery, for local testing
	UseFakeOTP bool `envconfig:"USE_FAKE_OTP" default:"false"`

	// Auth
	JWTSecret string `envconfig:"JWT_SECRET" default:"change-this-secret-in-production"`

	// CORS
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:3010"`
}

var instance *Config

// Load initializes and returns the singleton Config instance
func Load() (*Config, error) {
	if instance != nil {
		return instance, nil
	}

	// Load .env file if it exists (for local development)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("error processing environment variables: %w", err)
	}

	// Check for the platform's DATABASE_URL if DB_URL is not set
	if cfg.DBURL == "" {
		if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
			cfg.DBURL = databaseURL
		}
	}

	// Build DBURL if still not provided
	if cfg.DBURL == "" {
		cfg.DBURL = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	}

	instance = cfg
	return instance, nil
}

// Get returns the singleton Config instance (must call Load first)
func Get() *Config {
	if instance == nil {
		panic("config not loaded: call config.Load() first")
	}
	return instance
}

package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const EnvProduction = "production"

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Billing  BillingConfig
	Auth     AuthConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type BillingConfig struct {
	WebhookSecret         string
	AllowUnsignedWebhooks bool
	PhoneCountryCode      string
	DedupTTL              time.Duration
}

type AuthConfig struct {
	JwtSecret string
}

type TracingConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
	SampleRatio float64
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/billing.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", ""),
			RedisURL:           getEnv("REDIS_URL", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Billing: BillingConfig{
			WebhookSecret:         getEnv("TELCO_WEBHOOK_SECRET", ""),
			AllowUnsignedWebhooks: getEnvAsBool("ALLOW_UNSIGNED_WEBHOOKS", false),
			PhoneCountryCode:      getEnv("PHONE_COUNTRY_CODE", "234"),
			DedupTTL:              getEnvAsDuration("DEDUP_TTL", 10*time.Minute),
		},
		Auth: AuthConfig{
			JwtSecret: getEnv("JWT_SECRET", ""),
		},
		Tracing: TracingConfig{
			Enabled:     getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName: getEnv("OTEL_SERVICE_NAME", "fitness-billing"),
			SampleRatio: getEnvAsFloat("OTEL_TRACES_SAMPLER_RATIO", 1.0),
		},
	}
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Environment, EnvProduction)
}

// CorsOrigins collapses a list containing "*" to the bare wildcard.
func (c *Config) CorsOrigins() string {
	if c.corsWildcard() {
		return "*"
	}
	return c.App.CorsAllowedOrigins
}

// CorsAllowsCredentials is false for a wildcard origin list; browsers
// reject credentialed responses to "*".
func (c *Config) CorsAllowsCredentials() bool {
	return !c.corsWildcard()
}

func (c *Config) corsWildcard() bool {
	for _, origin := range strings.Split(c.App.CorsAllowedOrigins, ",") {
		if strings.TrimSpace(origin) == "*" {
			return true
		}
	}
	return false
}

// Validate reports settings the server must refuse to start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Connection == "" {
		errs = append(errs, errors.New("DB_CONNECTION_STRING is required"))
	}
	if c.Auth.JwtSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Billing.WebhookSecret == "" {
			errs = append(errs, errors.New("TELCO_WEBHOOK_SECRET is required in production"))
		}
		if c.Billing.AllowUnsignedWebhooks {
			errs = append(errs, errors.New("ALLOW_UNSIGNED_WEBHOOKS cannot be enabled in production"))
		}
		if c.corsWildcard() {
			errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS cannot be * in production"))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	if value, err := strconv.ParseFloat(getEnv(key, ""), 64); err == nil {
		return value
	}
	return fallback
}

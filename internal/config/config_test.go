package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Database: DatabaseConfig{Connection: "postgres://localhost/billing"},
		Billing:  BillingConfig{WebhookSecret: "s3cret", PhoneCountryCode: "234"},
		Auth:     AuthConfig{JwtSecret: "jwt"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{
			name:   "unsigned allowed outside production",
			mutate: func(c *Config) { c.Billing.WebhookSecret = ""; c.Billing.AllowUnsignedWebhooks = true },
		},
		{
			name:    "missing database",
			mutate:  func(c *Config) { c.Database.Connection = "" },
			wantErr: "DB_CONNECTION_STRING",
		},
		{
			name:    "missing jwt secret",
			mutate:  func(c *Config) { c.Auth.JwtSecret = "" },
			wantErr: "JWT_SECRET",
		},
		{
			name:    "production without webhook secret",
			mutate:  func(c *Config) { c.App.Environment = "production"; c.Billing.WebhookSecret = "" },
			wantErr: "TELCO_WEBHOOK_SECRET",
		},
		{
			name:    "production with unsigned webhooks",
			mutate:  func(c *Config) { c.App.Environment = "Production"; c.Billing.AllowUnsignedWebhooks = true },
			wantErr: "ALLOW_UNSIGNED_WEBHOOKS",
		},
		{
			name:   "wildcard origins outside production",
			mutate: func(c *Config) { c.App.CorsAllowedOrigins = "*" },
		},
		{
			name:    "production with wildcard origins",
			mutate:  func(c *Config) { c.App.Environment = "production"; c.App.CorsAllowedOrigins = "https://fit.app, *" },
			wantErr: "CORS_ALLOWED_ORIGINS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("TELCO_WEBHOOK_SECRET", "abc")
	t.Setenv("ALLOW_UNSIGNED_WEBHOOKS", "true")
	t.Setenv("DEDUP_TTL", "90s")
	t.Setenv("PHONE_COUNTRY_CODE", "254")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "jaeger:4318")
	t.Setenv("OTEL_TRACES_SAMPLER_RATIO", "0.1")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "abc", cfg.Billing.WebhookSecret)
	assert.True(t, cfg.Billing.AllowUnsignedWebhooks)
	assert.Equal(t, 90*time.Second, cfg.Billing.DedupTTL)
	assert.Equal(t, "254", cfg.Billing.PhoneCountryCode)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "jaeger:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, "fitness-billing", cfg.Tracing.ServiceName)
	assert.InDelta(t, 0.1, cfg.Tracing.SampleRatio, 1e-9)
}

func TestLoad_FallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("ALLOW_UNSIGNED_WEBHOOKS", "maybe")
	t.Setenv("DEDUP_TTL", "soon")
	t.Setenv("OTEL_TRACES_SAMPLER_RATIO", "most")

	cfg := Load()

	assert.False(t, cfg.Billing.AllowUnsignedWebhooks)
	assert.Equal(t, 10*time.Minute, cfg.Billing.DedupTTL)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRatio)
}

func TestCorsAllowsCredentials(t *testing.T) {
	tests := []struct {
		origins     string
		wantOrigins string
		want        bool
	}{
		{origins: "http://localhost:5173", wantOrigins: "http://localhost:5173", want: true},
		{origins: "https://fit.app,https://admin.fit.app", wantOrigins: "https://fit.app,https://admin.fit.app", want: true},
		{origins: "*", wantOrigins: "*", want: false},
		{origins: "https://fit.app, *", wantOrigins: "*", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.origins, func(t *testing.T) {
			cfg := &Config{App: AppConfig{CorsAllowedOrigins: tt.origins}}
			assert.Equal(t, tt.want, cfg.CorsAllowsCredentials())
			assert.Equal(t, tt.wantOrigins, cfg.CorsOrigins())
		})
	}
}

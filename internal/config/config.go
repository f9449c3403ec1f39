// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; required for server, migrate, and seed.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment ("development", "production"). In
	// production the session cookie is marked Secure.
	Env string `mapstructure:"APP_ENV"`

	// AuthBootstrapSecret gates PATCH /api/auth/login. Empty disables the
	// bootstrap endpoint entirely.
	AuthBootstrapSecret string `mapstructure:"AUTH_BOOTSTRAP_SECRET"`

	// SessionTTL is the session lifetime (e.g. "336h" = 14d).
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// SessionTouchInterval is the minimum gap between last-seen updates.
	SessionTouchInterval string `mapstructure:"SESSION_TOUCH_INTERVAL"`

	// LoginMaxAttempts is the failure count that triggers a block.
	LoginMaxAttempts int `mapstructure:"LOGIN_MAX_ATTEMPTS"`
	// LoginWindow is the counting window, anchored at the first failure.
	LoginWindow string `mapstructure:"LOGIN_WINDOW"`
	// LoginBlockDuration is how long a blocked key stays blocked.
	LoginBlockDuration string `mapstructure:"LOGIN_BLOCK_DURATION"`

	// ScryptN, ScryptR, ScryptP are the scrypt cost parameters for newly
	// hashed passwords. Stored hashes carry their own parameters.
	ScryptN int `mapstructure:"SCRYPT_N"`
	ScryptR int `mapstructure:"SCRYPT_R"`
	ScryptP int `mapstructure:"SCRYPT_P"`

	// CORSAllowedOrigins is a comma-separated list of origins allowed to make
	// credentialed requests (e.g. the SPA origin). Empty disables CORS.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// Telemetry (optional). Empty endpoint means no-op providers.
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS on the OTLP connection (local collectors).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// KafkaBrokers is a comma-separated broker list; when set, audit events
	// are also published to AuditKafkaTopic.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuditKafkaTopic is the topic for audit events.
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the audit worker to push events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the audit worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("AUTH_BOOTSTRAP_SECRET", "")
	v.SetDefault("SESSION_TTL", "336h") // 14d
	v.SetDefault("SESSION_TOUCH_INTERVAL", "5m")
	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_WINDOW", "15m")
	v.SetDefault("LOGIN_BLOCK_DURATION", "15m")
	v.SetDefault("SCRYPT_N", 32768)
	v.SetDefault("SCRYPT_R", 8)
	v.SetDefault("SCRYPT_P", 1)
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "asset-manager-audit")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "asset-manager-audit-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.LoginMaxAttempts <= 0 {
		return nil, errors.New("config: LOGIN_MAX_ATTEMPTS must be positive")
	}

	if cfg.ScryptN <= 1 || cfg.ScryptN&(cfg.ScryptN-1) != 0 {
		return nil, errors.New("config: SCRYPT_N must be a power of two greater than 1")
	}
	if cfg.ScryptR <= 0 || cfg.ScryptP <= 0 {
		return nil, errors.New("config: SCRYPT_R and SCRYPT_P must be positive")
	}

	return &cfg, nil
}

// SessionTTLDuration parses SessionTTL. Returns 14 days if unset or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 14 * 24 * time.Hour
	}
	return d
}

// TouchIntervalDuration parses SessionTouchInterval. Returns 5m if unset or invalid.
func (c *Config) TouchIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTouchInterval)
	if err != nil || d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// LoginWindowDuration parses LoginWindow. Returns 15m if unset or invalid.
func (c *Config) LoginWindowDuration() time.Duration {
	d, err := time.ParseDuration(c.LoginWindow)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// LoginBlockDurationValue parses LoginBlockDuration. Returns 15m if unset or invalid.
func (c *Config) LoginBlockDurationValue() time.Duration {
	d, err := time.ParseDuration(c.LoginBlockDuration)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// IsProduction reports whether the app runs with production hardening
// (Secure cookies, gin release mode).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CORSAllowedOriginsList returns the allowed origins from the comma-separated
// config. An empty list disables the CORS layer.
func (c *Config) CORSAllowedOriginsList() []string {
	return splitCommaList(c.CORSAllowedOrigins)
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated
// config. Used to decide if audit fan-out is enabled (non-empty list) and to
// create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitCommaList(c.KafkaBrokers)
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	return out
}

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
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; pairs with JWT_PUBLIC_KEY.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; pairs with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "crewdesk-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "crewdesk-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "24h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// SessionTTL is the refresh-session lifetime and the jwt cookie max-age (e.g. "168h").
	// This is the governing session lifetime; access tokens are re-minted within it via refresh.
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	// In production the jwt cookie carries the Secure flag.
	Env string `mapstructure:"APP_ENV"`

	// OTLPEndpoint enables OTel tracing/metrics export when set (e.g. http://localhost:4317).
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// AuthEventsKafkaBrokers is a comma-separated list of Kafka broker addresses.
	// When set, the server emits auth events (login, logout, revoke) to Kafka.
	AuthEventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// AuthEventsKafkaTopic is the Kafka topic for auth events (default crewdesk-auth-events).
	AuthEventsKafkaTopic string `mapstructure:"AUTH_EVENTS_KAFKA_TOPIC"`
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
	v.SetDefault("JWT_ISSUER", "crewdesk-auth")
	v.SetDefault("JWT_AUDIENCE", "crewdesk-api")
	v.SetDefault("JWT_ACCESS_TTL", "24h")
	v.SetDefault("SESSION_TTL", "168h") // 7d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUTH_EVENTS_KAFKA_TOPIC", "crewdesk-auth-events")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// RequireSigningKeys returns an error unless both JWT keys are configured.
// The server calls this at startup so a missing signing secret is fatal there,
// never a per-request failure.
func (c *Config) RequireSigningKeys() error {
	if strings.TrimSpace(c.JWTPrivateKey) == "" || strings.TrimSpace(c.JWTPublicKey) == "" {
		return errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set")
	}
	return nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// SessionLifetime parses SessionTTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) SessionLifetime() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// AuthEventsBrokerList returns Kafka broker addresses from the comma-separated config.
// A non-empty list means auth-event emission is enabled.
func (c *Config) AuthEventsBrokerList() []string {
	if c == nil || c.AuthEventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.AuthEventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

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
	// GRPCAddr is the address the pipeline-facing gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr is the address for chat webhooks and the admin API (e.g. :8081).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// JWTPrivateKey is the PEM-encoded private key or path to file; only needed by cmd/seed to mint operator tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; verifies operator tokens on the admin API.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim expected on operator tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim expected on operator tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the operator token lifetime (e.g. "15m").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31) for project secrets; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// SlackSigningSecret verifies inbound Slack requests.
	SlackSigningSecret string `mapstructure:"SLACK_SIGNING_SECRET"`
	// SlackAPIURL overrides the Slack Web API base URL (tests, proxies). Must end with a slash.
	SlackAPIURL string `mapstructure:"SLACK_API_URL"`

	// FeishuAppID and FeishuAppSecret are the Feishu app credentials used to send cards.
	FeishuAppID     string `mapstructure:"FEISHU_APP_ID"`
	FeishuAppSecret string `mapstructure:"FEISHU_APP_SECRET"`
	// FeishuVerificationToken is compared against the token carried by Feishu callbacks.
	FeishuVerificationToken string `mapstructure:"FEISHU_VERIFICATION_TOKEN"`
	// FeishuBaseURL overrides the Feishu open platform base URL (e.g. https://open.larksuite.com).
	FeishuBaseURL string `mapstructure:"FEISHU_BASE_URL"`

	// OTPRequestTTL is how long an OTP request may wait for a human before the sweeper expires it.
	OTPRequestTTL string `mapstructure:"OTP_REQUEST_TTL"`
	// LinkerTTL is how long a link token stays usable.
	LinkerTTL string `mapstructure:"LINKER_TTL"`
	// SweepInterval is how often the worker expires overdue requests and stale linkers.
	SweepInterval string `mapstructure:"SWEEP_INTERVAL"`

	// ResponderPolicyFile is an optional Rego file restricting who may answer an OTP request.
	ResponderPolicyFile string `mapstructure:"RESPONDER_POLICY_FILE"`

	// OTLPEndpoint is the OpenTelemetry collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Events (optional). When Kafka brokers are set, lifecycle events are also written to Kafka.
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for lifecycle events (default otp-relay-events).
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the worker to push events (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the worker.
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

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_ISSUER", "otp-relay")
	v.SetDefault("JWT_AUDIENCE", "otp-relay-admin")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("SLACK_SIGNING_SECRET", "")
	v.SetDefault("SLACK_API_URL", "")
	v.SetDefault("FEISHU_APP_ID", "")
	v.SetDefault("FEISHU_APP_SECRET", "")
	v.SetDefault("FEISHU_VERIFICATION_TOKEN", "")
	v.SetDefault("FEISHU_BASE_URL", "")
	v.SetDefault("OTP_REQUEST_TTL", "30m")
	v.SetDefault("LINKER_TTL", "1h")
	v.SetDefault("SWEEP_INTERVAL", "1m")
	v.SetDefault("RESPONDER_POLICY_FILE", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "otp-relay-events")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "otp-relay-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.GRPCAddr == "" {
		return nil, errors.New("config: GRPC_ADDR must be set")
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

	if cfg.Env == "production" {
		if cfg.SlackSigningSecret == "" && cfg.FeishuVerificationToken == "" {
			return nil, errors.New("config: at least one of SLACK_SIGNING_SECRET or FEISHU_VERIFICATION_TOKEN must be set in production")
		}
		if cfg.JWTPublicKey == "" {
			return nil, errors.New("config: JWT_PUBLIC_KEY must be set in production")
		}
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	return parseDuration(c.JWTAccessTTL, 15*time.Minute)
}

// RequestTTL parses OTPRequestTTL. Returns 30m if unset or invalid.
func (c *Config) RequestTTL() time.Duration {
	return parseDuration(c.OTPRequestTTL, 30*time.Minute)
}

// LinkTTL parses LinkerTTL. Returns 1h if unset or invalid.
func (c *Config) LinkTTL() time.Duration {
	return parseDuration(c.LinkerTTL, time.Hour)
}

// SweepEvery parses SweepInterval. Returns 1m if unset or invalid.
func (c *Config) SweepEvery() time.Duration {
	return parseDuration(c.SweepInterval, time.Minute)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if the Kafka event sink is enabled (non-empty list) and to create the producer.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

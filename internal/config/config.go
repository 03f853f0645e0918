// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// DefaultPlan is the billing plan new accounts get when neither the policy nor WIALON_DEFAULT_PLAN names one.
const DefaultPlan = "terminusgps_ext_hist"

// Config holds application configuration loaded from the environment.
type Config struct {
	// WialonAPIURL is the Remote API host (e.g. https://hst-api.wialon.com).
	WialonAPIURL string `mapstructure:"WIALON_API_URL"`
	// WialonToken is the long-lived token exchanged for a session on every unit of work.
	WialonToken string `mapstructure:"WIALON_API_TOKEN"`
	// WialonAdminID is the platform administrator user that creates customer super-users.
	WialonAdminID int64 `mapstructure:"WIALON_ADMIN_ID"`
	// WialonDefaultPlan is the billing plan used when the provisioning policy does not choose one.
	WialonDefaultPlan string `mapstructure:"WIALON_DEFAULT_PLAN"`
	// WialonTimeout is the per-call HTTP timeout (e.g. "30s"). Calls that time out have an unknown outcome.
	WialonTimeout string `mapstructure:"WIALON_TIMEOUT"`
	// WialonRateLimit is the maximum Remote API calls per second; 0 disables limiting.
	WialonRateLimit float64 `mapstructure:"WIALON_RATE_LIMIT"`
	// WialonRateBurst is the rate limiter burst size.
	WialonRateBurst int `mapstructure:"WIALON_RATE_BURST"`

	// DatabaseURL is the Postgres DSN for customer records and the audit trail; empty disables both.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// PolicyFile is an optional Rego module replacing the built-in provisioning policy.
	PolicyFile string `mapstructure:"PROVISION_POLICY_FILE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Telemetry (optional). When Kafka brokers are set, provisioning events are emitted to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for provisioning events (default fleet-provisioning-events).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the event worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the event worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint is the OTLP gRPC collector address; empty installs no-op providers.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	return LoadWithFlags(nil)
}

// LoadWithFlags is Load with flags registered by RegisterFlags taking precedence over env and .env
// when they are set on the command line.
func LoadWithFlags(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("WIALON_API_URL", "https://hst-api.wialon.com")
	v.SetDefault("WIALON_API_TOKEN", "")
	v.SetDefault("WIALON_ADMIN_ID", 0)
	v.SetDefault("WIALON_DEFAULT_PLAN", DefaultPlan)
	v.SetDefault("WIALON_TIMEOUT", "30s")
	v.SetDefault("WIALON_RATE_LIMIT", 10)
	v.SetDefault("WIALON_RATE_BURST", 5)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("PROVISION_POLICY_FILE", "")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "fleet-provisioning-events")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "fleet-provisioning-worker")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "fleet-provisioning")

	if fs != nil {
		if err := bindFlags(v, fs); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.WialonAPIURL == "" {
		return nil, errors.New("config: WIALON_API_URL must be set")
	}
	if cfg.WialonAdminID < 0 {
		return nil, errors.New("config: WIALON_ADMIN_ID must not be negative")
	}
	if cfg.WialonRateLimit < 0 {
		return nil, errors.New("config: WIALON_RATE_LIMIT must not be negative")
	}
	if cfg.WialonRateBurst <= 0 {
		cfg.WialonRateBurst = 1
	}
	if cfg.WialonDefaultPlan == "" {
		cfg.WialonDefaultPlan = DefaultPlan
	}
	if cfg.Env == "production" && cfg.WialonToken == "" {
		return nil, errors.New("config: WIALON_API_TOKEN must be set when APP_ENV=production")
	}

	return &cfg, nil
}

// flagKeys maps CLI flag names to config keys.
var flagKeys = map[string]string{
	"api-url":  "WIALON_API_URL",
	"token":    "WIALON_API_TOKEN",
	"admin-id": "WIALON_ADMIN_ID",
	"plan":     "WIALON_DEFAULT_PLAN",
	"timeout":  "WIALON_TIMEOUT",
	"database": "DATABASE_URL",
	"policy":   "PROVISION_POLICY_FILE",
}

// RegisterFlags adds the config-backed flags to fs. Unset flags fall back to env and defaults.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("api-url", "", "Wialon Remote API host (WIALON_API_URL)")
	fs.String("token", "", "Wialon API token (WIALON_API_TOKEN)")
	fs.Int64("admin-id", 0, "platform administrator user id (WIALON_ADMIN_ID)")
	fs.String("plan", "", "default billing plan (WIALON_DEFAULT_PLAN)")
	fs.String("timeout", "", "per-call timeout, e.g. 30s (WIALON_TIMEOUT)")
	fs.String("database", "", "Postgres DSN (DATABASE_URL)")
	fs.String("policy", "", "Rego provisioning policy file (PROVISION_POLICY_FILE)")
}

func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Timeout parses WialonTimeout as a time.Duration. Returns 30s if unset or invalid.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.WialonTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

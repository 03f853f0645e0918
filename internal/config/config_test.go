package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_Defaults(t *testing.T) {
	// Clear environment
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.WialonAPIURL != "https://hst-api.wialon.com" {
		t.Errorf("WialonAPIURL = %q, want default", cfg.WialonAPIURL)
	}
	if cfg.WialonDefaultPlan != DefaultPlan {
		t.Errorf("WialonDefaultPlan = %q, want %q", cfg.WialonDefaultPlan, DefaultPlan)
	}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s", cfg.Timeout())
	}
	if cfg.WialonRateLimit != 10 || cfg.WialonRateBurst != 5 {
		t.Errorf("rate = %v/%d, want 10/5", cfg.WialonRateLimit, cfg.WialonRateBurst)
	}
	if cfg.TelemetryKafkaTopic != "fleet-provisioning-events" {
		t.Errorf("TelemetryKafkaTopic = %q, want default", cfg.TelemetryKafkaTopic)
	}
	if cfg.KafkaGroupID != "fleet-provisioning-worker" {
		t.Errorf("KafkaGroupID = %q, want default", cfg.KafkaGroupID)
	}
	if cfg.ServiceName != "fleet-provisioning" {
		t.Errorf("ServiceName = %q, want default", cfg.ServiceName)
	}
	if cfg.TelemetryKafkaBrokersList() != nil {
		t.Error("TelemetryKafkaBrokersList should be nil by default")
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("WIALON_API_URL", "https://hst-api.example.test")
	os.Setenv("WIALON_API_TOKEN", "abc123")
	os.Setenv("WIALON_ADMIN_ID", "27884511")
	os.Setenv("WIALON_TIMEOUT", "5s")
	os.Setenv("WIALON_RATE_LIMIT", "2.5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WialonAPIURL != "https://hst-api.example.test" {
		t.Errorf("WialonAPIURL = %q", cfg.WialonAPIURL)
	}
	if cfg.WialonToken != "abc123" {
		t.Errorf("WialonToken = %q, want %q", cfg.WialonToken, "abc123")
	}
	if cfg.WialonAdminID != 27884511 {
		t.Errorf("WialonAdminID = %d, want 27884511", cfg.WialonAdminID)
	}
	if cfg.Timeout() != 5*time.Second {
		t.Errorf("Timeout() = %v, want 5s", cfg.Timeout())
	}
	if cfg.WialonRateLimit != 2.5 {
		t.Errorf("WialonRateLimit = %v, want 2.5", cfg.WialonRateLimit)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"negative admin id", map[string]string{"WIALON_ADMIN_ID": "-1"}},
		{"negative rate", map[string]string{"WIALON_RATE_LIMIT": "-3"}},
		{"production without token", map[string]string{"APP_ENV": "production"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("Load: want error")
			}
		})
	}
}

func TestLoadWithFlags_FlagWinsOverEnv(t *testing.T) {
	os.Clearenv()
	os.Setenv("WIALON_API_TOKEN", "from-env")
	os.Setenv("WIALON_DEFAULT_PLAN", "env_plan")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--token", "from-flag", "--admin-id", "42"}); err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cfg, err := LoadWithFlags(fs)
	if err != nil {
		t.Fatalf("LoadWithFlags: %v", err)
	}
	if cfg.WialonToken != "from-flag" {
		t.Errorf("WialonToken = %q, want from-flag", cfg.WialonToken)
	}
	if cfg.WialonAdminID != 42 {
		t.Errorf("WialonAdminID = %d, want 42", cfg.WialonAdminID)
	}
	if cfg.WialonDefaultPlan != "env_plan" {
		t.Errorf("unset flag overrode env: WialonDefaultPlan = %q", cfg.WialonDefaultPlan)
	}
}

func TestTimeout_Invalid(t *testing.T) {
	cfg := &Config{WialonTimeout: "soon"}
	if cfg.Timeout() != 30*time.Second {
		t.Errorf("Timeout() = %v, want 30s fallback", cfg.Timeout())
	}
}

func TestTelemetryKafkaBrokersList(t *testing.T) {
	tests := []struct {
		name    string
		brokers string
		want    []string
	}{
		{"empty", "", nil},
		{"single", "localhost:9092", []string{"localhost:9092"}},
		{"multiple with spaces", " a:9092 , b:9092,, ", []string{"a:9092", "b:9092"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{TelemetryKafkaBrokers: tt.brokers}
			got := cfg.TelemetryKafkaBrokersList()
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d (%v)", len(got), len(tt.want), got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
	var nilCfg *Config
	if nilCfg.TelemetryKafkaBrokersList() != nil {
		t.Error("nil config should return nil")
	}
}

package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.SessionTTL != "336h" {
		t.Errorf("SessionTTL = %q, want %q", cfg.SessionTTL, "336h")
	}
	if cfg.SessionTouchInterval != "5m" {
		t.Errorf("SessionTouchInterval = %q, want %q", cfg.SessionTouchInterval, "5m")
	}
	if cfg.LoginMaxAttempts != 5 {
		t.Errorf("LoginMaxAttempts = %d, want 5", cfg.LoginMaxAttempts)
	}
	if cfg.LoginWindow != "15m" {
		t.Errorf("LoginWindow = %q, want %q", cfg.LoginWindow, "15m")
	}
	if cfg.LoginBlockDuration != "15m" {
		t.Errorf("LoginBlockDuration = %q, want %q", cfg.LoginBlockDuration, "15m")
	}
	if cfg.ScryptN != 32768 || cfg.ScryptR != 8 || cfg.ScryptP != 1 {
		t.Errorf("scrypt params = %d/%d/%d, want 32768/8/1", cfg.ScryptN, cfg.ScryptR, cfg.ScryptP)
	}
	if cfg.AuthBootstrapSecret != "" {
		t.Error("AuthBootstrapSecret should default to empty (bootstrap disabled)")
	}
	if cfg.AuditKafkaTopic != "asset-manager-audit" {
		t.Errorf("AuditKafkaTopic = %q, want default", cfg.AuditKafkaTopic)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("LOGIN_MAX_ATTEMPTS", "3")
	os.Setenv("SESSION_TTL", "24h")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if cfg.LoginMaxAttempts != 3 {
		t.Errorf("LoginMaxAttempts = %d, want 3", cfg.LoginMaxAttempts)
	}
	if got := cfg.SessionTTLDuration(); got != 24*time.Hour {
		t.Errorf("SessionTTLDuration = %v, want 24h", got)
	}
}

func TestLoad_ScryptNMustBePowerOfTwo(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		err   bool
	}{
		{"default power", "32768", false},
		{"small power", "1024", false},
		{"not a power", "1000", true},
		{"one", "1", true},
		{"zero", "0", true},
		{"negative", "-8", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			os.Setenv("HTTP_ADDR", ":8080")
			os.Setenv("SCRYPT_N", tc.value)

			_, err := Load()
			if tc.err && err == nil {
				t.Fatal("Load should return error")
			}
			if !tc.err && err != nil {
				t.Fatalf("Load: %v", err)
			}
		})
	}
}

func TestLoad_LoginMaxAttemptsMustBePositive(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("LOGIN_MAX_ATTEMPTS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("Load should return error when LOGIN_MAX_ATTEMPTS=0")
	}
}

func TestDurationAccessors_FallBackOnInvalid(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("SESSION_TTL", "invalid")
	os.Setenv("SESSION_TOUCH_INTERVAL", "-1m")
	os.Setenv("LOGIN_WINDOW", "0")
	os.Setenv("LOGIN_BLOCK_DURATION", "nope")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.SessionTTLDuration(); got != 14*24*time.Hour {
		t.Errorf("SessionTTLDuration = %v, want 14d default", got)
	}
	if got := cfg.TouchIntervalDuration(); got != 5*time.Minute {
		t.Errorf("TouchIntervalDuration = %v, want 5m default", got)
	}
	if got := cfg.LoginWindowDuration(); got != 15*time.Minute {
		t.Errorf("LoginWindowDuration = %v, want 15m default", got)
	}
	if got := cfg.LoginBlockDurationValue(); got != 15*time.Minute {
		t.Errorf("LoginBlockDurationValue = %v, want 15m default", got)
	}
}

func TestIsProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("APP_ENV", "production")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true when APP_ENV=production")
	}
}

func TestKafkaBrokersList(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("KAFKA_BROKERS", "b1:9092, b2:9092 ,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.KafkaBrokersList()
	if len(got) != 2 || got[0] != "b1:9092" || got[1] != "b2:9092" {
		t.Errorf("KafkaBrokersList = %v, want [b1:9092 b2:9092]", got)
	}

	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should return nil broker list")
	}
}

func TestCORSAllowedOriginsList(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":8080")
	os.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example.com,http://localhost:3000")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.CORSAllowedOriginsList()
	if len(got) != 2 || got[0] != "https://app.example.com" {
		t.Errorf("CORSAllowedOriginsList = %v", got)
	}
}

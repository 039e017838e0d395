package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validYAML = `
database:
  dsn: "host=localhost user=bot dbname=fieldreports"
rate_limiter:
  url: "http://limiter:9090"
  timeout_seconds: 3
ops:
  listen: ":8080"
limits:
  max_count: 10000
  max_amount: "1000000000000"
  code_length: 6
  max_code_attempts: 3
  lockout_minutes: 15
sessions:
  registration_ttl_minutes: 30
  report_ttl_minutes: 30
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigValid(t *testing.T) {
	if err := LoadConfig(writeConfig(t, validYAML)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := GetConfig()
	if cfg.Limits.CodeLength != 6 {
		t.Fatalf("unexpected code length: %d", cfg.Limits.CodeLength)
	}
	if cfg.RegistrationTTL() != 30*time.Minute {
		t.Fatalf("unexpected fallback TTL: %v", cfg.RegistrationTTL())
	}
	if cfg.Lockout() != 15*time.Minute {
		t.Fatalf("unexpected lockout: %v", cfg.Lockout())
	}
	if cfg.MaxAmountDecimal().IsZero() {
		t.Fatalf("expected parsed amount ceiling")
	}
}

func TestLoadConfigRejectsMissingDSN(t *testing.T) {
	broken := strings.Replace(validYAML, `dsn: "host=localhost user=bot dbname=fieldreports"`, `dsn: ""`, 1)
	err := LoadConfig(writeConfig(t, broken))
	if err == nil || !strings.Contains(err.Error(), "database.dsn") {
		t.Fatalf("expected dsn validation error, got %v", err)
	}
}

func TestLoadConfigRejectsBadAmount(t *testing.T) {
	broken := strings.Replace(validYAML, `max_amount: "1000000000000"`, `max_amount: "lots"`, 1)
	err := LoadConfig(writeConfig(t, broken))
	if err == nil || !strings.Contains(err.Error(), "max_amount") {
		t.Fatalf("expected amount validation error, got %v", err)
	}
}

func TestLoadConfigRejectsZeroTTL(t *testing.T) {
	broken := strings.Replace(validYAML, "registration_ttl_minutes: 30", "registration_ttl_minutes: 0", 1)
	err := LoadConfig(writeConfig(t, broken))
	if err == nil || !strings.Contains(err.Error(), "TTLs") {
		t.Fatalf("expected TTL validation error, got %v", err)
	}
}

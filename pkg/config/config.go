package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the static bot configuration. Session windows here are only the
// fallback: live values come from the per-scope settings table.
type Config struct {
	Database    DatabaseConfig    `yaml:"database"`
	RateLimiter RateLimiterConfig `yaml:"rate_limiter"`
	Ops         OpsConfig         `yaml:"ops"`
	Limits      LimitsConfig      `yaml:"limits"`
	Sessions    SessionsConfig    `yaml:"sessions"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type RateLimiterConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type OpsConfig struct {
	Listen string `yaml:"listen"`
}

type LimitsConfig struct {
	MaxCount        int    `yaml:"max_count"`
	MaxAmount       string `yaml:"max_amount"`
	CodeLength      int    `yaml:"code_length"`
	MaxCodeAttempts int    `yaml:"max_code_attempts"`
	LockoutMinutes  int    `yaml:"lockout_minutes"`
}

type SessionsConfig struct {
	RegistrationTTLMinutes int `yaml:"registration_ttl_minutes"`
	ReportTTLMinutes       int `yaml:"report_ttl_minutes"`
}

func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("config validation failed: database.dsn is required")
	}
	if c.Limits.MaxCount <= 0 {
		return fmt.Errorf("config validation failed: limits.max_count must be positive")
	}
	if c.Limits.MaxAmount != "" {
		if _, err := decimal.NewFromString(c.Limits.MaxAmount); err != nil {
			return fmt.Errorf("config validation failed: limits.max_amount is not a number: %w", err)
		}
	}
	if c.Limits.CodeLength <= 0 {
		return fmt.Errorf("config validation failed: limits.code_length must be positive")
	}
	if c.Limits.MaxCodeAttempts <= 0 {
		return fmt.Errorf("config validation failed: limits.max_code_attempts must be positive")
	}
	if c.Limits.LockoutMinutes <= 0 {
		return fmt.Errorf("config validation failed: limits.lockout_minutes must be positive")
	}
	if c.Sessions.RegistrationTTLMinutes <= 0 || c.Sessions.ReportTTLMinutes <= 0 {
		return fmt.Errorf("config validation failed: sessions fallback TTLs must be positive")
	}
	return nil
}

// MaxAmountDecimal returns the parsed monetary ceiling; zero means unbounded.
func (c *Config) MaxAmountDecimal() decimal.Decimal {
	if c.Limits.MaxAmount == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(c.Limits.MaxAmount)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// RegistrationTTL is the fallback linking window.
func (c *Config) RegistrationTTL() time.Duration {
	return time.Duration(c.Sessions.RegistrationTTLMinutes) * time.Minute
}

// ReportTTL is the fallback report-wizard idle window.
func (c *Config) ReportTTL() time.Duration {
	return time.Duration(c.Sessions.ReportTTLMinutes) * time.Minute
}

// Lockout is the abuse-guard window.
func (c *Config) Lockout() time.Duration {
	return time.Duration(c.Limits.LockoutMinutes) * time.Minute
}

// RateLimiterTimeout bounds the remote limit-check call.
func (c *Config) RateLimiterTimeout() time.Duration {
	if c.RateLimiter.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.RateLimiter.TimeoutSeconds) * time.Second
}

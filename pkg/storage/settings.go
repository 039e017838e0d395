package storage

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"
)

// SettingsRepo resolves per-scope session windows. Values are read from the
// settings table on every call, never cached, so operator changes take effect
// for the next session created.
type SettingsRepo struct {
	db                  *gorm.DB
	defaultRegistration time.Duration
	defaultReport       time.Duration
}

func NewSettingsRepo(db *gorm.DB, defaultRegistration, defaultReport time.Duration) *SettingsRepo {
	return &SettingsRepo{
		db:                  db,
		defaultRegistration: defaultRegistration,
		defaultReport:       defaultReport,
	}
}

// RegistrationTTL returns the linking-session window for scope.
func (r *SettingsRepo) RegistrationTTL(ctx context.Context, scope string) time.Duration {
	if s := r.lookup(ctx, scope); s != nil && s.RegistrationTTLSeconds > 0 {
		return time.Duration(s.RegistrationTTLSeconds) * time.Second
	}
	return r.defaultRegistration
}

// ReportTTL returns the report-wizard idle window for scope.
func (r *SettingsRepo) ReportTTL(ctx context.Context, scope string) time.Duration {
	if s := r.lookup(ctx, scope); s != nil && s.ReportTTLSeconds > 0 {
		return time.Duration(s.ReportTTLSeconds) * time.Second
	}
	return r.defaultReport
}

func (r *SettingsRepo) lookup(ctx context.Context, scope string) *ScopeSettings {
	var s ScopeSettings
	err := r.db.WithContext(ctx).Where("scope = ?", scope).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		log.Printf("[settings] lookup scope %q failed, using defaults: %v", scope, err)
		return nil
	}
	return &s
}

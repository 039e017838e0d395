package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReportRepo persists daily reports, one row per (account, date).
type ReportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) *ReportRepo {
	return &ReportRepo{db: db}
}

// FindMostRecentBefore returns the account's latest report strictly earlier
// than date, or nil. Used only for "previous value" hints.
func (r *ReportRepo) FindMostRecentBefore(ctx context.Context, accountID uint, date time.Time) (*DailyReport, error) {
	var rep DailyReport
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND report_date < ?", accountID, NormalizeDate(date)).
		Order("report_date DESC").
		First(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reports: find most recent before: %w", err)
	}
	return &rep, nil
}

// FindExisting returns the account's report for exactly date, or nil.
func (r *ReportRepo) FindExisting(ctx context.Context, accountID uint, date time.Time) (*DailyReport, error) {
	var rep DailyReport
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND report_date = ?", accountID, NormalizeDate(date)).
		First(&rep).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reports: find existing: %w", err)
	}
	return &rep, nil
}

// Upsert writes the report idempotently: a second submission for the same
// (account, date) replaces the field values of the first, never duplicates.
func (r *ReportRepo) Upsert(ctx context.Context, rep *DailyReport) error {
	rep.ReportDate = NormalizeDate(rep.ReportDate)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}, {Name: "report_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"appointments_booked", "first_meetings_held", "refusals",
			"refusal_reason", "warming_count", "second_meetings_held",
			"contract_reviews", "pushes", "successful_deals", "sales_amount",
			"updated_at",
		}),
	}).Create(rep).Error
	if err != nil {
		return fmt.Errorf("reports: upsert: %w", err)
	}
	return nil
}

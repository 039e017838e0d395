package storage

import (
	"time"

	"github.com/shopspring/decimal"

	"fieldreportbot/pkg/report"
)

// Account is a field-staff account created by the back office. Linking a chat
// identity happens through a one-time code written into PendingCode together
// with its expiry.
type Account struct {
	ID            uint   `gorm:"primaryKey"`
	Name          string `gorm:"not null"`
	Scope         string `gorm:"index;default:default"`
	Active        bool   `gorm:"default:true"`
	TelegramID    *int64 `gorm:"uniqueIndex"`
	PendingCode   *string
	CodeExpiresAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DailyReport is one stored activity report, unique per (account, date).
type DailyReport struct {
	ID                 uint      `gorm:"primaryKey"`
	AccountID          uint      `gorm:"uniqueIndex:idx_reports_account_date;not null"`
	ReportDate         time.Time `gorm:"uniqueIndex:idx_reports_account_date;not null"`
	AppointmentsBooked int
	FirstMeetingsHeld  int
	Refusals           int
	RefusalReason      string
	WarmingCount       int
	SecondMeetingsHeld int
	ContractReviews    int
	Pushes             int
	SuccessfulDeals    int
	SalesAmount        decimal.Decimal `gorm:"type:numeric"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ScopeSettings holds operator-tunable session windows per organizational
// scope. Absent rows fall back to configured defaults.
type ScopeSettings struct {
	Scope                  string `gorm:"primaryKey"`
	RegistrationTTLSeconds int
	ReportTTLSeconds       int
	UpdatedAt              time.Time
}

// Fields converts the stored row into the wizard's accumulator shape.
func (r *DailyReport) Fields() report.Fields {
	return report.Fields{
		AppointmentsBooked: r.AppointmentsBooked,
		FirstMeetingsHeld:  r.FirstMeetingsHeld,
		Refusals:           r.Refusals,
		RefusalReason:      r.RefusalReason,
		WarmingCount:       r.WarmingCount,
		SecondMeetingsHeld: r.SecondMeetingsHeld,
		ContractReviews:    r.ContractReviews,
		Pushes:             r.Pushes,
		SuccessfulDeals:    r.SuccessfulDeals,
		SalesAmount:        r.SalesAmount,
	}
}

// NewDailyReport builds a row from collected fields. The date is normalized
// to midnight UTC so equality lookups behave the same on every backend.
func NewDailyReport(accountID uint, date time.Time, f report.Fields) *DailyReport {
	return &DailyReport{
		AccountID:          accountID,
		ReportDate:         NormalizeDate(date),
		AppointmentsBooked: f.AppointmentsBooked,
		FirstMeetingsHeld:  f.FirstMeetingsHeld,
		Refusals:           f.Refusals,
		RefusalReason:      f.RefusalReason,
		WarmingCount:       f.WarmingCount,
		SecondMeetingsHeld: f.SecondMeetingsHeld,
		ContractReviews:    f.ContractReviews,
		Pushes:             f.Pushes,
		SuccessfulDeals:    f.SuccessfulDeals,
		SalesAmount:        f.SalesAmount,
	}
}

// NormalizeDate truncates a timestamp to its calendar day in UTC.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

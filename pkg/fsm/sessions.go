package fsm

import (
	"context"
	"time"

	"github.com/looplab/fsm"

	"fieldreportbot/pkg/guard"
	"fieldreportbot/pkg/report"
	"fieldreportbot/pkg/storage"
)

// RegistrationSession is the account-linking conversation. Its existence in
// the store means the user is awaiting a code; the window is fixed from
// creation and never refreshed.
type RegistrationSession struct {
	ExpiresAt time.Time
}

// ReportSession is the report wizard's accumulator. Its TTL is sliding: every
// accepted field re-Puts the session, so an actively-progressing user is
// never cut off.
type ReportSession struct {
	AccountID uint
	Scope     string
	Step      Step
	// ReportDate is fixed once chosen at StepDate and immutable thereafter.
	ReportDate time.Time
	Fields     report.Fields
	// Prior is a read-only snapshot of the most recent strictly-earlier
	// report, fetched once when the date is chosen. Never written back.
	Prior *storage.DailyReport
	TTL   time.Duration
	// OverwriteConfirmed distinguishes the first submit attempt from a
	// resubmission after the duplicate warning.
	OverwriteConfirmed bool
	LastMessageID      int

	// phase guards the coarse wizard transitions: collecting can never be
	// re-entered from a confirm state.
	phase *fsm.FSM
}

func newWizardFSM() *fsm.FSM {
	return fsm.NewFSM(
		StateCollecting,
		fsm.Events{
			{Name: EventFieldsComplete, Src: []string{StateCollecting}, Dst: StateConfirm},
			{Name: EventDuplicateFound, Src: []string{StateConfirm}, Dst: StateConfirmOverwrite},
		},
		fsm.Callbacks{},
	)
}

// NewReportSession starts a wizard at the date step.
func NewReportSession(accountID uint, scope string, ttl time.Duration) *ReportSession {
	return &ReportSession{
		AccountID: accountID,
		Scope:     scope,
		Step:      StepDate,
		TTL:       ttl,
		phase:     newWizardFSM(),
	}
}

// Phase reports the coarse wizard state (collecting / confirm / confirm_overwrite).
func (s *ReportSession) Phase() string {
	return s.phase.Current()
}

// completeFields moves the wizard to the confirm phase once the last field is in.
func (s *ReportSession) completeFields(ctx context.Context) error {
	if err := s.phase.Event(ctx, EventFieldsComplete); err != nil {
		return err
	}
	s.Step = StepConfirm
	return nil
}

// markDuplicate records that a report for the chosen date already exists and
// an explicit overwrite confirmation is required.
func (s *ReportSession) markDuplicate(ctx context.Context) error {
	if err := s.phase.Event(ctx, EventDuplicateFound); err != nil {
		return err
	}
	s.OverwriteConfirmed = true
	s.Step = StepConfirmOverwrite
	return nil
}

// AccountRepository is the machines' view of the account store.
type AccountRepository interface {
	FindActiveByTelegramID(ctx context.Context, telegramID int64) (*storage.Account, error)
	FindByPendingCode(ctx context.Context, code string) (*storage.Account, error)
	BindTelegramID(ctx context.Context, accountID uint, telegramID int64) error
	ClearPendingCode(ctx context.Context, accountID uint) error
}

// ReportRepository is the machines' view of the report store.
type ReportRepository interface {
	FindMostRecentBefore(ctx context.Context, accountID uint, date time.Time) (*storage.DailyReport, error)
	FindExisting(ctx context.Context, accountID uint, date time.Time) (*storage.DailyReport, error)
	Upsert(ctx context.Context, rep *storage.DailyReport) error
}

// SettingsProvider supplies session windows per organizational scope,
// re-fetched at session creation.
type SettingsProvider interface {
	RegistrationTTL(ctx context.Context, scope string) time.Duration
	ReportTTL(ctx context.Context, scope string) time.Duration
}

// RateLimiter is the remote limit-check service.
type RateLimiter interface {
	Check(ctx context.Context, identifier, action string) (guard.Decision, error)
}

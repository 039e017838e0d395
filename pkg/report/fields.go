package report

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fields is the accumulator of one daily activity report, filled one field per
// accepted input by the report wizard.
type Fields struct {
	AppointmentsBooked int
	FirstMeetingsHeld  int
	Refusals           int
	RefusalReason      string
	WarmingCount       int
	SecondMeetingsHeld int
	ContractReviews    int
	Pushes             int
	SuccessfulDeals    int
	SalesAmount        decimal.Decimal
}

// FunnelError describes the first adjacent-stage violation found in a report.
type FunnelError struct {
	Earlier      string
	Later        string
	EarlierCount int
	LaterCount   int
}

func (e *FunnelError) Error() string {
	return fmt.Sprintf("funnel violation: %s (%d) exceeds %s (%d)",
		e.Later, e.LaterCount, e.Earlier, e.EarlierCount)
}

// Message renders the violation for the user.
func (e *FunnelError) Message() string {
	return fmt.Sprintf("⚠️ Несостыковка в воронке: «%s» (%d) не может быть больше, чем «%s» (%d). Проверьте цифры и начните отчёт заново.",
		e.Later, e.LaterCount, e.Earlier, e.EarlierCount)
}

// CheckFunnel verifies that no later pipeline stage exceeds the immediately
// preceding one. Run only at submit time, once the full ordered set is known.
func (f Fields) CheckFunnel() error {
	stages := []struct {
		label string
		count int
	}{
		{"Назначено встреч", f.AppointmentsBooked},
		{"Проведено первых встреч", f.FirstMeetingsHeld},
		{"Проведено вторых встреч", f.SecondMeetingsHeld},
		{"Разборов договора", f.ContractReviews},
		{"Дожимов", f.Pushes},
		{"Успешных сделок", f.SuccessfulDeals},
	}
	for i := 1; i < len(stages); i++ {
		if stages[i].count > stages[i-1].count {
			return &FunnelError{
				Earlier:      stages[i-1].label,
				Later:        stages[i].label,
				EarlierCount: stages[i-1].count,
				LaterCount:   stages[i].count,
			}
		}
	}
	return nil
}

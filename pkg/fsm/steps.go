package fsm

import (
	"fmt"
	"strconv"
)

// Step is the wizard's position in the ordered field sequence. Adding a field
// means extending this enum and every switch over it; the compiler and the
// default-panics below make a forgotten handler loud.
type Step int

const (
	StepDate Step = iota
	StepAppointmentsBooked
	StepFirstMeetingsHeld
	StepRefusals
	StepRefusalReason
	StepWarmingCount
	StepSecondMeetingsHeld
	StepContractReviews
	StepPushes
	StepSuccessfulDeals
	StepSalesAmount
	StepConfirm
	StepConfirmOverwrite
)

func (s Step) String() string {
	switch s {
	case StepDate:
		return "date"
	case StepAppointmentsBooked:
		return "appointments_booked"
	case StepFirstMeetingsHeld:
		return "first_meetings_held"
	case StepRefusals:
		return "refusals"
	case StepRefusalReason:
		return "refusal_reason"
	case StepWarmingCount:
		return "warming_count"
	case StepSecondMeetingsHeld:
		return "second_meetings_held"
	case StepContractReviews:
		return "contract_reviews"
	case StepPushes:
		return "pushes"
	case StepSuccessfulDeals:
		return "successful_deals"
	case StepSalesAmount:
		return "sales_amount"
	case StepConfirm:
		return "confirm"
	case StepConfirmOverwrite:
		return "confirm_overwrite"
	}
	return fmt.Sprintf("step(%d)", int(s))
}

// next returns the step that follows s given the collected values so far.
// The refusal-reason step only exists when at least one refusal was entered.
func (s *ReportSession) next(after Step) Step {
	if after == StepRefusals && s.Fields.Refusals == 0 {
		return StepWarmingCount
	}
	if after == StepSalesAmount {
		return StepConfirm
	}
	return after + 1
}

// prompt renders the question for a field step, with the previous report's
// value appended as a hint when one exists.
func (s *ReportSession) prompt(step Step) string {
	base := ""
	switch step {
	case StepAppointmentsBooked:
		base = "Сколько встреч назначено?"
	case StepFirstMeetingsHeld:
		base = "Сколько первых встреч проведено?"
	case StepRefusals:
		base = "Сколько отказов?"
	case StepRefusalReason:
		return "Укажите причину отказов:"
	case StepWarmingCount:
		base = "Сколько прогревов?"
	case StepSecondMeetingsHeld:
		base = "Сколько вторых встреч проведено?"
	case StepContractReviews:
		base = "Сколько разборов договора?"
	case StepPushes:
		base = "Сколько дожимов?"
	case StepSuccessfulDeals:
		base = "Сколько успешных сделок?"
	case StepSalesAmount:
		base = "Сумма продаж за день (₽)?"
	default:
		return ""
	}
	if hint := s.priorHint(step); hint != "" {
		return base + " " + hint
	}
	return base
}

// priorHint renders "(прошлый отчёт: N)" from the read-only prior snapshot.
func (s *ReportSession) priorHint(step Step) string {
	p := s.Prior
	if p == nil {
		return ""
	}
	var v string
	switch step {
	case StepAppointmentsBooked:
		v = strconv.Itoa(p.AppointmentsBooked)
	case StepFirstMeetingsHeld:
		v = strconv.Itoa(p.FirstMeetingsHeld)
	case StepRefusals:
		v = strconv.Itoa(p.Refusals)
	case StepWarmingCount:
		v = strconv.Itoa(p.WarmingCount)
	case StepSecondMeetingsHeld:
		v = strconv.Itoa(p.SecondMeetingsHeld)
	case StepContractReviews:
		v = strconv.Itoa(p.ContractReviews)
	case StepPushes:
		v = strconv.Itoa(p.Pushes)
	case StepSuccessfulDeals:
		v = strconv.Itoa(p.SuccessfulDeals)
	case StepSalesAmount:
		v = p.SalesAmount.String()
	default:
		return ""
	}
	return fmt.Sprintf("(прошлый отчёт: %s)", v)
}

package report

import (
	"fmt"
	"strings"
	"time"
)

// RenderPreview renders the confirm-step summary of a collected report.
func RenderPreview(date time.Time, f Fields) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 Отчёт за %s:\n\n", FormatDate(date)))
	sb.WriteString(fmt.Sprintf("Назначено встреч: %d\n", f.AppointmentsBooked))
	sb.WriteString(fmt.Sprintf("Проведено первых встреч: %d\n", f.FirstMeetingsHeld))
	sb.WriteString(fmt.Sprintf("Отказов: %d\n", f.Refusals))
	if f.Refusals > 0 && f.RefusalReason != "" {
		sb.WriteString(fmt.Sprintf("Причина отказов: %s\n", f.RefusalReason))
	}
	sb.WriteString(fmt.Sprintf("Прогревов: %d\n", f.WarmingCount))
	sb.WriteString(fmt.Sprintf("Проведено вторых встреч: %d\n", f.SecondMeetingsHeld))
	sb.WriteString(fmt.Sprintf("Разборов договора: %d\n", f.ContractReviews))
	sb.WriteString(fmt.Sprintf("Дожимов: %d\n", f.Pushes))
	sb.WriteString(fmt.Sprintf("Успешных сделок: %d\n", f.SuccessfulDeals))
	sb.WriteString(fmt.Sprintf("Сумма продаж: %s ₽\n", f.SalesAmount.String()))
	return sb.String()
}

package fsm

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fieldreportbot/pkg/report"
	"fieldreportbot/pkg/storage"
)

// happyInputs satisfies the funnel: 8 ≥ 4 ≥ 2 ≥ 1 ≥ 1 ≥ 1, zero refusals so
// the reason step is skipped.
var happyInputs = []string{"8", "4", "0", "13", "2", "1", "1", "1", "1000"}

// driveToConfirm runs /report, picks today and feeds each input in order.
func driveToConfirm(t *testing.T, env *testEnv, inputs []string) {
	t.Helper()
	ctx := context.Background()
	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackDatePrefix+DateToday, 1))
	for _, in := range inputs {
		env.machine.HandleUpdate(ctx, textUpdate(in))
	}
}

func TestReportRequiresLinkedAccount(t *testing.T) {
	env := defaultEnv()
	env.machine.HandleUpdate(context.Background(), commandUpdate("report"))
	if got := lastText(t, env.adapter); got != msgNotLinked {
		t.Fatalf("expected not-linked reply, got %q", got)
	}
	if env.machine.ReportSessions() != 0 {
		t.Fatalf("no wizard session may exist for an unlinked user")
	}
}

func TestReportWizardHappyPath(t *testing.T) {
	env := defaultEnv()
	acc := linkedAccount(env, "Иван")
	ctx := context.Background()

	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	if got := lastText(t, env.adapter); got != msgChooseDate {
		t.Fatalf("expected date menu, got %q", got)
	}
	if env.adapter.LastCall("send_message").Markup == nil {
		t.Fatalf("date menu sent without keyboard")
	}

	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackDatePrefix+DateToday, 1))
	if got := env.adapter.LastCall("edit_message").Text; !strings.Contains(got, "Сколько встреч назначено?") {
		t.Fatalf("expected first field prompt after date choice, got %q", got)
	}

	for _, in := range happyInputs {
		env.machine.HandleUpdate(ctx, textUpdate(in))
	}
	preview := lastText(t, env.adapter)
	if !strings.Contains(preview, "Отчёт за") || !strings.Contains(preview, msgConfirmPrompt) {
		t.Fatalf("expected preview with confirm prompt, got %q", preview)
	}

	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackActionPrefix+ActionSubmit, 5))

	if env.reports.count() != 1 {
		t.Fatalf("expected exactly one stored report, got %d", env.reports.count())
	}
	today := storage.NormalizeDate(time.Now())
	rep, err := env.reports.FindExisting(ctx, acc.ID, today)
	if err != nil || rep == nil {
		t.Fatalf("stored report not found for today: %v", err)
	}
	if rep.AppointmentsBooked != 8 || rep.FirstMeetingsHeld != 4 || rep.Refusals != 0 ||
		rep.WarmingCount != 13 || rep.SecondMeetingsHeld != 2 || rep.ContractReviews != 1 ||
		rep.Pushes != 1 || rep.SuccessfulDeals != 1 {
		t.Fatalf("stored counts diverge from inputs: %+v", rep)
	}
	if !rep.SalesAmount.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("stored amount = %s, want 1000", rep.SalesAmount)
	}
	if env.machine.ReportSessions() != 0 {
		t.Fatalf("wizard session survived submission")
	}
	if got := env.adapter.LastCall("edit_message").Text; !strings.Contains(got, "сохранён") {
		t.Fatalf("expected saved confirmation, got %q", got)
	}
}

func TestRefusalReasonStepAppearsWhenRefusalsPositive(t *testing.T) {
	env := defaultEnv()
	acc := linkedAccount(env, "A")
	ctx := context.Background()

	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackDatePrefix+DateToday, 1))
	for _, in := range []string{"8", "4", "2"} {
		env.machine.HandleUpdate(ctx, textUpdate(in))
	}
	if got := lastText(t, env.adapter); !strings.Contains(got, "причину отказов") {
		t.Fatalf("expected refusal reason prompt, got %q", got)
	}
	env.machine.HandleUpdate(ctx, textUpdate("Дорого"))
	if got := lastText(t, env.adapter); !strings.Contains(got, "прогревов") {
		t.Fatalf("expected warming prompt after reason, got %q", got)
	}
	for _, in := range []string{"13", "2", "1", "1", "1", "500,50"} {
		env.machine.HandleUpdate(ctx, textUpdate(in))
	}
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackActionPrefix+ActionSubmit, 5))

	rep, _ := env.reports.FindExisting(ctx, acc.ID, storage.NormalizeDate(time.Now()))
	if rep == nil || rep.RefusalReason != "Дорого" {
		t.Fatalf("refusal reason not stored: %+v", rep)
	}
	if !rep.SalesAmount.Equal(decimal.RequireFromString("500.5")) {
		t.Fatalf("comma amount not normalized: %s", rep.SalesAmount)
	}
}

func TestWizardRejectsInvalidInputAndStays(t *testing.T) {
	env := defaultEnv()
	linkedAccount(env, "B")
	ctx := context.Background()

	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackDatePrefix+DateToday, 1))

	env.machine.HandleUpdate(ctx, textUpdate("abc"))
	if got := lastText(t, env.adapter); got != msgCountNotANumber {
		t.Fatalf("expected not-a-number feedback, got %q", got)
	}
	env.machine.HandleUpdate(ctx, textUpdate("-3"))
	if got := lastText(t, env.adapter); got != msgCountNegative {
		t.Fatalf("expected negative feedback, got %q", got)
	}
	env.machine.HandleUpdate(ctx, textUpdate("999999999"))
	if got := lastText(t, env.adapter); got != msgCountTooLarge {
		t.Fatalf("expected too-large feedback, got %q", got)
	}

	// A valid value finally advances to the next question.
	env.machine.HandleUpdate(ctx, textUpdate("5"))
	if got := lastText(t, env.adapter); !strings.Contains(got, "первых встреч") {
		t.Fatalf("expected next prompt after valid input, got %q", got)
	}
}

func TestTextDuringDateStepRepeatsMenu(t *testing.T) {
	env := defaultEnv()
	linkedAccount(env, "C")
	ctx := context.Background()

	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	env.machine.HandleUpdate(ctx, textUpdate("вчера"))
	if got := lastText(t, env.adapter); got != msgUseDateButtons {
		t.Fatalf("expected date-buttons reminder, got %q", got)
	}
}

func TestFunnelViolationKeepsSession(t *testing.T) {
	env := defaultEnv()
	linkedAccount(env, "D")
	ctx := context.Background()

	// Deals (3) exceed pushes (0): rejected at submit, not during entry.
	driveToConfirm(t, env, []string{"8", "4", "0", "13", "2", "1", "0", "3", "1000"})
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackActionPrefix+ActionSubmit, 5))

	if got := lastText(t, env.adapter); !strings.Contains(got, "Несостыковка в воронке") {
		t.Fatalf("expected funnel rejection, got %q", got)
	}
	if env.reports.count() != 0 {
		t.Fatalf("funnel-rejected report must not be stored")
	}
	if env.machine.ReportSessions() != 1 {
		t.Fatalf("session must survive a funnel rejection")
	}

	// The user can still cancel cleanly.
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackActionPrefix+ActionCancel, 5))
	if env.machine.ReportSessions() != 0 {
		t.Fatalf("cancel after rejection did not clear the session")
	}
}

func TestOverwriteFlowStoresSecondSubmission(t *testing.T) {
	env := defaultEnv()
	acc := linkedAccount(env, "E")
	ctx := context.Background()
	today := storage.NormalizeDate(time.Now())

	old := storage.NewDailyReport(acc.ID, today, report.Fields{
		AppointmentsBooked: 1, SalesAmount: decimal.NewFromInt(1),
	})
	if err := env.reports.Upsert(ctx, old); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}
	env.reports.upserts = 0

	driveToConfirm(t, env, happyInputs)
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackActionPrefix+ActionSubmit, 5))

	if got := env.adapter.LastCall("edit_message").Text; !strings.Contains(got, "уже есть отчёт") {
		t.Fatalf("expected overwrite warning, got %q", got)
	}
	if env.reports.upserts != 0 {
		t.Fatalf("first submit must not write before confirmation")
	}

	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackActionPrefix+ActionOverwrite, 5))
	if env.reports.upserts != 1 {
		t.Fatalf("overwrite wrote %d times, want 1", env.reports.upserts)
	}
	if env.reports.count() != 1 {
		t.Fatalf("overwrite must keep a single row per date, got %d", env.reports.count())
	}
	rep, _ := env.reports.FindExisting(ctx, acc.ID, today)
	if rep.AppointmentsBooked != 8 {
		t.Fatalf("stored row still holds the old values: %+v", rep)
	}
	if env.machine.ReportSessions() != 0 {
		t.Fatalf("session survived overwrite submission")
	}
}

func TestWizardExpiryMidFlow(t *testing.T) {
	env := newTestEnv(fakeSettings{registration: time.Minute, report: 30 * time.Millisecond})
	linkedAccount(env, "F")
	ctx := context.Background()

	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackDatePrefix+DateToday, 1))
	time.Sleep(100 * time.Millisecond)

	env.machine.HandleUpdate(ctx, textUpdate("8"))
	if got := lastText(t, env.adapter); got != msgNoActiveDialog {
		t.Fatalf("expected restart instruction after expiry, got %q", got)
	}
	if env.reports.count() != 0 {
		t.Fatalf("expired wizard must not persist anything")
	}
}

func TestSlidingTTLRefreshesOnEachField(t *testing.T) {
	env := newTestEnv(fakeSettings{registration: time.Minute, report: 200 * time.Millisecond})
	linkedAccount(env, "G")
	ctx := context.Background()

	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackDatePrefix+DateToday, 1))

	// Each accepted field re-arms the idle window, so steady progress at
	// sub-TTL pace keeps the session alive well past one window.
	for _, in := range []string{"8", "4", "0"} {
		time.Sleep(120 * time.Millisecond)
		env.machine.HandleUpdate(ctx, textUpdate(in))
	}
	if env.machine.ReportSessions() != 1 {
		t.Fatalf("session expired despite steady progress")
	}
}

func TestStaleCallbackWithoutSession(t *testing.T) {
	env := defaultEnv()
	ctx := context.Background()

	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackActionPrefix+ActionSubmit, 5))
	calls := env.adapter.CallsFor("answer_callback")
	if len(calls) != 2 {
		t.Fatalf("expected ack + stale toast, got %d answer calls", len(calls))
	}
	if calls[1].Text != msgStaleButton {
		t.Fatalf("expected stale-button toast, got %q", calls[1].Text)
	}
	if env.reports.count() != 0 {
		t.Fatalf("stale callback must not store anything")
	}
}

func TestSubmitWhileStillCollectingIsStale(t *testing.T) {
	env := defaultEnv()
	linkedAccount(env, "H")
	ctx := context.Background()

	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackDatePrefix+DateToday, 1))
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackActionPrefix+ActionSubmit, 5))

	calls := env.adapter.CallsFor("answer_callback")
	if calls[len(calls)-1].Text != msgStaleButton {
		t.Fatalf("expected stale toast for premature submit, got %q", calls[len(calls)-1].Text)
	}
	if env.reports.count() != 0 {
		t.Fatalf("premature submit must not store anything")
	}
}

func TestPriorReportHintShown(t *testing.T) {
	env := defaultEnv()
	acc := linkedAccount(env, "I")
	ctx := context.Background()

	yesterday := storage.NormalizeDate(time.Now()).AddDate(0, 0, -1)
	prior := storage.NewDailyReport(acc.ID, yesterday, report.Fields{
		AppointmentsBooked: 7, SalesAmount: decimal.NewFromInt(900),
	})
	if err := env.reports.Upsert(ctx, prior); err != nil {
		t.Fatalf("seed upsert: %v", err)
	}

	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackDatePrefix+DateToday, 1))
	if got := env.adapter.LastCall("edit_message").Text; !strings.Contains(got, "(прошлый отчёт: 7)") {
		t.Fatalf("expected prior-report hint, got %q", got)
	}
}

func TestFreshReportCommandRestartsWizard(t *testing.T) {
	env := defaultEnv()
	linkedAccount(env, "J")
	ctx := context.Background()

	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	env.machine.HandleUpdate(ctx, callbackUpdate(CallbackDatePrefix+DateToday, 1))
	env.machine.HandleUpdate(ctx, textUpdate("8"))

	// A second /report discards the half-filled wizard and starts over at
	// the date menu.
	env.machine.HandleUpdate(ctx, commandUpdate("report"))
	if got := lastText(t, env.adapter); got != msgChooseDate {
		t.Fatalf("expected date menu after restart, got %q", got)
	}
	if env.machine.ReportSessions() != 1 {
		t.Fatalf("restart must leave exactly one session, got %d", env.machine.ReportSessions())
	}
}

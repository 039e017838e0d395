package fsm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fieldreportbot/pkg/report"
	"fieldreportbot/pkg/session"
	"fieldreportbot/pkg/storage"
)

// startReport begins (or restarts) the report wizard for key.
func (m *Machine) startReport(ctx context.Context, key session.Key) {
	chatID := key.ChatID

	acc, err := m.accounts.FindActiveByTelegramID(ctx, key.UserID)
	if err != nil {
		log.Printf("[startReport] account lookup failed for user %d: %v", key.UserID, err)
		m.send(ctx, chatID, msgInternalError, nil)
		return
	}
	if acc == nil {
		m.send(ctx, chatID, msgNotLinked, nil)
		return
	}

	// A fresh /report discards any half-filled wizard.
	m.wizard.Clear(key)

	ttl := m.settings.ReportTTL(ctx, acc.Scope)
	sess := NewReportSession(acc.ID, acc.Scope, ttl)
	m.wizard.Put(key, sess, ttl)
	log.Printf("[startReport] user %d started wizard for account %d, idle window %s", key.UserID, acc.ID, ttl)

	sent := m.send(ctx, chatID, msgChooseDate, dateKeyboard())
	sess.LastMessageID = sent.MessageID
}

func dateKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnToday, CallbackDatePrefix+DateToday),
			tgbotapi.NewInlineKeyboardButtonData(btnYesterday, CallbackDatePrefix+DateYesterday),
			tgbotapi.NewInlineKeyboardButtonData(btnBeforeYesterday, CallbackDatePrefix+DateBeforeYesterday),
		),
	)
}

func confirmKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnSubmit, CallbackActionPrefix+ActionSubmit),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, CallbackActionPrefix+ActionCancel),
		),
	)
}

func overwriteKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(btnOverwrite, CallbackActionPrefix+ActionOverwrite),
			tgbotapi.NewInlineKeyboardButtonData(btnCancel, CallbackActionPrefix+ActionCancel),
		),
	)
}

// handleDateChoice fixes the report date from the menu callback, fetches the
// prior-report snapshot for hints and advances to the first numeric field.
func (m *Machine) handleDateChoice(ctx context.Context, key session.Key, sess *ReportSession, chatID int64, messageID int, callbackID, value string) {
	if sess.Step != StepDate {
		_ = m.bot.AnswerCallback(ctx, callbackID, msgStaleButton)
		return
	}

	date := storage.NormalizeDate(m.now())
	switch value {
	case DateToday:
	case DateYesterday:
		date = date.AddDate(0, 0, -1)
	case DateBeforeYesterday:
		date = date.AddDate(0, 0, -2)
	default:
		log.Printf("[handleDateChoice] unknown date value '%s' from user %d", value, key.UserID)
		return
	}

	prior, err := m.reports.FindMostRecentBefore(ctx, sess.AccountID, date)
	if err != nil {
		// Hints are optional; the wizard proceeds without them.
		log.Printf("[handleDateChoice] prior report lookup failed for account %d: %v", sess.AccountID, err)
		prior = nil
	}

	sess.ReportDate = date
	sess.Prior = prior
	sess.Step = StepAppointmentsBooked
	m.wizard.Put(key, sess, sess.TTL)

	text := fmt.Sprintf("Отчёт за %s.\n\n%s", report.FormatDate(date), sess.prompt(sess.Step))
	sent := m.edit(ctx, chatID, messageID, text, nil)
	sess.LastMessageID = sent.MessageID
}

// handleFieldInput processes one inbound text within the wizard.
func (m *Machine) handleFieldInput(ctx context.Context, key session.Key, sess *ReportSession, text string) {
	chatID := key.ChatID

	switch sess.Step {
	case StepDate:
		m.send(ctx, chatID, msgUseDateButtons, dateKeyboard())
		return
	case StepConfirm, StepConfirmOverwrite:
		m.send(ctx, chatID, msgConfirmPrompt, nil)
		return
	case StepRefusalReason:
		reason := strings.TrimSpace(text)
		if reason == "" {
			m.send(ctx, chatID, msgReasonEmpty, nil)
			return
		}
		sess.Fields.RefusalReason = reason
	case StepSalesAmount:
		amount, err := report.ParseAmount(text, m.limits.MaxAmount)
		if err != nil {
			m.send(ctx, chatID, amountFeedback(err), nil)
			return
		}
		sess.Fields.SalesAmount = amount
	default:
		n, err := report.ParseCount(text, m.limits.MaxCount)
		if err != nil {
			m.send(ctx, chatID, countFeedback(err), nil)
			return
		}
		m.assignCount(sess, n)
	}

	m.advance(ctx, key, sess)
}

// assignCount writes a validated count into the field the wizard is on.
func (m *Machine) assignCount(sess *ReportSession, n int) {
	switch sess.Step {
	case StepAppointmentsBooked:
		sess.Fields.AppointmentsBooked = n
	case StepFirstMeetingsHeld:
		sess.Fields.FirstMeetingsHeld = n
	case StepRefusals:
		sess.Fields.Refusals = n
	case StepWarmingCount:
		sess.Fields.WarmingCount = n
	case StepSecondMeetingsHeld:
		sess.Fields.SecondMeetingsHeld = n
	case StepContractReviews:
		sess.Fields.ContractReviews = n
	case StepPushes:
		sess.Fields.Pushes = n
	case StepSuccessfulDeals:
		sess.Fields.SuccessfulDeals = n
	default:
		panic(fmt.Sprintf("assignCount called on non-count step %s", sess.Step))
	}
}

// advance moves to the next step, refreshes the sliding TTL and sends the
// next prompt (or the confirm preview).
func (m *Machine) advance(ctx context.Context, key session.Key, sess *ReportSession) {
	chatID := key.ChatID
	next := sess.next(sess.Step)

	if next == StepConfirm {
		if err := sess.completeFields(ctx); err != nil {
			log.Printf("[advance] illegal fields_complete transition for user %d: %v", key.UserID, err)
			m.wizard.Clear(key)
			m.send(ctx, chatID, msgInternalError, nil)
			return
		}
		m.wizard.Put(key, sess, sess.TTL)
		preview := report.RenderPreview(sess.ReportDate, sess.Fields)
		sent := m.send(ctx, chatID, preview+"\n"+msgConfirmPrompt, confirmKeyboard())
		sess.LastMessageID = sent.MessageID
		return
	}

	sess.Step = next
	m.wizard.Put(key, sess, sess.TTL)
	m.send(ctx, chatID, sess.prompt(next), nil)
}

// handleConfirmAction routes the submit/overwrite/cancel callbacks.
func (m *Machine) handleConfirmAction(ctx context.Context, key session.Key, sess *ReportSession, chatID int64, messageID int, callbackID, value string) {
	switch value {
	case ActionCancel:
		// Cancel at any confirm-like step destroys the session unconditionally.
		m.wizard.Clear(key)
		m.edit(ctx, chatID, messageID, msgCancelled, emptyKeyboard())
	case ActionSubmit:
		if sess.Phase() == StateCollecting {
			_ = m.bot.AnswerCallback(ctx, callbackID, msgStaleButton)
			return
		}
		m.submit(ctx, key, sess, chatID, messageID)
	case ActionOverwrite:
		if sess.Phase() != StateConfirmOverwrite {
			_ = m.bot.AnswerCallback(ctx, callbackID, msgStaleButton)
			return
		}
		m.submit(ctx, key, sess, chatID, messageID)
	default:
		log.Printf("[handleConfirmAction] unknown action '%s' from user %d", value, key.UserID)
	}
}

// submit runs the funnel check and persists the report, detouring through the
// overwrite confirmation when a report for the date already exists.
func (m *Machine) submit(ctx context.Context, key session.Key, sess *ReportSession, chatID int64, messageID int) {
	if err := sess.Fields.CheckFunnel(); err != nil {
		var fe *report.FunnelError
		if errors.As(err, &fe) {
			// The session survives: the user may cancel and redo instead of
			// losing input silently.
			m.send(ctx, chatID, fe.Message(), nil)
			return
		}
		log.Printf("[submit] funnel check failed unexpectedly for user %d: %v", key.UserID, err)
		m.send(ctx, chatID, msgInternalError, nil)
		return
	}

	if !sess.OverwriteConfirmed {
		existing, err := m.reports.FindExisting(ctx, sess.AccountID, sess.ReportDate)
		if err != nil {
			log.Printf("[submit] existing report lookup failed for account %d: %v", sess.AccountID, err)
			m.send(ctx, chatID, msgInternalError, nil)
			return
		}
		if existing != nil {
			if err := sess.markDuplicate(ctx); err != nil {
				log.Printf("[submit] illegal duplicate_found transition for user %d: %v", key.UserID, err)
				m.wizard.Clear(key)
				m.send(ctx, chatID, msgInternalError, nil)
				return
			}
			m.wizard.Put(key, sess, sess.TTL)
			warning := fmt.Sprintf(msgOverwriteWarning, report.FormatDate(sess.ReportDate))
			m.edit(ctx, chatID, messageID, warning, overwriteKeyboard())
			return
		}
	}

	rep := storage.NewDailyReport(sess.AccountID, sess.ReportDate, sess.Fields)
	if err := m.reports.Upsert(ctx, rep); err != nil {
		log.Printf("[submit] upsert failed for account %d date %s: %v",
			sess.AccountID, report.FormatDate(sess.ReportDate), err)
		m.send(ctx, chatID, msgInternalError, nil)
		return
	}

	m.wizard.Clear(key)
	log.Printf("[submit] report stored for account %d date %s", sess.AccountID, report.FormatDate(sess.ReportDate))
	m.edit(ctx, chatID, messageID, fmt.Sprintf(msgReportSaved, report.FormatDate(sess.ReportDate)), emptyKeyboard())
}

func emptyKeyboard() *tgbotapi.InlineKeyboardMarkup {
	return &tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}
}

func countFeedback(err error) string {
	switch {
	case errors.Is(err, report.ErrNegative):
		return msgCountNegative
	case errors.Is(err, report.ErrTooLarge):
		return msgCountTooLarge
	default:
		return msgCountNotANumber
	}
}

func amountFeedback(err error) string {
	switch {
	case errors.Is(err, report.ErrNegative):
		return msgAmountNegative
	case errors.Is(err, report.ErrTooLarge):
		return msgAmountTooLarge
	default:
		return msgAmountInvalid
	}
}

package fsm

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"fieldreportbot/pkg/guard"
	"fieldreportbot/pkg/ports/botport"
	"fieldreportbot/pkg/session"
)

// Limits are the input validation ceilings applied by the wizard.
type Limits struct {
	MaxCount   int
	MaxAmount  decimal.Decimal
	CodeLength int
}

// Deps are the external collaborators both machines run against.
type Deps struct {
	Bot      botport.BotPort
	Accounts AccountRepository
	Reports  ReportRepository
	Settings SettingsProvider
	Limiter  RateLimiter
	Guard    *guard.AbuseGuard
	Limits   Limits
}

// Machine owns the two conversation state machines and their session stores.
// Events for different keys may run concurrently; events for the same key are
// serialized by a per-key lock, so each session's transitions are strictly
// ordered by arrival.
type Machine struct {
	bot      botport.BotPort
	accounts AccountRepository
	reports  ReportRepository
	settings SettingsProvider
	limiter  RateLimiter
	guard    *guard.AbuseGuard
	limits   Limits

	registration *session.Store[*RegistrationSession]
	wizard       *session.Store[*ReportSession]

	locksMu sync.Mutex
	locks   map[session.Key]*sync.Mutex

	now func() time.Time
}

func NewMachine(deps Deps) *Machine {
	m := &Machine{
		bot:      deps.Bot,
		accounts: deps.Accounts,
		reports:  deps.Reports,
		settings: deps.Settings,
		limiter:  deps.Limiter,
		guard:    deps.Guard,
		limits:   deps.Limits,
		locks:    make(map[session.Key]*sync.Mutex),
		now:      time.Now,
	}
	if m.limiter == nil {
		m.limiter = guard.AllowAllLimiter{}
	}
	// Session teardown is the single place attempt records are reset; wiring
	// it here keeps the two tables from drifting.
	m.registration = session.NewStore(session.WithOnClear[*RegistrationSession](m.guard.Reset))
	m.wizard = session.NewStore[*ReportSession]()
	return m
}

// RegistrationSessions reports the live linking-session count, for ops.
func (m *Machine) RegistrationSessions() int { return m.registration.Len() }

// ReportSessions reports the live wizard-session count, for ops.
func (m *Machine) ReportSessions() int { return m.wizard.Len() }

// ActiveLockouts reports keys inside a lockout window, for ops.
func (m *Machine) ActiveLockouts() int { return m.guard.ActiveLockouts() }

// HandleUpdate processes one inbound Telegram update to completion.
func (m *Machine) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	var from *tgbotapi.User
	var chatID int64

	if update.Message != nil {
		if update.Message.From == nil {
			log.Printf("Warning: Received message with nil From field")
			return
		}
		from = update.Message.From
		chatID = update.Message.Chat.ID
	} else if update.CallbackQuery != nil {
		if update.CallbackQuery.From == nil {
			log.Printf("Warning: Received callback with nil From field")
			return
		}
		from = update.CallbackQuery.From
		if update.CallbackQuery.Message == nil || update.CallbackQuery.Message.Chat == nil {
			log.Printf("Warning: Received callback query with nil Message or Chat field")
			return
		}
		chatID = update.CallbackQuery.Message.Chat.ID
	} else {
		return
	}

	key := session.Key{ChatID: chatID, UserID: from.ID}

	lock := m.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	if update.Message != nil {
		m.handleMessage(ctx, key, update.Message)
	} else {
		m.handleCallback(ctx, key, update.CallbackQuery)
	}
}

func (m *Machine) handleMessage(ctx context.Context, key session.Key, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := msg.Text

	if msg.IsCommand() {
		switch msg.Command() {
		case CommandStart:
			m.send(ctx, chatID, msgGreeting, nil)
		case CommandLink:
			m.startRegistration(ctx, key)
		case CommandReport:
			m.startReport(ctx, key)
		case CommandCancel:
			m.cancelAny(ctx, key)
		default:
			m.send(ctx, chatID, msgUnknownCommand, nil)
		}
		return
	}

	if _, ok := m.registration.Get(key); ok {
		m.handleCodeAttempt(ctx, key, text)
		return
	}
	if sess, ok := m.wizard.Get(key); ok {
		m.handleFieldInput(ctx, key, sess, text)
		return
	}

	// No live session: absent and expired look the same, both recover by
	// restarting.
	m.send(ctx, chatID, msgNoActiveDialog, nil)
}

func (m *Machine) handleCallback(ctx context.Context, key session.Key, query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	messageID := query.Message.MessageID
	data := query.Data

	if err := m.bot.AnswerCallback(ctx, query.ID, ""); err != nil {
		log.Printf("[handleCallback] Error answering callback %s for user %d: %v", query.ID, key.UserID, err)
	}

	parts := strings.SplitN(data, ":", 2)
	prefix := parts[0] + ":"
	value := ""
	if len(parts) > 1 {
		value = parts[1]
	}

	sess, ok := m.wizard.Get(key)
	if !ok {
		// The keyboard outlived its session.
		_ = m.bot.AnswerCallback(ctx, query.ID, msgStaleButton)
		return
	}

	switch prefix {
	case CallbackDatePrefix:
		m.handleDateChoice(ctx, key, sess, chatID, messageID, query.ID, value)
	case CallbackActionPrefix:
		m.handleConfirmAction(ctx, key, sess, chatID, messageID, query.ID, value)
	default:
		log.Printf("[handleCallback] Unknown callback prefix '%s' from user %d", prefix, key.UserID)
	}
}

func (m *Machine) cancelAny(ctx context.Context, key session.Key) {
	if _, ok := m.registration.Get(key); ok {
		m.registration.Clear(key)
		m.send(ctx, key.ChatID, msgLinkCancelled, nil)
		return
	}
	if _, ok := m.wizard.Get(key); ok {
		m.wizard.Clear(key)
		m.send(ctx, key.ChatID, msgReportCancelled, nil)
		return
	}
	m.send(ctx, key.ChatID, msgNothingToCancel, nil)
}

func (m *Machine) lockFor(key session.Key) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[key]
	if !ok {
		l = &sync.Mutex{}
		m.locks[key] = l
	}
	return l
}

// send fires a best-effort, single-attempt outbound message.
func (m *Machine) send(ctx context.Context, chatID int64, text string, markup interface{}) botport.BotMessage {
	msg, err := m.bot.SendMessage(ctx, chatID, text, markup)
	if err != nil {
		log.Printf("[send] Error sending message to chat %d: %v", chatID, err)
	}
	return msg
}

// edit updates a prompt in place, falling back to a fresh send when the edit
// is rejected for any reason other than an unchanged message.
func (m *Machine) edit(ctx context.Context, chatID int64, messageID int, text string, markup interface{}) botport.BotMessage {
	msg, err := m.bot.EditMessage(ctx, chatID, messageID, text, markup)
	if err != nil {
		if botport.IsCode(err, "message_not_modified") {
			return botport.BotMessage{ChatID: chatID, MessageID: messageID}
		}
		log.Printf("[edit] Error editing message %d in chat %d: %v. Sending new message.", messageID, chatID, err)
		return m.send(ctx, chatID, text, markup)
	}
	return msg
}

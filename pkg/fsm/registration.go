package fsm

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"fieldreportbot/pkg/report"
	"fieldreportbot/pkg/session"
)

// defaultScope is used before a chat identity is bound to an account, when
// the organizational scope is not yet known.
const defaultScope = "default"

// startRegistration begins the account-linking conversation for key.
func (m *Machine) startRegistration(ctx context.Context, key session.Key) {
	chatID := key.ChatID

	decision, err := m.limiter.Check(ctx, strconv.FormatInt(key.UserID, 10), RateLimitActionRegister)
	if err != nil {
		log.Printf("[startRegistration] rate limiter check failed for user %d: %v", key.UserID, err)
		m.send(ctx, chatID, msgInternalError, nil)
		return
	}
	if !decision.Allowed {
		log.Printf("[startRegistration] user %d throttled until %s", key.UserID, decision.ResetAt)
		m.send(ctx, chatID, msgThrottled, nil)
		return
	}

	acc, err := m.accounts.FindActiveByTelegramID(ctx, key.UserID)
	if err != nil {
		log.Printf("[startRegistration] account lookup failed for user %d: %v", key.UserID, err)
		m.send(ctx, chatID, msgInternalError, nil)
		return
	}
	if acc != nil {
		m.send(ctx, chatID, fmt.Sprintf(msgAlreadyLinked, acc.Name), nil)
		return
	}

	// A time-based lockout is honored even across an intentional restart.
	if blocked, remaining := m.guard.IsBlocked(key); blocked {
		m.send(ctx, chatID, fmt.Sprintf(msgLockedOut, report.Minutes(remaining)), nil)
		return
	}

	// Clear tears down any previous linking session and, through the store
	// hook, wipes the stale attempt count for this key.
	m.registration.Clear(key)

	ttl := m.settings.RegistrationTTL(ctx, defaultScope)
	m.registration.Put(key, &RegistrationSession{ExpiresAt: m.now().Add(ttl)}, ttl)
	log.Printf("[startRegistration] user %d awaiting code, window %s", key.UserID, ttl)

	m.send(ctx, chatID, msgAskCode, nil)
}

// handleCodeAttempt processes one inbound text while awaiting a linking code.
// The blocked check runs before anything else so rapid submissions during a
// lockout never increment the counter further.
func (m *Machine) handleCodeAttempt(ctx context.Context, key session.Key, text string) {
	chatID := key.ChatID

	if blocked, remaining := m.guard.IsBlocked(key); blocked {
		m.send(ctx, chatID, fmt.Sprintf(msgLockedOut, report.Minutes(remaining)), nil)
		return
	}

	if !report.CodeValid(text, m.limits.CodeLength) {
		m.recordCodeFailure(ctx, key, fmt.Sprintf(msgCodeMalformed, m.limits.CodeLength))
		return
	}

	acc, err := m.accounts.FindByPendingCode(ctx, text)
	if err != nil {
		log.Printf("[handleCodeAttempt] pending code lookup failed for user %d: %v", key.UserID, err)
		m.send(ctx, chatID, msgInternalError, nil)
		return
	}
	if acc == nil {
		m.recordCodeFailure(ctx, key, msgCodeNotFound)
		return
	}

	if err := m.accounts.ClearPendingCode(ctx, acc.ID); err != nil {
		log.Printf("[handleCodeAttempt] clear pending code failed for account %d: %v", acc.ID, err)
		// Account state may be half-applied; tear the session down rather
		// than leave an inconsistent step live.
		m.registration.Clear(key)
		m.send(ctx, chatID, msgInternalError, nil)
		return
	}
	if err := m.accounts.BindTelegramID(ctx, acc.ID, key.UserID); err != nil {
		log.Printf("[handleCodeAttempt] bind failed for account %d: %v", acc.ID, err)
		m.registration.Clear(key)
		m.send(ctx, chatID, msgInternalError, nil)
		return
	}

	// Clear also resets the attempt record via the store hook.
	m.registration.Clear(key)
	log.Printf("[handleCodeAttempt] user %d bound to account %d ('%s')", key.UserID, acc.ID, acc.Name)
	m.send(ctx, chatID, fmt.Sprintf(msgLinkSuccess, acc.Name), nil)
}

// recordCodeFailure counts one failed attempt and reports either the lockout
// or the specific rejection with attempts remaining.
func (m *Machine) recordCodeFailure(ctx context.Context, key session.Key, reason string) {
	rec := m.guard.RecordFailure(key)
	if blocked, remaining := m.guard.IsBlocked(key); blocked {
		m.send(ctx, key.ChatID, fmt.Sprintf(msgLockedOut, report.Minutes(remaining)), nil)
		return
	}
	m.send(ctx, key.ChatID, reason+" "+fmt.Sprintf(msgAttemptsLeft, m.guard.AttemptsLeft(rec)), nil)
}

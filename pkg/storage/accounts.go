package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// AccountRepo gives the registration machine its view of accounts.
type AccountRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{db: db, now: time.Now}
}

// FindActiveByTelegramID returns the active account already bound to the
// given chat identity, or nil when there is none.
func (r *AccountRepo) FindActiveByTelegramID(ctx context.Context, telegramID int64) (*Account, error) {
	var acc Account
	err := r.db.WithContext(ctx).
		Where("telegram_id = ? AND active = ?", telegramID, true).
		First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: find by telegram id: %w", err)
	}
	return &acc, nil
}

// FindByPendingCode returns the account holding a matching, non-expired
// one-time code, or nil on a miss. Expired codes are indistinguishable from
// absent ones by design.
func (r *AccountRepo) FindByPendingCode(ctx context.Context, code string) (*Account, error) {
	var acc Account
	err := r.db.WithContext(ctx).
		Where("pending_code = ? AND code_expires_at > ?", code, r.now()).
		First(&acc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("accounts: find by pending code: %w", err)
	}
	return &acc, nil
}

// BindTelegramID attaches the chat identity to an account.
func (r *AccountRepo) BindTelegramID(ctx context.Context, accountID uint, telegramID int64) error {
	err := r.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", accountID).
		Update("telegram_id", telegramID).Error
	if err != nil {
		return fmt.Errorf("accounts: bind telegram id: %w", err)
	}
	return nil
}

// ClearPendingCode burns the one-time code after a successful bind.
func (r *AccountRepo) ClearPendingCode(ctx context.Context, accountID uint) error {
	err := r.db.WithContext(ctx).Model(&Account{}).
		Where("id = ?", accountID).
		Updates(map[string]interface{}{"pending_code": nil, "code_expires_at": nil}).Error
	if err != nil {
		return fmt.Errorf("accounts: clear pending code: %w", err)
	}
	return nil
}

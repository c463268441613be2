package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds the custodial balance for one (user, currency) pair.
// Hold is the portion of Balance reserved against outbound operations
// still in flight; only Balance - Hold is spendable.
type Wallet struct {
	ID        uint            `gorm:"primarykey" json:"id"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_wallets_user_currency" json:"user_id"`
	Currency  string          `gorm:"size:10;not null;uniqueIndex:idx_wallets_user_currency" json:"currency"`
	Balance   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"balance"`
	Hold      decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"hold"`
	Address   string          `gorm:"index" json:"address"` // external deposit address, assigned elsewhere
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// AvailableBalance returns the spendable portion: balance minus hold.
func (w *Wallet) AvailableBalance() decimal.Decimal {
	return w.Balance.Sub(w.Hold)
}

// HasSufficientFunds reports whether the available balance covers amount.
func (w *Wallet) HasSufficientFunds(amount decimal.Decimal) bool {
	return w.AvailableBalance().GreaterThanOrEqual(amount)
}

// HoldFunds reserves amount against the available balance. It returns
// false without mutating the wallet when the available balance is short.
func (w *Wallet) HoldFunds(amount decimal.Decimal) bool {
	if !w.HasSufficientFunds(amount) {
		return false
	}
	w.Hold = w.Hold.Add(amount)
	return true
}

// ReleaseFunds lowers the hold by amount, flooring at zero. The floor is
// a safety net against double releases, not a license for them.
func (w *Wallet) ReleaseFunds(amount decimal.Decimal) {
	w.Hold = w.Hold.Sub(amount)
	if w.Hold.IsNegative() {
		w.Hold = decimal.Zero
	}
}

// Debit lowers the balance by amount. It returns false without mutating
// the wallet when the balance is short.
func (w *Wallet) Debit(amount decimal.Decimal) bool {
	if w.Balance.LessThan(amount) {
		return false
	}
	w.Balance = w.Balance.Sub(amount)
	return true
}

// Credit raises the balance by amount unconditionally.
func (w *Wallet) Credit(amount decimal.Decimal) {
	w.Balance = w.Balance.Add(amount)
}

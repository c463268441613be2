package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types
const (
	TypeDeposit    = "deposit"
	TypeWithdrawal = "withdrawal"
	TypeFee        = "fee"
	TypeTransfer   = "transfer" // reserved, no operation creates it yet
	TypeRefund     = "refund"
)

// Transaction statuses
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// statusTransitions is the ledger state machine. Completed, failed and
// cancelled are terminal.
var statusTransitions = map[string][]string{
	StatusPending:    {StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled},
	StatusProcessing: {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted:  {},
	StatusFailed:     {},
	StatusCancelled:  {},
}

// Transaction is one immutable ledger entry explaining a balance or hold
// change. Amount is signed: positive credits the wallet, negative debits
// it. The sign never changes after creation. Metadata carries an
// append-only "logs" audit trail; entries are never rewritten.
type Transaction struct {
	ID            uint            `gorm:"primarykey" json:"id"`
	Txid          string          `gorm:"index" json:"txid"` // external chain reference, not unique
	Reference     string          `gorm:"size:36" json:"reference"`
	UserID        uint            `gorm:"not null;index:idx_transactions_user_status" json:"user_id"`
	WalletID      uint            `gorm:"not null;index" json:"wallet_id"`
	Type          string          `gorm:"size:20;not null" json:"type"`
	Status        string          `gorm:"size:20;not null;default:'pending';index:idx_transactions_user_status" json:"status"`
	Currency      string          `gorm:"size:10;not null" json:"currency"`
	Amount        decimal.Decimal `gorm:"type:decimal(20,8);not null" json:"amount"`
	Fee           decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0" json:"fee"`
	FromAddress   string          `json:"from_address"`
	ToAddress     string          `json:"to_address"`
	Confirmations int             `gorm:"not null;default:0" json:"confirmations"`
	Error         string          `json:"error,omitempty"`
	Metadata      JSON            `gorm:"type:jsonb" json:"metadata"`
	CompletedAt   *time.Time      `json:"completed_at"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsIncoming reports whether the entry credits the wallet.
func (t *Transaction) IsIncoming() bool {
	return t.Amount.Sign() > 0
}

// IsOutgoing reports whether the entry debits the wallet.
func (t *Transaction) IsOutgoing() bool {
	return t.Amount.Sign() < 0
}

// AbsoluteAmount returns the unsigned amount.
func (t *Transaction) AbsoluteAmount() decimal.Decimal {
	return t.Amount.Abs()
}

// TotalAmount returns the unsigned amount plus fee, the figure a
// withdrawal holds and ultimately settles.
func (t *Transaction) TotalAmount() decimal.Decimal {
	return t.Amount.Abs().Add(t.Fee)
}

// IsTerminal reports whether no further status transitions are allowed.
func (t *Transaction) IsTerminal() bool {
	return len(statusTransitions[t.Status]) == 0
}

// CanTransitionTo reports whether the state machine permits moving from
// the current status to next.
func (t *Transaction) CanTransitionTo(next string) bool {
	for _, allowed := range statusTransitions[t.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AppendLog adds one entry to the metadata audit trail. Existing entries
// are left untouched.
func (t *Transaction) AppendLog(message string, context map[string]interface{}) {
	if t.Metadata == nil {
		t.Metadata = JSON{}
	}
	logs, _ := t.Metadata["logs"].([]interface{})
	entry := map[string]interface{}{
		"message": message,
		"time":    time.Now().UTC().Format(time.RFC3339Nano),
	}
	if len(context) > 0 {
		entry["context"] = context
	}
	t.Metadata["logs"] = append(logs, entry)
}

// AuditLog returns the audit trail entries recorded so far.
func (t *Transaction) AuditLog() []interface{} {
	if t.Metadata == nil {
		return nil
	}
	logs, _ := t.Metadata["logs"].([]interface{})
	return logs
}

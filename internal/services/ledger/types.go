package ledger

import (
	"context"

	"coinledger/internal/models"

	"github.com/shopspring/decimal"
)

// Config holds ledger engine configuration.
type Config struct {
	// RequiredConfirmations maps a currency to the confirmation count
	// a pending deposit needs before it is credited.
	RequiredConfirmations map[string]int
	// DefaultConfirmations applies to currencies absent from the map.
	DefaultConfirmations int
	// MaxConflictRetries bounds transparent retries on serialization
	// failures before the error surfaces to the caller.
	MaxConflictRetries int
}

// BalanceSummary is the read-side view of one wallet.
type BalanceSummary struct {
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Hold      decimal.Decimal `json:"hold"`
	Available decimal.Decimal `json:"available"`
}

// CacheOperator is the wallet cache the engine reads through and
// invalidates after every committed mutation.
type CacheOperator interface {
	GetWallet(ctx context.Context, userID uint, currency string) (*models.Wallet, bool, error)
	SetWallet(ctx context.Context, wallet *models.Wallet) error
	InvalidateWallet(ctx context.Context, userID uint, currency string) error
}

// MetricsCollector receives engine metrics. Implementations must be
// safe for concurrent use.
type MetricsCollector interface {
	RecordTransaction(txType string, amount decimal.Decimal)
	RecordError(operation, errType string)
}

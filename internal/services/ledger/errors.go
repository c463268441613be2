package ledger

import "errors"

// Domain errors. These are terminal for the calling request and are
// never retried by the engine; only ErrStorageConflict marks a transient
// failure that already exhausted its retry budget.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrWalletNotFound      = errors.New("wallet not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrStorageConflict     = errors.New("storage conflict")
)

package repositories

import "coinledger/internal/models"

// LedgerRepository is the single store the ledger engine writes through.
// Wallets and transactions live behind one interface so an engine
// operation can mutate both inside one ExecuteInTransaction call.
//
// The ForUpdate variants take a row lock; callers must only use them
// inside ExecuteInTransaction so the lock spans the read-check-write
// sequence.
type LedgerRepository interface {
	// ExecuteInTransaction runs fn against a repository bound to a
	// database transaction. All writes commit together or roll back
	// together.
	ExecuteInTransaction(fn func(LedgerRepository) error) error

	GetWallet(userID uint, currency string) (*models.Wallet, error)
	GetWalletForUpdate(userID uint, currency string) (*models.Wallet, error)
	GetWalletByIDForUpdate(walletID uint) (*models.Wallet, error)
	GetWalletByAddress(address string) (*models.Wallet, error)
	// GetOrCreateWallet returns the locked wallet row for the pair,
	// creating a zero-balance wallet when none exists yet.
	GetOrCreateWallet(userID uint, currency string) (*models.Wallet, error)
	SaveWallet(wallet *models.Wallet) error

	CreateTransaction(txn *models.Transaction) error
	SaveTransaction(txn *models.Transaction) error
	GetTransactionByID(id uint) (*models.Transaction, error)
	GetTransactionByIDForUpdate(id uint) (*models.Transaction, error)
	// GetPendingTransactionForUpdate locates the pending entry for an
	// external txid, locked. Completed entries are deliberately not
	// matched; that filter is what makes confirmation updates
	// idempotent.
	GetPendingTransactionForUpdate(txid string) (*models.Transaction, error)
}

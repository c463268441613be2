package repositories

import (
	"errors"
	"fmt"

	"coinledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ledgerRepository struct {
	db *gorm.DB
}

func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) ExecuteInTransaction(fn func(LedgerRepository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerRepository{db: tx})
	})
}

func (r *ledgerRepository) GetWallet(userID uint, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Where("user_id = ? AND currency = ?", userID, currency).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletForUpdate(userID uint, currency string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ? AND currency = ?", userID, currency).
		First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletByIDForUpdate(walletID uint) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&wallet, walletID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetWalletByAddress(address string) (*models.Wallet, error) {
	var wallet models.Wallet
	err := r.db.Where("address = ?", address).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, fmt.Errorf("failed to get wallet by address: %w", err)
	}
	return &wallet, nil
}

func (r *ledgerRepository) GetOrCreateWallet(userID uint, currency string) (*models.Wallet, error) {
	wallet, err := r.GetWalletForUpdate(userID, currency)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, ErrWalletNotFound) {
		return nil, err
	}

	created := &models.Wallet{
		UserID:   userID,
		Currency: currency,
		Balance:  decimal.Zero,
		Hold:     decimal.Zero,
	}
	if err := r.db.Create(created).Error; err != nil {
		// A concurrent creator may have won the unique(user_id, currency)
		// race. The failed INSERT aborts the enclosing transaction, so
		// no in-transaction recovery is possible here; the engine
		// classifies the unique violation as a storage conflict and
		// reruns the whole operation against the winner's row.
		return nil, fmt.Errorf("failed to create wallet: %w", err)
	}
	return created, nil
}

func (r *ledgerRepository) SaveWallet(wallet *models.Wallet) error {
	if err := r.db.Save(wallet).Error; err != nil {
		return fmt.Errorf("failed to save wallet: %w", err)
	}
	return nil
}

func (r *ledgerRepository) CreateTransaction(txn *models.Transaction) error {
	if err := r.db.Create(txn).Error; err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) SaveTransaction(txn *models.Transaction) error {
	if err := r.db.Save(txn).Error; err != nil {
		return fmt.Errorf("failed to save transaction: %w", err)
	}
	return nil
}

func (r *ledgerRepository) GetTransactionByID(id uint) (*models.Transaction, error) {
	var txn models.Transaction
	if err := r.db.First(&txn, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &txn, nil
}

func (r *ledgerRepository) GetTransactionByIDForUpdate(id uint) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&txn, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to lock transaction: %w", err)
	}
	return &txn, nil
}

func (r *ledgerRepository) GetPendingTransactionForUpdate(txid string) (*models.Transaction, error) {
	var txn models.Transaction
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("txid = ? AND status = ?", txid, models.StatusPending).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to lock pending transaction: %w", err)
	}
	return &txn, nil
}

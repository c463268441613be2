package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinledger/internal/models"
	"coinledger/internal/repositories"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service is the balance ledger engine.
type Service interface {
	// Deposit credits the wallet immediately and records a completed
	// deposit entry. The wallet is created lazily if absent.
	Deposit(ctx context.Context, userID uint, currency string, amount decimal.Decimal, txid string, metadata map[string]interface{}) (*models.Transaction, error)
	// PendingDeposit records an unconfirmed deposit without touching
	// the balance. The wallet is created lazily if absent.
	PendingDeposit(ctx context.Context, userID uint, currency string, amount decimal.Decimal, txid string, confirmations int) (*models.Transaction, error)
	// UpdateConfirmations records a new confirmation count for the
	// pending deposit carrying txid, crediting the wallet and
	// completing the entry once the currency's threshold is reached.
	UpdateConfirmations(ctx context.Context, txid string, confirmations int) (*models.Transaction, error)
	// Withdraw reserves amount+fee on hold and records a processing
	// withdrawal. The caller resolves it via ConfirmWithdrawal or
	// CancelWithdrawal.
	Withdraw(ctx context.Context, userID uint, currency string, amount decimal.Decimal, toAddress string, fee decimal.Decimal) (*models.Transaction, error)
	// ConfirmWithdrawal settles the caller's processing withdrawal:
	// balance and hold both drop by amount+fee. A transaction owned by
	// another user resolves as not found.
	ConfirmWithdrawal(ctx context.Context, userID, transactionID uint, txid string) (*models.Transaction, error)
	// CancelWithdrawal releases the hold, cancels the caller's entry
	// and records a completed refund entry referencing the original. A
	// transaction owned by another user resolves as not found.
	CancelWithdrawal(ctx context.Context, userID, transactionID uint, reason string) (*models.Transaction, error)
	// ChargeFee debits the wallet and records a completed fee entry.
	ChargeFee(ctx context.Context, userID uint, currency string, amount decimal.Decimal, description string) (*models.Transaction, error)

	GetBalance(ctx context.Context, userID uint, currency string) (*BalanceSummary, error)
	FindDepositWallet(ctx context.Context, address string) (*models.Wallet, error)
	GetUserStats(ctx context.Context, userID uint, currency string) (*repositories.UserStats, error)
	SearchTransactions(ctx context.Context, filter repositories.SearchFilter) ([]models.Transaction, error)
}

type service struct {
	repo      repositories.LedgerRepository
	reporting repositories.ReportingRepository
	cache     CacheOperator
	config    Config
	metrics   MetricsCollector
	logger    *zap.Logger
}

// NewService creates the ledger engine.
func NewService(
	repo repositories.LedgerRepository,
	reporting repositories.ReportingRepository,
	cache CacheOperator,
	config Config,
	metrics MetricsCollector,
	logger *zap.Logger,
) Service {
	if repo == nil {
		panic("repo is required")
	}
	if reporting == nil {
		panic("reporting repo is required")
	}
	if cache == nil {
		panic("cache is required")
	}

	if config.RequiredConfirmations == nil {
		config.RequiredConfirmations = defaultConfirmationPolicy()
	}
	if config.DefaultConfirmations <= 0 {
		config.DefaultConfirmations = DefaultRequiredConfirmations
	}
	if config.MaxConflictRetries <= 0 {
		config.MaxConflictRetries = DefaultMaxConflictRetries
	}
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &service{
		repo:      repo,
		reporting: reporting,
		cache:     cache,
		config:    config,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *service) Deposit(ctx context.Context, userID uint, currency string, amount decimal.Decimal, txid string, metadata map[string]interface{}) (*models.Transaction, error) {
	if amount.Sign() <= 0 {
		s.metrics.RecordError("deposit", "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var txn *models.Transaction
	err := s.runAtomic("deposit", func(r repositories.LedgerRepository) error {
		wallet, err := r.GetOrCreateWallet(userID, currency)
		if err != nil {
			return err
		}

		txn = newEntry(wallet, models.TypeDeposit, models.StatusCompleted, amount)
		txn.Txid = txid
		mergeMetadata(txn, metadata)

		wallet.Credit(amount)
		if err := r.SaveWallet(wallet); err != nil {
			return err
		}

		txn.AppendLog("deposit completed", map[string]interface{}{
			"balance_after": wallet.Balance.String(),
		})
		return r.CreateTransaction(txn)
	})
	if err != nil {
		s.metrics.RecordError("deposit", errType(err))
		return nil, err
	}

	s.invalidate(ctx, userID, currency)
	s.metrics.RecordTransaction(models.TypeDeposit, amount)
	s.logger.Info("deposit completed",
		zap.Uint("user_id", userID),
		zap.String("currency", currency),
		zap.String("amount", amount.String()),
		zap.Uint("transaction_id", txn.ID))
	return txn, nil
}

func (s *service) PendingDeposit(ctx context.Context, userID uint, currency string, amount decimal.Decimal, txid string, confirmations int) (*models.Transaction, error) {
	if amount.Sign() <= 0 {
		s.metrics.RecordError("pending_deposit", "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var txn *models.Transaction
	err := s.runAtomic("pending_deposit", func(r repositories.LedgerRepository) error {
		wallet, err := r.GetOrCreateWallet(userID, currency)
		if err != nil {
			return err
		}

		txn = newEntry(wallet, models.TypeDeposit, models.StatusPending, amount)
		txn.Txid = txid
		txn.Confirmations = confirmations
		txn.AppendLog("deposit pending", map[string]interface{}{
			"confirmations": confirmations,
			"required":      s.requiredConfirmations(currency),
		})
		return r.CreateTransaction(txn)
	})
	if err != nil {
		s.metrics.RecordError("pending_deposit", errType(err))
		return nil, err
	}

	s.logger.Info("deposit pending",
		zap.Uint("user_id", userID),
		zap.String("currency", currency),
		zap.String("txid", txid),
		zap.Int("confirmations", confirmations))
	return txn, nil
}

func (s *service) UpdateConfirmations(ctx context.Context, txid string, confirmations int) (*models.Transaction, error) {
	var (
		txn      *models.Transaction
		credited bool
		userID   uint
		currency string
	)
	err := s.runAtomic("update_confirmations", func(r repositories.LedgerRepository) error {
		t, err := r.GetPendingTransactionForUpdate(txid)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}

		required := s.requiredConfirmations(t.Currency)
		t.Confirmations = confirmations
		t.AppendLog("confirmations updated", map[string]interface{}{
			"confirmations": confirmations,
			"required":      required,
		})

		if confirmations >= required {
			wallet, err := r.GetWalletByIDForUpdate(t.WalletID)
			if err != nil {
				return err
			}
			wallet.Credit(t.Amount)
			if err := r.SaveWallet(wallet); err != nil {
				return err
			}
			if err := transition(t, models.StatusCompleted, map[string]interface{}{
				"balance_after": wallet.Balance.String(),
			}); err != nil {
				return err
			}
			credited = true
			userID = wallet.UserID
			currency = wallet.Currency
		}

		txn = t
		return r.SaveTransaction(t)
	})
	if err != nil {
		s.metrics.RecordError("update_confirmations", errType(err))
		return nil, err
	}

	if credited {
		s.invalidate(ctx, userID, currency)
		s.metrics.RecordTransaction(models.TypeDeposit, txn.Amount)
		s.logger.Info("pending deposit confirmed",
			zap.String("txid", txid),
			zap.Uint("transaction_id", txn.ID),
			zap.Int("confirmations", confirmations))
	}
	return txn, nil
}

func (s *service) Withdraw(ctx context.Context, userID uint, currency string, amount decimal.Decimal, toAddress string, fee decimal.Decimal) (*models.Transaction, error) {
	if amount.Sign() <= 0 || fee.Sign() < 0 {
		s.metrics.RecordError("withdraw", "invalid_amount")
		return nil, ErrInvalidAmount
	}
	total := amount.Add(fee)

	var txn *models.Transaction
	err := s.runAtomic("withdraw", func(r repositories.LedgerRepository) error {
		wallet, err := r.GetWalletForUpdate(userID, currency)
		if err != nil {
			if errors.Is(err, repositories.ErrWalletNotFound) {
				return ErrWalletNotFound
			}
			return err
		}

		// Hold and transaction record are one atomic step; a failure
		// anywhere rolls back both, so no partially-applied hold is
		// ever observable.
		if !wallet.HoldFunds(total) {
			return ErrInsufficientFunds
		}
		if err := r.SaveWallet(wallet); err != nil {
			return err
		}

		txn = newEntry(wallet, models.TypeWithdrawal, models.StatusProcessing, amount.Neg())
		txn.Fee = fee
		txn.ToAddress = toAddress
		txn.AppendLog("withdrawal initiated", map[string]interface{}{
			"amount": amount.String(),
			"fee":    fee.String(),
			"total":  total.String(),
		})
		return r.CreateTransaction(txn)
	})
	if err != nil {
		s.metrics.RecordError("withdraw", errType(err))
		return nil, err
	}

	s.invalidate(ctx, userID, currency)
	s.metrics.RecordTransaction(models.TypeWithdrawal, amount)
	s.logger.Info("withdrawal initiated",
		zap.Uint("user_id", userID),
		zap.String("currency", currency),
		zap.String("amount", amount.String()),
		zap.String("fee", fee.String()),
		zap.Uint("transaction_id", txn.ID))
	return txn, nil
}

func (s *service) ConfirmWithdrawal(ctx context.Context, userID, transactionID uint, txid string) (*models.Transaction, error) {
	var txn *models.Transaction
	var currency string
	err := s.runAtomic("confirm_withdrawal", func(r repositories.LedgerRepository) error {
		t, err := r.GetTransactionByIDForUpdate(transactionID)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}
		if t.UserID != userID {
			// never reveal other users' transaction ids
			return ErrTransactionNotFound
		}
		if t.Type != models.TypeWithdrawal {
			return fmt.Errorf("%w: transaction %d is not a withdrawal", ErrInvalidTransition, t.ID)
		}
		if t.Status != models.StatusProcessing {
			return fmt.Errorf("%w: cannot confirm withdrawal in status %s", ErrInvalidTransition, t.Status)
		}

		wallet, err := r.GetWalletByIDForUpdate(t.WalletID)
		if err != nil {
			return err
		}

		total := t.TotalAmount()
		t.Txid = txid
		if err := transition(t, models.StatusCompleted, map[string]interface{}{"txid": txid}); err != nil {
			return err
		}

		if !wallet.Debit(total) {
			return ErrInsufficientFunds
		}
		wallet.ReleaseFunds(total)
		if err := r.SaveWallet(wallet); err != nil {
			return err
		}

		t.AppendLog("withdrawal completed", map[string]interface{}{
			"txid":          txid,
			"balance_after": wallet.Balance.String(),
		})
		txn = t
		currency = wallet.Currency
		return r.SaveTransaction(t)
	})
	if err != nil {
		s.metrics.RecordError("confirm_withdrawal", errType(err))
		return nil, err
	}

	s.invalidate(ctx, userID, currency)
	s.logger.Info("withdrawal completed",
		zap.Uint("transaction_id", txn.ID),
		zap.String("txid", txid))
	return txn, nil
}

func (s *service) CancelWithdrawal(ctx context.Context, userID, transactionID uint, reason string) (*models.Transaction, error) {
	var txn *models.Transaction
	var currency string
	err := s.runAtomic("cancel_withdrawal", func(r repositories.LedgerRepository) error {
		t, err := r.GetTransactionByIDForUpdate(transactionID)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				return ErrTransactionNotFound
			}
			return err
		}
		if t.UserID != userID {
			// never reveal other users' transaction ids
			return ErrTransactionNotFound
		}
		if t.Type != models.TypeWithdrawal {
			return fmt.Errorf("%w: transaction %d is not a withdrawal", ErrInvalidTransition, t.ID)
		}
		if t.Status != models.StatusProcessing && t.Status != models.StatusPending {
			return fmt.Errorf("%w: cannot cancel withdrawal in status %s", ErrInvalidTransition, t.Status)
		}

		wallet, err := r.GetWalletByIDForUpdate(t.WalletID)
		if err != nil {
			return err
		}

		total := t.TotalAmount()
		wallet.ReleaseFunds(total)
		if err := r.SaveWallet(wallet); err != nil {
			return err
		}

		t.Error = reason
		if err := transition(t, models.StatusCancelled, map[string]interface{}{
			"reason":          reason,
			"unlocked_amount": total.String(),
		}); err != nil {
			return err
		}
		if err := r.SaveTransaction(t); err != nil {
			return err
		}

		// Audit record only; the hold release above already restored
		// availability, so the refund carries no balance mutation.
		refund := newEntry(wallet, models.TypeRefund, models.StatusCompleted, total)
		refund.Metadata["original_transaction_id"] = t.ID
		refund.Metadata["reason"] = reason
		refund.AppendLog("refund recorded", map[string]interface{}{
			"original_transaction_id": t.ID,
		})
		if err := r.CreateTransaction(refund); err != nil {
			return err
		}

		txn = t
		currency = wallet.Currency
		return nil
	})
	if err != nil {
		s.metrics.RecordError("cancel_withdrawal", errType(err))
		return nil, err
	}

	s.invalidate(ctx, userID, currency)
	s.logger.Info("withdrawal cancelled",
		zap.Uint("transaction_id", txn.ID),
		zap.String("reason", reason))
	return txn, nil
}

func (s *service) ChargeFee(ctx context.Context, userID uint, currency string, amount decimal.Decimal, description string) (*models.Transaction, error) {
	if amount.Sign() <= 0 {
		s.metrics.RecordError("charge_fee", "invalid_amount")
		return nil, ErrInvalidAmount
	}

	var txn *models.Transaction
	err := s.runAtomic("charge_fee", func(r repositories.LedgerRepository) error {
		wallet, err := r.GetWalletForUpdate(userID, currency)
		if err != nil {
			if errors.Is(err, repositories.ErrWalletNotFound) {
				return ErrWalletNotFound
			}
			return err
		}
		if !wallet.HasSufficientFunds(amount) {
			return ErrInsufficientFunds
		}

		if !wallet.Debit(amount) {
			return ErrInsufficientFunds
		}
		if err := r.SaveWallet(wallet); err != nil {
			return err
		}

		txn = newEntry(wallet, models.TypeFee, models.StatusCompleted, amount.Neg())
		if description != "" {
			txn.Metadata["description"] = description
		}
		txn.AppendLog("fee charged", map[string]interface{}{
			"description":   description,
			"balance_after": wallet.Balance.String(),
		})
		return r.CreateTransaction(txn)
	})
	if err != nil {
		s.metrics.RecordError("charge_fee", errType(err))
		return nil, err
	}

	s.invalidate(ctx, userID, currency)
	s.metrics.RecordTransaction(models.TypeFee, amount)
	s.logger.Info("fee charged",
		zap.Uint("user_id", userID),
		zap.String("currency", currency),
		zap.String("amount", amount.String()))
	return txn, nil
}

func (s *service) GetBalance(ctx context.Context, userID uint, currency string) (*BalanceSummary, error) {
	if wallet, found, err := s.cache.GetWallet(ctx, userID, currency); err == nil && found {
		return summarize(wallet), nil
	}

	wallet, err := s.repo.GetWallet(userID, currency)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			// No wallet yet means a zero balance, not an error.
			return &BalanceSummary{
				Currency:  currency,
				Balance:   decimal.Zero,
				Hold:      decimal.Zero,
				Available: decimal.Zero,
			}, nil
		}
		return nil, err
	}

	if err := s.cache.SetWallet(ctx, wallet); err != nil {
		s.logger.Warn("failed to cache wallet", zap.Error(err))
	}
	return summarize(wallet), nil
}

func (s *service) FindDepositWallet(ctx context.Context, address string) (*models.Wallet, error) {
	wallet, err := s.repo.GetWalletByAddress(address)
	if err != nil {
		if errors.Is(err, repositories.ErrWalletNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return wallet, nil
}

func (s *service) GetUserStats(ctx context.Context, userID uint, currency string) (*repositories.UserStats, error) {
	return s.reporting.GetUserStats(ctx, userID, currency)
}

func (s *service) SearchTransactions(ctx context.Context, filter repositories.SearchFilter) ([]models.Transaction, error) {
	return s.reporting.SearchTransactions(ctx, filter)
}

// runAtomic executes fn inside one storage transaction, retrying a
// bounded number of times when the database reports a serialization
// failure. Domain errors pass through untouched.
func (s *service) runAtomic(operation string, fn func(repositories.LedgerRepository) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = s.repo.ExecuteInTransaction(fn)
		if err == nil {
			return nil
		}
		if !isStorageConflict(err) || attempt >= s.config.MaxConflictRetries {
			break
		}
		s.logger.Warn("retrying after storage conflict",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1))
	}
	if isStorageConflict(err) {
		return fmt.Errorf("%s: %w", operation, ErrStorageConflict)
	}
	return err
}

func (s *service) requiredConfirmations(currency string) int {
	if n, ok := s.config.RequiredConfirmations[currency]; ok {
		return n
	}
	return s.config.DefaultConfirmations
}

func (s *service) invalidate(ctx context.Context, userID uint, currency string) {
	if err := s.cache.InvalidateWallet(ctx, userID, currency); err != nil {
		s.logger.Warn("failed to invalidate wallet cache",
			zap.Uint("user_id", userID),
			zap.String("currency", currency),
			zap.Error(err))
	}
}

// newEntry builds a ledger entry bound to wallet, recording the
// creation audit line. completed_at is set here only for entries born
// completed; transition() handles every later completion.
func newEntry(wallet *models.Wallet, txType, status string, amount decimal.Decimal) *models.Transaction {
	txn := &models.Transaction{
		Reference: uuid.NewString(),
		UserID:    wallet.UserID,
		WalletID:  wallet.ID,
		Type:      txType,
		Status:    status,
		Currency:  wallet.Currency,
		Amount:    amount,
		Fee:       decimal.Zero,
	}
	if status == models.StatusCompleted {
		now := time.Now().UTC()
		txn.CompletedAt = &now
	}
	txn.AppendLog("transaction created", nil)
	return txn
}

// transition validates the status change against the state machine,
// applies it, stamps completed_at on entry into completed and appends
// the audit line in one step.
func transition(txn *models.Transaction, next string, context map[string]interface{}) error {
	if !txn.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, txn.Status, next)
	}
	prev := txn.Status
	txn.Status = next
	if next == models.StatusCompleted && txn.CompletedAt == nil {
		now := time.Now().UTC()
		txn.CompletedAt = &now
	}
	logCtx := map[string]interface{}{"from": prev, "to": next}
	for k, v := range context {
		logCtx[k] = v
	}
	txn.AppendLog("status changed", logCtx)
	return nil
}

func mergeMetadata(txn *models.Transaction, metadata map[string]interface{}) {
	for k, v := range metadata {
		if k == "logs" {
			continue // the audit trail is engine-owned
		}
		txn.Metadata[k] = v
	}
}

func summarize(wallet *models.Wallet) *BalanceSummary {
	return &BalanceSummary{
		Currency:  wallet.Currency,
		Balance:   wallet.Balance,
		Hold:      wallet.Hold,
		Available: wallet.AvailableBalance(),
	}
}

// isStorageConflict classifies transient concurrency failures:
// serialization_failure, deadlock_detected and unique_violation from
// postgres, or the sentinel itself from other stores. A unique
// violation here means two first deposits raced to create the same
// (user, currency) wallet; the rerun locks the winner's row.
func isStorageConflict(err error) bool {
	if errors.Is(err, ErrStorageConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01", "23505":
			return true
		}
	}
	return false
}

func errType(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrWalletNotFound):
		return "wallet_not_found"
	case errors.Is(err, ErrTransactionNotFound):
		return "transaction_not_found"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrStorageConflict):
		return "storage_conflict"
	default:
		return "internal"
	}
}

package repositories

import (
	"context"
	"fmt"
	"time"

	"coinledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SearchFilter narrows a transaction search. Zero values mean "no filter".
type SearchFilter struct {
	UserID    uint
	Currency  string
	Type      string
	Status    string
	Txid      string // substring match
	DateFrom  *time.Time
	DateTo    *time.Time
	AmountMin *decimal.Decimal
	AmountMax *decimal.Decimal
	Limit     int
	Offset    int
}

// UserStats aggregates a user's ledger activity, optionally per currency.
type UserStats struct {
	TotalTransactions   int64               `json:"total_transactions"`
	TotalDeposits       decimal.Decimal     `json:"total_deposits"`
	TotalWithdrawals    decimal.Decimal     `json:"total_withdrawals"`
	TotalFees           decimal.Decimal     `json:"total_fees"`
	PendingTransactions int64               `json:"pending_transactions"`
	LastTransaction     *models.Transaction `json:"last_transaction,omitempty"`
}

// ReportingRepository serves read-only queries over committed ledger state.
type ReportingRepository interface {
	SearchTransactions(ctx context.Context, filter SearchFilter) ([]models.Transaction, error)
	GetUserStats(ctx context.Context, userID uint, currency string) (*UserStats, error)
}

type reportingRepository struct {
	db *gorm.DB
}

func NewReportingRepository(db *gorm.DB) ReportingRepository {
	return &reportingRepository{db: db}
}

func (r *reportingRepository) SearchTransactions(ctx context.Context, filter SearchFilter) ([]models.Transaction, error) {
	query := r.db.WithContext(ctx).Model(&models.Transaction{})

	if filter.UserID != 0 {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Currency != "" {
		query = query.Where("currency = ?", filter.Currency)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Txid != "" {
		query = query.Where("txid LIKE ?", "%"+filter.Txid+"%")
	}
	if filter.DateFrom != nil {
		query = query.Where("created_at >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("created_at <= ?", *filter.DateTo)
	}
	if filter.AmountMin != nil {
		query = query.Where("amount >= ?", *filter.AmountMin)
	}
	if filter.AmountMax != nil {
		query = query.Where("amount <= ?", *filter.AmountMax)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var transactions []models.Transaction
	if err := query.Order("created_at DESC").Find(&transactions).Error; err != nil {
		return nil, fmt.Errorf("failed to search transactions: %w", err)
	}
	return transactions, nil
}

func (r *reportingRepository) GetUserStats(ctx context.Context, userID uint, currency string) (*UserStats, error) {
	stats := &UserStats{
		TotalDeposits:    decimal.Zero,
		TotalWithdrawals: decimal.Zero,
		TotalFees:        decimal.Zero,
	}

	base := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
		if currency != "" {
			q = q.Where("currency = ?", currency)
		}
		return q
	}

	if err := base().Count(&stats.TotalTransactions).Error; err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}

	if err := base().
		Where("type = ? AND status = ?", models.TypeDeposit, models.StatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&stats.TotalDeposits); err != nil {
		return nil, fmt.Errorf("failed to sum deposits: %w", err)
	}

	var withdrawals decimal.Decimal
	if err := base().
		Where("type = ? AND status = ?", models.TypeWithdrawal, models.StatusCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Row().Scan(&withdrawals); err != nil {
		return nil, fmt.Errorf("failed to sum withdrawals: %w", err)
	}
	stats.TotalWithdrawals = withdrawals.Abs()

	if err := base().
		Where("status = ?", models.StatusCompleted).
		Select("COALESCE(SUM(fee), 0)").
		Row().Scan(&stats.TotalFees); err != nil {
		return nil, fmt.Errorf("failed to sum fees: %w", err)
	}

	if err := base().
		Where("status = ?", models.StatusPending).
		Count(&stats.PendingTransactions).Error; err != nil {
		return nil, fmt.Errorf("failed to count pending transactions: %w", err)
	}

	var last models.Transaction
	err := base().Order("created_at DESC").First(&last).Error
	if err == nil {
		stats.LastTransaction = &last
	} else if err != gorm.ErrRecordNotFound {
		return nil, fmt.Errorf("failed to get last transaction: %w", err)
	}

	return stats, nil
}

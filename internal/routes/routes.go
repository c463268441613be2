// Package routes defines the API routing configuration.
// It wires repositories, services and handlers together and registers
// all HTTP routes.
package routes

import (
	"strings"
	"time"

	"coinledger/internal/config"
	"coinledger/internal/handlers"
	"coinledger/internal/repositories"
	"coinledger/internal/services/ledger"
	"coinledger/internal/services/risk"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
func SetupRoutes(app *fiber.App, db *gorm.DB, logger *zap.Logger) {
	ledgerRepo := repositories.NewLedgerRepository(db)
	reportingRepo := repositories.NewReportingRepository(db)

	ledgerService := ledger.NewService(
		ledgerRepo,
		reportingRepo,
		repositories.CacheService,
		ledger.Config{
			MaxConflictRetries: config.GetIntEnv("LEDGER_CONFLICT_RETRIES", ledger.DefaultMaxConflictRetries),
		},
		nil,
		logger,
	)

	riskThreshold, err := decimal.NewFromString(config.GetEnv("RISK_REVIEW_THRESHOLD", "10000"))
	if err != nil {
		riskThreshold = decimal.NewFromInt(10000)
	}
	var blacklist []string
	if raw := config.GetEnv("RISK_ADDRESS_BLACKLIST", ""); raw != "" {
		blacklist = strings.Split(raw, ",")
	}
	riskService := risk.NewService(risk.Config{
		BlacklistedAddresses:  blacklist,
		ManualReviewThreshold: riskThreshold,
	})

	balanceHandler := handlers.NewBalanceHandler(ledgerService)
	transactionHandler := handlers.NewTransactionHandler(ledgerService)
	webhookHandler := handlers.NewWebhookHandler(ledgerService, riskService)

	app.Get("/health", handlers.HealthCheck)

	api := app.Group("/api")
	api.Get("/balance/:currency", balanceHandler.GetBalance)
	api.Post("/withdraw", balanceHandler.Withdraw)
	api.Post("/withdrawals/:id/confirm", balanceHandler.ConfirmWithdrawal)
	api.Post("/withdrawals/:id/cancel", balanceHandler.CancelWithdrawal)
	api.Post("/fees", balanceHandler.ChargeFee)
	api.Get("/transactions", transactionHandler.Search)
	api.Get("/stats", transactionHandler.Stats)

	webhook := app.Group("/webhook", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("WEBHOOK_RATE_LIMIT", 120),
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests",
			})
		},
	}))
	webhook.Post("/transaction", webhookHandler.HandleTransaction)
	webhook.Post("/confirmations", webhookHandler.HandleConfirmations)
}

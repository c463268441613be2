package handlers

import (
	"errors"

	"coinledger/internal/services/ledger"
	"coinledger/internal/services/risk"
	"coinledger/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// WebhookHandler receives deposit notifications from the chain watcher.
// Signature verification happens at the gateway in front of this
// service; here the payload is trusted.
type WebhookHandler struct {
	ledgerService ledger.Service
	riskService   risk.Service
}

func NewWebhookHandler(ledgerService ledger.Service, riskService risk.Service) *WebhookHandler {
	return &WebhookHandler{
		ledgerService: ledgerService,
		riskService:   riskService,
	}
}

// HandleTransaction processes an inbound deposit notification. Deposits
// flagged by the risk service enter the pending/confirmation flow;
// everything else is credited instantly.
func (h *WebhookHandler) HandleTransaction(c *fiber.Ctx) error {
	var input struct {
		Txid          string `json:"txid"`
		FromAddress   string `json:"from_address"`
		ToAddress     string `json:"to_address"`
		Amount        string `json:"amount"`
		Confirmations int    `json:"confirmations"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if input.ToAddress == "" || input.Txid == "" {
		return response.BadRequest(c, "txid and to_address are required")
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		return response.BadRequest(c, "invalid amount")
	}

	wallet, err := h.ledgerService.FindDepositWallet(c.Context(), input.ToAddress)
	if err != nil {
		if errors.Is(err, ledger.ErrWalletNotFound) {
			return response.NotFound(c, "wallet not found")
		}
		return ledgerError(c, err)
	}

	if h.riskService.RequiresManualConfirmation(input.FromAddress, amount) {
		txn, err := h.ledgerService.PendingDeposit(c.Context(), wallet.UserID, wallet.Currency, amount, input.Txid, input.Confirmations)
		if err != nil {
			return ledgerError(c, err)
		}
		return response.Success(c, fiber.Map{"transaction": txn, "pending": true})
	}

	txn, err := h.ledgerService.Deposit(c.Context(), wallet.UserID, wallet.Currency, amount, input.Txid, map[string]interface{}{
		"from_address": input.FromAddress,
	})
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"transaction": txn, "pending": false})
}

// HandleConfirmations records a new confirmation count for a pending
// deposit. Deliveries are retried by the sender, so a txid with no
// pending entry (already completed) is acknowledged as a no-op rather
// than failed.
func (h *WebhookHandler) HandleConfirmations(c *fiber.Ctx) error {
	var input struct {
		Txid          string `json:"txid"`
		Confirmations int    `json:"confirmations"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if input.Txid == "" {
		return response.BadRequest(c, "txid is required")
	}
	if input.Confirmations < 0 {
		return response.BadRequest(c, "invalid confirmations")
	}

	txn, err := h.ledgerService.UpdateConfirmations(c.Context(), input.Txid, input.Confirmations)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			return response.Success(c, fiber.Map{"updated": false})
		}
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"updated": true, "transaction": txn})
}

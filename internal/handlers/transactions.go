package handlers

import (
	"time"

	"coinledger/internal/repositories"
	"coinledger/internal/services/ledger"
	"coinledger/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// TransactionHandler serves the read-only reporting API.
type TransactionHandler struct {
	ledgerService ledger.Service
}

func NewTransactionHandler(ledgerService ledger.Service) *TransactionHandler {
	return &TransactionHandler{
		ledgerService: ledgerService,
	}
}

func (h *TransactionHandler) Search(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}

	filter := repositories.SearchFilter{
		UserID:   userID,
		Currency: c.Query("currency"),
		Type:     c.Query("type"),
		Status:   c.Query("status"),
		Txid:     c.Query("txid"),
		Limit:    c.QueryInt("limit", 20),
		Offset:   c.QueryInt("offset", 0),
	}

	if raw := c.Query("date_from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return response.BadRequest(c, "invalid date_from")
		}
		filter.DateFrom = &t
	}
	if raw := c.Query("date_to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return response.BadRequest(c, "invalid date_to")
		}
		filter.DateTo = &t
	}
	if raw := c.Query("amount_min"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return response.BadRequest(c, "invalid amount_min")
		}
		filter.AmountMin = &d
	}
	if raw := c.Query("amount_max"); raw != "" {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return response.BadRequest(c, "invalid amount_max")
		}
		filter.AmountMax = &d
	}

	transactions, err := h.ledgerService.SearchTransactions(c.Context(), filter)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

func (h *TransactionHandler) Stats(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}

	stats, err := h.ledgerService.GetUserStats(c.Context(), userID, c.Query("currency"))
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, stats)
}

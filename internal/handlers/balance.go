package handlers

import (
	"errors"
	"strconv"

	"coinledger/internal/services/ledger"
	"coinledger/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// BalanceHandler serves the authenticated balance and withdrawal API.
// The caller's identity arrives from the upstream auth layer as the
// X-User-ID header; authentication itself happens outside this service.
type BalanceHandler struct {
	ledgerService ledger.Service
}

func NewBalanceHandler(ledgerService ledger.Service) *BalanceHandler {
	return &BalanceHandler{
		ledgerService: ledgerService,
	}
}

func currentUserID(c *fiber.Ctx) (uint, error) {
	raw := c.Get("X-User-ID")
	if raw == "" {
		return 0, errors.New("missing user identity")
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, errors.New("invalid user identity")
	}
	return uint(id), nil
}

// ledgerError translates engine errors into HTTP responses.
func ledgerError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount):
		return response.BadRequest(c, "invalid amount")
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return response.BadRequest(c, "insufficient funds")
	case errors.Is(err, ledger.ErrWalletNotFound):
		return response.NotFound(c, "wallet not found")
	case errors.Is(err, ledger.ErrTransactionNotFound):
		return response.NotFound(c, "transaction not found")
	case errors.Is(err, ledger.ErrInvalidTransition):
		return response.Conflict(c, err.Error())
	case errors.Is(err, ledger.ErrStorageConflict):
		return response.Error(c, fiber.StatusServiceUnavailable, "temporary conflict, retry later")
	default:
		return response.ServerError(c, "internal error")
	}
}

func (h *BalanceHandler) GetBalance(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}

	summary, err := h.ledgerService.GetBalance(c.Context(), userID, c.Params("currency"))
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, summary)
}

func (h *BalanceHandler) Withdraw(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}

	var input struct {
		Currency string `json:"currency"`
		Amount   string `json:"amount"`
		Address  string `json:"address"`
		Fee      string `json:"fee"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if input.Currency == "" || input.Address == "" {
		return response.BadRequest(c, "currency and address are required")
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		return response.BadRequest(c, "invalid amount")
	}
	fee := decimal.Zero
	if input.Fee != "" {
		if fee, err = decimal.NewFromString(input.Fee); err != nil {
			return response.BadRequest(c, "invalid fee")
		}
	}

	txn, err := h.ledgerService.Withdraw(c.Context(), userID, input.Currency, amount, input.Address, fee)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"transaction": txn})
}

func (h *BalanceHandler) ConfirmWithdrawal(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "invalid transaction id")
	}

	var input struct {
		Txid string `json:"txid"`
	}
	if err := c.BodyParser(&input); err != nil || input.Txid == "" {
		return response.BadRequest(c, "txid is required")
	}

	txn, err := h.ledgerService.ConfirmWithdrawal(c.Context(), userID, uint(id), input.Txid)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"transaction": txn})
}

func (h *BalanceHandler) CancelWithdrawal(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return response.BadRequest(c, "invalid transaction id")
	}

	var input struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&input); err != nil || input.Reason == "" {
		return response.BadRequest(c, "reason is required")
	}

	txn, err := h.ledgerService.CancelWithdrawal(c.Context(), userID, uint(id), input.Reason)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"transaction": txn})
}

func (h *BalanceHandler) ChargeFee(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return response.Unauthorized(c, err.Error())
	}

	var input struct {
		Currency    string `json:"currency"`
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "invalid request format")
	}
	if input.Currency == "" {
		return response.BadRequest(c, "currency is required")
	}

	amount, err := decimal.NewFromString(input.Amount)
	if err != nil {
		return response.BadRequest(c, "invalid amount")
	}

	txn, err := h.ledgerService.ChargeFee(c.Context(), userID, input.Currency, amount, input.Description)
	if err != nil {
		return ledgerError(c, err)
	}
	return response.Success(c, fiber.Map{"transaction": txn})
}

package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finvelo/ledger-backend/internal/http/response"
	"github.com/finvelo/ledger-backend/internal/services"
)

type LedgerHandler struct {
	ledgerService *services.LedgerService
}

func NewLedgerHandler(ledgerService *services.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// POST /accounts/:id/credit
// body: { "amount": "10.00", "description": "...", "idempotency_key": "..." }
func (lh *LedgerHandler) Credit(c *gin.Context) {
	input, ok := bindOperation(c)
	if !ok {
		return
	}
	response.Respond(c, lh.ledgerService.Credit(c.Request.Context(), input))
}

// POST /accounts/:id/debit
func (lh *LedgerHandler) Debit(c *gin.Context) {
	input, ok := bindOperation(c)
	if !ok {
		return
	}
	response.Respond(c, lh.ledgerService.Debit(c.Request.Context(), input))
}

// POST /accounts/:id/reserve
func (lh *LedgerHandler) Reserve(c *gin.Context) {
	input, ok := bindOperation(c)
	if !ok {
		return
	}
	response.Respond(c, lh.ledgerService.Reserve(c.Request.Context(), input))
}

// POST /accounts/:id/capture
// body adds "reservation_transaction_id"
func (lh *LedgerHandler) Capture(c *gin.Context) {
	input, ok := bindReservation(c)
	if !ok {
		return
	}
	response.Respond(c, lh.ledgerService.Capture(c.Request.Context(), input))
}

// POST /accounts/:id/cancel-reservation
func (lh *LedgerHandler) CancelReservation(c *gin.Context) {
	input, ok := bindReservation(c)
	if !ok {
		return
	}
	response.Respond(c, lh.ledgerService.CancelReservation(c.Request.Context(), input))
}

// POST /accounts/:id/reverse
// body adds "original_transaction_id"
func (lh *LedgerHandler) Reverse(c *gin.Context) {
	accountID, ok := bindAccountID(c)
	if !ok {
		return
	}
	var req services.ReverseInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	req.AccountID = accountID
	response.Respond(c, lh.ledgerService.Reverse(c.Request.Context(), req))
}

// POST /transfers
// body: { "source_account_id": "...", "destination_account_id": "...",
//         "amount": "10.00", "description": "...", "idempotency_key": "..." }
func (lh *LedgerHandler) Transfer(c *gin.Context) {
	var req services.TransferInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	response.Respond(c, lh.ledgerService.Transfer(c.Request.Context(), req))
}

func bindAccountID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid account id", err)
		return uuid.Nil, false
	}
	return id, true
}

func bindOperation(c *gin.Context) (services.OperationInput, bool) {
	accountID, ok := bindAccountID(c)
	if !ok {
		return services.OperationInput{}, false
	}
	var req services.OperationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return services.OperationInput{}, false
	}
	req.AccountID = accountID
	return req, true
}

func bindReservation(c *gin.Context) (services.ReservationInput, bool) {
	accountID, ok := bindAccountID(c)
	if !ok {
		return services.ReservationInput{}, false
	}
	var req services.ReservationInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return services.ReservationInput{}, false
	}
	req.AccountID = accountID
	return req, true
}

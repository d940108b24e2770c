package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finvelo/ledger-backend/internal/http/response"
	"github.com/finvelo/ledger-backend/internal/services"
)

type AccountHandler struct {
	accountService *services.AccountService
}

func NewAccountHandler(accountService *services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

// POST /accounts
// body: { "customer_id": "...", "number": "...", "credit_limit": "0.00" }
func (ah *AccountHandler) Create(c *gin.Context) {
	var req services.CreateAccountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	response.Respond(c, ah.accountService.Create(c.Request.Context(), req), http.StatusCreated)
}

// POST /accounts/:id/block
// body: { "reason": "..." }
func (ah *AccountHandler) Block(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid account id", err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	response.Respond(c, ah.accountService.Block(c.Request.Context(), id, req.Reason))
}

// POST /accounts/:id/unblock
func (ah *AccountHandler) Unblock(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid account id", err)
		return
	}
	response.Respond(c, ah.accountService.Unblock(c.Request.Context(), id))
}

// GET /accounts/:id/balance
func (ah *AccountHandler) GetBalance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid account id", err)
		return
	}
	response.Respond(c, ah.accountService.GetBalance(c.Request.Context(), id))
}

// GET /accounts/:id/transactions
func (ah *AccountHandler) ListTransactions(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid account id", err)
		return
	}
	response.Respond(c, ah.accountService.ListTransactions(c.Request.Context(), id))
}

// GET /accounts/:id/statement?from=2026-01-01T00:00:00Z&to=2026-02-01T00:00:00Z
func (ah *AccountHandler) GetStatement(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid account id", err)
		return
	}
	from, err := time.Parse(time.RFC3339, c.Query("from"))
	if err != nil {
		response.BadRequest(c, "invalid 'from' timestamp, want RFC3339", err)
		return
	}
	to, err := time.Parse(time.RFC3339, c.Query("to"))
	if err != nil {
		response.BadRequest(c, "invalid 'to' timestamp, want RFC3339", err)
		return
	}
	response.Respond(c, ah.accountService.GetStatement(c.Request.Context(), id, from, to))
}

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/finvelo/ledger-backend/internal/http/response"
	"github.com/finvelo/ledger-backend/internal/services"
)

type CustomerHandler struct {
	customerService *services.CustomerService
}

func NewCustomerHandler(customerService *services.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

// POST /customers
// body: { "name": "...", "document": "...", "email": "..." }
func (ch *CustomerHandler) Create(c *gin.Context) {
	var req services.CreateCustomerInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	response.Respond(c, ch.customerService.Create(c.Request.Context(), req), http.StatusCreated)
}

// GET /customers/:id
func (ch *CustomerHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid customer id", err)
		return
	}
	response.Respond(c, ch.customerService.Get(c.Request.Context(), id))
}

// POST /customers/:id/deactivate
// body: { "reason": "..." }
func (ch *CustomerHandler) Deactivate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid customer id", err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body", err)
		return
	}
	response.Respond(c, ch.customerService.Deactivate(c.Request.Context(), id, req.Reason))
}

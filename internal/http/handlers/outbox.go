package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/finvelo/ledger-backend/internal/http/response"
	"github.com/finvelo/ledger-backend/internal/services"
)

type OutboxHandler struct {
	outboxService *services.OutboxService
}

func NewOutboxHandler(outboxService *services.OutboxService) *OutboxHandler {
	return &OutboxHandler{outboxService: outboxService}
}

// GET /outbox/poisoned
func (oh *OutboxHandler) ListPoisoned(c *gin.Context) {
	response.Respond(c, oh.outboxService.ListPoisoned(c.Request.Context()))
}

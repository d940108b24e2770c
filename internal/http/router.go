package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/finvelo/ledger-backend/internal/http/handlers"
	httpMW "github.com/finvelo/ledger-backend/internal/http/middleware"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
)

type RouterConfig struct {
	CustomerHandler *httpH.CustomerHandler
	AccountHandler  *httpH.AccountHandler
	LedgerHandler   *httpH.LedgerHandler
	OutboxHandler   *httpH.OutboxHandler
	HealthHandler   *httpH.HealthHandler

	CORSOrigins []string
	TracingOn   bool
	ServiceName string
	Log         *logger.Logger
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	if cfg.TracingOn {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.CustomerHandler != nil {
			api.POST("/customers", cfg.CustomerHandler.Create)
			api.GET("/customers/:id", cfg.CustomerHandler.Get)
			api.POST("/customers/:id/deactivate", cfg.CustomerHandler.Deactivate)
		}

		if cfg.AccountHandler != nil {
			api.POST("/accounts", cfg.AccountHandler.Create)
			api.POST("/accounts/:id/block", cfg.AccountHandler.Block)
			api.POST("/accounts/:id/unblock", cfg.AccountHandler.Unblock)
			api.GET("/accounts/:id/balance", cfg.AccountHandler.GetBalance)
			api.GET("/accounts/:id/transactions", cfg.AccountHandler.ListTransactions)
			api.GET("/accounts/:id/statement", cfg.AccountHandler.GetStatement)
		}

		if cfg.LedgerHandler != nil {
			api.POST("/accounts/:id/credit", cfg.LedgerHandler.Credit)
			api.POST("/accounts/:id/debit", cfg.LedgerHandler.Debit)
			api.POST("/accounts/:id/reserve", cfg.LedgerHandler.Reserve)
			api.POST("/accounts/:id/capture", cfg.LedgerHandler.Capture)
			api.POST("/accounts/:id/cancel-reservation", cfg.LedgerHandler.CancelReservation)
			api.POST("/accounts/:id/reverse", cfg.LedgerHandler.Reverse)
			api.POST("/transfers", cfg.LedgerHandler.Transfer)
		}

		if cfg.OutboxHandler != nil {
			api.GET("/outbox/poisoned", cfg.OutboxHandler.ListPoisoned)
		}
	}

	return r
}

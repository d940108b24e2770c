package app

import (
	"gorm.io/gorm"

	"github.com/finvelo/ledger-backend/internal/events"
	ledgerhttp "github.com/finvelo/ledger-backend/internal/http"
	httpH "github.com/finvelo/ledger-backend/internal/http/handlers"
	"github.com/finvelo/ledger-backend/internal/jobs/outbox"
	"github.com/finvelo/ledger-backend/internal/observability"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
	"github.com/finvelo/ledger-backend/internal/repos"
	"github.com/finvelo/ledger-backend/internal/services"
	"github.com/finvelo/ledger-backend/internal/uow"
)

// App holds the wired object graph: repos, unit of work, services,
// dispatcher and HTTP server.
type App struct {
	Server     *ledgerhttp.Server
	Dispatcher *outbox.Dispatcher
	Config     Config
	Log        *logger.Logger
}

func New(db *gorm.DB, cfg Config, log *logger.Logger) *App {
	accountRepo := repos.NewAccountRepo(db, log)
	transactionRepo := repos.NewTransactionRepo(db, log)
	customerRepo := repos.NewCustomerRepo(db, log)
	outboxRepo := repos.NewOutboxRepo(db, log)

	unit := uow.New(db, outboxRepo, log)

	maxAttempts := cfg.DispatcherMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = outbox.DefaultMaxAttempts
	}

	ledgerService := services.NewLedgerService(accountRepo, transactionRepo, unit, log)
	accountService := services.NewAccountService(accountRepo, customerRepo, transactionRepo, unit, log)
	customerService := services.NewCustomerService(customerRepo, unit, log)
	outboxService := services.NewOutboxService(outboxRepo, maxAttempts, log)

	sink := buildSink(cfg, log)
	dispatcher := outbox.NewDispatcher(outboxRepo, sink, outbox.Config{
		Interval:    cfg.DispatcherInterval,
		BatchSize:   cfg.DispatcherBatchSize,
		MaxAttempts: maxAttempts,
	}, log)

	server := ledgerhttp.NewServer(ledgerhttp.RouterConfig{
		CustomerHandler: httpH.NewCustomerHandler(customerService),
		AccountHandler:  httpH.NewAccountHandler(accountService),
		LedgerHandler:   httpH.NewLedgerHandler(ledgerService),
		OutboxHandler:   httpH.NewOutboxHandler(outboxService),
		HealthHandler:   httpH.NewHealthHandler(),
		CORSOrigins:     cfg.CORSOrigins,
		TracingOn:       observability.Enabled(),
		ServiceName:     "ledger-backend",
		Log:             log,
	})

	return &App{
		Server:     server,
		Dispatcher: dispatcher,
		Config:     cfg,
		Log:        log,
	}
}

func buildSink(cfg Config, log *logger.Logger) events.Sink {
	if cfg.WebhookURL != "" {
		log.Info("using webhook event sink", "timeout", cfg.WebhookTimeout.String())
		return events.NewWebhookSink(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout, log)
	}
	log.Info("no webhook endpoint configured, using log event sink")
	return events.NewLogSink(log)
}

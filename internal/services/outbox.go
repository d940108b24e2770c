package services

import (
	"context"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
	"github.com/finvelo/ledger-backend/internal/repos"
)

// OutboxService is the operational surface over the outbox table:
// poisoned messages never leave the table on their own, so someone has
// to be able to find them.
type OutboxService struct {
	outboxRepo  repos.OutboxRepo
	maxAttempts int
	log         *logger.Logger
}

func NewOutboxService(outboxRepo repos.OutboxRepo, maxAttempts int, baseLog *logger.Logger) *OutboxService {
	svcLog := baseLog.With("service", "OutboxService")
	return &OutboxService{outboxRepo: outboxRepo, maxAttempts: maxAttempts, log: svcLog}
}

func (os *OutboxService) ListPoisoned(ctx context.Context) Outcome[[]domain.OutboxMessage] {
	messages, err := os.outboxRepo.ListPoisoned(ctx, nil, os.maxAttempts)
	if err != nil {
		return FromError[[]domain.OutboxMessage](err)
	}
	return Ok(messages, "poisoned messages retrieved")
}

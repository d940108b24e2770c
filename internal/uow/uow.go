package uow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
	"github.com/finvelo/ledger-backend/internal/repos"
)

const (
	maxTransientRetries  = 3
	transientRetryDelay  = 50 * time.Millisecond
	pgSerializationError = "40001"
	pgDeadlockDetected   = "40P01"
)

// Tx is the handle passed to a unit of work body. Aggregates registered
// with Track have their pending events drained into the outbox inside
// the same database transaction, so a commit persists state changes and
// their events atomically or neither.
type Tx struct {
	DB       *gorm.DB
	carriers []domain.EventCarrier
}

func (t *Tx) Track(carrier domain.EventCarrier) {
	t.carriers = append(t.carriers, carrier)
}

type UnitOfWork struct {
	db         *gorm.DB
	outboxRepo repos.OutboxRepo
	locks      *keyedLocks
	log        *logger.Logger
}

func New(db *gorm.DB, outboxRepo repos.OutboxRepo, baseLog *logger.Logger) *UnitOfWork {
	uowLog := baseLog.With("service", "UnitOfWork")
	return &UnitOfWork{
		db:         db,
		outboxRepo: outboxRepo,
		locks:      newKeyedLocks(),
		log:        uowLog,
	}
}

// Execute runs fn inside one database transaction and, before commit,
// writes an outbox row for every event the tracked aggregates emitted.
// Pending events are cleared only after the commit succeeds: a failed or
// retried attempt leaves them on the aggregate so the next attempt drains
// them again instead of committing state without its events.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(tx *Tx) error) error {
	var tracked []domain.EventCarrier
	err := u.db.WithContext(ctx).Transaction(func(dbTx *gorm.DB) error {
		txHandle := &Tx{DB: dbTx}
		if err := fn(txHandle); err != nil {
			return err
		}
		tracked = txHandle.carriers
		return u.drainEvents(ctx, txHandle)
	})
	if err != nil {
		return err
	}
	for _, carrier := range tracked {
		carrier.ClearEvents()
	}
	return nil
}

// ExecuteWithRetry re-runs the unit of work on serialization failures
// and deadlocks. The body must be safe to run again from scratch.
func (u *UnitOfWork) ExecuteWithRetry(ctx context.Context, fn func(tx *Tx) error) error {
	var err error
	for attempt := 0; attempt <= maxTransientRetries; attempt++ {
		if attempt > 0 {
			u.log.Warn("retrying transient transaction failure", "attempt", attempt, "error", err)
			select {
			case <-time.After(transientRetryDelay * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err = u.Execute(ctx, fn)
		if err == nil || !isTransient(err) {
			return err
		}
	}
	return domain.NewError(domain.CodeTransient, "uow.ExecuteWithRetry", "transaction kept failing transiently", err)
}

// ExecuteLocked serializes concurrent units of work touching the same
// entity IDs within this process, then runs ExecuteWithRetry. Postgres
// row locks taken inside fn remain the cross-process guard.
func (u *UnitOfWork) ExecuteLocked(ctx context.Context, keys []uuid.UUID, fn func(tx *Tx) error) error {
	if len(keys) == 0 {
		return u.ExecuteWithRetry(ctx, fn)
	}
	unlock := u.locks.lock(keys)
	defer unlock()
	return u.ExecuteWithRetry(ctx, fn)
}

func (u *UnitOfWork) drainEvents(ctx context.Context, txHandle *Tx) error {
	var messages []*domain.OutboxMessage
	for _, carrier := range txHandle.carriers {
		for _, ev := range carrier.PendingEvents() {
			msg, err := domain.NewOutboxMessage(ev)
			if err != nil {
				return domain.NewError(domain.CodeInternal, "uow.drainEvents", "encoding domain event", err)
			}
			messages = append(messages, msg)
		}
	}
	if len(messages) == 0 {
		return nil
	}
	return u.outboxRepo.CreateBatch(ctx, txHandle.DB, messages)
}

func isTransient(err error) bool {
	if domain.IsCode(err, domain.CodeTransient) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationError || pgErr.Code == pgDeadlockDetected
	}
	return false
}

package uow

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
	"github.com/finvelo/ledger-backend/internal/repos"
)

func setup(t *testing.T) (*gorm.DB, *UnitOfWork, repos.OutboxRepo) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("opening sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrapping sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&domain.Customer{},
		&domain.Account{},
		&domain.Transaction{},
		&domain.OutboxMessage{},
	); err != nil {
		t.Fatalf("migrating: %v", err)
	}

	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	outboxRepo := repos.NewOutboxRepo(db, log)
	return db, New(db, outboxRepo, log), outboxRepo
}

func TestExecuteDrainsEventsIntoOutbox(t *testing.T) {
	t.Parallel()
	db, unit, _ := setup(t)
	ctx := context.Background()

	acc, err := domain.NewAccount(uuid.New(), "0001-7", decimal.Zero)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}

	err = unit.Execute(ctx, func(tx *Tx) error {
		tx.Track(acc)
		return tx.DB.Create(acc).Error
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var count int64
	if err := db.Model(&domain.OutboxMessage{}).Count(&count).Error; err != nil {
		t.Fatalf("counting outbox: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 outbox row, got %d", count)
	}
	if len(acc.PendingEvents()) != 0 {
		t.Fatal("events should be cleared after drain")
	}
}

func TestExecuteRollsBackStateAndEvents(t *testing.T) {
	t.Parallel()
	db, unit, _ := setup(t)
	ctx := context.Background()

	acc, err := domain.NewAccount(uuid.New(), "0001-7", decimal.Zero)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}

	boom := errors.New("boom")
	err = unit.Execute(ctx, func(tx *Tx) error {
		tx.Track(acc)
		if err := tx.DB.Create(acc).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var accounts, outbox int64
	if err := db.Model(&domain.Account{}).Count(&accounts).Error; err != nil {
		t.Fatalf("counting accounts: %v", err)
	}
	if err := db.Model(&domain.OutboxMessage{}).Count(&outbox).Error; err != nil {
		t.Fatalf("counting outbox: %v", err)
	}
	if accounts != 0 || outbox != 0 {
		t.Fatalf("rollback leaked rows: accounts=%d outbox=%d", accounts, outbox)
	}
}

// flakyOutboxRepo fails CreateBatch a fixed number of times before
// delegating to the real repository.
type flakyOutboxRepo struct {
	repos.OutboxRepo
	mu       sync.Mutex
	failures int
}

func (f *flakyOutboxRepo) CreateBatch(ctx context.Context, tx *gorm.DB, messages []*domain.OutboxMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return domain.NewError(domain.CodeTransient, "test", "serialization failure", nil)
	}
	return f.OutboxRepo.CreateBatch(ctx, tx, messages)
}

func TestRetryAfterOutboxFailureStillDrainsEvents(t *testing.T) {
	t.Parallel()
	db, _, outboxRepo := setup(t)
	ctx := context.Background()

	log, err := logger.New("production")
	if err != nil {
		t.Fatalf("creating logger: %v", err)
	}
	unit := New(db, &flakyOutboxRepo{OutboxRepo: outboxRepo, failures: 1}, log)

	// The aggregate, events included, exists before the retried body runs.
	acc, err := domain.NewAccount(uuid.New(), "0001-7", decimal.Zero)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}

	err = unit.ExecuteWithRetry(ctx, func(tx *Tx) error {
		tx.Track(acc)
		return tx.DB.Create(acc).Error
	})
	if err != nil {
		t.Fatalf("ExecuteWithRetry: %v", err)
	}

	var accounts, outbox int64
	if err := db.Model(&domain.Account{}).Count(&accounts).Error; err != nil {
		t.Fatalf("counting accounts: %v", err)
	}
	if err := db.Model(&domain.OutboxMessage{}).Count(&outbox).Error; err != nil {
		t.Fatalf("counting outbox: %v", err)
	}
	if accounts != 1 || outbox != 1 {
		t.Fatalf("retried commit lost its events: accounts=%d outbox=%d", accounts, outbox)
	}
	if len(acc.PendingEvents()) != 0 {
		t.Fatal("events should be cleared after the successful attempt")
	}
}

func TestExecuteWithRetryGivesUpOnPermanentError(t *testing.T) {
	t.Parallel()
	_, unit, _ := setup(t)

	calls := 0
	err := unit.ExecuteWithRetry(context.Background(), func(tx *Tx) error {
		calls++
		return domain.NewError(domain.CodeInvalidOperation, "test", "permanent", nil)
	})
	if !domain.IsCode(err, domain.CodeInvalidOperation) {
		t.Fatalf("expected the permanent error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("permanent errors must not be retried: calls=%d", calls)
	}
}

func TestExecuteWithRetryRetriesTransient(t *testing.T) {
	t.Parallel()
	_, unit, _ := setup(t)

	calls := 0
	err := unit.ExecuteWithRetry(context.Background(), func(tx *Tx) error {
		calls++
		if calls < 3 {
			return domain.NewError(domain.CodeTransient, "test", "deadlock", nil)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ExecuteWithRetry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExecuteLockedSerializesSameKey(t *testing.T) {
	t.Parallel()
	_, unit, _ := setup(t)
	key := uuid.New()

	var mu sync.Mutex
	inFlight := 0
	maxInFlight := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = unit.ExecuteLocked(context.Background(), []uuid.UUID{key}, func(tx *Tx) error {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()

				time.Sleep(2 * time.Millisecond)

				mu.Lock()
				inFlight--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if maxInFlight != 1 {
		t.Fatalf("work on the same key overlapped: max in flight=%d", maxInFlight)
	}
}

func TestExecuteLockedOverlappingKeySetsDoNotDeadlock(t *testing.T) {
	t.Parallel()
	_, unit, _ := setup(t)
	a, b := uuid.New(), uuid.New()

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			keys := []uuid.UUID{a, b}
			if i%2 == 1 {
				keys = []uuid.UUID{b, a}
			}
			wg.Add(1)
			go func(keys []uuid.UUID) {
				defer wg.Done()
				_ = unit.ExecuteLocked(context.Background(), keys, func(tx *Tx) error {
					time.Sleep(time.Millisecond)
					return nil
				})
			}(keys)
		}
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("opposing key orders deadlocked")
	}
}

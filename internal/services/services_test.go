package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
	"github.com/finvelo/ledger-backend/internal/repos"
	"github.com/finvelo/ledger-backend/internal/uow"
)

type fixture struct {
	db              *gorm.DB
	ledgerService   *LedgerService
	accountService  *AccountService
	customerService *CustomerService
	outboxRepo      repos.OutboxRepo
}

func newFixture(t *testing.T) *fixture {
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

	accountRepo := repos.NewAccountRepo(db, log)
	transactionRepo := repos.NewTransactionRepo(db, log)
	customerRepo := repos.NewCustomerRepo(db, log)
	outboxRepo := repos.NewOutboxRepo(db, log)
	unit := uow.New(db, outboxRepo, log)

	return &fixture{
		db:              db,
		ledgerService:   NewLedgerService(accountRepo, transactionRepo, unit, log),
		accountService:  NewAccountService(accountRepo, customerRepo, transactionRepo, unit, log),
		customerService: NewCustomerService(customerRepo, unit, log),
		outboxRepo:      outboxRepo,
	}
}

func (f *fixture) createCustomer(t *testing.T) CustomerView {
	t.Helper()
	out := f.customerService.Create(context.Background(), CreateCustomerInput{
		Name:     "Ana Souza",
		Document: "529.982.247-25",
		Email:    "ana@example.com",
	})
	if !out.Success {
		t.Fatalf("creating customer: %+v", out)
	}
	return out.Data
}

func (f *fixture) createAccount(t *testing.T, creditLimit string) AccountView {
	t.Helper()
	customer := f.createCustomer(t)
	return f.createAccountFor(t, customer.ID, "acc-"+uuid.NewString()[:8], creditLimit)
}

func (f *fixture) createAccountFor(t *testing.T, customerID uuid.UUID, number, creditLimit string) AccountView {
	t.Helper()
	limit, err := decimal.NewFromString(creditLimit)
	if err != nil {
		t.Fatalf("parsing credit limit: %v", err)
	}
	out := f.accountService.Create(context.Background(), CreateAccountInput{
		CustomerID:  customerID,
		Number:      number,
		CreditLimit: limit,
	})
	if !out.Success {
		t.Fatalf("creating account: %+v", out)
	}
	return out.Data
}

func (f *fixture) credit(t *testing.T, accountID uuid.UUID, amount string) domain.Transaction {
	t.Helper()
	out := f.ledgerService.Credit(context.Background(), OperationInput{
		AccountID:      accountID,
		Amount:         mustDec(t, amount),
		Description:    "seed",
		IdempotencyKey: uuid.New(),
	})
	if !out.Success {
		t.Fatalf("credit: %+v", out)
	}
	return out.Data
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("parsing decimal %q: %v", s, err)
	}
	return d
}

func (f *fixture) balance(t *testing.T, accountID uuid.UUID) BalanceView {
	t.Helper()
	out := f.accountService.GetBalance(context.Background(), accountID)
	if !out.Success {
		t.Fatalf("get balance: %+v", out)
	}
	return out.Data
}

func (f *fixture) countOutbox(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := f.db.Model(&domain.OutboxMessage{}).Count(&count).Error; err != nil {
		t.Fatalf("counting outbox: %v", err)
	}
	return count
}

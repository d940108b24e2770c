package repos

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/finvelo/ledger-backend/internal/domain"
)

func TestCustomerRepoRoundTrip(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	repo := NewCustomerRepo(db, testLogger(t))
	ctx := context.Background()

	customer, err := domain.NewCustomer("Ana Souza", "52998224725", "ana@example.com")
	if err != nil {
		t.Fatalf("NewCustomer: %v", err)
	}
	customer.ClearEvents()
	if err := repo.Create(ctx, nil, customer); err != nil {
		t.Fatalf("Create: %v", err)
	}

	byID, err := repo.GetByID(ctx, nil, customer.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if byID == nil || byID.Name != "Ana Souza" {
		t.Fatalf("unexpected customer: %+v", byID)
	}

	byDoc, err := repo.GetByDocument(ctx, nil, "52998224725")
	if err != nil {
		t.Fatalf("GetByDocument: %v", err)
	}
	if byDoc == nil || byDoc.ID != customer.ID {
		t.Fatalf("unexpected customer: %+v", byDoc)
	}

	missing, err := repo.GetByDocument(ctx, nil, "11222333000181")
	if err != nil {
		t.Fatalf("GetByDocument (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown document, got %+v", missing)
	}
}

func TestCustomerRepoGetWithAccounts(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	customerRepo := NewCustomerRepo(db, testLogger(t))
	accountRepo := NewAccountRepo(db, testLogger(t))
	ctx := context.Background()

	customer, err := domain.NewCustomer("Ana Souza", "52998224725", "ana@example.com")
	if err != nil {
		t.Fatalf("NewCustomer: %v", err)
	}
	customer.ClearEvents()
	if err := customerRepo.Create(ctx, nil, customer); err != nil {
		t.Fatalf("Create: %v", err)
	}

	acc, err := domain.NewAccount(customer.ID, "0001-7", decimal.Zero)
	if err != nil {
		t.Fatalf("NewAccount: %v", err)
	}
	acc.ClearEvents()
	if err := accountRepo.Create(ctx, nil, acc); err != nil {
		t.Fatalf("Create account: %v", err)
	}

	loaded, err := customerRepo.GetWithAccounts(ctx, nil, customer.ID)
	if err != nil {
		t.Fatalf("GetWithAccounts: %v", err)
	}
	if len(loaded.Accounts) != 1 || loaded.Accounts[0].ID != acc.ID {
		t.Fatalf("expected one preloaded account, got %+v", loaded.Accounts)
	}
}

func TestCustomerRepoUpdate(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	repo := NewCustomerRepo(db, testLogger(t))
	ctx := context.Background()

	customer, err := domain.NewCustomer("Ana Souza", "52998224725", "ana@example.com")
	if err != nil {
		t.Fatalf("NewCustomer: %v", err)
	}
	customer.ClearEvents()
	if err := repo.Create(ctx, nil, customer); err != nil {
		t.Fatalf("Create: %v", err)
	}

	customer.Deactivate("closed")
	customer.ClearEvents()
	if err := repo.Update(ctx, nil, customer); err != nil {
		t.Fatalf("Update: %v", err)
	}

	loaded, err := repo.GetByID(ctx, nil, customer.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if loaded.Active {
		t.Fatal("deactivation not persisted")
	}
}

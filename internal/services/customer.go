package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
	"github.com/finvelo/ledger-backend/internal/repos"
	"github.com/finvelo/ledger-backend/internal/uow"
)

type CreateCustomerInput struct {
	Name     string `json:"name"`
	Document string `json:"document"`
	Email    string `json:"email"`
}

type CustomerView struct {
	ID       uuid.UUID     `json:"id"`
	Name     string        `json:"name"`
	Document string        `json:"document"`
	Email    string        `json:"email"`
	Active   bool          `json:"active"`
	Accounts []AccountView `json:"accounts,omitempty"`
}

type CustomerService struct {
	customerRepo repos.CustomerRepo
	uow          *uow.UnitOfWork
	log          *logger.Logger
}

func NewCustomerService(customerRepo repos.CustomerRepo, unit *uow.UnitOfWork, baseLog *logger.Logger) *CustomerService {
	svcLog := baseLog.With("service", "CustomerService")
	return &CustomerService{customerRepo: customerRepo, uow: unit, log: svcLog}
}

func (cs *CustomerService) Create(ctx context.Context, input CreateCustomerInput) Outcome[CustomerView] {
	customer, err := domain.NewCustomer(input.Name, input.Document, input.Email)
	if err != nil {
		return FromError[CustomerView](err)
	}

	err = cs.uow.ExecuteWithRetry(ctx, func(tx *uow.Tx) error {
		existing, lookupErr := cs.customerRepo.GetByDocument(ctx, tx.DB, customer.Document)
		if lookupErr != nil {
			return lookupErr
		}
		if existing != nil {
			return domain.NewError(domain.CodeConflict, "customer.create",
				"a customer with this document already exists", nil)
		}
		tx.Track(customer)
		return cs.customerRepo.Create(ctx, tx.DB, customer)
	})
	if err != nil {
		cs.log.Error("customer creation failed", "error", err)
		return FromError[CustomerView](err)
	}

	cs.log.Info("customer created", "customer_id", customer.ID)
	return Ok(customerView(customer), "customer created")
}

// Get returns the customer together with their accounts.
func (cs *CustomerService) Get(ctx context.Context, id uuid.UUID) Outcome[CustomerView] {
	customer, err := cs.customerRepo.GetWithAccounts(ctx, nil, id)
	if err != nil {
		return FromError[CustomerView](err)
	}
	if customer == nil {
		return Fail[CustomerView](domain.CodeNotFound, fmt.Sprintf("customer %s not found", id))
	}

	view := customerView(customer)
	for i := range customer.Accounts {
		view.Accounts = append(view.Accounts, accountView(&customer.Accounts[i]))
	}
	return Ok(view, "customer found")
}

func (cs *CustomerService) Deactivate(ctx context.Context, id uuid.UUID, reason string) Outcome[CustomerView] {
	var view CustomerView
	err := cs.uow.ExecuteLocked(ctx, []uuid.UUID{id}, func(tx *uow.Tx) error {
		customer, lookupErr := cs.customerRepo.GetByID(ctx, tx.DB, id)
		if lookupErr != nil {
			return lookupErr
		}
		if customer == nil {
			return domain.NewError(domain.CodeNotFound, "customer.deactivate",
				fmt.Sprintf("customer %s not found", id), nil)
		}
		customer.Deactivate(reason)
		tx.Track(customer)
		if saveErr := cs.customerRepo.Update(ctx, tx.DB, customer); saveErr != nil {
			return saveErr
		}
		view = customerView(customer)
		return nil
	})
	if err != nil {
		return FromError[CustomerView](err)
	}

	cs.log.Info("customer deactivated", "customer_id", id)
	return Ok(view, "customer deactivated")
}

func customerView(c *domain.Customer) CustomerView {
	return CustomerView{
		ID:       c.ID,
		Name:     c.Name,
		Document: c.Document,
		Email:    c.Email,
		Active:   c.Active,
	}
}

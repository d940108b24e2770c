package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
	"github.com/finvelo/ledger-backend/internal/repos"
	"github.com/finvelo/ledger-backend/internal/uow"
)

type CreateAccountInput struct {
	CustomerID  uuid.UUID       `json:"customer_id"`
	Number      string          `json:"number"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type AccountView struct {
	ID               uuid.UUID            `json:"id"`
	CustomerID       uuid.UUID            `json:"customer_id"`
	Number           string               `json:"number"`
	BalanceAvailable decimal.Decimal      `json:"balance_available"`
	BalanceReserved  decimal.Decimal      `json:"balance_reserved"`
	CreditLimit      decimal.Decimal      `json:"credit_limit"`
	Status           domain.AccountStatus `json:"status"`
}

type BalanceView struct {
	AccountID        uuid.UUID       `json:"account_id"`
	Number           string          `json:"number"`
	BalanceAvailable decimal.Decimal `json:"balance_available"`
	BalanceReserved  decimal.Decimal `json:"balance_reserved"`
	CreditLimit      decimal.Decimal `json:"credit_limit"`
	TotalAvailable   decimal.Decimal `json:"total_available"`
}

type StatementView struct {
	AccountID        uuid.UUID            `json:"account_id"`
	Number           string               `json:"number"`
	From             time.Time            `json:"from"`
	To               time.Time            `json:"to"`
	OpeningBalance   decimal.Decimal      `json:"opening_balance"`
	ClosingBalance   decimal.Decimal      `json:"closing_balance"`
	TransactionCount int                  `json:"transaction_count"`
	Transactions     []domain.Transaction `json:"transactions"`
}

type AccountService struct {
	accountRepo     repos.AccountRepo
	customerRepo    repos.CustomerRepo
	transactionRepo repos.TransactionRepo
	uow             *uow.UnitOfWork
	log             *logger.Logger
}

func NewAccountService(
	accountRepo repos.AccountRepo,
	customerRepo repos.CustomerRepo,
	transactionRepo repos.TransactionRepo,
	unit *uow.UnitOfWork,
	baseLog *logger.Logger,
) *AccountService {
	svcLog := baseLog.With("service", "AccountService")
	return &AccountService{
		accountRepo:     accountRepo,
		customerRepo:    customerRepo,
		transactionRepo: transactionRepo,
		uow:             unit,
		log:             svcLog,
	}
}

// Create opens an account for an active customer. The account number is
// caller-supplied and must be unique.
func (as *AccountService) Create(ctx context.Context, input CreateAccountInput) Outcome[AccountView] {
	account, err := domain.NewAccount(input.CustomerID, input.Number, input.CreditLimit)
	if err != nil {
		return FromError[AccountView](err)
	}

	err = as.uow.ExecuteWithRetry(ctx, func(tx *uow.Tx) error {
		customer, lookupErr := as.customerRepo.GetByID(ctx, tx.DB, input.CustomerID)
		if lookupErr != nil {
			return lookupErr
		}
		if customer == nil {
			return domain.NewError(domain.CodeNotFound, "account.create",
				fmt.Sprintf("customer %s not found", input.CustomerID), nil)
		}
		if !customer.Active {
			return domain.NewError(domain.CodeInvalidOperation, "account.create",
				"cannot open an account for a deactivated customer", nil)
		}

		exists, lookupErr := as.accountRepo.NumberExists(ctx, tx.DB, account.Number)
		if lookupErr != nil {
			return lookupErr
		}
		if exists {
			return domain.NewError(domain.CodeConflict, "account.create",
				fmt.Sprintf("account number %s is already taken", account.Number), nil)
		}

		tx.Track(account)
		return as.accountRepo.Create(ctx, tx.DB, account)
	})
	if err != nil {
		as.log.Error("account creation failed", "error", err)
		return FromError[AccountView](err)
	}

	as.log.Info("account created", "account_id", account.ID, "account_number", account.Number)
	return Ok(accountView(account), "account created")
}

func (as *AccountService) Block(ctx context.Context, accountID uuid.UUID, reason string) Outcome[AccountView] {
	return as.changeStatus(ctx, accountID, "account blocked", func(account *domain.Account) {
		account.Block(reason)
	})
}

func (as *AccountService) Unblock(ctx context.Context, accountID uuid.UUID) Outcome[AccountView] {
	return as.changeStatus(ctx, accountID, "account unblocked", func(account *domain.Account) {
		account.Unblock()
	})
}

func (as *AccountService) changeStatus(ctx context.Context, accountID uuid.UUID, message string, mutate func(*domain.Account)) Outcome[AccountView] {
	var view AccountView
	err := as.uow.ExecuteLocked(ctx, []uuid.UUID{accountID}, func(tx *uow.Tx) error {
		account, lookupErr := as.accountRepo.GetWithLock(ctx, tx.DB, accountID)
		if lookupErr != nil {
			return lookupErr
		}
		if account == nil {
			return domain.NewError(domain.CodeNotFound, "account.status",
				fmt.Sprintf("account %s not found", accountID), nil)
		}
		mutate(account)
		tx.Track(account)
		if saveErr := as.accountRepo.Update(ctx, tx.DB, account); saveErr != nil {
			return saveErr
		}
		view = accountView(account)
		return nil
	})
	if err != nil {
		return FromError[AccountView](err)
	}

	as.log.Info(message, "account_id", accountID)
	return Ok(view, message)
}

func (as *AccountService) GetBalance(ctx context.Context, accountID uuid.UUID) Outcome[BalanceView] {
	account, err := as.accountRepo.GetByID(ctx, nil, accountID)
	if err != nil {
		return FromError[BalanceView](err)
	}
	if account == nil {
		return Fail[BalanceView](domain.CodeNotFound, fmt.Sprintf("account %s not found", accountID))
	}
	return Ok(BalanceView{
		AccountID:        account.ID,
		Number:           account.Number,
		BalanceAvailable: account.BalanceAvailable,
		BalanceReserved:  account.BalanceReserved,
		CreditLimit:      account.CreditLimit,
		TotalAvailable:   account.TotalAvailable(),
	}, "balance retrieved")
}

func (as *AccountService) ListTransactions(ctx context.Context, accountID uuid.UUID) Outcome[[]domain.Transaction] {
	account, err := as.accountRepo.GetByID(ctx, nil, accountID)
	if err != nil {
		return FromError[[]domain.Transaction](err)
	}
	if account == nil {
		return Fail[[]domain.Transaction](domain.CodeNotFound, fmt.Sprintf("account %s not found", accountID))
	}

	transactions, err := as.transactionRepo.ListByAccount(ctx, nil, accountID)
	if err != nil {
		return FromError[[]domain.Transaction](err)
	}
	return Ok(transactions, "transactions retrieved")
}

// GetStatement returns the transactions within [from, to) together with an
// opening balance reconstructed from everything before the window and the
// current available balance as the closing figure.
func (as *AccountService) GetStatement(ctx context.Context, accountID uuid.UUID, from, to time.Time) Outcome[StatementView] {
	if !to.After(from) {
		return Fail[StatementView](domain.CodeInvalidOperation, "statement range end must be after its start")
	}

	account, err := as.accountRepo.GetByID(ctx, nil, accountID)
	if err != nil {
		return FromError[StatementView](err)
	}
	if account == nil {
		return Fail[StatementView](domain.CodeNotFound, fmt.Sprintf("account %s not found", accountID))
	}

	prior, err := as.transactionRepo.ListByAccountBetween(ctx, nil, accountID, time.Time{}, from)
	if err != nil {
		return FromError[StatementView](err)
	}
	window, err := as.transactionRepo.ListByAccountBetween(ctx, nil, accountID, from, to)
	if err != nil {
		return FromError[StatementView](err)
	}

	opening := decimal.Zero
	for _, tx := range prior {
		opening = opening.Add(statementDelta(tx))
	}

	return Ok(StatementView{
		AccountID:        account.ID,
		Number:           account.Number,
		From:             from,
		To:               to,
		OpeningBalance:   opening,
		ClosingBalance:   account.BalanceAvailable,
		TransactionCount: len(window),
		Transactions:     window,
	}, "statement retrieved")
}

// statementDelta follows the statement ledger rule: credits and reversals
// add, debits and captures subtract, reservations and their cancellations
// net out to zero inside the statement. A transfer leg carries an origin
// link only on the receiving side.
func statementDelta(tx domain.Transaction) decimal.Decimal {
	switch tx.Kind {
	case domain.KindCredit, domain.KindReversal:
		return tx.Amount
	case domain.KindDebit, domain.KindCapture:
		return tx.Amount.Neg()
	case domain.KindTransfer:
		if tx.OriginTransactionID != nil {
			return tx.Amount
		}
		return tx.Amount.Neg()
	default:
		return decimal.Zero
	}
}

func accountView(a *domain.Account) AccountView {
	return AccountView{
		ID:               a.ID,
		CustomerID:       a.CustomerID,
		Number:           a.Number,
		BalanceAvailable: a.BalanceAvailable,
		BalanceReserved:  a.BalanceReserved,
		CreditLimit:      a.CreditLimit,
		Status:           a.Status,
	}
}

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "active"
	AccountStatusBlocked AccountStatus = "blocked"
)

// Account is the ledger's consistency boundary: it owns its balances and its
// append-only Transaction list, and buffers the domain events each mutation
// produces until the unit of work drains them.
//
// Every mutating operation validates before touching any field, so a failed
// call leaves the aggregate exactly as it was.
type Account struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID       uuid.UUID       `gorm:"type:uuid;not null;index" json:"customer_id"`
	Number           string          `gorm:"not null;uniqueIndex" json:"number"`
	BalanceAvailable decimal.Decimal `gorm:"type:numeric(19,2);not null" json:"balance_available"`
	BalanceReserved  decimal.Decimal `gorm:"type:numeric(19,2);not null" json:"balance_reserved"`
	CreditLimit      decimal.Decimal `gorm:"type:numeric(19,2);not null" json:"credit_limit"`
	Status           AccountStatus   `gorm:"not null" json:"status"`
	Transactions     []Transaction   `gorm:"foreignKey:AccountID" json:"transactions,omitempty"`
	CreatedAt        time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null" json:"updated_at"`

	events []Event `gorm:"-" json:"-"`
}

func (Account) TableName() string {
	return "accounts"
}

// NewAccount opens an account for a customer with a zero balance and the
// given credit limit.
func NewAccount(customerID uuid.UUID, number string, creditLimit decimal.Decimal) (*Account, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, NewError(CodeInvalidOperation, "account.new", "account number is required", nil)
	}
	if creditLimit.IsNegative() {
		return nil, NewError(CodeInvalidOperation, "account.new", "credit limit cannot be negative", nil)
	}

	now := time.Now().UTC()
	acc := &Account{
		ID:               uuid.New(),
		CustomerID:       customerID,
		Number:           number,
		BalanceAvailable: decimal.Zero,
		BalanceReserved:  decimal.Zero,
		CreditLimit:      RoundAmount(creditLimit),
		Status:           AccountStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	acc.record(newEvent(EventAccountCreated, AccountCreated{
		AccountID:   acc.ID,
		CustomerID:  customerID,
		Number:      number,
		CreditLimit: acc.CreditLimit,
	}))
	return acc, nil
}

// TotalAvailable is the amount the account can still move out: the available
// balance plus the unused credit limit.
func (a *Account) TotalAvailable() decimal.Decimal {
	return a.BalanceAvailable.Add(a.CreditLimit)
}

func (a *Account) Credit(amount decimal.Decimal, description string, idempotencyKey uuid.UUID) (*Transaction, error) {
	if err := a.validateOperation(amount, "account.credit"); err != nil {
		return nil, err
	}

	prevAvailable := a.BalanceAvailable
	a.BalanceAvailable = a.BalanceAvailable.Add(amount)

	return a.appendTransaction(KindCredit, amount, description, idempotencyKey, nil, prevAvailable, a.BalanceReserved), nil
}

func (a *Account) Debit(amount decimal.Decimal, description string, idempotencyKey uuid.UUID) (*Transaction, error) {
	if err := a.validateOperation(amount, "account.debit"); err != nil {
		return nil, err
	}
	if a.TotalAvailable().LessThan(amount) {
		return nil, NewError(CodeInsufficientFunds, "account.debit",
			"insufficient funds: available "+a.TotalAvailable().StringFixed(2), nil)
	}

	prevAvailable := a.BalanceAvailable
	a.BalanceAvailable = a.BalanceAvailable.Sub(amount)

	return a.appendTransaction(KindDebit, amount, description, idempotencyKey, nil, prevAvailable, a.BalanceReserved), nil
}

func (a *Account) Reserve(amount decimal.Decimal, description string, idempotencyKey uuid.UUID) (*Transaction, error) {
	if err := a.validateOperation(amount, "account.reserve"); err != nil {
		return nil, err
	}
	if a.TotalAvailable().LessThan(amount) {
		return nil, NewError(CodeInsufficientFunds, "account.reserve",
			"insufficient funds for reservation: available "+a.TotalAvailable().StringFixed(2), nil)
	}

	prevAvailable := a.BalanceAvailable
	prevReserved := a.BalanceReserved
	a.BalanceAvailable = a.BalanceAvailable.Sub(amount)
	a.BalanceReserved = a.BalanceReserved.Add(amount)

	return a.appendTransaction(KindReserve, amount, description, idempotencyKey, nil, prevAvailable, prevReserved), nil
}

// Capture finalizes previously reserved funds. The available balance was
// already reduced by the Reserve step, so only the reserved balance moves.
func (a *Account) Capture(amount decimal.Decimal, reservationTransactionID uuid.UUID, description string, idempotencyKey uuid.UUID) (*Transaction, error) {
	if err := a.validateOperation(amount, "account.capture"); err != nil {
		return nil, err
	}
	if a.BalanceReserved.LessThan(amount) {
		return nil, NewError(CodeInvalidOperation, "account.capture",
			"reserved balance insufficient: reserved "+a.BalanceReserved.StringFixed(2), nil)
	}

	prevAvailable := a.BalanceAvailable
	prevReserved := a.BalanceReserved
	a.BalanceReserved = a.BalanceReserved.Sub(amount)

	origin := reservationTransactionID
	return a.appendTransaction(KindCapture, amount, description, idempotencyKey, &origin, prevAvailable, prevReserved), nil
}

func (a *Account) CancelReservation(amount decimal.Decimal, reservationTransactionID uuid.UUID, description string, idempotencyKey uuid.UUID) (*Transaction, error) {
	if err := a.validateOperation(amount, "account.cancel_reservation"); err != nil {
		return nil, err
	}
	if a.BalanceReserved.LessThan(amount) {
		return nil, NewError(CodeInvalidOperation, "account.cancel_reservation",
			"reserved balance insufficient: reserved "+a.BalanceReserved.StringFixed(2), nil)
	}

	prevAvailable := a.BalanceAvailable
	prevReserved := a.BalanceReserved
	a.BalanceReserved = a.BalanceReserved.Sub(amount)
	a.BalanceAvailable = a.BalanceAvailable.Add(amount)

	origin := reservationTransactionID
	return a.appendTransaction(KindCancelReservation, amount, description, idempotencyKey, &origin, prevAvailable, prevReserved), nil
}

// TransferOut is the sending leg of a transfer. It validates like Debit
// but records the transaction, and its events, as a transfer.
func (a *Account) TransferOut(amount decimal.Decimal, description string, idempotencyKey uuid.UUID) (*Transaction, error) {
	if err := a.validateOperation(amount, "account.transfer_out"); err != nil {
		return nil, err
	}
	if a.TotalAvailable().LessThan(amount) {
		return nil, NewError(CodeInsufficientFunds, "account.transfer_out",
			"insufficient funds: available "+a.TotalAvailable().StringFixed(2), nil)
	}

	prevAvailable := a.BalanceAvailable
	a.BalanceAvailable = a.BalanceAvailable.Sub(amount)

	return a.appendTransaction(KindTransfer, amount, description, idempotencyKey, nil, prevAvailable, a.BalanceReserved), nil
}

// TransferIn is the receiving leg of a transfer. The origin links it back
// to the debit leg on the source account.
func (a *Account) TransferIn(amount decimal.Decimal, debitTransactionID uuid.UUID, description string, idempotencyKey uuid.UUID) (*Transaction, error) {
	if err := a.validateOperation(amount, "account.transfer_in"); err != nil {
		return nil, err
	}

	prevAvailable := a.BalanceAvailable
	a.BalanceAvailable = a.BalanceAvailable.Add(amount)

	origin := debitTransactionID
	return a.appendTransaction(KindTransfer, amount, description, idempotencyKey, &origin, prevAvailable, a.BalanceReserved), nil
}

// Reverse credits the account unconditionally. A reversal undoes a debit-like
// effect regardless of the original transaction's kind; reversing a credit
// therefore also adds funds. The caller is responsible for marking the
// original transaction reversed.
func (a *Account) Reverse(amount decimal.Decimal, originalTransactionID uuid.UUID, description string, idempotencyKey uuid.UUID) (*Transaction, error) {
	if err := a.validateOperation(amount, "account.reverse"); err != nil {
		return nil, err
	}

	prevAvailable := a.BalanceAvailable
	a.BalanceAvailable = a.BalanceAvailable.Add(amount)

	origin := originalTransactionID
	return a.appendTransaction(KindReversal, amount, description, idempotencyKey, &origin, prevAvailable, a.BalanceReserved), nil
}

func (a *Account) Block(reason string) {
	prev := a.Status
	a.Status = AccountStatusBlocked
	a.UpdatedAt = time.Now().UTC()

	a.record(newEvent(EventAccountBlocked, AccountBlocked{
		AccountID:      a.ID,
		Number:         a.Number,
		Reason:         reason,
		PreviousStatus: prev,
	}))
}

func (a *Account) Unblock() {
	a.Status = AccountStatusActive
	a.UpdatedAt = time.Now().UTC()

	a.record(newEvent(EventAccountUnblocked, AccountUnblocked{
		AccountID: a.ID,
		Number:    a.Number,
	}))
}

func (a *Account) validateOperation(amount decimal.Decimal, op string) error {
	if a.Status != AccountStatusActive {
		return NewError(CodeAccountBlocked, op,
			"account "+a.Number+" is not active: "+string(a.Status), nil)
	}
	if !ValidAmount(amount) {
		return NewError(CodeInvalidOperation, op, "amount must be greater than zero", nil)
	}
	return nil
}

func (a *Account) appendTransaction(kind TransactionKind, amount decimal.Decimal, description string, idempotencyKey uuid.UUID, origin *uuid.UUID, prevAvailable, prevReserved decimal.Decimal) *Transaction {
	tx := newTransaction(a.ID, kind, amount, description, idempotencyKey, origin)
	a.Transactions = append(a.Transactions, *tx)
	a.UpdatedAt = time.Now().UTC()

	a.record(newEvent(EventTransactionCreated, TransactionCreated{
		TransactionID:       tx.ID,
		AccountID:           a.ID,
		Kind:                kind,
		Amount:              amount,
		Description:         description,
		IdempotencyKey:      idempotencyKey,
		OriginTransactionID: origin,
	}))
	a.record(newEvent(EventBalanceChanged, newBalanceChanged(a.ID, prevAvailable, a.BalanceAvailable, prevReserved, a.BalanceReserved)))

	return tx
}

func (a *Account) record(ev Event) {
	a.events = append(a.events, ev)
}

func (a *Account) PendingEvents() []Event {
	return a.events
}

func (a *Account) ClearEvents() {
	a.events = nil
}

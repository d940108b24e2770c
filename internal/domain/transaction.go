package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionKind string

const (
	KindCredit            TransactionKind = "credit"
	KindDebit             TransactionKind = "debit"
	KindReserve           TransactionKind = "reserve"
	KindCapture           TransactionKind = "capture"
	KindCancelReservation TransactionKind = "cancel_reservation"
	KindReversal          TransactionKind = "reversal"
	KindTransfer          TransactionKind = "transfer"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionProcessed TransactionStatus = "processed"
	TransactionFailed    TransactionStatus = "failed"
	TransactionReversed  TransactionStatus = "reversed"
)

// Transaction is an append-only ledger entry owned by exactly one Account.
// Rows are never deleted.
type Transaction struct {
	ID                  uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	AccountID           uuid.UUID         `gorm:"type:uuid;not null;index" json:"account_id"`
	Kind                TransactionKind   `gorm:"not null" json:"kind"`
	Amount              decimal.Decimal   `gorm:"type:numeric(19,2);not null" json:"amount"`
	Description         string            `gorm:"not null" json:"description"`
	Status              TransactionStatus `gorm:"not null" json:"status"`
	IdempotencyKey      uuid.UUID         `gorm:"type:uuid;not null;uniqueIndex" json:"idempotency_key"`
	OriginTransactionID *uuid.UUID        `gorm:"type:uuid;index" json:"origin_transaction_id,omitempty"`
	ProcessedAt         *time.Time        `json:"processed_at,omitempty"`
	FailureReason       string            `json:"failure_reason,omitempty"`
	CreatedAt           time.Time         `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time         `gorm:"not null" json:"updated_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func newTransaction(accountID uuid.UUID, kind TransactionKind, amount decimal.Decimal, description string, idempotencyKey uuid.UUID, origin *uuid.UUID) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:                  uuid.New(),
		AccountID:           accountID,
		Kind:                kind,
		Amount:              amount,
		Description:         description,
		Status:              TransactionPending,
		IdempotencyKey:      idempotencyKey,
		OriginTransactionID: origin,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

func (t *Transaction) MarkProcessed() {
	now := time.Now().UTC()
	t.Status = TransactionProcessed
	t.ProcessedAt = &now
	t.UpdatedAt = now
}

func (t *Transaction) MarkFailed(reason string) {
	t.Status = TransactionFailed
	t.FailureReason = reason
	t.UpdatedAt = time.Now().UTC()
}

func (t *Transaction) MarkReversed() {
	t.Status = TransactionReversed
	t.UpdatedAt = time.Now().UTC()
}

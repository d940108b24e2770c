package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
	"github.com/finvelo/ledger-backend/internal/repos"
	"github.com/finvelo/ledger-backend/internal/uow"
)

const replayMessage = "transaction already processed"

type OperationInput struct {
	AccountID      uuid.UUID       `json:"account_id"`
	Amount         decimal.Decimal `json:"amount"`
	Description    string          `json:"description"`
	IdempotencyKey uuid.UUID       `json:"idempotency_key"`
}

type ReservationInput struct {
	OperationInput
	ReservationTransactionID uuid.UUID `json:"reservation_transaction_id"`
}

type ReverseInput struct {
	OperationInput
	OriginalTransactionID uuid.UUID `json:"original_transaction_id"`
}

type TransferInput struct {
	SourceAccountID      uuid.UUID       `json:"source_account_id"`
	DestinationAccountID uuid.UUID       `json:"destination_account_id"`
	Amount               decimal.Decimal `json:"amount"`
	Description          string          `json:"description"`
	IdempotencyKey       uuid.UUID       `json:"idempotency_key"`
}

type TransferView struct {
	Debit  domain.Transaction `json:"debit"`
	Credit domain.Transaction `json:"credit"`
}

// LedgerService executes the monetary commands. Every mutating command is
// idempotent on its key: replays return the stored transaction as success
// without touching balances.
type LedgerService struct {
	accountRepo     repos.AccountRepo
	transactionRepo repos.TransactionRepo
	uow             *uow.UnitOfWork
	log             *logger.Logger
}

func NewLedgerService(
	accountRepo repos.AccountRepo,
	transactionRepo repos.TransactionRepo,
	unit *uow.UnitOfWork,
	baseLog *logger.Logger,
) *LedgerService {
	svcLog := baseLog.With("service", "LedgerService")
	return &LedgerService{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		uow:             unit,
		log:             svcLog,
	}
}

func (ls *LedgerService) Credit(ctx context.Context, input OperationInput) Outcome[domain.Transaction] {
	return ls.run(ctx, input, func(account *domain.Account, tx *uow.Tx) (*domain.Transaction, error) {
		return account.Credit(domain.RoundAmount(input.Amount), input.Description, input.IdempotencyKey)
	})
}

func (ls *LedgerService) Debit(ctx context.Context, input OperationInput) Outcome[domain.Transaction] {
	return ls.run(ctx, input, func(account *domain.Account, tx *uow.Tx) (*domain.Transaction, error) {
		return account.Debit(domain.RoundAmount(input.Amount), input.Description, input.IdempotencyKey)
	})
}

func (ls *LedgerService) Reserve(ctx context.Context, input OperationInput) Outcome[domain.Transaction] {
	return ls.run(ctx, input, func(account *domain.Account, tx *uow.Tx) (*domain.Transaction, error) {
		return account.Reserve(domain.RoundAmount(input.Amount), input.Description, input.IdempotencyKey)
	})
}

func (ls *LedgerService) Capture(ctx context.Context, input ReservationInput) Outcome[domain.Transaction] {
	return ls.run(ctx, input.OperationInput, func(account *domain.Account, tx *uow.Tx) (*domain.Transaction, error) {
		if err := ls.checkReservation(ctx, tx, account.ID, input.ReservationTransactionID, "account.capture"); err != nil {
			return nil, err
		}
		return account.Capture(domain.RoundAmount(input.Amount), input.ReservationTransactionID, input.Description, input.IdempotencyKey)
	})
}

func (ls *LedgerService) CancelReservation(ctx context.Context, input ReservationInput) Outcome[domain.Transaction] {
	return ls.run(ctx, input.OperationInput, func(account *domain.Account, tx *uow.Tx) (*domain.Transaction, error) {
		if err := ls.checkReservation(ctx, tx, account.ID, input.ReservationTransactionID, "account.cancel_reservation"); err != nil {
			return nil, err
		}
		return account.CancelReservation(domain.RoundAmount(input.Amount), input.ReservationTransactionID, input.Description, input.IdempotencyKey)
	})
}

// Reverse credits the amount back to the account and marks the original
// transaction reversed in the same storage transaction.
func (ls *LedgerService) Reverse(ctx context.Context, input ReverseInput) Outcome[domain.Transaction] {
	return ls.run(ctx, input.OperationInput, func(account *domain.Account, tx *uow.Tx) (*domain.Transaction, error) {
		original, err := ls.transactionRepo.GetByID(ctx, tx.DB, input.OriginalTransactionID)
		if err != nil {
			return nil, err
		}
		if original == nil || original.AccountID != account.ID {
			return nil, domain.NewError(domain.CodeNotFound, "account.reverse",
				fmt.Sprintf("transaction %s not found on account %s", input.OriginalTransactionID, account.ID), nil)
		}
		if original.Status == domain.TransactionReversed {
			return nil, domain.NewError(domain.CodeInvalidOperation, "account.reverse",
				fmt.Sprintf("transaction %s is already reversed", original.ID), nil)
		}

		reversal, err := account.Reverse(domain.RoundAmount(input.Amount), original.ID, input.Description, input.IdempotencyKey)
		if err != nil {
			return nil, err
		}

		original.MarkReversed()
		if err := ls.transactionRepo.Update(ctx, tx.DB, original); err != nil {
			return nil, err
		}
		return reversal, nil
	})
}

// run executes a single-account command under the idempotency protocol:
// a key hit returns the stored transaction; otherwise the account is taken
// under exclusive lock, the key re-checked inside the lock, and the
// aggregate operation committed together with its events.
func (ls *LedgerService) run(ctx context.Context, input OperationInput, op func(*domain.Account, *uow.Tx) (*domain.Transaction, error)) Outcome[domain.Transaction] {
	if input.IdempotencyKey == uuid.Nil {
		return Fail[domain.Transaction](domain.CodeInvalidOperation, "idempotency key is required")
	}

	existing, err := ls.transactionRepo.GetByIdempotencyKey(ctx, nil, input.IdempotencyKey)
	if err != nil {
		return FromError[domain.Transaction](err)
	}
	if existing != nil {
		return Ok(*existing, replayMessage)
	}

	var result domain.Transaction
	replayed := false
	err = ls.uow.ExecuteLocked(ctx, []uuid.UUID{input.AccountID}, func(tx *uow.Tx) error {
		replayed = false
		account, lookupErr := ls.accountRepo.GetWithLock(ctx, tx.DB, input.AccountID)
		if lookupErr != nil {
			return lookupErr
		}
		if account == nil {
			return domain.NewError(domain.CodeNotFound, "ledger.run",
				fmt.Sprintf("account %s not found", input.AccountID), nil)
		}

		// Re-checked under the row lock: a concurrent writer that got there
		// first has already committed this key.
		stored, lookupErr := ls.transactionRepo.GetByIdempotencyKey(ctx, tx.DB, input.IdempotencyKey)
		if lookupErr != nil {
			return lookupErr
		}
		if stored != nil {
			result = *stored
			replayed = true
			return nil
		}

		transaction, opErr := op(account, tx)
		if opErr != nil {
			return opErr
		}
		transaction.MarkProcessed()

		tx.Track(account)
		if saveErr := ls.accountRepo.Update(ctx, tx.DB, account); saveErr != nil {
			return saveErr
		}
		if saveErr := ls.transactionRepo.Create(ctx, tx.DB, transaction); saveErr != nil {
			return saveErr
		}
		result = *transaction
		return nil
	})
	if err != nil {
		ls.log.Error("ledger command failed",
			"account_id", input.AccountID,
			"idempotency_key", input.IdempotencyKey,
			"code", domain.CodeOf(err),
			"error", err,
		)
		return FromError[domain.Transaction](err)
	}

	if replayed {
		return Ok(result, replayMessage)
	}
	return Ok(result, "transaction processed")
}

// Transfer debits the source with the caller's key and credits the
// destination with a generated key inside one storage transaction. The
// credit leg records the debit's ID as its origin so a replay can return
// both halves.
func (ls *LedgerService) Transfer(ctx context.Context, input TransferInput) Outcome[TransferView] {
	if input.IdempotencyKey == uuid.Nil {
		return Fail[TransferView](domain.CodeInvalidOperation, "idempotency key is required")
	}
	if input.SourceAccountID == input.DestinationAccountID {
		return Fail[TransferView](domain.CodeInvalidOperation, "cannot transfer to the same account")
	}

	if view, found, err := ls.transferReplay(ctx, nil, input.IdempotencyKey); err != nil {
		return FromError[TransferView](err)
	} else if found {
		return Ok(view, replayMessage)
	}

	amount := domain.RoundAmount(input.Amount)
	keys := []uuid.UUID{input.SourceAccountID, input.DestinationAccountID}

	var result TransferView
	replayed := false
	err := ls.uow.ExecuteLocked(ctx, keys, func(tx *uow.Tx) error {
		replayed = false
		source, destination, lockErr := ls.lockPair(ctx, tx, input.SourceAccountID, input.DestinationAccountID)
		if lockErr != nil {
			return lockErr
		}

		// Re-checked with both rows locked, so a concurrent transfer on the
		// same key has either fully committed or not happened at all.
		if view, found, lookupErr := ls.transferReplay(ctx, tx, input.IdempotencyKey); lookupErr != nil {
			return lookupErr
		} else if found {
			result = view
			replayed = true
			return nil
		}

		debitTx, opErr := source.TransferOut(amount, input.Description, input.IdempotencyKey)
		if opErr != nil {
			return opErr
		}
		debitTx.MarkProcessed()

		creditTx, opErr := destination.TransferIn(amount, debitTx.ID, input.Description, uuid.New())
		if opErr != nil {
			return opErr
		}
		creditTx.MarkProcessed()

		tx.Track(source)
		tx.Track(destination)
		for _, account := range []*domain.Account{source, destination} {
			if saveErr := ls.accountRepo.Update(ctx, tx.DB, account); saveErr != nil {
				return saveErr
			}
		}
		for _, transaction := range []*domain.Transaction{debitTx, creditTx} {
			if saveErr := ls.transactionRepo.Create(ctx, tx.DB, transaction); saveErr != nil {
				return saveErr
			}
		}

		result = TransferView{Debit: *debitTx, Credit: *creditTx}
		return nil
	})
	if err != nil {
		ls.log.Error("transfer failed",
			"source_account_id", input.SourceAccountID,
			"destination_account_id", input.DestinationAccountID,
			"idempotency_key", input.IdempotencyKey,
			"code", domain.CodeOf(err),
			"error", err,
		)
		return FromError[TransferView](err)
	}

	if replayed {
		return Ok(result, replayMessage)
	}
	return Ok(result, "transfer processed")
}

// transferReplay keys off the source-side transaction and resolves the
// credit leg through its origin link. A key held by anything other than a
// transfer debit leg is a conflict, not a replay.
func (ls *LedgerService) transferReplay(ctx context.Context, tx *uow.Tx, key uuid.UUID) (TransferView, bool, error) {
	dbTx := dbOf(tx)
	debitTx, err := ls.transactionRepo.GetByIdempotencyKey(ctx, dbTx, key)
	if err != nil || debitTx == nil {
		return TransferView{}, false, err
	}
	if debitTx.Kind != domain.KindTransfer || debitTx.OriginTransactionID != nil {
		return TransferView{}, false, domain.NewError(domain.CodeConflict, "ledger.transfer",
			fmt.Sprintf("idempotency key %s was already used by a %s transaction", key, debitTx.Kind), nil)
	}
	creditTx, err := ls.transactionRepo.GetTransferCredit(ctx, dbTx, debitTx.ID)
	if err != nil {
		return TransferView{}, false, err
	}
	if creditTx == nil {
		return TransferView{}, false, domain.NewError(domain.CodeInternal, "ledger.transfer",
			fmt.Sprintf("transfer %s has no credit leg", debitTx.ID), nil)
	}
	return TransferView{Debit: *debitTx, Credit: *creditTx}, true, nil
}

// lockPair takes row locks in ascending ID order so two opposing transfers
// cannot deadlock on each other.
func (ls *LedgerService) lockPair(ctx context.Context, tx *uow.Tx, sourceID, destinationID uuid.UUID) (*domain.Account, *domain.Account, error) {
	first, second := sourceID, destinationID
	if second.String() < first.String() {
		first, second = second, first
	}

	accounts := make(map[uuid.UUID]*domain.Account, 2)
	for _, id := range []uuid.UUID{first, second} {
		account, err := ls.accountRepo.GetWithLock(ctx, tx.DB, id)
		if err != nil {
			return nil, nil, err
		}
		if account == nil {
			return nil, nil, domain.NewError(domain.CodeNotFound, "ledger.transfer",
				fmt.Sprintf("account %s not found", id), nil)
		}
		accounts[id] = account
	}
	return accounts[sourceID], accounts[destinationID], nil
}

// checkReservation verifies the referenced reservation exists and belongs
// to the account before any balance moves.
func (ls *LedgerService) checkReservation(ctx context.Context, tx *uow.Tx, accountID, reservationID uuid.UUID, op string) error {
	reservation, err := ls.transactionRepo.GetByID(ctx, tx.DB, reservationID)
	if err != nil {
		return err
	}
	if reservation == nil || reservation.AccountID != accountID {
		return domain.NewError(domain.CodeNotFound, op,
			fmt.Sprintf("reservation %s not found on account %s", reservationID, accountID), nil)
	}
	if reservation.Kind != domain.KindReserve {
		return domain.NewError(domain.CodeInvalidOperation, op,
			fmt.Sprintf("transaction %s is not a reservation", reservationID), nil)
	}
	return nil
}

func dbOf(tx *uow.Tx) *gorm.DB {
	if tx == nil {
		return nil
	}
	return tx.DB
}

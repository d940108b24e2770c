package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
)

type TransactionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, transaction *domain.Transaction) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Transaction, error)
	GetByIdempotencyKey(ctx context.Context, tx *gorm.DB, key uuid.UUID) (*domain.Transaction, error)
	// GetTransferCredit returns the transfer credit leg whose
	// OriginTransactionID points at the given debit leg. Other transactions
	// referencing the same origin, such as reversals, are ignored.
	GetTransferCredit(ctx context.Context, tx *gorm.DB, debitLegID uuid.UUID) (*domain.Transaction, error)
	ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]domain.Transaction, error)
	ListByAccountBetween(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, from, to time.Time) ([]domain.Transaction, error)
	Update(ctx context.Context, tx *gorm.DB, transaction *domain.Transaction) error
}

type transactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewTransactionRepo(db *gorm.DB, baseLog *logger.Logger) TransactionRepo {
	repoLog := baseLog.With("repo", "TransactionRepo")
	return &transactionRepo{db: db, log: repoLog}
}

func (tr *transactionRepo) Create(ctx context.Context, tx *gorm.DB, transaction *domain.Transaction) error {
	dbTx := tx
	if dbTx == nil {
		dbTx = tr.db
	}
	return dbTx.WithContext(ctx).Create(transaction).Error
}

func (tr *transactionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Transaction, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = tr.db
	}

	var result domain.Transaction
	err := dbTx.WithContext(ctx).
		Where("id = ?", id).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *transactionRepo) GetByIdempotencyKey(ctx context.Context, tx *gorm.DB, key uuid.UUID) (*domain.Transaction, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = tr.db
	}

	var result domain.Transaction
	err := dbTx.WithContext(ctx).
		Where("idempotency_key = ?", key).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *transactionRepo) GetTransferCredit(ctx context.Context, tx *gorm.DB, debitLegID uuid.UUID) (*domain.Transaction, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = tr.db
	}

	var result domain.Transaction
	err := dbTx.WithContext(ctx).
		Where("origin_transaction_id = ? AND kind = ?", debitLegID, domain.KindTransfer).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (tr *transactionRepo) ListByAccount(ctx context.Context, tx *gorm.DB, accountID uuid.UUID) ([]domain.Transaction, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = tr.db
	}

	var results []domain.Transaction
	if err := dbTx.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *transactionRepo) ListByAccountBetween(ctx context.Context, tx *gorm.DB, accountID uuid.UUID, from, to time.Time) ([]domain.Transaction, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = tr.db
	}

	var results []domain.Transaction
	if err := dbTx.WithContext(ctx).
		Where("account_id = ? AND created_at >= ? AND created_at < ?", accountID, from, to).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (tr *transactionRepo) Update(ctx context.Context, tx *gorm.DB, transaction *domain.Transaction) error {
	dbTx := tx
	if dbTx == nil {
		dbTx = tr.db
	}
	return dbTx.WithContext(ctx).Save(transaction).Error
}

package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
)

type AccountRepo interface {
	Create(ctx context.Context, tx *gorm.DB, account *domain.Account) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Account, error)
	// GetWithLock loads the account under an exclusive row lock held until
	// the surrounding transaction commits. On dialects without FOR UPDATE
	// (embedded SQLite) the unit of work's keyed mutexes provide the
	// exclusion instead.
	GetWithLock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Account, error)
	NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error)
	Update(ctx context.Context, tx *gorm.DB, account *domain.Account) error
}

type accountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAccountRepo(db *gorm.DB, baseLog *logger.Logger) AccountRepo {
	repoLog := baseLog.With("repo", "AccountRepo")
	return &accountRepo{db: db, log: repoLog}
}

func (ar *accountRepo) Create(ctx context.Context, tx *gorm.DB, account *domain.Account) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).Omit(clause.Associations).Create(account).Error
}

func (ar *accountRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var result domain.Account
	err := transaction.WithContext(ctx).
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

func (ar *accountRepo) GetWithLock(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Account, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	query := transaction.WithContext(ctx)
	if supportsRowLocks(transaction) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var result domain.Account
	err := query.Where("id = ?", id).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *accountRepo) NumberExists(ctx context.Context, tx *gorm.DB, number string) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}

	var count int64
	if err := transaction.WithContext(ctx).
		Model(&domain.Account{}).
		Where("number = ?", number).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (ar *accountRepo) Update(ctx context.Context, tx *gorm.DB, account *domain.Account) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).Omit(clause.Associations).Save(account).Error
}

func supportsRowLocks(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

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

type CustomerRepo interface {
	Create(ctx context.Context, tx *gorm.DB, customer *domain.Customer) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Customer, error)
	GetByDocument(ctx context.Context, tx *gorm.DB, document string) (*domain.Customer, error)
	GetWithAccounts(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Customer, error)
	Update(ctx context.Context, tx *gorm.DB, customer *domain.Customer) error
}

type customerRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCustomerRepo(db *gorm.DB, baseLog *logger.Logger) CustomerRepo {
	repoLog := baseLog.With("repo", "CustomerRepo")
	return &customerRepo{db: db, log: repoLog}
}

func (cr *customerRepo) Create(ctx context.Context, tx *gorm.DB, customer *domain.Customer) error {
	dbTx := tx
	if dbTx == nil {
		dbTx = cr.db
	}
	return dbTx.WithContext(ctx).Omit(clause.Associations).Create(customer).Error
}

func (cr *customerRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Customer, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = cr.db
	}

	var result domain.Customer
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

func (cr *customerRepo) GetByDocument(ctx context.Context, tx *gorm.DB, document string) (*domain.Customer, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = cr.db
	}

	var result domain.Customer
	err := dbTx.WithContext(ctx).
		Where("document = ?", document).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (cr *customerRepo) GetWithAccounts(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*domain.Customer, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = cr.db
	}

	var result domain.Customer
	err := dbTx.WithContext(ctx).
		Preload("Accounts").
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

func (cr *customerRepo) Update(ctx context.Context, tx *gorm.DB, customer *domain.Customer) error {
	dbTx := tx
	if dbTx == nil {
		dbTx = cr.db
	}
	return dbTx.WithContext(ctx).Omit(clause.Associations).Save(customer).Error
}

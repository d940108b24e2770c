package repos

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/finvelo/ledger-backend/internal/domain"
	"github.com/finvelo/ledger-backend/internal/platform/logger"
)

type OutboxRepo interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, messages []*domain.OutboxMessage) error
	// GetUnprocessed returns pending messages that are due for another
	// delivery attempt, oldest first.
	GetUnprocessed(ctx context.Context, tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]domain.OutboxMessage, error)
	ListPoisoned(ctx context.Context, tx *gorm.DB, maxAttempts int) ([]domain.OutboxMessage, error)
	Update(ctx context.Context, tx *gorm.DB, message *domain.OutboxMessage) error
	UpdateBatch(ctx context.Context, tx *gorm.DB, messages []*domain.OutboxMessage) error
}

type outboxRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewOutboxRepo(db *gorm.DB, baseLog *logger.Logger) OutboxRepo {
	repoLog := baseLog.With("repo", "OutboxRepo")
	return &outboxRepo{db: db, log: repoLog}
}

func (or *outboxRepo) CreateBatch(ctx context.Context, tx *gorm.DB, messages []*domain.OutboxMessage) error {
	if len(messages) == 0 {
		return nil
	}
	dbTx := tx
	if dbTx == nil {
		dbTx = or.db
	}
	return dbTx.WithContext(ctx).Create(messages).Error
}

func (or *outboxRepo) GetUnprocessed(ctx context.Context, tx *gorm.DB, limit, maxAttempts int, now time.Time) ([]domain.OutboxMessage, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = or.db
	}

	var results []domain.OutboxMessage
	if err := dbTx.WithContext(ctx).
		Where("processed = ?", false).
		Where("attempt_count < ?", maxAttempts).
		Where("next_attempt_at IS NULL OR next_attempt_at <= ?", now).
		Order("created_at ASC").
		Limit(limit).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *outboxRepo) ListPoisoned(ctx context.Context, tx *gorm.DB, maxAttempts int) ([]domain.OutboxMessage, error) {
	dbTx := tx
	if dbTx == nil {
		dbTx = or.db
	}

	var results []domain.OutboxMessage
	if err := dbTx.WithContext(ctx).
		Where("processed = ?", false).
		Where("attempt_count >= ?", maxAttempts).
		Order("created_at ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (or *outboxRepo) Update(ctx context.Context, tx *gorm.DB, message *domain.OutboxMessage) error {
	dbTx := tx
	if dbTx == nil {
		dbTx = or.db
	}
	return dbTx.WithContext(ctx).Save(message).Error
}

func (or *outboxRepo) UpdateBatch(ctx context.Context, tx *gorm.DB, messages []*domain.OutboxMessage) error {
	if len(messages) == 0 {
		return nil
	}
	dbTx := tx
	if dbTx == nil {
		dbTx = or.db
	}
	return dbTx.WithContext(ctx).Transaction(func(inner *gorm.DB) error {
		for _, msg := range messages {
			if err := inner.Save(msg).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

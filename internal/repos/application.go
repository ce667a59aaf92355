package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/types"
)

type ApplicationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, app *types.Application) (*types.Application, error)
	// GetByID preloads the job offer and its master profile, since every
	// chat and generation call needs all three records.
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Application, error)
	// Update applies the given column set in one write. Callers pass the
	// full post-turn state so a turn either lands whole or not at all.
	Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error
}

type applicationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewApplicationRepo(db *gorm.DB, baseLog *logger.Logger) ApplicationRepo {
	return &applicationRepo{db: db, log: baseLog.With("repo", "ApplicationRepo")}
}

func (ar *applicationRepo) Create(ctx context.Context, tx *gorm.DB, app *types.Application) (*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	if err := transaction.WithContext(ctx).Create(app).Error; err != nil {
		return nil, err
	}
	return app, nil
}

func (ar *applicationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Application, error) {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	var result types.Application
	if err := transaction.WithContext(ctx).
		Preload("JobOffer").
		Preload("JobOffer.MasterProfile").
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

func (ar *applicationRepo) Update(ctx context.Context, tx *gorm.DB, id uuid.UUID, fields map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = ar.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Application{}).
		Where("id = ?", id).
		Updates(fields).Error
}

package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/cvforge-backend/internal/logger"
	"github.com/yungbote/cvforge-backend/internal/types"
)

type JobOfferRepo interface {
	Create(ctx context.Context, tx *gorm.DB, offer *types.JobOffer) (*types.JobOffer, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobOffer, error)
}

type jobOfferRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobOfferRepo(db *gorm.DB, baseLog *logger.Logger) JobOfferRepo {
	return &jobOfferRepo{db: db, log: baseLog.With("repo", "JobOfferRepo")}
}

func (jr *jobOfferRepo) Create(ctx context.Context, tx *gorm.DB, offer *types.JobOffer) (*types.JobOffer, error) {
	transaction := tx
	if transaction == nil {
		transaction = jr.db
	}
	if err := transaction.WithContext(ctx).Create(offer).Error; err != nil {
		return nil, err
	}
	return offer, nil
}

func (jr *jobOfferRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobOffer, error) {
	transaction := tx
	if transaction == nil {
		transaction = jr.db
	}
	var result types.JobOffer
	if err := transaction.WithContext(ctx).
		Preload("MasterProfile").
		Where("id = ?", id).
		First(&result).Error; err != nil {
		return nil, err
	}
	return &result, nil
}

package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

type AnnotationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, a *types.Annotation) (*types.Annotation, error)
	ListByCharacteristic(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) ([]*types.Annotation, error)
}

type annotationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnnotationRepo(db *gorm.DB, baseLog *logger.Logger) AnnotationRepo {
	return &annotationRepo{db: db, log: baseLog.With("repo", "AnnotationRepo")}
}

func (r *annotationRepo) Create(ctx context.Context, tx *gorm.DB, a *types.Annotation) (*types.Annotation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *annotationRepo) ListByCharacteristic(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) ([]*types.Annotation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Annotation
	if err := transaction.WithContext(ctx).
		Where("characteristic_id = ?", characteristicID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

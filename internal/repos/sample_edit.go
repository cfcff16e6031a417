package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

// SampleEditRepo is append-only: edit history rows are never updated or
// deleted.
type SampleEditRepo interface {
	Create(ctx context.Context, tx *gorm.DB, e *types.SampleEdit) (*types.SampleEdit, error)
	ListBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) ([]*types.SampleEdit, error)
}

type sampleEditRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSampleEditRepo(db *gorm.DB, baseLog *logger.Logger) SampleEditRepo {
	return &sampleEditRepo{db: db, log: baseLog.With("repo", "SampleEditRepo")}
}

func (r *sampleEditRepo) Create(ctx context.Context, tx *gorm.DB, e *types.SampleEdit) (*types.SampleEdit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(e).Error; err != nil {
		return nil, err
	}
	return e, nil
}

func (r *sampleEditRepo) ListBySample(ctx context.Context, tx *gorm.DB, sampleID uuid.UUID) ([]*types.SampleEdit, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SampleEdit
	if err := transaction.WithContext(ctx).
		Where("sample_id = ?", sampleID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

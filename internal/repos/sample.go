package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

type SampleRepo interface {
	Create(ctx context.Context, tx *gorm.DB, s *types.Sample) (*types.Sample, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Sample, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Sample, error)
	NextSeq(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) (int64, error)
	// ListActive returns the most recent non-excluded samples in ascending
	// sequence order. limit <= 0 means the full history.
	ListActive(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, limit int) ([]*types.Sample, error)
	// ListRecent returns the most recent samples including excluded ones, for
	// the chart/audit surface, ascending.
	ListRecent(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, limit int) ([]*types.Sample, error)
	CountActive(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) (int64, error)
	Update(ctx context.Context, tx *gorm.DB, s *types.Sample) error
}

type sampleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSampleRepo(db *gorm.DB, baseLog *logger.Logger) SampleRepo {
	return &sampleRepo{db: db, log: baseLog.With("repo", "SampleRepo")}
}

func (r *sampleRepo) Create(ctx context.Context, tx *gorm.DB, s *types.Sample) (*types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

func (r *sampleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var s types.Sample
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sampleRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Sample
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *sampleRepo) NextSeq(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var maxSeq *int64
	if err := transaction.WithContext(ctx).
		Model(&types.Sample{}).
		Where("characteristic_id = ?", characteristicID).
		Select("MAX(seq)").
		Scan(&maxSeq).Error; err != nil {
		return 0, err
	}
	if maxSeq == nil {
		return 1, nil
	}
	return *maxSeq + 1, nil
}

func (r *sampleRepo) ListActive(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, limit int) ([]*types.Sample, error) {
	return r.list(ctx, tx, characteristicID, limit, true)
}

func (r *sampleRepo) ListRecent(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, limit int) ([]*types.Sample, error) {
	return r.list(ctx, tx, characteristicID, limit, false)
}

func (r *sampleRepo) list(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, limit int, activeOnly bool) ([]*types.Sample, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Sample
	q := transaction.WithContext(ctx).
		Where("characteristic_id = ?", characteristicID).
		Order("seq DESC")
	if activeOnly {
		q = q.Where("is_excluded = ?", false)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	// fetched newest-first to honor the window limit; reverse to ascending
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *sampleRepo) CountActive(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.Sample{}).
		Where("characteristic_id = ? AND is_excluded = ?", characteristicID, false).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *sampleRepo) Update(ctx context.Context, tx *gorm.DB, s *types.Sample) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(s).Error
}

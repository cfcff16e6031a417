package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

type ControlLimitsRepo interface {
	// Get returns nil, nil when no limits are configured yet.
	Get(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) (*types.ControlLimits, error)
	// Replace atomically installs the limit set if the stored version still
	// equals expectedVersion (0 means "no limits exist yet"). Returns false
	// without error when the version moved, so the caller can treat the write
	// as superseded.
	Replace(ctx context.Context, tx *gorm.DB, l *types.ControlLimits, expectedVersion int64) (bool, error)
}

type controlLimitsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewControlLimitsRepo(db *gorm.DB, baseLog *logger.Logger) ControlLimitsRepo {
	return &controlLimitsRepo{db: db, log: baseLog.With("repo", "ControlLimitsRepo")}
}

func (r *controlLimitsRepo) Get(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) (*types.ControlLimits, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var l types.ControlLimits
	err := transaction.WithContext(ctx).
		Where("characteristic_id = ?", characteristicID).
		First(&l).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *controlLimitsRepo) Replace(ctx context.Context, tx *gorm.DB, l *types.ControlLimits, expectedVersion int64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()

	if expectedVersion == 0 {
		l.ID = uuid.New()
		l.Version = 1
		l.CreatedAt = now
		l.UpdatedAt = now
		err := transaction.WithContext(ctx).Create(l).Error
		if err != nil {
			// a concurrent writer may have created the row first
			var existing types.ControlLimits
			if lookupErr := transaction.WithContext(ctx).
				Where("characteristic_id = ?", l.CharacteristicID).
				First(&existing).Error; lookupErr == nil {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}

	res := transaction.WithContext(ctx).
		Model(&types.ControlLimits{}).
		Where("characteristic_id = ? AND version = ?", l.CharacteristicID, expectedVersion).
		Updates(map[string]interface{}{
			"center_line":  l.CenterLine,
			"ucl":          l.UCL,
			"lcl":          l.LCL,
			"sigma":        l.Sigma,
			"mode":         l.Mode,
			"sample_count": l.SampleCount,
			"version":      expectedVersion + 1,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

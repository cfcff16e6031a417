package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

type CharacteristicRepo interface {
	Create(ctx context.Context, tx *gorm.DB, c *types.Characteristic) (*types.Characteristic, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Characteristic, error)
	List(ctx context.Context, tx *gorm.DB, nodeID *uuid.UUID) ([]*types.Characteristic, error)
	UpdateSpecFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
}

type characteristicRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCharacteristicRepo(db *gorm.DB, baseLog *logger.Logger) CharacteristicRepo {
	return &characteristicRepo{db: db, log: baseLog.With("repo", "CharacteristicRepo")}
}

func (r *characteristicRepo) Create(ctx context.Context, tx *gorm.DB, c *types.Characteristic) (*types.Characteristic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

func (r *characteristicRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Characteristic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var c types.Characteristic
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *characteristicRepo) List(ctx context.Context, tx *gorm.DB, nodeID *uuid.UUID) ([]*types.Characteristic, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Characteristic
	q := transaction.WithContext(ctx).Order("created_at ASC")
	if nodeID != nil {
		q = q.Where("node_id = ?", *nodeID)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *characteristicRepo) UpdateSpecFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(updates) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Characteristic{}).
		Where("id = ?", id).
		Updates(updates).Error
}

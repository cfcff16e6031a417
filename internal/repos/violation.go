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

// ViolationFilter narrows violation listings. Nil pointer fields are ignored.
type ViolationFilter struct {
	CharacteristicID *uuid.UUID
	Rule             *int
	Severity         string
	Acknowledged     *bool
	IncludeRetired   bool
	Limit            int
	Offset           int
}

// ViolationStats is the aggregate surface consumed by dashboards.
type ViolationStats struct {
	Total          int64            `json:"total"`
	Unacknowledged int64            `json:"unacknowledged"`
	Informational  int64            `json:"informational"`
	BySeverity     map[string]int64 `json:"by_severity"`
}

type ViolationRepo interface {
	Create(ctx context.Context, tx *gorm.DB, v *types.Violation) (*types.Violation, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Violation, error)
	// GetForWindow is the idempotency lookup: at most one violation exists per
	// (characteristic, rule, ending sample), retired or not.
	GetForWindow(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, rule int, endSampleID uuid.UUID) (*types.Violation, error)
	// ListOpenFromSeq returns non-retired violations whose window ends at or
	// after seq; their conclusions are stale once a sample at seq changes.
	ListOpenFromSeq(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, seq int64) ([]*types.Violation, error)
	RetireByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	// Restore clears the retired flag when a re-evaluated window still
	// violates; acknowledgment state is preserved.
	Restore(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	List(ctx context.Context, tx *gorm.DB, f ViolationFilter) ([]*types.Violation, int64, error)
	// Acknowledge flips the acknowledged flag only when it is still unset;
	// returns false when the violation was already acknowledged.
	Acknowledge(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason, actor string, sampleExcluded bool) (bool, error)
	Stats(ctx context.Context, tx *gorm.DB, characteristicID *uuid.UUID) (*ViolationStats, error)
}

type violationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewViolationRepo(db *gorm.DB, baseLog *logger.Logger) ViolationRepo {
	return &violationRepo{db: db, log: baseLog.With("repo", "ViolationRepo")}
}

func (r *violationRepo) Create(ctx context.Context, tx *gorm.DB, v *types.Violation) (*types.Violation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(v).Error; err != nil {
		return nil, err
	}
	return v, nil
}

func (r *violationRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Violation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.Violation
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *violationRepo) GetForWindow(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, rule int, endSampleID uuid.UUID) (*types.Violation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var v types.Violation
	err := transaction.WithContext(ctx).
		Where("characteristic_id = ? AND rule = ? AND end_sample_id = ?", characteristicID, rule, endSampleID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *violationRepo) Restore(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.Violation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"retired":    false,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *violationRepo) ListOpenFromSeq(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, seq int64) ([]*types.Violation, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Violation
	if err := transaction.WithContext(ctx).
		Where("characteristic_id = ? AND retired = ? AND end_seq >= ?", characteristicID, false, seq).
		Order("end_seq ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *violationRepo) RetireByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Model(&types.Violation{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"retired":    true,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *violationRepo) List(ctx context.Context, tx *gorm.DB, f ViolationFilter) ([]*types.Violation, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Model(&types.Violation{})
	if f.CharacteristicID != nil {
		q = q.Where("characteristic_id = ?", *f.CharacteristicID)
	}
	if f.Rule != nil {
		q = q.Where("rule = ?", *f.Rule)
	}
	if f.Severity != "" {
		q = q.Where("severity = ?", f.Severity)
	}
	if f.Acknowledged != nil {
		q = q.Where("acknowledged = ?", *f.Acknowledged)
	}
	if !f.IncludeRetired {
		q = q.Where("retired = ?", false)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []*types.Violation
	q = q.Order("created_at DESC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *violationRepo) Acknowledge(ctx context.Context, tx *gorm.DB, id uuid.UUID, reason, actor string, sampleExcluded bool) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now().UTC()
	res := transaction.WithContext(ctx).
		Model(&types.Violation{}).
		Where("id = ? AND acknowledged = ?", id, false).
		Updates(map[string]interface{}{
			"acknowledged":    true,
			"ack_reason":      reason,
			"ack_actor":       actor,
			"ack_at":          now,
			"sample_excluded": sampleExcluded,
			"updated_at":      now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *violationRepo) Stats(ctx context.Context, tx *gorm.DB, characteristicID *uuid.UUID) (*ViolationStats, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	base := func() *gorm.DB {
		q := transaction.WithContext(ctx).Model(&types.Violation{}).Where("retired = ?", false)
		if characteristicID != nil {
			q = q.Where("characteristic_id = ?", *characteristicID)
		}
		return q
	}

	stats := &ViolationStats{BySeverity: map[string]int64{}}
	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}
	if err := base().
		Where("requires_ack = ? AND acknowledged = ?", true, false).
		Count(&stats.Unacknowledged).Error; err != nil {
		return nil, err
	}
	if err := base().
		Where("severity = ?", types.SeverityInformational).
		Count(&stats.Informational).Error; err != nil {
		return nil, err
	}

	type sevRow struct {
		Severity string
		N        int64
	}
	var rows []sevRow
	if err := base().
		Select("severity, COUNT(*) AS n").
		Group("severity").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		stats.BySeverity[row.Severity] = row.N
	}
	return stats, nil
}

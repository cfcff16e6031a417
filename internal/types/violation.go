package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SeverityCritical      = "CRITICAL"
	SeverityWarning       = "WARNING"
	SeverityInformational = "INFORMATIONAL"
)

// Violation records one rule break. The (characteristic, rule, end sample)
// triple is unique: re-evaluating the same window never duplicates a
// violation. Retired marks conclusions invalidated by a later edit or
// exclusion of a sample inside the trigger window.
type Violation struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CharacteristicID uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_violation_rule_end,priority:1" json:"characteristic_id"`
	Rule             int            `gorm:"column:rule;not null;uniqueIndex:idx_violation_rule_end,priority:2" json:"rule"`
	Severity         string         `gorm:"column:severity;not null" json:"severity"`
	RequiresAck      bool           `gorm:"column:requires_ack;not null" json:"requires_ack"`
	SampleIDs        datatypes.JSON `gorm:"column:sample_ids;not null" json:"sample_ids"`
	EndSampleID      uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_violation_rule_end,priority:3" json:"end_sample_id"`
	EndSeq           int64          `gorm:"column:end_seq;not null;index" json:"end_seq"`
	StartSeq         int64          `gorm:"column:start_seq;not null" json:"start_seq"`
	Retired          bool           `gorm:"column:retired;not null;default:false" json:"retired"`
	Acknowledged     bool           `gorm:"column:acknowledged;not null;default:false" json:"acknowledged"`
	AckReason        string         `gorm:"column:ack_reason" json:"ack_reason,omitempty"`
	AckActor         string         `gorm:"column:ack_actor" json:"ack_actor,omitempty"`
	AckAt            *time.Time     `gorm:"column:ack_at" json:"ack_at,omitempty"`
	SampleExcluded   bool           `gorm:"column:sample_excluded;not null;default:false" json:"sample_excluded"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (Violation) TableName() string { return "violation" }

func (v *Violation) SampleIDValues() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if len(v.SampleIDs) == 0 {
		return ids, nil
	}
	if err := json.Unmarshal(v.SampleIDs, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (v *Violation) SetSampleIDs(ids []uuid.UUID) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	v.SampleIDs = datatypes.JSON(raw)
	return nil
}

package types

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Sample is one subgroup observation. Mean/Range/Std are always recomputed
// from the current measurement list, never edited independently. Seq is a
// per-characteristic ascending position used by the rule windows.
type Sample struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CharacteristicID uuid.UUID      `gorm:"type:uuid;not null;index:idx_sample_char_seq,priority:1" json:"characteristic_id"`
	Seq              int64          `gorm:"column:seq;not null;index:idx_sample_char_seq,priority:2" json:"seq"`
	Measurements     datatypes.JSON `gorm:"column:measurements;not null" json:"measurements"`
	Mean             float64        `gorm:"column:mean;not null" json:"mean"`
	Range            float64        `gorm:"column:range_value;not null" json:"range"`
	Std              *float64       `gorm:"column:std" json:"std,omitempty"`
	TakenAt          time.Time      `gorm:"column:taken_at;not null;index" json:"taken_at"`
	IsExcluded       bool           `gorm:"column:is_excluded;not null;default:false" json:"is_excluded"`
	IsModified       bool           `gorm:"column:is_modified;not null;default:false" json:"is_modified"`
	EditCount        int            `gorm:"column:edit_count;not null;default:0" json:"edit_count"`
	CreatedAt        time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null" json:"updated_at"`
}

func (Sample) TableName() string { return "sample" }

func (s *Sample) MeasurementValues() ([]float64, error) {
	var vals []float64
	if len(s.Measurements) == 0 {
		return vals, nil
	}
	if err := json.Unmarshal(s.Measurements, &vals); err != nil {
		return nil, err
	}
	return vals, nil
}

func (s *Sample) SetMeasurements(vals []float64) error {
	raw, err := json.Marshal(vals)
	if err != nil {
		return err
	}
	s.Measurements = datatypes.JSON(raw)
	return nil
}

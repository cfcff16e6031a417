package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	LimitModeManual   = "manual"
	LimitModeComputed = "computed"
)

// ControlLimits is the single active limit set for a characteristic. Version
// increments on every replace so a stale recalculation can be detected and
// discarded instead of silently overwriting a newer result.
type ControlLimits struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CharacteristicID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"characteristic_id"`
	CenterLine       float64   `gorm:"column:center_line;not null" json:"center_line"`
	UCL              float64   `gorm:"column:ucl;not null" json:"ucl"`
	LCL              float64   `gorm:"column:lcl;not null" json:"lcl"`
	Sigma            float64   `gorm:"column:sigma;not null" json:"sigma"`
	Mode             string    `gorm:"column:mode;not null" json:"mode"`
	Version          int64     `gorm:"column:version;not null;default:0" json:"version"`
	SampleCount      int       `gorm:"column:sample_count;not null;default:0" json:"sample_count"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (ControlLimits) TableName() string { return "control_limits" }

package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Characteristic is one monitored metric, e.g. a part dimension. SubgroupSize
// is how many measurements make up one sample; MinMeasurements allows partial
// subgroups down to that count. USL/LSL are engineering spec limits and are
// distinct from the control limits computed by the engine.
type Characteristic struct {
	ID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name            string         `gorm:"column:name;not null" json:"name"`
	NodeID          *uuid.UUID     `gorm:"type:uuid;index" json:"node_id,omitempty"`
	SubgroupSize    int            `gorm:"column:subgroup_size;not null" json:"subgroup_size"`
	MinMeasurements int            `gorm:"column:min_measurements;not null" json:"min_measurements"`
	Target          *float64       `gorm:"column:target" json:"target,omitempty"`
	USL             *float64       `gorm:"column:usl" json:"usl,omitempty"`
	LSL             *float64       `gorm:"column:lsl" json:"lsl,omitempty"`
	DecimalPlaces   int            `gorm:"column:decimal_places;not null;default:2" json:"decimal_places"`
	CreatedAt       time.Time      `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Characteristic) TableName() string { return "characteristic" }

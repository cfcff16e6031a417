package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SampleEdit is one append-only audit record of a sample edit. Rows are never
// mutated or deleted.
type SampleEdit struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	SampleID             uuid.UUID      `gorm:"type:uuid;not null;index" json:"sample_id"`
	CharacteristicID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"characteristic_id"`
	PreviousMean         float64        `gorm:"column:previous_mean;not null" json:"previous_mean"`
	NewMean              float64        `gorm:"column:new_mean;not null" json:"new_mean"`
	PreviousMeasurements datatypes.JSON `gorm:"column:previous_measurements;not null" json:"previous_measurements"`
	NewMeasurements      datatypes.JSON `gorm:"column:new_measurements;not null" json:"new_measurements"`
	Reason               string         `gorm:"column:reason;not null" json:"reason"`
	Editor               string         `gorm:"column:editor;not null" json:"editor"`
	CreatedAt            time.Time      `gorm:"not null" json:"created_at"`
}

func (SampleEdit) TableName() string { return "sample_edit" }

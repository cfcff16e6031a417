package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	AnnotationKindPoint  = "point"
	AnnotationKindPeriod = "period"
)

// Annotation is a user-authored note on the chart: a point note tied to one
// sample, or a period note over [StartTime, EndTime). Annotations never affect
// statistics or violations.
type Annotation struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CharacteristicID uuid.UUID  `gorm:"type:uuid;not null;index" json:"characteristic_id"`
	Kind             string     `gorm:"column:kind;not null" json:"kind"`
	Text             string     `gorm:"column:text;not null" json:"text"`
	Author           string     `gorm:"column:author;not null" json:"author"`
	SampleID         *uuid.UUID `gorm:"type:uuid;index" json:"sample_id,omitempty"`
	StartTime        *time.Time `gorm:"column:start_time" json:"start_time,omitempty"`
	EndTime          *time.Time `gorm:"column:end_time" json:"end_time,omitempty"`
	CreatedAt        time.Time  `gorm:"not null" json:"created_at"`
}

func (Annotation) TableName() string { return "annotation" }

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/repos"
	"github.com/fabwatch/fabwatch-backend/internal/spcerrors"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

const defaultChartWindow = 100

type ChartPoint struct {
	SampleID   uuid.UUID `json:"sample_id"`
	Seq        int64     `json:"seq"`
	TakenAt    time.Time `json:"taken_at"`
	Mean       float64   `json:"mean"`
	Range      float64   `json:"range"`
	Std        *float64  `json:"std,omitempty"`
	IsExcluded bool      `json:"is_excluded"`
	IsModified bool      `json:"is_modified"`
}

// ChartData is the single-fetch payload for rendering one control chart:
// the recent point series (excluded samples included, flagged), the limit
// band, open violations, and annotations.
type ChartData struct {
	Characteristic *types.Characteristic `json:"characteristic"`
	Points         []ChartPoint          `json:"points"`
	Limits         *types.ControlLimits  `json:"limits,omitempty"`
	Violations     []*types.Violation    `json:"violations"`
	Annotations    []*types.Annotation   `json:"annotations"`
}

type ChartService interface {
	// GetChartData assembles the chart payload over the last window samples.
	// window <= 0 falls back to the default.
	GetChartData(ctx context.Context, characteristicID uuid.UUID, window int) (*ChartData, error)
}

type chartService struct {
	db              *gorm.DB
	log             *logger.Logger
	characteristics repos.CharacteristicRepo
	samples         repos.SampleRepo
	limits          repos.ControlLimitsRepo
	violations      repos.ViolationRepo
	annotations     repos.AnnotationRepo
}

func NewChartService(
	db *gorm.DB,
	baseLog *logger.Logger,
	characteristics repos.CharacteristicRepo,
	samples repos.SampleRepo,
	limits repos.ControlLimitsRepo,
	violations repos.ViolationRepo,
	annotations repos.AnnotationRepo,
) ChartService {
	return &chartService{
		db:              db,
		log:             baseLog.With("service", "ChartService"),
		characteristics: characteristics,
		samples:         samples,
		limits:          limits,
		violations:      violations,
		annotations:     annotations,
	}
}

func (s *chartService) GetChartData(ctx context.Context, characteristicID uuid.UUID, window int) (*ChartData, error) {
	char, err := s.characteristics.GetByID(ctx, nil, characteristicID)
	if err != nil {
		return nil, err
	}
	if char == nil {
		return nil, fmt.Errorf("characteristic %s: %w", characteristicID, spcerrors.ErrNotFound)
	}
	if window <= 0 {
		window = defaultChartWindow
	}

	samples, err := s.samples.ListRecent(ctx, nil, characteristicID, window)
	if err != nil {
		return nil, err
	}
	points := make([]ChartPoint, len(samples))
	for i, smp := range samples {
		points[i] = ChartPoint{
			SampleID:   smp.ID,
			Seq:        smp.Seq,
			TakenAt:    smp.TakenAt,
			Mean:       smp.Mean,
			Range:      smp.Range,
			Std:        smp.Std,
			IsExcluded: smp.IsExcluded,
			IsModified: smp.IsModified,
		}
	}

	lim, err := s.limits.Get(ctx, nil, characteristicID)
	if err != nil {
		return nil, err
	}

	violations, _, err := s.violations.List(ctx, nil, repos.ViolationFilter{
		CharacteristicID: &characteristicID,
	})
	if err != nil {
		return nil, err
	}
	// keep only violations whose window overlaps the fetched point range
	if len(points) > 0 {
		firstSeq := points[0].Seq
		filtered := violations[:0]
		for _, v := range violations {
			if v.EndSeq >= firstSeq {
				filtered = append(filtered, v)
			}
		}
		violations = filtered
	}

	annotations, err := s.annotations.ListByCharacteristic(ctx, nil, characteristicID)
	if err != nil {
		return nil, err
	}

	return &ChartData{
		Characteristic: char,
		Points:         points,
		Limits:         lim,
		Violations:     violations,
		Annotations:    annotations,
	}, nil
}

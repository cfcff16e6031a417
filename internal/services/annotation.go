package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/repos"
	"github.com/fabwatch/fabwatch-backend/internal/spcerrors"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

type AnnotationInput struct {
	Kind      string     `json:"kind"`
	Text      string     `json:"text"`
	Author    string     `json:"author"`
	SampleID  *uuid.UUID `json:"sample_id,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
}

// AnnotationService manages chart notes. Annotations are display-only; they
// never feed back into statistics or detection.
type AnnotationService interface {
	Create(ctx context.Context, characteristicID uuid.UUID, in AnnotationInput) (*types.Annotation, error)
	List(ctx context.Context, characteristicID uuid.UUID) ([]*types.Annotation, error)
}

type annotationService struct {
	db              *gorm.DB
	log             *logger.Logger
	characteristics repos.CharacteristicRepo
	samples         repos.SampleRepo
	annotations     repos.AnnotationRepo
}

func NewAnnotationService(db *gorm.DB, baseLog *logger.Logger, characteristics repos.CharacteristicRepo, samples repos.SampleRepo, annotations repos.AnnotationRepo) AnnotationService {
	return &annotationService{
		db:              db,
		log:             baseLog.With("service", "AnnotationService"),
		characteristics: characteristics,
		samples:         samples,
		annotations:     annotations,
	}
}

func (s *annotationService) Create(ctx context.Context, characteristicID uuid.UUID, in AnnotationInput) (*types.Annotation, error) {
	char, err := s.characteristics.GetByID(ctx, nil, characteristicID)
	if err != nil {
		return nil, err
	}
	if char == nil {
		return nil, fmt.Errorf("characteristic %s: %w", characteristicID, spcerrors.ErrNotFound)
	}

	text := strings.TrimSpace(in.Text)
	author := strings.TrimSpace(in.Author)
	if text == "" {
		return nil, fmt.Errorf("annotation text is required: %w", spcerrors.ErrValidation)
	}
	if author == "" {
		return nil, fmt.Errorf("annotation author is required: %w", spcerrors.ErrValidation)
	}

	a := &types.Annotation{
		ID:               uuid.New(),
		CharacteristicID: characteristicID,
		Kind:             in.Kind,
		Text:             text,
		Author:           author,
		CreatedAt:        time.Now().UTC(),
	}

	switch in.Kind {
	case types.AnnotationKindPoint:
		if in.SampleID == nil {
			return nil, fmt.Errorf("point annotation needs a sample_id: %w", spcerrors.ErrValidation)
		}
		sample, err := s.samples.GetByID(ctx, nil, *in.SampleID)
		if err != nil {
			return nil, err
		}
		if sample == nil || sample.CharacteristicID != characteristicID {
			return nil, fmt.Errorf("sample %s not found on characteristic %s: %w", *in.SampleID, characteristicID, spcerrors.ErrNotFound)
		}
		a.SampleID = in.SampleID
	case types.AnnotationKindPeriod:
		if in.StartTime == nil || in.EndTime == nil {
			return nil, fmt.Errorf("period annotation needs start_time and end_time: %w", spcerrors.ErrValidation)
		}
		if !in.StartTime.Before(*in.EndTime) {
			return nil, fmt.Errorf("annotation start_time must precede end_time: %w", spcerrors.ErrValidation)
		}
		a.StartTime = in.StartTime
		a.EndTime = in.EndTime
	default:
		return nil, fmt.Errorf("unknown annotation kind %q: %w", in.Kind, spcerrors.ErrValidation)
	}

	created, err := s.annotations.Create(ctx, nil, a)
	if err != nil {
		return nil, err
	}
	s.log.Info("annotation created", "annotation_id", created.ID, "kind", created.Kind)
	return created, nil
}

func (s *annotationService) List(ctx context.Context, characteristicID uuid.UUID) ([]*types.Annotation, error) {
	return s.annotations.ListByCharacteristic(ctx, nil, characteristicID)
}

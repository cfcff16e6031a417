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
	"github.com/fabwatch/fabwatch-backend/internal/spc"
	"github.com/fabwatch/fabwatch-backend/internal/spcerrors"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

type CharacteristicInput struct {
	Name            string     `json:"name"`
	NodeID          *uuid.UUID `json:"node_id,omitempty"`
	SubgroupSize    int        `json:"subgroup_size"`
	MinMeasurements int        `json:"min_measurements,omitempty"`
	Target          *float64   `json:"target,omitempty"`
	USL             *float64   `json:"usl,omitempty"`
	LSL             *float64   `json:"lsl,omitempty"`
	DecimalPlaces   int        `json:"decimal_places,omitempty"`
}

// CharacteristicUpdate carries the mutable engineering fields. Nil pointers
// leave the stored value alone; subgroup size is immutable once samples can
// exist against it.
type CharacteristicUpdate struct {
	Name          *string  `json:"name,omitempty"`
	Target        *float64 `json:"target,omitempty"`
	USL           *float64 `json:"usl,omitempty"`
	LSL           *float64 `json:"lsl,omitempty"`
	DecimalPlaces *int     `json:"decimal_places,omitempty"`
}

type CharacteristicService interface {
	Create(ctx context.Context, in CharacteristicInput) (*types.Characteristic, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Characteristic, error)
	List(ctx context.Context, nodeID *uuid.UUID) ([]*types.Characteristic, error)
	Update(ctx context.Context, id uuid.UUID, in CharacteristicUpdate) (*types.Characteristic, error)
}

type characteristicService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.CharacteristicRepo
}

func NewCharacteristicService(db *gorm.DB, baseLog *logger.Logger, repo repos.CharacteristicRepo) CharacteristicService {
	return &characteristicService{
		db:   db,
		log:  baseLog.With("service", "CharacteristicService"),
		repo: repo,
	}
}

func (s *characteristicService) Create(ctx context.Context, in CharacteristicInput) (*types.Characteristic, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("characteristic name is required: %w", spcerrors.ErrValidation)
	}
	if in.SubgroupSize < 1 || in.SubgroupSize > spc.MaxSubgroupSize {
		return nil, fmt.Errorf("subgroup size %d outside 1..%d: %w", in.SubgroupSize, spc.MaxSubgroupSize, spcerrors.ErrValidation)
	}
	minMeasurements := in.MinMeasurements
	if minMeasurements == 0 {
		minMeasurements = in.SubgroupSize
	}
	if minMeasurements < 1 || minMeasurements > in.SubgroupSize {
		return nil, fmt.Errorf("min measurements %d outside 1..%d: %w", minMeasurements, in.SubgroupSize, spcerrors.ErrValidation)
	}
	if in.USL != nil && in.LSL != nil && *in.USL <= *in.LSL {
		return nil, fmt.Errorf("USL must be greater than LSL: %w", spcerrors.ErrValidation)
	}
	decimals := in.DecimalPlaces
	if decimals == 0 {
		decimals = 2
	}

	now := time.Now().UTC()
	c := &types.Characteristic{
		ID:              uuid.New(),
		Name:            name,
		NodeID:          in.NodeID,
		SubgroupSize:    in.SubgroupSize,
		MinMeasurements: minMeasurements,
		Target:          in.Target,
		USL:             in.USL,
		LSL:             in.LSL,
		DecimalPlaces:   decimals,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	created, err := s.repo.Create(ctx, nil, c)
	if err != nil {
		return nil, err
	}
	s.log.Info("characteristic created", "characteristic_id", created.ID, "subgroup_size", created.SubgroupSize)
	return created, nil
}

func (s *characteristicService) GetByID(ctx context.Context, id uuid.UUID) (*types.Characteristic, error) {
	c, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fmt.Errorf("characteristic %s: %w", id, spcerrors.ErrNotFound)
	}
	return c, nil
}

func (s *characteristicService) List(ctx context.Context, nodeID *uuid.UUID) ([]*types.Characteristic, error) {
	return s.repo.List(ctx, nil, nodeID)
}

func (s *characteristicService) Update(ctx context.Context, id uuid.UUID, in CharacteristicUpdate) (*types.Characteristic, error) {
	current, err := s.repo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, fmt.Errorf("characteristic %s: %w", id, spcerrors.ErrNotFound)
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("characteristic name is required: %w", spcerrors.ErrValidation)
		}
		updates["name"] = name
	}
	if in.Target != nil {
		updates["target"] = *in.Target
	}
	usl, lsl := current.USL, current.LSL
	if in.USL != nil {
		usl = in.USL
		updates["usl"] = *in.USL
	}
	if in.LSL != nil {
		lsl = in.LSL
		updates["lsl"] = *in.LSL
	}
	if usl != nil && lsl != nil && *usl <= *lsl {
		return nil, fmt.Errorf("USL must be greater than LSL: %w", spcerrors.ErrValidation)
	}
	if in.DecimalPlaces != nil {
		if *in.DecimalPlaces < 0 || *in.DecimalPlaces > 10 {
			return nil, fmt.Errorf("decimal places %d outside 0..10: %w", *in.DecimalPlaces, spcerrors.ErrValidation)
		}
		updates["decimal_places"] = *in.DecimalPlaces
	}
	if len(updates) == 0 {
		return current, nil
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.repo.UpdateSpecFields(ctx, nil, id, updates); err != nil {
		return nil, err
	}
	s.log.Info("characteristic updated", "characteristic_id", id)
	return s.repo.GetByID(ctx, nil, id)
}

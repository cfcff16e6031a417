package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/repos"
	"github.com/fabwatch/fabwatch-backend/internal/spc"
	"github.com/fabwatch/fabwatch-backend/internal/spcerrors"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

// LimitsService owns the per-characteristic control limit set. Limits change
// only through Set (manual) or Recalculate (computed); sample ingestion never
// touches them. Recalculation is versioned: a request superseded by a newer
// one for the same characteristic discards its result instead of applying it.
type LimitsService interface {
	// Get returns nil, nil when no limits are configured yet.
	Get(ctx context.Context, characteristicID uuid.UUID) (*types.ControlLimits, error)
	Set(ctx context.Context, characteristicID uuid.UUID, centerLine, ucl, lcl, sigma float64) (*types.ControlLimits, error)
	Recalculate(ctx context.Context, characteristicID uuid.UUID) (*types.ControlLimits, error)
}

type limitsService struct {
	db              *gorm.DB
	log             *logger.Logger
	locker          *CharacteristicLocker
	characteristics repos.CharacteristicRepo
	samples         repos.SampleRepo
	limits          repos.ControlLimitsRepo
	notifier        ChartNotifier

	recalcWindow int
	minSamples   int

	inflightMu sync.Mutex
	inflight   map[uuid.UUID]context.CancelFunc
}

func NewLimitsService(
	db *gorm.DB,
	baseLog *logger.Logger,
	locker *CharacteristicLocker,
	characteristics repos.CharacteristicRepo,
	samples repos.SampleRepo,
	limits repos.ControlLimitsRepo,
	notifier ChartNotifier,
	recalcWindow int,
	minSamples int,
) LimitsService {
	return &limitsService{
		db:              db,
		log:             baseLog.With("service", "LimitsService"),
		locker:          locker,
		characteristics: characteristics,
		samples:         samples,
		limits:          limits,
		notifier:        notifier,
		recalcWindow:    recalcWindow,
		minSamples:      minSamples,
		inflight:        make(map[uuid.UUID]context.CancelFunc),
	}
}

func (s *limitsService) Get(ctx context.Context, characteristicID uuid.UUID) (*types.ControlLimits, error) {
	return s.limits.Get(ctx, nil, characteristicID)
}

func (s *limitsService) Set(ctx context.Context, characteristicID uuid.UUID, centerLine, ucl, lcl, sigma float64) (*types.ControlLimits, error) {
	if err := s.requireCharacteristic(ctx, characteristicID); err != nil {
		return nil, err
	}
	candidate := spc.Limits{CenterLine: centerLine, UCL: ucl, LCL: lcl, Sigma: sigma}
	if err := candidate.Validate(); err != nil {
		return nil, fmt.Errorf("%v: %w", err, spcerrors.ErrValidation)
	}

	unlock := s.locker.Lock(characteristicID)
	defer unlock()

	stored, err := s.replace(ctx, characteristicID, candidate, types.LimitModeManual, 0, -1)
	if err != nil {
		return nil, err
	}
	s.log.Info("manual limits set", "characteristic_id", characteristicID, "version", stored.Version)
	s.notifier.LimitsUpdated(characteristicID, stored)
	return stored, nil
}

func (s *limitsService) Recalculate(ctx context.Context, characteristicID uuid.UUID) (*types.ControlLimits, error) {
	char, err := s.characteristics.GetByID(ctx, nil, characteristicID)
	if err != nil {
		return nil, err
	}
	if char == nil {
		return nil, fmt.Errorf("characteristic %s: %w", characteristicID, spcerrors.ErrNotFound)
	}

	// a newer recalculation for the same characteristic cancels this one
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.registerInflight(characteristicID, cancel)
	defer s.clearInflight(characteristicID, cancel)

	// snapshot the version before the scan so a concurrent write is detected
	prior, err := s.limits.Get(ctx, nil, characteristicID)
	if err != nil {
		return nil, err
	}
	var priorVersion int64
	if prior != nil {
		priorVersion = prior.Version
	}

	activeCount, err := s.samples.CountActive(ctx, nil, characteristicID)
	if err != nil {
		return nil, err
	}
	if activeCount < int64(s.minSamples) {
		return nil, fmt.Errorf("recalculation needs at least %d active samples, have %d: %w",
			s.minSamples, activeCount, spcerrors.ErrPrecondition)
	}

	history, err := s.samples.ListActive(ctx, nil, characteristicID, s.recalcWindow)
	if err != nil {
		return nil, err
	}

	stats := make([]spc.SubgroupStat, len(history))
	for i, smp := range history {
		stats[i] = spc.SubgroupStat{Mean: smp.Mean, Range: smp.Range, Std: smp.Std}
	}
	computed, err := spc.ComputeLimits(char.SubgroupSize, stats)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, spcerrors.ErrPrecondition)
	}

	unlock := s.locker.Lock(characteristicID)
	defer unlock()

	if ctx.Err() != nil {
		s.log.Warn("recalculation superseded before write", "characteristic_id", characteristicID)
		return nil, fmt.Errorf("recalculation for %s: %w", characteristicID, spcerrors.ErrSuperseded)
	}

	stored, err := s.replace(ctx, characteristicID, computed, types.LimitModeComputed, priorVersion, len(history))
	if err != nil {
		return nil, err
	}
	s.log.Info("limits recalculated",
		"characteristic_id", characteristicID,
		"sample_count", len(history),
		"center_line", stored.CenterLine,
		"version", stored.Version)
	s.notifier.LimitsUpdated(characteristicID, stored)
	return stored, nil
}

// replace installs the limit set via compare-and-swap. A manual set swaps
// against whatever version is current; recalculation passes the version it
// scanned under and fails as superseded when it moved. sampleCount < 0 means
// not derived from a sample window.
func (s *limitsService) replace(ctx context.Context, characteristicID uuid.UUID, lim spc.Limits, mode string, expectedVersion int64, sampleCount int) (*types.ControlLimits, error) {
	current, err := s.limits.Get(ctx, nil, characteristicID)
	if err != nil {
		return nil, err
	}
	var currentVersion int64
	if current != nil {
		currentVersion = current.Version
	}

	if mode == types.LimitModeComputed && currentVersion != expectedVersion {
		return nil, fmt.Errorf("limits moved from version %d to %d: %w", expectedVersion, currentVersion, spcerrors.ErrSuperseded)
	}

	row := &types.ControlLimits{
		CharacteristicID: characteristicID,
		CenterLine:       lim.CenterLine,
		UCL:              lim.UCL,
		LCL:              lim.LCL,
		Sigma:            lim.Sigma,
		Mode:             mode,
		UpdatedAt:        time.Now().UTC(),
	}
	if sampleCount >= 0 {
		row.SampleCount = sampleCount
	}
	applied, err := s.limits.Replace(ctx, nil, row, currentVersion)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("concurrent limits write for %s: %w", characteristicID, spcerrors.ErrSuperseded)
	}
	return s.limits.Get(ctx, nil, characteristicID)
}

func (s *limitsService) requireCharacteristic(ctx context.Context, id uuid.UUID) error {
	char, err := s.characteristics.GetByID(ctx, nil, id)
	if err != nil {
		return err
	}
	if char == nil {
		return fmt.Errorf("characteristic %s: %w", id, spcerrors.ErrNotFound)
	}
	return nil
}

func (s *limitsService) registerInflight(id uuid.UUID, cancel context.CancelFunc) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if prev, ok := s.inflight[id]; ok {
		prev()
	}
	s.inflight[id] = cancel
}

func (s *limitsService) clearInflight(id uuid.UUID, cancel context.CancelFunc) {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if current, ok := s.inflight[id]; ok && isSameCancel(current, cancel) {
		delete(s.inflight, id)
	}
}

// isSameCancel guards against clearing a successor's registration.
func isSameCancel(a, b context.CancelFunc) bool {
	return fmt.Sprintf("%p", a) == fmt.Sprintf("%p", b)
}

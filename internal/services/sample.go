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

type SubmitResult struct {
	SampleID uuid.UUID `json:"sample_id"`
	Mean     float64   `json:"mean"`
}

// SampleService orchestrates the sample lifecycle: ingestion, edits with an
// append-only audit trail, and exclusion. Every mutation re-runs violation
// detection for the affected windows before returning, so a client querying
// violations right after a call sees a consistent view. Limits are never
// recalculated implicitly.
type SampleService interface {
	Submit(ctx context.Context, characteristicID uuid.UUID, measurements []float64, takenAt *time.Time) (*SubmitResult, error)
	Edit(ctx context.Context, sampleID uuid.UUID, measurements []float64, reason, editor string) (*types.Sample, error)
	Exclude(ctx context.Context, sampleID uuid.UUID, excluded bool, reason, editor string) (*types.Sample, error)
	GetByID(ctx context.Context, sampleID uuid.UUID) (*types.Sample, error)
	EditHistory(ctx context.Context, sampleID uuid.UUID) ([]*types.SampleEdit, error)
}

type sampleService struct {
	db              *gorm.DB
	log             *logger.Logger
	locker          *CharacteristicLocker
	characteristics repos.CharacteristicRepo
	samples         repos.SampleRepo
	edits           repos.SampleEditRepo
	detector        DetectorService
	notifier        ChartNotifier
}

func NewSampleService(
	db *gorm.DB,
	baseLog *logger.Logger,
	locker *CharacteristicLocker,
	characteristics repos.CharacteristicRepo,
	samples repos.SampleRepo,
	edits repos.SampleEditRepo,
	detector DetectorService,
	notifier ChartNotifier,
) SampleService {
	return &sampleService{
		db:              db,
		log:             baseLog.With("service", "SampleService"),
		locker:          locker,
		characteristics: characteristics,
		samples:         samples,
		edits:           edits,
		detector:        detector,
		notifier:        notifier,
	}
}

func (s *sampleService) Submit(ctx context.Context, characteristicID uuid.UUID, measurements []float64, takenAt *time.Time) (*SubmitResult, error) {
	char, err := s.characteristics.GetByID(ctx, nil, characteristicID)
	if err != nil {
		return nil, err
	}
	if char == nil {
		return nil, fmt.Errorf("characteristic %s: %w", characteristicID, spcerrors.ErrNotFound)
	}
	if err := validateMeasurements(char, measurements); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(characteristicID)
	defer unlock()

	now := time.Now().UTC()
	when := now
	if takenAt != nil && !takenAt.IsZero() {
		when = takenAt.UTC()
	}

	sample := &types.Sample{
		ID:               uuid.New(),
		CharacteristicID: characteristicID,
		TakenAt:          when,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	applyStatistics(sample, measurements)
	if err := sample.SetMeasurements(measurements); err != nil {
		return nil, err
	}

	var violations []*types.Violation
	err = s.db.Transaction(func(tx *gorm.DB) error {
		seq, err := s.samples.NextSeq(ctx, tx, characteristicID)
		if err != nil {
			return err
		}
		sample.Seq = seq
		if _, err := s.samples.Create(ctx, tx, sample); err != nil {
			return err
		}
		violations, err = s.detector.EvaluateLatest(ctx, tx, characteristicID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notifier.SampleCreated(characteristicID, sample)
	for _, v := range violations {
		s.notifier.ViolationCreated(characteristicID, v)
	}
	return &SubmitResult{SampleID: sample.ID, Mean: sample.Mean}, nil
}

func (s *sampleService) Edit(ctx context.Context, sampleID uuid.UUID, measurements []float64, reason, editor string) (*types.Sample, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("edit reason is required: %w", spcerrors.ErrValidation)
	}
	sample, char, err := s.loadSampleAndCharacteristic(ctx, sampleID)
	if err != nil {
		return nil, err
	}
	if err := validateMeasurements(char, measurements); err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(sample.CharacteristicID)
	defer unlock()

	// reload under the lock; a concurrent edit may have landed first
	sample, err = s.samples.GetByID(ctx, nil, sampleID)
	if err != nil {
		return nil, err
	}
	if sample == nil {
		return nil, fmt.Errorf("sample %s: %w", sampleID, spcerrors.ErrNotFound)
	}

	now := time.Now().UTC()
	entry := &types.SampleEdit{
		ID:                   uuid.New(),
		SampleID:             sample.ID,
		CharacteristicID:     sample.CharacteristicID,
		PreviousMean:         sample.Mean,
		PreviousMeasurements: sample.Measurements,
		Reason:               strings.TrimSpace(reason),
		Editor:               strings.TrimSpace(editor),
		CreatedAt:            now,
	}

	applyStatistics(sample, measurements)
	if err := sample.SetMeasurements(measurements); err != nil {
		return nil, err
	}
	sample.IsModified = true
	sample.EditCount++
	sample.UpdatedAt = now
	entry.NewMean = sample.Mean
	entry.NewMeasurements = sample.Measurements

	var violations []*types.Violation
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.edits.Create(ctx, tx, entry); err != nil {
			return err
		}
		if err := s.samples.Update(ctx, tx, sample); err != nil {
			return err
		}
		violations, err = s.detector.ReevaluateFrom(ctx, tx, sample.CharacteristicID, sample.Seq)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sample edited", "sample_id", sample.ID, "edit_count", sample.EditCount)
	s.notifier.SampleUpdated(sample.CharacteristicID, sample)
	for _, v := range violations {
		s.notifier.ViolationCreated(sample.CharacteristicID, v)
	}
	return sample, nil
}

func (s *sampleService) Exclude(ctx context.Context, sampleID uuid.UUID, excluded bool, reason, editor string) (*types.Sample, error) {
	sample, _, err := s.loadSampleAndCharacteristic(ctx, sampleID)
	if err != nil {
		return nil, err
	}

	unlock := s.locker.Lock(sample.CharacteristicID)
	defer unlock()

	sample, err = s.samples.GetByID(ctx, nil, sampleID)
	if err != nil {
		return nil, err
	}
	if sample == nil {
		return nil, fmt.Errorf("sample %s: %w", sampleID, spcerrors.ErrNotFound)
	}
	if sample.IsExcluded == excluded {
		return sample, nil
	}

	now := time.Now().UTC()
	sample.IsExcluded = excluded
	sample.UpdatedAt = now

	// exclusion is audited like an edit: same measurements, flagged reason
	entry := &types.SampleEdit{
		ID:                   uuid.New(),
		SampleID:             sample.ID,
		CharacteristicID:     sample.CharacteristicID,
		PreviousMean:         sample.Mean,
		NewMean:              sample.Mean,
		PreviousMeasurements: sample.Measurements,
		NewMeasurements:      sample.Measurements,
		Reason:               exclusionReason(excluded, reason),
		Editor:               strings.TrimSpace(editor),
		CreatedAt:            now,
	}

	var violations []*types.Violation
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if _, err := s.edits.Create(ctx, tx, entry); err != nil {
			return err
		}
		if err := s.samples.Update(ctx, tx, sample); err != nil {
			return err
		}
		violations, err = s.detector.ReevaluateFrom(ctx, tx, sample.CharacteristicID, sample.Seq)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("sample exclusion toggled", "sample_id", sample.ID, "excluded", excluded)
	s.notifier.SampleUpdated(sample.CharacteristicID, sample)
	for _, v := range violations {
		s.notifier.ViolationCreated(sample.CharacteristicID, v)
	}
	return sample, nil
}

func (s *sampleService) GetByID(ctx context.Context, sampleID uuid.UUID) (*types.Sample, error) {
	sample, err := s.samples.GetByID(ctx, nil, sampleID)
	if err != nil {
		return nil, err
	}
	if sample == nil {
		return nil, fmt.Errorf("sample %s: %w", sampleID, spcerrors.ErrNotFound)
	}
	return sample, nil
}

func (s *sampleService) EditHistory(ctx context.Context, sampleID uuid.UUID) ([]*types.SampleEdit, error) {
	sample, err := s.samples.GetByID(ctx, nil, sampleID)
	if err != nil {
		return nil, err
	}
	if sample == nil {
		return nil, fmt.Errorf("sample %s: %w", sampleID, spcerrors.ErrNotFound)
	}
	return s.edits.ListBySample(ctx, nil, sampleID)
}

func (s *sampleService) loadSampleAndCharacteristic(ctx context.Context, sampleID uuid.UUID) (*types.Sample, *types.Characteristic, error) {
	sample, err := s.samples.GetByID(ctx, nil, sampleID)
	if err != nil {
		return nil, nil, err
	}
	if sample == nil {
		return nil, nil, fmt.Errorf("sample %s: %w", sampleID, spcerrors.ErrNotFound)
	}
	char, err := s.characteristics.GetByID(ctx, nil, sample.CharacteristicID)
	if err != nil {
		return nil, nil, err
	}
	if char == nil {
		return nil, nil, fmt.Errorf("characteristic %s: %w", sample.CharacteristicID, spcerrors.ErrNotFound)
	}
	return sample, char, nil
}

func validateMeasurements(char *types.Characteristic, measurements []float64) error {
	if len(measurements) < char.MinMeasurements || len(measurements) > char.SubgroupSize {
		return fmt.Errorf("measurement count %d outside [%d, %d]: %w",
			len(measurements), char.MinMeasurements, char.SubgroupSize, spcerrors.ErrValidation)
	}
	if !spc.AllFinite(measurements) {
		return fmt.Errorf("measurements contain non-finite values: %w", spcerrors.ErrValidation)
	}
	return nil
}

// applyStatistics recomputes the derived statistics from the measurement
// list; they are never carried forward independently of it.
func applyStatistics(sample *types.Sample, measurements []float64) {
	sample.Mean = spc.Mean(measurements)
	sample.Range = spc.Range(measurements)
	if std, ok := spc.StdDev(measurements); ok {
		sample.Std = &std
	} else {
		sample.Std = nil
	}
}

func exclusionReason(excluded bool, reason string) string {
	verb := "included"
	if excluded {
		verb = "excluded"
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return verb
	}
	return verb + ": " + reason
}

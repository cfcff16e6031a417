package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/repos"
	"github.com/fabwatch/fabwatch-backend/internal/spc"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

// DetectorService runs the Nelson rules over a characteristic's active sample
// history against its current control limits. Detection is idempotent: one
// violation per (rule, ending sample) window, ever. With no limits configured
// evaluation is a no-op, not an error.
type DetectorService interface {
	// EvaluateLatest checks only the rule windows that end at the most recent
	// active sample and returns the violations created by this call.
	EvaluateLatest(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) ([]*types.Violation, error)
	// ReevaluateFrom retires open violations whose window ends at or after
	// fromSeq and re-runs every rule window ending there, for use after an
	// edit or exclusion invalidates downstream conclusions.
	ReevaluateFrom(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, fromSeq int64) ([]*types.Violation, error)
}

type detectorService struct {
	db         *gorm.DB
	log        *logger.Logger
	samples    repos.SampleRepo
	limits     repos.ControlLimitsRepo
	violations repos.ViolationRepo
}

func NewDetectorService(db *gorm.DB, baseLog *logger.Logger, samples repos.SampleRepo, limits repos.ControlLimitsRepo, violations repos.ViolationRepo) DetectorService {
	return &detectorService{
		db:         db,
		log:        baseLog.With("service", "DetectorService"),
		samples:    samples,
		limits:     limits,
		violations: violations,
	}
}

// maxRuleSpan is the longest trailing window any rule needs.
var maxRuleSpan = func() int {
	max := 0
	for _, r := range spc.Rules {
		if r.Span > max {
			max = r.Span
		}
	}
	return max
}()

func (s *detectorService) EvaluateLatest(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) ([]*types.Violation, error) {
	lim, err := s.loadLimits(ctx, tx, characteristicID)
	if err != nil || lim == nil {
		return nil, err
	}

	window, err := s.samples.ListActive(ctx, tx, characteristicID, maxRuleSpan)
	if err != nil {
		return nil, err
	}
	if len(window) == 0 {
		return nil, nil
	}
	points := toPoints(window)
	matches := spc.EvaluateAt(points, len(points)-1, *lim)
	return s.upsertMatches(ctx, tx, characteristicID, matches)
}

func (s *detectorService) ReevaluateFrom(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, fromSeq int64) ([]*types.Violation, error) {
	stale, err := s.violations.ListOpenFromSeq(ctx, tx, characteristicID, fromSeq)
	if err != nil {
		return nil, err
	}
	if len(stale) > 0 {
		ids := make([]uuid.UUID, len(stale))
		for i, v := range stale {
			ids[i] = v.ID
		}
		if err := s.violations.RetireByIDs(ctx, tx, ids); err != nil {
			return nil, err
		}
		s.log.Debug("retired stale violations", "characteristic_id", characteristicID, "count", len(ids), "from_seq", fromSeq)
	}

	lim, err := s.loadLimits(ctx, tx, characteristicID)
	if err != nil || lim == nil {
		return nil, err
	}

	history, err := s.samples.ListActive(ctx, tx, characteristicID, 0)
	if err != nil {
		return nil, err
	}
	points := toPoints(history)

	var created []*types.Violation
	for i := range points {
		if points[i].Seq < fromSeq {
			continue
		}
		matches := spc.EvaluateAt(points, i, *lim)
		fresh, err := s.upsertMatches(ctx, tx, characteristicID, matches)
		if err != nil {
			return nil, err
		}
		created = append(created, fresh...)
	}
	return created, nil
}

func (s *detectorService) loadLimits(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID) (*spc.Limits, error) {
	stored, err := s.limits.Get(ctx, tx, characteristicID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, nil
	}
	return &spc.Limits{
		CenterLine: stored.CenterLine,
		UCL:        stored.UCL,
		LCL:        stored.LCL,
		Sigma:      stored.Sigma,
	}, nil
}

// upsertMatches persists rule matches, honoring the one-violation-per-window
// invariant: an existing live violation is left alone, a retired one whose
// window still violates is restored with its acknowledgment intact, and only
// genuinely new windows produce new rows.
func (s *detectorService) upsertMatches(ctx context.Context, tx *gorm.DB, characteristicID uuid.UUID, matches []spc.RuleMatch) ([]*types.Violation, error) {
	var created []*types.Violation
	for _, m := range matches {
		existing, err := s.violations.GetForWindow(ctx, tx, characteristicID, m.Rule, m.EndSampleID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			if existing.Retired {
				if err := s.violations.Restore(ctx, tx, existing.ID); err != nil {
					return nil, err
				}
			}
			continue
		}

		now := time.Now().UTC()
		v := &types.Violation{
			ID:               uuid.New(),
			CharacteristicID: characteristicID,
			Rule:             m.Rule,
			Severity:         m.Severity,
			RequiresAck:      m.RequiresAck,
			EndSampleID:      m.EndSampleID,
			EndSeq:           m.EndSeq,
			StartSeq:         m.StartSeq,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if err := v.SetSampleIDs(m.SampleIDs); err != nil {
			return nil, err
		}
		if _, err := s.violations.Create(ctx, tx, v); err != nil {
			return nil, err
		}
		s.log.Info("violation detected",
			"characteristic_id", characteristicID,
			"rule", m.Rule,
			"severity", m.Severity,
			"end_seq", m.EndSeq)
		created = append(created, v)
	}
	return created, nil
}

func toPoints(samples []*types.Sample) []spc.Point {
	points := make([]spc.Point, len(samples))
	for i, smp := range samples {
		points[i] = spc.Point{SampleID: smp.ID, Seq: smp.Seq, Mean: smp.Mean}
	}
	return points
}

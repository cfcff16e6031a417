package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/fabwatch/fabwatch-backend/internal/logger"
	"github.com/fabwatch/fabwatch-backend/internal/repos"
	"github.com/fabwatch/fabwatch-backend/internal/spcerrors"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

// batchAckParallelism bounds concurrent acknowledgments in a batch call.
const batchAckParallelism = 4

type AckInput struct {
	Reason         string `json:"reason"`
	Actor          string `json:"actor"`
	ExcludeSamples bool   `json:"exclude_samples,omitempty"`
}

// AckFailure reports one violation that could not be acknowledged in a batch.
type AckFailure struct {
	ViolationID uuid.UUID `json:"violation_id"`
	Reason      string    `json:"reason"`
}

type BatchAckResult struct {
	Acknowledged []uuid.UUID  `json:"acknowledged"`
	Failed       []AckFailure `json:"failed"`
}

// ViolationService exposes the review surface over detected violations:
// listing, aggregate stats, and the acknowledgment workflow. Acknowledgment
// is first-writer-wins; a second attempt reports a conflict rather than
// overwriting the recorded disposition.
type ViolationService interface {
	List(ctx context.Context, f repos.ViolationFilter) ([]*types.Violation, int64, error)
	Stats(ctx context.Context, characteristicID *uuid.UUID) (*repos.ViolationStats, error)
	Acknowledge(ctx context.Context, violationID uuid.UUID, in AckInput) (*types.Violation, error)
	BatchAcknowledge(ctx context.Context, violationIDs []uuid.UUID, in AckInput) (*BatchAckResult, error)
}

type violationService struct {
	db         *gorm.DB
	log        *logger.Logger
	violations repos.ViolationRepo
	sampleRepo repos.SampleRepo
	samples    SampleService
}

func NewViolationService(db *gorm.DB, baseLog *logger.Logger, violations repos.ViolationRepo, sampleRepo repos.SampleRepo, samples SampleService) ViolationService {
	return &violationService{
		db:         db,
		log:        baseLog.With("service", "ViolationService"),
		violations: violations,
		sampleRepo: sampleRepo,
		samples:    samples,
	}
}

func (s *violationService) List(ctx context.Context, f repos.ViolationFilter) ([]*types.Violation, int64, error) {
	return s.violations.List(ctx, nil, f)
}

func (s *violationService) Stats(ctx context.Context, characteristicID *uuid.UUID) (*repos.ViolationStats, error) {
	return s.violations.Stats(ctx, nil, characteristicID)
}

func (s *violationService) Acknowledge(ctx context.Context, violationID uuid.UUID, in AckInput) (*types.Violation, error) {
	reason := strings.TrimSpace(in.Reason)
	actor := strings.TrimSpace(in.Actor)
	if reason == "" {
		return nil, fmt.Errorf("acknowledgment reason is required: %w", spcerrors.ErrValidation)
	}
	if actor == "" {
		return nil, fmt.Errorf("acknowledgment actor is required: %w", spcerrors.ErrValidation)
	}

	v, err := s.violations.GetByID(ctx, nil, violationID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, fmt.Errorf("violation %s: %w", violationID, spcerrors.ErrNotFound)
	}
	if v.Acknowledged {
		return nil, fmt.Errorf("violation %s already acknowledged: %w", violationID, spcerrors.ErrConflict)
	}

	applied, err := s.violations.Acknowledge(ctx, nil, violationID, reason, actor, in.ExcludeSamples)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("violation %s already acknowledged: %w", violationID, spcerrors.ErrConflict)
	}

	if in.ExcludeSamples {
		if err := s.excludeWindowSamples(ctx, v, reason, actor); err != nil {
			// the ack itself is durable; exclusion is reported, not rolled back
			s.log.Error("window exclusion after ack failed", "violation_id", violationID, "error", err)
			return nil, err
		}
	}

	s.log.Info("violation acknowledged", "violation_id", violationID, "actor", actor, "exclude_samples", in.ExcludeSamples)
	return s.violations.GetByID(ctx, nil, violationID)
}

func (s *violationService) BatchAcknowledge(ctx context.Context, violationIDs []uuid.UUID, in AckInput) (*BatchAckResult, error) {
	if len(violationIDs) == 0 {
		return nil, fmt.Errorf("no violation ids given: %w", spcerrors.ErrValidation)
	}

	var (
		mu     sync.Mutex
		result BatchAckResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchAckParallelism)
	for _, id := range violationIDs {
		id := id
		g.Go(func() error {
			_, err := s.Acknowledge(gctx, id, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed = append(result.Failed, AckFailure{ViolationID: id, Reason: err.Error()})
				return nil
			}
			result.Acknowledged = append(result.Acknowledged, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.log.Info("batch acknowledgment finished",
		"requested", len(violationIDs),
		"acknowledged", len(result.Acknowledged),
		"failed", len(result.Failed))
	return &result, nil
}

// excludeWindowSamples excludes every sample in the violation's trigger
// window, which retires the violation's own conclusion on re-evaluation.
// Already-excluded samples are skipped so no spurious audit entries appear.
func (s *violationService) excludeWindowSamples(ctx context.Context, v *types.Violation, reason, actor string) error {
	ids, err := v.SampleIDValues()
	if err != nil {
		return err
	}
	windowSamples, err := s.sampleRepo.GetByIDs(ctx, nil, ids)
	if err != nil {
		return err
	}
	cascade := fmt.Sprintf("acknowledged violation rule %d: %s", v.Rule, reason)
	for _, smp := range windowSamples {
		if smp.IsExcluded {
			continue
		}
		if _, err := s.samples.Exclude(ctx, smp.ID, true, cascade, actor); err != nil {
			return err
		}
	}
	return nil
}

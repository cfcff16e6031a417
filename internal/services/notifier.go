package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/fabwatch/fabwatch-backend/internal/sse"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

// ChartNotifier pushes engine events to the live dashboard feed. Emission
// happens after the triggering state change is durable; delivery guarantees
// beyond that are the relay's concern.
type ChartNotifier interface {
	SampleCreated(characteristicID uuid.UUID, sample *types.Sample)
	SampleUpdated(characteristicID uuid.UUID, sample *types.Sample)
	ViolationCreated(characteristicID uuid.UUID, violation *types.Violation)
	LimitsUpdated(characteristicID uuid.UUID, limits *types.ControlLimits)
}

type chartNotifier struct {
	emit SSEEmitter
}

func NewChartNotifier(emit SSEEmitter) ChartNotifier {
	return &chartNotifier{emit: emit}
}

func (n *chartNotifier) SampleCreated(characteristicID uuid.UUID, sample *types.Sample) {
	if n == nil || n.emit == nil || characteristicID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: characteristicID.String(),
		Event:   sse.SSEEventSampleCreated,
		Data:    map[string]any{"sample": sample},
	})
}

func (n *chartNotifier) SampleUpdated(characteristicID uuid.UUID, sample *types.Sample) {
	if n == nil || n.emit == nil || characteristicID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: characteristicID.String(),
		Event:   sse.SSEEventSampleUpdated,
		Data:    map[string]any{"sample": sample},
	})
}

func (n *chartNotifier) ViolationCreated(characteristicID uuid.UUID, violation *types.Violation) {
	if n == nil || n.emit == nil || characteristicID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: characteristicID.String(),
		Event:   sse.SSEEventViolationCreated,
		Data: map[string]any{
			"violation_id": safeViolationID(violation),
			"rule":         safeViolationRule(violation),
			"violation":    violation,
		},
	})
}

func (n *chartNotifier) LimitsUpdated(characteristicID uuid.UUID, limits *types.ControlLimits) {
	if n == nil || n.emit == nil || characteristicID == uuid.Nil {
		return
	}
	n.emit.Emit(context.Background(), sse.SSEMessage{
		Channel: characteristicID.String(),
		Event:   sse.SSEEventLimitsUpdated,
		Data:    map[string]any{"limits": limits},
	})
}

func safeViolationID(v *types.Violation) uuid.UUID {
	if v == nil {
		return uuid.Nil
	}
	return v.ID
}

func safeViolationRule(v *types.Violation) int {
	if v == nil {
		return 0
	}
	return v.Rule
}

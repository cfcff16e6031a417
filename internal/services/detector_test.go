package services

import (
	"context"
	"testing"

	"github.com/fabwatch/fabwatch-backend/internal/sse"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

func TestSubmitBeyondLimitRaisesCriticalViolation(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	env.setManualLimits(t, char.ID)

	res := env.submit(t, char.ID, 15.0)

	open := env.listViolations(t, char.ID, false)
	if len(open) != 1 {
		t.Fatalf("expected 1 violation, got %d", len(open))
	}
	v := open[0]
	if v.Rule != 1 || v.Severity != types.SeverityCritical || !v.RequiresAck {
		t.Fatalf("violation wrong: rule=%d severity=%s requiresAck=%v", v.Rule, v.Severity, v.RequiresAck)
	}
	if v.EndSampleID != res.SampleID {
		t.Fatalf("violation not anchored to the triggering sample")
	}
	if env.events.countByEvent(sse.SSEEventViolationCreated) != 1 {
		t.Fatalf("expected 1 ViolationCreated event")
	}
}

func TestDetectionWithoutLimitsIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)

	env.submit(t, char.ID, 100.0)

	if open := env.listViolations(t, char.ID, false); len(open) != 0 {
		t.Fatalf("violations raised with no limits configured: %d", len(open))
	}
}

func TestDetectionIsIdempotentPerWindow(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	env.setManualLimits(t, char.ID)
	ctx := context.Background()

	env.submit(t, char.ID, 15.0)

	// re-running evaluation over the same window creates nothing new
	fresh, err := env.detector.EvaluateLatest(ctx, nil, char.ID)
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if len(fresh) != 0 {
		t.Fatalf("re-evaluation created %d duplicate violations", len(fresh))
	}
	if open := env.listViolations(t, char.ID, false); len(open) != 1 {
		t.Fatalf("expected 1 violation after re-evaluation, got %d", len(open))
	}
}

func TestRuleTwoTriggersOnNinthSameSideSample(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	env.setManualLimits(t, char.ID)

	// eight above-center in-band samples: no violation yet
	means := []float64{10.2, 10.4, 10.1, 10.3, 10.2, 10.4, 10.1, 10.2}
	for _, m := range means {
		env.submit(t, char.ID, m)
	}
	if open := env.listViolations(t, char.ID, false); len(open) != 0 {
		t.Fatalf("violation raised before the ninth sample: %d", len(open))
	}

	env.submit(t, char.ID, 10.3)
	open := env.listViolations(t, char.ID, false)
	if len(open) != 1 || open[0].Rule != 2 {
		t.Fatalf("expected one rule-2 violation, got %+v", open)
	}
	if open[0].Severity != types.SeverityWarning {
		t.Fatalf("rule 2 severity = %s", open[0].Severity)
	}
}

func TestEditRetiresDownstreamViolations(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	env.setManualLimits(t, char.ID)
	ctx := context.Background()

	res := env.submit(t, char.ID, 15.0)
	if open := env.listViolations(t, char.ID, false); len(open) != 1 {
		t.Fatalf("setup: expected 1 violation")
	}

	// bring the sample back in band; the old conclusion must retire
	if _, err := env.samples.Edit(ctx, res.SampleID, []float64{10.1}, "instrument offset corrected", "op"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if open := env.listViolations(t, char.ID, false); len(open) != 0 {
		t.Fatalf("violation still open after corrective edit: %d", len(open))
	}
	all := env.listViolations(t, char.ID, true)
	if len(all) != 1 || !all[0].Retired {
		t.Fatalf("retired violation not preserved in history")
	}
}

func TestEditReevaluationRestoresStillValidViolation(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	env.setManualLimits(t, char.ID)
	ctx := context.Background()

	res := env.submit(t, char.ID, 15.0)
	v := env.listViolations(t, char.ID, false)[0]

	// acknowledge, then edit to a value that still violates: the violation is
	// restored with its acknowledgment intact, not duplicated
	if _, err := env.violations.Acknowledge(ctx, v.ID, AckInput{Reason: "tool crash", Actor: "op"}); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if _, err := env.samples.Edit(ctx, res.SampleID, []float64{16.0}, "re-read gauge", "op"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	open := env.listViolations(t, char.ID, false)
	if len(open) != 1 {
		t.Fatalf("expected 1 open violation after re-evaluation, got %d", len(open))
	}
	if open[0].ID != v.ID {
		t.Fatalf("re-evaluation created a duplicate instead of restoring")
	}
	if !open[0].Acknowledged {
		t.Fatalf("restore dropped the acknowledgment")
	}
}

func TestExcludedSampleLeavesDetectionWindow(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	env.setManualLimits(t, char.ID)
	ctx := context.Background()

	res := env.submit(t, char.ID, 15.0)
	if open := env.listViolations(t, char.ID, false); len(open) != 1 {
		t.Fatalf("setup: expected 1 violation")
	}

	if _, err := env.samples.Exclude(ctx, res.SampleID, true, "known fixture fault", "op"); err != nil {
		t.Fatalf("exclude: %v", err)
	}
	if open := env.listViolations(t, char.ID, false); len(open) != 0 {
		t.Fatalf("violation still open after excluding its sample")
	}

	// restoring the sample re-raises the same violation row
	if _, err := env.samples.Exclude(ctx, res.SampleID, false, "", "op"); err != nil {
		t.Fatalf("include: %v", err)
	}
	open := env.listViolations(t, char.ID, false)
	if len(open) != 1 {
		t.Fatalf("violation not restored after including sample, got %d", len(open))
	}
}

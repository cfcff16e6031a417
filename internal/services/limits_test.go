package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/fabwatch/fabwatch-backend/internal/spcerrors"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

func TestSetManualLimitsValidates(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	ctx := context.Background()

	// inverted band
	if _, err := env.limits.Set(ctx, char.ID, 10, 8, 12, 1); !errors.Is(err, spcerrors.ErrValidation) {
		t.Fatalf("inverted band accepted: %v", err)
	}
	// zero sigma
	if _, err := env.limits.Set(ctx, char.ID, 10, 12, 8, 0); !errors.Is(err, spcerrors.ErrValidation) {
		t.Fatalf("zero sigma accepted: %v", err)
	}

	lim, err := env.limits.Set(ctx, char.ID, 10, 11.5, 8.5, 0.5)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if lim.Mode != types.LimitModeManual || lim.Version != 1 {
		t.Fatalf("stored limits wrong: mode=%s version=%d", lim.Mode, lim.Version)
	}
}

func TestSetLimitsBumpsVersion(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	ctx := context.Background()

	first, err := env.limits.Set(ctx, char.ID, 10, 11.5, 8.5, 0.5)
	if err != nil {
		t.Fatalf("first set: %v", err)
	}
	second, err := env.limits.Set(ctx, char.ID, 10, 13, 7, 1)
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if second.Version != first.Version+1 {
		t.Fatalf("version did not advance: %d -> %d", first.Version, second.Version)
	}
	if math.Abs(second.UCL-13) > 1e-9 {
		t.Fatalf("second band not stored")
	}
}

func TestRecalculateNeedsMinimumSamples(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	ctx := context.Background()

	for i := 0; i < 19; i++ {
		env.submit(t, char.ID, 10+0.1*float64(i%5))
	}
	_, err := env.limits.Recalculate(ctx, char.ID)
	if !errors.Is(err, spcerrors.ErrPrecondition) {
		t.Fatalf("19 samples: got %v, want precondition error", err)
	}
}

func TestRecalculateComputesIndividualsLimits(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	ctx := context.Background()

	// 20 samples alternating-ish around 10, constant moving range 0.4
	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			env.submit(t, char.ID, 9.8)
		} else {
			env.submit(t, char.ID, 10.2)
		}
	}

	lim, err := env.limits.Recalculate(ctx, char.ID)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if lim.Mode != types.LimitModeComputed {
		t.Fatalf("mode = %s, want computed", lim.Mode)
	}
	if lim.SampleCount != 20 {
		t.Fatalf("sample count = %d, want 20", lim.SampleCount)
	}
	wantSigma := 0.4 / 1.128
	if math.Abs(lim.Sigma-wantSigma) > 1e-9 {
		t.Fatalf("sigma = %v, want %v", lim.Sigma, wantSigma)
	}
	if math.Abs(lim.CenterLine-10) > 1e-9 {
		t.Fatalf("center line = %v, want 10", lim.CenterLine)
	}
}

func TestRecalculateIgnoresExcludedSamples(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if i%2 == 0 {
			env.submit(t, char.ID, 9.8)
		} else {
			env.submit(t, char.ID, 10.2)
		}
	}
	// an outlier that would drag the center line, then exclude it
	outlier := env.submit(t, char.ID, 50.0)
	if _, err := env.samples.Exclude(ctx, outlier.SampleID, true, "dropped part", "op"); err != nil {
		t.Fatalf("exclude: %v", err)
	}

	lim, err := env.limits.Recalculate(ctx, char.ID)
	if err != nil {
		t.Fatalf("recalculate: %v", err)
	}
	if math.Abs(lim.CenterLine-10) > 1e-9 {
		t.Fatalf("excluded sample leaked into recalculation: CL = %v", lim.CenterLine)
	}
	if lim.SampleCount != 20 {
		t.Fatalf("sample count = %d, want 20", lim.SampleCount)
	}
}

func TestRecalculateRejectsZeroVariation(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		env.submit(t, char.ID, 10.0)
	}
	_, err := env.limits.Recalculate(ctx, char.ID)
	if !errors.Is(err, spcerrors.ErrPrecondition) {
		t.Fatalf("flat series: got %v, want precondition error", err)
	}
}

func TestGetLimitsUnsetReturnsNil(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)

	lim, err := env.limits.Get(context.Background(), char.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if lim != nil {
		t.Fatalf("expected nil limits before any set, got %+v", lim)
	}
}

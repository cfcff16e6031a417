package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/fabwatch/fabwatch-backend/internal/spcerrors"
)

func TestCreateCharacteristicDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	char, err := env.characteristics.Create(ctx, CharacteristicInput{
		Name:         "bore diameter",
		SubgroupSize: 5,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if char.MinMeasurements != 5 {
		t.Fatalf("min measurements = %d, want subgroup size", char.MinMeasurements)
	}
	if char.DecimalPlaces != 2 {
		t.Fatalf("decimal places = %d, want default 2", char.DecimalPlaces)
	}

	got, err := env.characteristics.GetByID(ctx, char.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "bore diameter" {
		t.Fatalf("name = %q", got.Name)
	}
}

func TestCreateCharacteristicValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	usl, lsl := 9.0, 11.0
	cases := []CharacteristicInput{
		{Name: "", SubgroupSize: 1},
		{Name: "x", SubgroupSize: 0},
		{Name: "x", SubgroupSize: 26},
		{Name: "x", SubgroupSize: 3, MinMeasurements: 4},
		{Name: "x", SubgroupSize: 1, USL: &usl, LSL: &lsl}, // USL <= LSL
	}
	for i, in := range cases {
		if _, err := env.characteristics.Create(ctx, in); !errors.Is(err, spcerrors.ErrValidation) {
			t.Fatalf("case %d accepted: %v", i, err)
		}
	}
}

func TestUpdateCharacteristicSpecFields(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	char, err := env.characteristics.Create(ctx, CharacteristicInput{Name: "bore diameter", SubgroupSize: 1})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	target, usl, lsl := 10.0, 10.5, 9.5
	updated, err := env.characteristics.Update(ctx, char.ID, CharacteristicUpdate{
		Target: &target,
		USL:    &usl,
		LSL:    &lsl,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Target == nil || *updated.Target != 10.0 {
		t.Fatalf("target not stored: %+v", updated.Target)
	}
	if updated.USL == nil || updated.LSL == nil || *updated.USL != 10.5 || *updated.LSL != 9.5 {
		t.Fatalf("spec band not stored")
	}

	// USL below the stored LSL is rejected
	badUSL := 9.0
	if _, err := env.characteristics.Update(ctx, char.ID, CharacteristicUpdate{USL: &badUSL}); !errors.Is(err, spcerrors.ErrValidation) {
		t.Fatalf("USL below LSL accepted: %v", err)
	}

	// empty update is a no-op
	same, err := env.characteristics.Update(ctx, char.ID, CharacteristicUpdate{})
	if err != nil {
		t.Fatalf("empty update: %v", err)
	}
	if same.Target == nil || *same.Target != 10.0 {
		t.Fatalf("empty update changed stored fields")
	}
}

func TestGetCharacteristicNotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.characteristics.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, spcerrors.ErrNotFound) {
		t.Fatalf("got %v, want not-found", err)
	}
}

package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/fabwatch/fabwatch-backend/internal/spcerrors"
	"github.com/fabwatch/fabwatch-backend/internal/types"
)

func TestChartDataAssemblesFullPayload(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	env.setManualLimits(t, char.ID)
	ctx := context.Background()

	env.submit(t, char.ID, 10.1)
	outlier := env.submit(t, char.ID, 15.0)
	excluded := env.submit(t, char.ID, 10.2)
	_, err := env.samples.Exclude(ctx, excluded.SampleID, true, "bad gauge", "op")
	require.NoError(t, err)
	_, err = env.annotations.Create(ctx, char.ID, AnnotationInput{
		Kind:     types.AnnotationKindPoint,
		Text:     "note",
		Author:   "op",
		SampleID: &outlier.SampleID,
	})
	require.NoError(t, err)

	data, err := env.charts.GetChartData(ctx, char.ID, 0)
	require.NoError(t, err)
	require.Equal(t, char.ID, data.Characteristic.ID)

	// excluded samples stay on the chart, flagged
	require.Len(t, data.Points, 3)
	require.True(t, data.Points[2].IsExcluded, "excluded point not flagged")
	require.Less(t, data.Points[0].Seq, data.Points[1].Seq, "points not in ascending order")

	require.NotNil(t, data.Limits)
	require.Equal(t, 11.5, data.Limits.UCL)

	require.Len(t, data.Violations, 1)
	require.Equal(t, 1, data.Violations[0].Rule)
	require.Len(t, data.Annotations, 1)
}

func TestChartDataWindowLimitsPoints(t *testing.T) {
	env := newTestEnv(t)
	char := env.createCharacteristic(t, 1)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		env.submit(t, char.ID, 10+0.1*float64(i%3))
	}

	data, err := env.charts.GetChartData(ctx, char.ID, 4)
	require.NoError(t, err)
	require.Len(t, data.Points, 4)

	// window keeps the newest samples
	require.EqualValues(t, 10, data.Points[len(data.Points)-1].Seq)
	require.EqualValues(t, 7, data.Points[0].Seq)
}

func TestChartDataUnknownCharacteristic(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.charts.GetChartData(context.Background(), uuid.New(), 0)
	require.ErrorIs(t, err, spcerrors.ErrNotFound)
}

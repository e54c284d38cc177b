package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedulematch/internal/model"
)

// exerciseStore runs the behaviour every Store backend must share against an
// initialized store.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := store.GetRun(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	older := sampleRun("run-old", "2026-01-01T00:00:00Z")
	newer := sampleRun("run-new", "2026-02-01T00:00:00Z")
	sameInstant := sampleRun("run-same", "2026-02-01T00:00:00Z")
	for _, run := range []model.RunRecord{older, newer, sameInstant} {
		require.NoError(t, store.SaveRun(ctx, run))
	}

	loaded, ok, err := store.GetRun(ctx, "run-old")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, older, loaded)

	runs, err := store.ListRuns(ctx)
	require.NoError(t, err)
	ids := make([]string, 0, len(runs))
	for _, run := range runs {
		ids = append(ids, run.ID)
	}
	assert.Equal(t, []string{"run-same", "run-new", "run-old"}, ids)

	older.BestCost = 1.25
	require.NoError(t, store.SaveRun(ctx, older))
	loaded, _, err = store.GetRun(ctx, "run-old")
	require.NoError(t, err)
	assert.Equal(t, 1.25, loaded.BestCost)

	history := []float64{9, 8.5, 8.5, 7}
	require.NoError(t, store.SaveCostHistory(ctx, "run-old", history))
	gotHistory, ok, err := store.GetCostHistory(ctx, "run-old")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, history, gotHistory)

	diagnostics := []model.GenerationDiagnostics{{Generation: 1, BestCost: 9, MeanCost: 15, WorstCost: 30, BestFitness: 1 / 9.0, DistinctCount: 10}}
	require.NoError(t, store.SaveGenerationDiagnostics(ctx, "run-old", diagnostics))
	gotDiagnostics, ok, err := store.GetGenerationDiagnostics(ctx, "run-old")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, diagnostics, gotDiagnostics)

	require.NoError(t, store.DeleteRun(ctx, "run-old"))
	_, ok, err = store.GetRun(ctx, "run-old")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.GetCostHistory(ctx, "run-old")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.GetGenerationDiagnostics(ctx, "run-old")
	require.NoError(t, err)
	assert.False(t, ok)
}

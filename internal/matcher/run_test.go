package matcher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunReferenceScenarioImproves(t *testing.T) {
	if testing.Short() {
		t.Skip("stochastic end-to-end run")
	}
	ctx := context.Background()

	improved := 0
	const seeds = 5
	for seed := int64(1); seed <= seeds; seed++ {
		cfg := DefaultConfig()
		cfg.PopulationSize = 300
		cfg.MaxIterations = 150
		cfg.Seed = seed
		cfg.Workers = 2

		m, err := New(ctx, referenceScheduled, referenceDoses, cfg)
		require.NoError(t, err)
		result, err := m.Run(ctx, nil)
		require.NoError(t, err)

		require.Len(t, result.BestCostByGeneration, cfg.MaxIterations)
		require.Len(t, result.Pairings, len(referenceScheduled))
		require.True(t, result.Best.Valid)
		for i, p := range result.Pairings {
			assert.Equal(t, referenceScheduled[i], p.Scheduled)
		}
		if result.Best.Cost < result.BestCostByGeneration[0] {
			improved++
		}
	}
	assert.GreaterOrEqual(t, improved, seeds-1, "final best should beat the first generation in most runs")
}

func TestRunReportsEveryGeneration(t *testing.T) {
	m, err := New(context.Background(), referenceScheduled, referenceDoses, smallConfig())
	require.NoError(t, err)

	var generations []int
	result, err := m.Run(context.Background(), func(r GenerationReport) error {
		generations = append(generations, r.Generation)
		require.Len(t, r.Pairings, len(referenceScheduled))
		require.Equal(t, r.Best.Cost, r.Diagnostics.BestCost)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, generations, 20)
	assert.Equal(t, 1, generations[0])
	assert.Equal(t, 20, generations[19])
	assert.Equal(t, 20, result.Generations)
	assert.Len(t, result.Diagnostics, 20)
	assert.Greater(t, result.InitialBestCost, 0.0)
}

func TestRunStopsOnObserverError(t *testing.T) {
	m, err := New(context.Background(), referenceScheduled, referenceDoses, smallConfig())
	require.NoError(t, err)

	stop := errors.New("enough")
	calls := 0
	_, err = m.Run(context.Background(), func(r GenerationReport) error {
		calls++
		if r.Generation == 3 {
			return stop
		}
		return nil
	})
	require.True(t, errors.Is(err, stop))
	assert.Equal(t, 3, calls)
}

func TestRunHonorsCancellation(t *testing.T) {
	m, err := New(context.Background(), referenceScheduled, referenceDoses, smallConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Run(ctx, nil)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestRunStopsOnPerfectMatching(t *testing.T) {
	cfg := smallConfig()
	cfg.PopulationSize = 50
	cfg.MaxIterations = 100
	cfg.StopOnPerfect = true

	m, err := New(context.Background(), []float64{1, 2}, []float64{1, 2}, cfg)
	require.NoError(t, err)
	result, err := m.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.True(t, result.Solved)
	assert.Less(t, result.Generations, 100)
	assert.Equal(t, 0.0, result.Best.Cost)
	assert.Equal(t, 1/MinCost, result.Best.Fitness)
	require.Len(t, result.Pairings, 2)
	assert.Equal(t, 1.0, *result.Pairings[0].Dose)
	assert.Equal(t, 2.0, *result.Pairings[1].Dose)
}

func TestDiagnosticsAreConsistent(t *testing.T) {
	cfg := smallConfig()
	m, err := New(context.Background(), referenceScheduled, []float64{8, 9, 12, 16, 28}, cfg)
	require.NoError(t, err)
	require.NoError(t, m.Evolve(context.Background()))

	d := m.Diagnostics(1)
	assert.Equal(t, 1, d.Generation)
	assert.LessOrEqual(t, d.BestCost, d.MeanCost)
	assert.LessOrEqual(t, d.MeanCost, d.WorstCost)
	assert.LessOrEqual(t, d.DistinctCount, cfg.PopulationSize)
	assert.GreaterOrEqual(t, d.DistinctCount, 1)

	invalid := 0
	for _, ok := range m.Valid() {
		if !ok {
			invalid++
		}
	}
	assert.Equal(t, invalid, d.InvalidCount)
	assert.Equal(t, m.Best().Fitness, d.BestFitness)
}

func TestTournamentSelectionRuns(t *testing.T) {
	cfg := smallConfig()
	cfg.Selection = SelectionTournament
	cfg.TournamentSize = 3

	m, err := New(context.Background(), referenceScheduled, referenceDoses, cfg)
	require.NoError(t, err)
	result, err := m.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, cfg.MaxIterations, result.Generations)
}

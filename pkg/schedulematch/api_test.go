package schedulematch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedulematch/internal/matcher"
	"schedulematch/internal/storage"
)

var (
	referenceScheduled = []float64{5, 7, 15, 17, 25, 27, 35, 37}
	referenceDoses     = []float64{8, 9, 12, 16, 28, 34, 36}
)

func testConfig(seed int64) matcher.Config {
	cfg := matcher.DefaultConfig()
	cfg.PopulationSize = 40
	cfg.MaxIterations = 10
	cfg.Seed = seed
	return cfg
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	tick := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	client, err := New(Options{
		StoreKind:  storage.KindMemory,
		ExportsDir: t.TempDir(),
		Now: func() time.Time {
			tick = tick.Add(time.Second)
			return tick
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestMatchStoresReport(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	generations := 0
	summary, err := client.Match(ctx, MatchRequest{
		Scheduled: referenceScheduled,
		Doses:     referenceDoses,
		Config:    testConfig(3),
		Observer: func(matcher.GenerationReport) error {
			generations++
			return nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 10, generations)

	_, err = uuid.Parse(summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, summary.Record.ID)
	assert.Len(t, summary.Record.Pairings, len(referenceScheduled))
	assert.Len(t, summary.Record.BestChromosome, 24)
	assert.Equal(t, 40, summary.Record.Parameters.PopulationSize)
	assert.Equal(t, "2026-04-01T12:00:01Z", summary.Record.CreatedAtUTC)

	run, err := client.Run(ctx, RunRef{RunID: summary.RunID})
	require.NoError(t, err)
	assert.Equal(t, summary.Record, run)

	history, err := client.CostHistory(ctx, HistoryRequest{RunRef: RunRef{Latest: true}})
	require.NoError(t, err)
	assert.Equal(t, summary.Result.BestCostByGeneration, history)

	limited, err := client.Diagnostics(ctx, HistoryRequest{RunRef: RunRef{RunID: summary.RunID}, Limit: 3})
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.Equal(t, 1, limited[0].Generation)
}

func TestRunsNewestFirst(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	first, err := client.Match(ctx, MatchRequest{Scheduled: referenceScheduled, Doses: referenceDoses, Config: testConfig(1)})
	require.NoError(t, err)
	second, err := client.Match(ctx, MatchRequest{Scheduled: referenceScheduled, Doses: referenceDoses, Config: testConfig(2)})
	require.NoError(t, err)

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Equal(t, first.RunID, runs[1].RunID)
	assert.Equal(t, 8, runs[0].Slots)
	assert.Equal(t, 7, runs[0].Doses)
	assert.Equal(t, int64(2), runs[0].Seed)

	runs, err = client.Runs(ctx, RunsRequest{Limit: 1})
	require.NoError(t, err)
	require.Len(t, runs, 1)

	latest, err := client.Run(ctx, RunRef{Latest: true})
	require.NoError(t, err)
	assert.Equal(t, second.RunID, latest.ID)
}

func TestMatchFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.Match(ctx, MatchRequest{Scheduled: referenceScheduled, Doses: nil, Config: testConfig(1)})
	require.True(t, errors.Is(err, matcher.ErrInvalidInput), "got %v", err)

	stop := errors.New("stop")
	_, err = client.Match(ctx, MatchRequest{
		Scheduled: referenceScheduled,
		Doses:     referenceDoses,
		Config:    testConfig(1),
		Observer:  func(matcher.GenerationReport) error { return stop },
	})
	require.True(t, errors.Is(err, stop))

	runs, err := client.Runs(ctx, RunsRequest{})
	require.NoError(t, err)
	assert.Empty(t, runs)

	_, err = client.Run(ctx, RunRef{Latest: true})
	require.Error(t, err)
}

func TestRunRefValidation(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	_, err := client.Run(ctx, RunRef{RunID: "x", Latest: true})
	require.Error(t, err)
	_, err = client.CostHistory(ctx, HistoryRequest{})
	require.Error(t, err)
	_, err = client.Diagnostics(ctx, HistoryRequest{RunRef: RunRef{RunID: "x"}, Limit: -1})
	require.Error(t, err)
	_, err = client.Run(ctx, RunRef{RunID: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestExportWritesArtifacts(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t)

	summary, err := client.Match(ctx, MatchRequest{Scheduled: referenceScheduled, Doses: referenceDoses, Config: testConfig(4)})
	require.NoError(t, err)

	outDir := t.TempDir()
	exported, err := client.Export(ctx, ExportRequest{RunRef: RunRef{Latest: true}, OutDir: outDir})
	require.NoError(t, err)
	assert.Equal(t, summary.RunID, exported.RunID)
	assert.Equal(t, filepath.Join(outDir, summary.RunID), exported.Directory)

	for _, file := range []string{"config.json", "pairings.json", "cost_history.csv", "generation_diagnostics.json"} {
		_, err := os.Stat(filepath.Join(exported.Directory, file))
		require.NoError(t, err, file)
	}
}

func TestNewRejectsUnknownStore(t *testing.T) {
	_, err := New(Options{StoreKind: "redis"})
	require.Error(t, err)
}

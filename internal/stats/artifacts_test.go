package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schedulematch/internal/model"
)

func sampleRecord() model.RunRecord {
	dose := 8.0
	return model.RunRecord{
		ID:              "run-123",
		CreatedAtUTC:    "2026-05-01T10:00:00Z",
		Scheduled:       []float64{5, 27},
		Doses:           []float64{8},
		Parameters:      model.MatchParameters{PopulationSize: 4, MaxIterations: 3, Seed: 1, Workers: 2, Selection: "roulette"},
		Generations:     3,
		InitialBestCost: 5.5,
		BestCost:        4.25,
		BestChromosome:  "0110",
		Pairings: []model.Pairing{
			{Scheduled: 5, Dose: &dose},
			{Scheduled: 27},
		},
	}
}

func TestWriteRunArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	history := []float64{5.5, 4.25, 4.25}
	diagnostics := []model.GenerationDiagnostics{{Generation: 1, BestCost: 5.5, MeanCost: 7, WorstCost: 9, DistinctCount: 4}}

	runDir, err := WriteRunArtifacts(baseDir, ArtifactsFromRecord(sampleRecord(), history, diagnostics))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(baseDir, "run-123"), runDir)

	for _, file := range []string{"config.json", "pairings.json", "cost_history.csv", "generation_diagnostics.json"} {
		_, err := os.Stat(filepath.Join(runDir, file))
		require.NoError(t, err, file)
	}

	cfg, ok, err := ReadRunConfig(baseDir, "run-123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4.25, cfg.BestCost)
	assert.Equal(t, []float64{5, 27}, cfg.Scheduled)
	assert.Equal(t, 2, cfg.Parameters.Workers)

	pairings, ok, err := ReadPairings(baseDir, "run-123")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, pairings, 2)
	assert.Equal(t, 8.0, *pairings[0].Dose)
	assert.False(t, pairings[1].Matched())

	gotHistory, ok, err := ReadCostHistory(baseDir, "run-123")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, history, gotHistory)

	data, err := os.ReadFile(filepath.Join(runDir, "generation_diagnostics.json"))
	require.NoError(t, err)
	var gotDiagnostics []model.GenerationDiagnostics
	require.NoError(t, json.Unmarshal(data, &gotDiagnostics))
	assert.Equal(t, diagnostics, gotDiagnostics)
}

func TestCostHistoryCSVLayout(t *testing.T) {
	baseDir := t.TempDir()
	runDir, err := WriteRunArtifacts(baseDir, RunArtifacts{
		Config:      RunConfig{RunID: "run-csv"},
		CostHistory: []float64{12, 9.6},
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(runDir, "cost_history.csv"))
	require.NoError(t, err)
	assert.Equal(t, "generation,best_cost\n1,12\n2,9.6\n", string(data))

	data, err = os.ReadFile(filepath.Join(runDir, "pairings.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWriteRunArtifactsRequiresRunID(t *testing.T) {
	_, err := WriteRunArtifacts(t.TempDir(), RunArtifacts{Config: RunConfig{RunID: "  "}})
	require.Error(t, err)
}

func TestReadMissingArtifacts(t *testing.T) {
	baseDir := t.TempDir()
	_, ok, err := ReadRunConfig(baseDir, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = ReadCostHistory(baseDir, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

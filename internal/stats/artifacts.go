package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"schedulematch/internal/model"
)

const (
	configFile      = "config.json"
	pairingsFile    = "pairings.json"
	costHistoryFile = "cost_history.csv"
	diagnosticsFile = "generation_diagnostics.json"
)

// RunConfig is the config.json artifact: the inputs and parameters a run was
// started with plus its headline result.
type RunConfig struct {
	RunID           string                `json:"run_id"`
	CreatedAtUTC    string                `json:"created_at_utc"`
	Scheduled       []float64             `json:"scheduled"`
	Doses           []float64             `json:"doses"`
	Parameters      model.MatchParameters `json:"parameters"`
	Generations     int                   `json:"generations"`
	Restarts        int                   `json:"restarts"`
	InitialBestCost float64               `json:"initial_best_cost"`
	BestCost        float64               `json:"best_cost"`
	BestChromosome  string                `json:"best_chromosome"`
	Solved          bool                  `json:"solved"`
}

type RunArtifacts struct {
	Config                RunConfig
	Pairings              []model.Pairing
	CostHistory           []float64
	GenerationDiagnostics []model.GenerationDiagnostics
}

// ArtifactsFromRecord assembles the artifacts of a stored run.
func ArtifactsFromRecord(run model.RunRecord, history []float64, diagnostics []model.GenerationDiagnostics) RunArtifacts {
	return RunArtifacts{
		Config: RunConfig{
			RunID:           run.ID,
			CreatedAtUTC:    run.CreatedAtUTC,
			Scheduled:       run.Scheduled,
			Doses:           run.Doses,
			Parameters:      run.Parameters,
			Generations:     run.Generations,
			Restarts:        run.Restarts,
			InitialBestCost: run.InitialBestCost,
			BestCost:        run.BestCost,
			BestChromosome:  run.BestChromosome,
			Solved:          run.Solved,
		},
		Pairings:              run.Pairings,
		CostHistory:           history,
		GenerationDiagnostics: diagnostics,
	}
}

// WriteRunArtifacts writes every artifact into baseDir/<run id>/ and returns
// that directory.
func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	runID := strings.TrimSpace(artifacts.Config.RunID)
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, runID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	pairings := artifacts.Pairings
	if pairings == nil {
		pairings = []model.Pairing{}
	}
	if err := writeJSON(filepath.Join(runDir, pairingsFile), pairings); err != nil {
		return "", err
	}
	if err := writeCostHistory(filepath.Join(runDir, costHistoryFile), artifacts.CostHistory); err != nil {
		return "", err
	}
	diagnostics := artifacts.GenerationDiagnostics
	if diagnostics == nil {
		diagnostics = []model.GenerationDiagnostics{}
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), diagnostics); err != nil {
		return "", err
	}
	return runDir, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadPairings(baseDir, runID string) ([]model.Pairing, bool, error) {
	var pairings []model.Pairing
	ok, err := readJSON(filepath.Join(baseDir, runID, pairingsFile), &pairings)
	return pairings, ok, err
}

// ReadCostHistory parses cost_history.csv back into best cost per generation.
func ReadCostHistory(baseDir, runID string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(baseDir, runID, costHistoryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("cost history header must have at least 2 columns")
	}

	history := make([]float64, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if len(record) < 2 {
			return nil, false, fmt.Errorf("cost history row must have at least 2 columns")
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		history = append(history, value)
	}
	return history, true, nil
}

func writeCostHistory(path string, history []float64) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"generation", "best_cost"}); err != nil {
		return err
	}
	for i, best := range history {
		if err := writer.Write([]string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(best, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

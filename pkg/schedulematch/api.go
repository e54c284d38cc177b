// Package schedulematch is the embedding API: run a matching, keep its
// report, and read or export stored reports.
package schedulematch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"schedulematch/internal/matcher"
	"schedulematch/internal/model"
	"schedulematch/internal/stats"
	"schedulematch/internal/storage"
)

const (
	defaultExportsDir = "exports"
	defaultDBPath     = "schedulematch.db"
)

type Options struct {
	StoreKind  string
	DBPath     string
	ExportsDir string
	Logger     *slog.Logger
	// Now stamps new run records; defaults to time.Now.
	Now func() time.Time
}

type Client struct {
	store      storage.Store
	exportsDir string
	logger     *slog.Logger
	now        func() time.Time

	mu          sync.Mutex
	initialized bool
}

type MatchRequest struct {
	Scheduled []float64
	Doses     []float64
	Config    matcher.Config
	// Observer, when set, sees every generation as it finishes.
	Observer matcher.Observer
}

type MatchSummary struct {
	RunID  string
	Record model.RunRecord
	Result matcher.RunResult
}

type RunsRequest struct {
	Limit int
}

type RunItem struct {
	RunID          string
	CreatedAtUTC   string
	Slots          int
	Doses          int
	PopulationSize int
	Generations    int
	Seed           int64
	BestCost       float64
	Matched        int
	Solved         bool
}

// RunRef names a stored run either by id or as the most recent one.
type RunRef struct {
	RunID  string
	Latest bool
}

type HistoryRequest struct {
	RunRef
	Limit int
}

type ExportRequest struct {
	RunRef
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		exportsDir: exportsDir,
		logger:     logger,
		now:        now,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Match runs the matcher to completion and stores its report. A run that
// fails or is cancelled stores nothing.
func (c *Client) Match(ctx context.Context, req MatchRequest) (MatchSummary, error) {
	if err := c.ensureStore(ctx); err != nil {
		return MatchSummary{}, err
	}

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)

	m, err := matcher.New(ctx, req.Scheduled, req.Doses, req.Config, matcher.WithLogger(logger))
	if err != nil {
		return MatchSummary{}, err
	}
	result, err := m.Run(ctx, req.Observer)
	if err != nil {
		return MatchSummary{}, fmt.Errorf("run %s: %w", runID, err)
	}

	record := model.RunRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              runID,
		CreatedAtUTC:    c.now().UTC().Format(time.RFC3339),
		Scheduled:       m.Scheduled(),
		Doses:           m.Doses(),
		Parameters:      parametersFromConfig(m.Config()),
		Generations:     result.Generations,
		Restarts:        result.Restarts,
		InitialBestCost: result.InitialBestCost,
		BestCost:        result.Best.Cost,
		BestChromosome:  result.Best.Chromosome.String(),
		Solved:          result.Solved,
		Pairings:        result.Pairings,
	}

	if err := c.store.SaveRun(ctx, record); err != nil {
		return MatchSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}
	if err := c.store.SaveCostHistory(ctx, runID, result.BestCostByGeneration); err != nil {
		return MatchSummary{}, fmt.Errorf("save cost history %s: %w", runID, err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, result.Diagnostics); err != nil {
		return MatchSummary{}, fmt.Errorf("save diagnostics %s: %w", runID, err)
	}

	logger.Info("match finished",
		"generations", result.Generations,
		"best_cost", result.Best.Cost,
		"restarts", result.Restarts,
		"solved", result.Solved,
	)
	return MatchSummary{RunID: runID, Record: record, Result: result}, nil
}

// Runs lists stored runs, newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]RunItem, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.ensureStore(ctx); err != nil {
		return nil, err
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}

	items := make([]RunItem, 0, len(runs))
	for _, run := range runs {
		matched := 0
		for _, p := range run.Pairings {
			if p.Matched() {
				matched++
			}
		}
		items = append(items, RunItem{
			RunID:          run.ID,
			CreatedAtUTC:   run.CreatedAtUTC,
			Slots:          len(run.Scheduled),
			Doses:          len(run.Doses),
			PopulationSize: run.Parameters.PopulationSize,
			Generations:    run.Generations,
			Seed:           run.Parameters.Seed,
			BestCost:       run.BestCost,
			Matched:        matched,
			Solved:         run.Solved,
		})
	}
	return items, nil
}

func (c *Client) Run(ctx context.Context, ref RunRef) (model.RunRecord, error) {
	runID, err := c.resolveRunID(ctx, ref, "run")
	if err != nil {
		return model.RunRecord{}, err
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found for run id: %s", runID)
	}
	return run, nil
}

func (c *Client) CostHistory(ctx context.Context, req HistoryRequest) ([]float64, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunRef, "cost history")
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetCostHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("cost history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return history, nil
}

func (c *Client) Diagnostics(ctx context.Context, req HistoryRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunRef, "diagnostics")
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

// Export writes a stored run's artifacts under OutDir (or the client's
// exports directory).
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	run, err := c.Run(ctx, req.RunRef)
	if err != nil {
		return ExportSummary{}, err
	}
	history, _, err := c.store.GetCostHistory(ctx, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}
	diagnostics, _, err := c.store.GetGenerationDiagnostics(ctx, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}

	outDir := req.OutDir
	if outDir == "" {
		outDir = c.exportsDir
	}
	dir, err := stats.WriteRunArtifacts(outDir, stats.ArtifactsFromRecord(run, history, diagnostics))
	if err != nil {
		return ExportSummary{}, err
	}
	c.logger.Info("run exported", "run_id", run.ID, "dir", dir)
	return ExportSummary{RunID: run.ID, Directory: dir}, nil
}

func (c *Client) resolveRunID(ctx context.Context, ref RunRef, what string) (string, error) {
	if ref.RunID != "" && ref.Latest {
		return "", errors.New("use either run id or latest")
	}
	if err := c.ensureStore(ctx); err != nil {
		return "", err
	}
	if !ref.Latest {
		if ref.RunID == "" {
			return "", fmt.Errorf("%s requires run id or latest", what)
		}
		return ref.RunID, nil
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].ID, nil
}

func (c *Client) ensureStore(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	c.initialized = true
	return nil
}

func parametersFromConfig(cfg matcher.Config) model.MatchParameters {
	return model.MatchParameters{
		PopulationSize: cfg.PopulationSize,
		Alpha:          cfg.Alpha,
		Beta:           cfg.Beta,
		Gamma:          cfg.Gamma,
		Iota:           cfg.Iota,
		Eta:            cfg.Eta,
		Chi:            cfg.Chi,
		Mu:             cfg.Mu,
		Kappa:          cfg.Kappa,
		MaxIterations:  cfg.MaxIterations,
		Seed:           cfg.Seed,
		Workers:        cfg.Workers,
		MaxRestarts:    cfg.MaxRestarts,
		Selection:      cfg.Selection,
		TournamentSize: cfg.TournamentSize,
		StopOnPerfect:  cfg.StopOnPerfect,
	}
}

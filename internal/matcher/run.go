package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"schedulematch/internal/model"
)

type GenerationReport struct {
	Generation  int
	Best        Individual
	Pairings    []model.Pairing
	Diagnostics model.GenerationDiagnostics
}

// Observer receives the best matching after every generation. Returning an
// error stops the run.
type Observer func(GenerationReport) error

type RunResult struct {
	InitialBestCost      float64
	BestCostByGeneration []float64
	Diagnostics          []model.GenerationDiagnostics
	Best                 Individual
	Pairings             []model.Pairing
	Generations          int
	Restarts             int
	Solved               bool
}

// Run evolves cfg.MaxIterations generations, reporting each one to observer
// (which may be nil). A generation that comes out all-invalid triggers a
// population restart while the restart budget lasts. With StopOnPerfect the
// run ends at the first zero-cost matching.
func (m *Matcher) Run(ctx context.Context, observer Observer) (RunResult, error) {
	initial := m.Best()
	result := RunResult{
		InitialBestCost:      initial.Cost,
		BestCostByGeneration: make([]float64, 0, m.cfg.MaxIterations),
		Diagnostics:          make([]model.GenerationDiagnostics, 0, m.cfg.MaxIterations),
	}

	for gen := 1; gen <= m.cfg.MaxIterations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		if err := m.Evolve(ctx); err != nil {
			if !errors.Is(err, ErrDegeneratePopulation) {
				return RunResult{}, err
			}
			if err := m.restart(ctx, err); err != nil {
				return RunResult{}, err
			}
		}

		best := m.Best()
		diagnostics := m.Diagnostics(gen)
		bestCostGauge.Set(best.Cost)
		result.BestCostByGeneration = append(result.BestCostByGeneration, best.Cost)
		result.Diagnostics = append(result.Diagnostics, diagnostics)
		result.Generations = gen

		m.logger.Debug("generation evolved",
			slog.Int("generation", gen),
			slog.Float64("best_cost", best.Cost),
			slog.Float64("mean_cost", diagnostics.MeanCost),
			slog.Int("invalid", diagnostics.InvalidCount),
			slog.Int("distinct", diagnostics.DistinctCount),
		)

		if observer != nil {
			report := GenerationReport{
				Generation:  gen,
				Best:        best,
				Pairings:    m.Pairings(best.Chromosome),
				Diagnostics: diagnostics,
			}
			if err := observer(report); err != nil {
				return RunResult{}, fmt.Errorf("observer at generation %d: %w", gen, err)
			}
		}

		if best.Valid && best.Cost == 0 {
			result.Solved = true
			if m.cfg.StopOnPerfect {
				m.logger.Info("perfect matching found", slog.Int("generation", gen))
				break
			}
		}
	}

	result.Best = m.Best()
	result.Pairings = m.Pairings(result.Best.Chromosome)
	result.Restarts = m.restarts
	return result, nil
}

// Diagnostics summarizes the current population. Cost statistics cover valid
// individuals only.
func (m *Matcher) Diagnostics(generation int) model.GenerationDiagnostics {
	d := model.GenerationDiagnostics{Generation: generation}
	distinct := make(map[string]struct{}, len(m.population))
	validCount := 0
	costSum := 0.0
	fitnessSum := 0.0

	for i, c := range m.population {
		distinct[c.String()] = struct{}{}
		fitnessSum += m.fitnesses[i]
		if m.fitnesses[i] > d.BestFitness {
			d.BestFitness = m.fitnesses[i]
		}
		if !m.valid[i] {
			d.InvalidCount++
			continue
		}
		cost := m.costs[i]
		if validCount == 0 || cost < d.BestCost {
			d.BestCost = cost
		}
		if validCount == 0 || cost > d.WorstCost {
			d.WorstCost = cost
		}
		costSum += cost
		validCount++
	}

	if validCount > 0 {
		d.MeanCost = costSum / float64(validCount)
	}
	if len(m.population) > 0 {
		d.MeanFitness = fitnessSum / float64(len(m.population))
	}
	d.DistinctCount = len(distinct)
	return d
}

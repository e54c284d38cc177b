package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"schedulematch/internal/config"
	"schedulematch/internal/matcher"
	"schedulematch/internal/model"
	"schedulematch/internal/report"
	"schedulematch/internal/stats"
	"schedulematch/pkg/schedulematch"
)

// Used when match is run without --scheduled/--doses.
var (
	exampleScheduled = []float64{5, 7, 15, 17, 25, 27, 35, 37}
	exampleDoses     = []float64{8, 9, 12, 16, 28, 34, 36}
)

type matchFlags struct {
	scheduled       []float64
	doses           []float64
	population      int
	alpha           float64
	beta            float64
	gamma           float64
	iota            float64
	eta             float64
	chi             float64
	mu              float64
	kappa           float64
	iterations      int
	seed            int64
	workers         int
	maxRestarts     int
	selection       string
	tournamentSize  int
	stopOnPerfect   bool
	everyGeneration bool
	jsonOut         bool
}

func newMatchCmd(a *app) *cobra.Command {
	var f matchFlags
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Run the matcher and print the best pairing",
		Long: `Run the matcher and print the best pairing.

The run is recorded in the configured store. With the memory store the
record lives only for this process; use --store sqlite (the default in
builds tagged sqlite) to inspect it later with runs, history, diagnostics
and export.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			applyMatchFlags(cmd, &s, f)
			if err := s.Validate(); err != nil {
				return err
			}
			return runMatch(cmd, a, s, f)
		},
	}

	defaults := config.Default()
	fl := cmd.Flags()
	fl.Float64SliceVar(&f.scheduled, "scheduled", exampleScheduled, "scheduled timestamps")
	fl.Float64SliceVar(&f.doses, "doses", exampleDoses, "observed dose timestamps")
	fl.IntVar(&f.population, "population", defaults.PopulationSize, "population size")
	fl.Float64Var(&f.alpha, "alpha", defaults.Alpha, "penalty per unmatched scheduled event")
	fl.Float64Var(&f.beta, "beta", defaults.Beta, "penalty per unmatched dose")
	fl.Float64Var(&f.gamma, "gamma", defaults.Gamma, "weight of the distance kernel")
	fl.Float64Var(&f.iota, "iota", defaults.Iota, "penalty per dose claimed twice")
	fl.Float64Var(&f.eta, "eta", defaults.Eta, "penalty per out-of-order match")
	fl.Float64Var(&f.chi, "chi", defaults.Chi, "crossover share of each generation")
	fl.Float64Var(&f.mu, "mu", defaults.Mu, "mutation share of each generation")
	fl.Float64Var(&f.kappa, "kappa", defaults.Kappa, "distance kernel radius")
	fl.IntVar(&f.iterations, "iterations", defaults.MaxIterations, "generations to evolve")
	fl.Int64Var(&f.seed, "seed", defaults.Seed, "random seed")
	fl.IntVar(&f.workers, "workers", defaults.Workers, "cost evaluation workers")
	fl.IntVar(&f.maxRestarts, "max-restarts", defaults.MaxRestarts, "population restarts allowed when every chromosome is invalid")
	fl.StringVar(&f.selection, "selection", defaults.Selection, "parent selection: roulette|tournament")
	fl.IntVar(&f.tournamentSize, "tournament-size", defaults.TournamentSize, "tournament size (0 for default)")
	fl.BoolVar(&f.stopOnPerfect, "stop-on-perfect", defaults.StopOnPerfect, "stop at the first zero-cost matching")
	fl.BoolVar(&f.everyGeneration, "every-generation", false, "print the best pairing after every generation")
	fl.BoolVar(&f.jsonOut, "json", false, "emit the run record as JSON")
	return cmd
}

// applyMatchFlags overrides settings with the matcher flags given explicitly.
func applyMatchFlags(cmd *cobra.Command, s *config.Settings, f matchFlags) {
	fl := cmd.Flags()
	set := func(name string, apply func()) {
		if fl.Changed(name) {
			apply()
		}
	}
	set("population", func() { s.PopulationSize = f.population })
	set("alpha", func() { s.Alpha = f.alpha })
	set("beta", func() { s.Beta = f.beta })
	set("gamma", func() { s.Gamma = f.gamma })
	set("iota", func() { s.Iota = f.iota })
	set("eta", func() { s.Eta = f.eta })
	set("chi", func() { s.Chi = f.chi })
	set("mu", func() { s.Mu = f.mu })
	set("kappa", func() { s.Kappa = f.kappa })
	set("iterations", func() { s.MaxIterations = f.iterations })
	set("seed", func() { s.Seed = f.seed })
	set("workers", func() { s.Workers = f.workers })
	set("max-restarts", func() { s.MaxRestarts = f.maxRestarts })
	set("selection", func() { s.Selection = f.selection })
	set("tournament-size", func() { s.TournamentSize = f.tournamentSize })
	set("stop-on-perfect", func() { s.StopOnPerfect = f.stopOnPerfect })
}

func runMatch(cmd *cobra.Command, a *app, s config.Settings, f matchFlags) error {
	client, err := a.client(s)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	printer := report.NewPrinter(a.stdout)
	req := schedulematch.MatchRequest{
		Scheduled: f.scheduled,
		Doses:     f.doses,
		Config:    s.MatcherConfig(),
	}
	if f.everyGeneration && !f.jsonOut {
		req.Observer = func(r matcher.GenerationReport) error {
			if err := printer.WriteHeader(fmt.Sprintf("generation %d  cost %.4g", r.Generation, r.Best.Cost)); err != nil {
				return err
			}
			return printer.WriteGeneration(r.Pairings)
		}
	}

	summary, err := client.Match(cmd.Context(), req)
	if err != nil {
		return err
	}
	if f.jsonOut {
		return writeJSON(a.stdout, summary.Record)
	}

	if !f.everyGeneration {
		if err := printer.WriteGeneration(summary.Record.Pairings); err != nil {
			return err
		}
	}
	return writeMatchSummary(a.stdout, summary.Record)
}

func writeMatchSummary(w io.Writer, run model.RunRecord) error {
	matched := 0
	for _, p := range run.Pairings {
		if p.Matched() {
			matched++
		}
	}
	evaluations := int64(run.Parameters.PopulationSize) * int64(run.Generations+1)
	_, err := fmt.Fprintf(w,
		"run_id=%s best_cost=%.6g initial_best_cost=%.6g matched=%d/%d generations=%s evaluations=%s restarts=%d solved=%t\n",
		run.ID,
		run.BestCost,
		run.InitialBestCost,
		matched,
		len(run.Pairings),
		humanize.Comma(int64(run.Generations)),
		humanize.Comma(evaluations),
		run.Restarts,
		run.Solved,
	)
	return err
}

func newRunsCmd(a *app) *cobra.Command {
	var (
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			client, err := a.client(s)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			items, err := client.Runs(cmd.Context(), schedulematch.RunsRequest{Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(a.stdout, items)
			}
			if len(items) == 0 {
				_, err := fmt.Fprintln(a.stdout, "no runs found")
				return err
			}
			for _, item := range items {
				if _, err := fmt.Fprintf(a.stdout, "run_id=%s created=%s slots=%d doses=%d population=%d generations=%d seed=%d best_cost=%.6g matched=%d solved=%t\n",
					item.RunID,
					createdLabel(item.CreatedAtUTC),
					item.Slots,
					item.Doses,
					item.PopulationSize,
					item.Generations,
					item.Seed,
					item.BestCost,
					item.Matched,
					item.Solved,
				); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit runs as JSON")
	return cmd
}

// createdLabel renders a stored RFC 3339 stamp relative to now, falling back
// to the raw value.
func createdLabel(createdAt string) string {
	ts, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return createdAt
	}
	return fmt.Sprintf("%q", humanize.Time(ts))
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		ref     schedulematch.RunRef
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the best cost of each generation of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			client, err := a.client(s)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			history, err := client.CostHistory(cmd.Context(), schedulematch.HistoryRequest{RunRef: ref, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(a.stdout, map[string]any{
					"best_cost_by_generation": history,
					"summary":                 stats.SummarizeCosts(history),
				})
			}
			for i, cost := range history {
				if _, err := fmt.Fprintf(a.stdout, "generation=%d best_cost=%.6g\n", i+1, cost); err != nil {
					return err
				}
			}
			sum := stats.SummarizeCosts(history)
			_, err = fmt.Fprintf(a.stdout, "initial=%.6g final=%.6g improvement=%.6g mean=%.6g std=%.6g last_improved_at=%d\n",
				sum.InitialBest, sum.FinalBest, sum.Improvement, sum.BestMean, sum.BestStd, sum.ImprovedAt)
			return err
		},
	}
	runRefFlags(cmd, &ref)
	cmd.Flags().IntVar(&limit, "limit", 0, "max generations to print (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit history as JSON")
	return cmd
}

func newDiagnosticsCmd(a *app) *cobra.Command {
	var (
		ref     schedulematch.RunRef
		limit   int
		jsonOut bool
	)
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Print per-generation population diagnostics of a run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			client, err := a.client(s)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			diagnostics, err := client.Diagnostics(cmd.Context(), schedulematch.HistoryRequest{RunRef: ref, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(a.stdout, diagnostics)
			}
			if len(diagnostics) == 0 {
				_, err := fmt.Fprintln(a.stdout, "no diagnostics")
				return err
			}
			for _, d := range diagnostics {
				if _, err := fmt.Fprintf(a.stdout, "generation=%d best_cost=%.6g mean_cost=%.6g worst_cost=%.6g best_fitness=%.6g mean_fitness=%.6g invalid=%d distinct=%d\n",
					d.Generation,
					d.BestCost,
					d.MeanCost,
					d.WorstCost,
					d.BestFitness,
					d.MeanFitness,
					d.InvalidCount,
					d.DistinctCount,
				); err != nil {
					return err
				}
			}
			return nil
		},
	}
	runRefFlags(cmd, &ref)
	cmd.Flags().IntVar(&limit, "limit", 50, "max generations to print (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit diagnostics as JSON")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var (
		ref    schedulematch.RunRef
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a run's artifacts to disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.settings(cmd)
			if err != nil {
				return err
			}
			client, err := a.client(s)
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			exported, err := client.Export(cmd.Context(), schedulematch.ExportRequest{RunRef: ref, OutDir: outDir})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.stdout, "exported run_id=%s dir=%s\n", exported.RunID, exported.Directory)
			return err
		},
	}
	runRefFlags(cmd, &ref)
	cmd.Flags().StringVar(&outDir, "out", "", "output directory (defaults to the exports dir)")
	return cmd
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

package matcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"

	"golang.org/x/sync/errgroup"

	"schedulematch/internal/chromosome"
	"schedulematch/internal/model"
)

// Individual is one scored population member.
type Individual struct {
	Index      int
	Chromosome chromosome.BitVector
	Cost       float64
	Fitness    float64
	Valid      bool
}

type Option func(*Matcher)

func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRand replaces the seeded source built from Config.Seed.
func WithRand(rng *rand.Rand) Option {
	return func(m *Matcher) {
		if rng != nil {
			m.rng = rng
		}
	}
}

func WithSelector(selector Selector) Option {
	return func(m *Matcher) {
		if selector != nil {
			m.selector = selector
		}
	}
}

// Matcher owns one population evolving towards a low-cost matching of a
// fixed pair of scheduled and dose sequences. It is not safe for concurrent
// use.
type Matcher struct {
	cfg       Config
	scheduled []float64
	doses     []float64
	layout    chromosome.Layout
	evaluator *Evaluator
	selector  Selector
	rng       *rand.Rand
	logger    *slog.Logger

	population []chromosome.BitVector
	costs      []float64
	valid      []bool
	fitnesses  []float64
	roulette   Roulette
	generation int
	restarts   int
}

// New validates the inputs, draws a random initial population and scores it.
// An all-invalid initial population is redrawn up to cfg.MaxRestarts times.
func New(ctx context.Context, scheduled, doses []float64, cfg Config, opts ...Option) (*Matcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	sortedScheduled, err := prepareSequence("scheduled", scheduled)
	if err != nil {
		return nil, err
	}
	sortedDoses, err := prepareSequence("doses", doses)
	if err != nil {
		return nil, err
	}
	layout, err := chromosome.NewLayout(len(sortedScheduled), len(sortedDoses))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	m := &Matcher{
		cfg:       cfg,
		scheduled: sortedScheduled,
		doses:     sortedDoses,
		layout:    layout,
		evaluator: NewEvaluator(layout, sortedScheduled, sortedDoses, cfg.weights()),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.rng == nil {
		m.rng = rand.New(rand.NewSource(cfg.Seed))
	}
	if m.selector == nil {
		selector, err := NewSelector(cfg.Selection, cfg.TournamentSize)
		if err != nil {
			return nil, err
		}
		m.selector = selector
	}

	err = m.Reinitialize(ctx)
	if errors.Is(err, ErrDegeneratePopulation) {
		err = m.restart(ctx, err)
	}
	if err != nil {
		return nil, err
	}

	m.logger.Debug("matcher initialized",
		slog.Int("scheduled", len(m.scheduled)),
		slog.Int("doses", len(m.doses)),
		slog.Int("chunk_length", layout.ChunkLength()),
		slog.Int("width", layout.Width()),
		slog.Int("population", cfg.PopulationSize),
		slog.String("selection", m.selector.Name()),
	)
	return m, nil
}

func prepareSequence(name string, values []float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%w: %s sequence is empty", ErrInvalidInput, name)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s[%d] is not a finite timestamp", ErrInvalidInput, name, i)
		}
		out[i] = v
	}
	sort.Float64s(out)
	return out, nil
}

// Reinitialize replaces the population with fresh random chromosomes and
// scores it.
func (m *Matcher) Reinitialize(ctx context.Context) error {
	population := make([]chromosome.BitVector, m.cfg.PopulationSize)
	for i := range population {
		population[i] = m.layout.Random(m.rng)
	}
	return m.evaluate(ctx, population, m.generation)
}

// restart redraws the population after cause until it is usable or the
// restart budget is spent.
func (m *Matcher) restart(ctx context.Context, cause error) error {
	err := cause
	for errors.Is(err, ErrDegeneratePopulation) {
		if m.restarts >= m.cfg.MaxRestarts {
			return fmt.Errorf("after %d restarts: %w", m.restarts, err)
		}
		m.restarts++
		restartsTotal.Inc()
		m.logger.Warn("population degenerate, reinitializing",
			slog.Int("generation", m.generation),
			slog.Int("restart", m.restarts),
		)
		err = m.Reinitialize(ctx)
	}
	return err
}

// evaluate scores population and, unless scoring is interrupted, installs it
// as generation together with its scores and roulette. A degenerate
// population is installed with an empty roulette. Scoring is split over
// cfg.Workers goroutines and draws no randomness.
func (m *Matcher) evaluate(ctx context.Context, population []chromosome.BitVector, generation int) error {
	size := len(population)
	costs := make([]float64, size)
	valid := make([]bool, size)
	fitnesses := make([]float64, size)

	workers := m.cfg.Workers
	if workers > size {
		workers = size
	}
	batch := (size + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for start := 0; start < size; start += batch {
		lo, hi := start, min(start+batch, size)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for i := lo; i < hi; i++ {
				cost, ok := m.evaluator.Cost(population[i])
				costs[i] = cost
				valid[i] = ok
				fitnesses[i] = Fitness(cost, ok)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	invalid := 0
	for _, ok := range valid {
		if !ok {
			invalid++
		}
	}
	evaluationsTotal.Add(float64(size))
	invalidChromosomesTotal.Add(float64(invalid))

	m.population, m.generation = population, generation
	m.costs, m.valid, m.fitnesses = costs, valid, fitnesses
	roulette, err := NewRoulette(fitnesses)
	if err != nil {
		m.roulette = Roulette{}
		return fmt.Errorf("generation %d: %w", generation, err)
	}
	m.roulette = roulette
	return nil
}

// Select draws k chromosomes with replacement using the configured selector.
func (m *Matcher) Select(k int) []chromosome.BitVector {
	scores := Scores{Fitnesses: m.fitnesses, Roulette: m.roulette}
	out := make([]chromosome.BitVector, 0, k)
	for i := 0; i < k; i++ {
		out = append(out, m.population[m.selector.Pick(m.rng, scores)])
	}
	return out
}

// Evolve replaces the population with one new generation: fitness-weighted
// copies, crossover offspring of independently drawn parent pairs, then
// floor(mu*P) single-bit mutations at random positions.
func (m *Matcher) Evolve(ctx context.Context) error {
	if m.roulette.Empty() {
		return fmt.Errorf("generation %d: %w", m.generation, ErrDegeneratePopulation)
	}

	size := m.cfg.PopulationSize
	parents, copies := m.Split()

	next := m.Select(copies)
	pairs := parents / 2
	males := m.Select(pairs)
	females := m.Select(pairs)
	for i := 0; i < pairs; i++ {
		offspring1, offspring2 := Crossover(m.rng, males[i], females[i])
		next = append(next, offspring1, offspring2)
	}

	mutations := int(math.Floor(m.cfg.Mu * float64(size)))
	for i := 0; i < mutations; i++ {
		idx := m.rng.Intn(size)
		next[idx] = Mutate(m.rng, next[idx])
	}

	err := m.evaluate(ctx, next, m.generation+1)
	if err == nil || errors.Is(err, ErrDegeneratePopulation) {
		generationsTotal.Inc()
	}
	return err
}

// Split returns how many individuals of the next generation come from
// crossover (always even) and how many are copied.
func (m *Matcher) Split() (parents, copies int) {
	size := m.cfg.PopulationSize
	parents = 2 * int(math.Floor(0.5*m.cfg.Chi*float64(size)))
	return parents, size - parents
}

// Best returns the individual with the highest fitness; ties go to the
// lowest index.
func (m *Matcher) Best() Individual {
	best := 0
	for i := 1; i < len(m.fitnesses); i++ {
		if m.fitnesses[i] > m.fitnesses[best] {
			best = i
		}
	}
	return m.individual(best)
}

func (m *Matcher) individual(i int) Individual {
	return Individual{
		Index:      i,
		Chromosome: m.population[i],
		Cost:       m.costs[i],
		Fitness:    m.fitnesses[i],
		Valid:      m.valid[i],
	}
}

// Pairings decodes c into one record per scheduled event, in scheduled order.
func (m *Matcher) Pairings(c chromosome.BitVector) []model.Pairing {
	values := m.layout.Decode(c)
	out := make([]model.Pairing, len(values))
	for i, value := range values {
		out[i] = model.Pairing{Scheduled: m.scheduled[i]}
		if value < m.layout.NoMatch() {
			dose := m.doses[value]
			out[i].Dose = &dose
		}
	}
	return out
}

func (m *Matcher) Breakdown(c chromosome.BitVector) (Breakdown, bool) {
	return m.evaluator.Breakdown(c)
}

func (m *Matcher) Config() Config {
	return m.cfg
}

func (m *Matcher) Layout() chromosome.Layout {
	return m.layout
}

func (m *Matcher) Scheduled() []float64 {
	return append([]float64(nil), m.scheduled...)
}

func (m *Matcher) Doses() []float64 {
	return append([]float64(nil), m.doses...)
}

func (m *Matcher) Generation() int {
	return m.generation
}

func (m *Matcher) Restarts() int {
	return m.restarts
}

func (m *Matcher) Population() []chromosome.BitVector {
	return append([]chromosome.BitVector(nil), m.population...)
}

func (m *Matcher) Costs() []float64 {
	return append([]float64(nil), m.costs...)
}

func (m *Matcher) Valid() []bool {
	return append([]bool(nil), m.valid...)
}

func (m *Matcher) Fitnesses() []float64 {
	return append([]float64(nil), m.fitnesses...)
}

func (m *Matcher) Roulette() Roulette {
	return m.roulette
}

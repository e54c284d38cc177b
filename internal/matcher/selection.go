package matcher

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
)

var ErrDegeneratePopulation = errors.New("degenerate population: every individual has zero fitness")

// Roulette samples population indexes with probability proportional to
// fitness, using a cumulative distribution over normalized fitnesses.
type Roulette struct {
	cumulative []float64
	total      float64
}

func NewRoulette(fitnesses []float64) (Roulette, error) {
	sum := 0.0
	for i, f := range fitnesses {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return Roulette{}, fmt.Errorf("fitness at index %d is not a finite non-negative value: %v", i, f)
		}
		sum += f
	}
	if sum <= 0 {
		return Roulette{}, ErrDegeneratePopulation
	}

	cumulative := make([]float64, len(fitnesses))
	total := 0.0
	for i, f := range fitnesses {
		total += f / sum
		cumulative[i] = total
	}
	return Roulette{cumulative: cumulative, total: total}, nil
}

func (r Roulette) Empty() bool {
	return len(r.cumulative) == 0
}

func (r Roulette) Total() float64 {
	return r.total
}

func (r Roulette) Cumulative() []float64 {
	return append([]float64(nil), r.cumulative...)
}

// Pick draws r in [0, total) and returns the first index whose cumulative
// value exceeds it. Zero-fitness entries have zero width and are never drawn.
func (r Roulette) Pick(rng *rand.Rand) int {
	x := rng.Float64() * r.total
	return sort.Search(len(r.cumulative), func(i int) bool {
		return r.cumulative[i] > x
	})
}

// Scores is the evaluated state a Selector draws from.
type Scores struct {
	Fitnesses []float64
	Roulette  Roulette
}

// Selector chooses one population index per call.
type Selector interface {
	Name() string
	Pick(rng *rand.Rand, scores Scores) int
}

// RouletteSelector draws proportionally to fitness.
type RouletteSelector struct{}

func (RouletteSelector) Name() string {
	return SelectionRoulette
}

func (RouletteSelector) Pick(rng *rand.Rand, scores Scores) int {
	return scores.Roulette.Pick(rng)
}

// TournamentSelector samples Size individuals uniformly and keeps the fittest.
type TournamentSelector struct {
	Size int
}

func (TournamentSelector) Name() string {
	return SelectionTournament
}

func (s TournamentSelector) Pick(rng *rand.Rand, scores Scores) int {
	size := s.Size
	if size <= 0 {
		size = 3
	}
	n := len(scores.Fitnesses)
	best := rng.Intn(n)
	for i := 1; i < size; i++ {
		candidate := rng.Intn(n)
		if scores.Fitnesses[candidate] > scores.Fitnesses[best] {
			best = candidate
		}
	}
	return best
}

func NewSelector(name string, tournamentSize int) (Selector, error) {
	switch name {
	case "", SelectionRoulette:
		return RouletteSelector{}, nil
	case SelectionTournament:
		return TournamentSelector{Size: tournamentSize}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported selection %q", ErrInvalidConfig, name)
	}
}

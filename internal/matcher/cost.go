package matcher

import (
	"math"

	"schedulematch/internal/chromosome"
)

// MinCost floors the cost used for fitness so a perfect matching gets a
// large but finite fitness instead of 1/0.
const MinCost = 1e-9

type Weights struct {
	Alpha float64
	Beta  float64
	Gamma float64
	Iota  float64
	Eta   float64
	Kappa float64
}

// Breakdown holds the raw penalty terms of one decoded matching.
type Breakdown struct {
	UnmatchedSchedules   int
	UnmatchedDoses       int
	KernelSum            float64
	Duplicates           int
	MonotonicityBreakers int
}

func (b Breakdown) Total(w Weights) float64 {
	return w.Alpha*float64(b.UnmatchedSchedules) +
		w.Beta*float64(b.UnmatchedDoses) +
		w.Gamma*b.KernelSum +
		w.Iota*float64(b.Duplicates) +
		w.Eta*float64(b.MonotonicityBreakers)
}

// Kernel softens a timing mismatch: r / (1 + |r|/kappa).
func Kernel(radius, kappa float64) float64 {
	return radius / (1 + math.Abs(radius)/kappa)
}

// Fitness is 1/cost for valid matchings and 0 for invalid ones.
func Fitness(cost float64, valid bool) float64 {
	if !valid {
		return 0
	}
	if cost < MinCost {
		cost = MinCost
	}
	return 1 / cost
}

type Evaluator struct {
	layout    chromosome.Layout
	scheduled []float64
	doses     []float64
	weights   Weights
}

func NewEvaluator(layout chromosome.Layout, scheduled, doses []float64, weights Weights) *Evaluator {
	return &Evaluator{
		layout:    layout,
		scheduled: scheduled,
		doses:     doses,
		weights:   weights,
	}
}

func (e *Evaluator) Weights() Weights {
	return e.weights
}

// Breakdown decodes c slot by slot. It reports false as soon as a slot holds
// a value above the no-match value; such a chromosome has no cost.
func (e *Evaluator) Breakdown(c chromosome.BitVector) (Breakdown, bool) {
	var b Breakdown
	noMatch := e.layout.NoMatch()
	seen := make([]bool, len(e.doses))
	distinct := 0
	first := -1

	for i := 0; i < e.layout.Slots(); i++ {
		value := e.layout.Slot(c, i)
		switch {
		case value > noMatch:
			return Breakdown{}, false
		case value == noMatch:
			b.UnmatchedSchedules++
		default:
			j := int(value)
			if seen[j] {
				b.Duplicates++
			} else {
				seen[j] = true
				distinct++
			}
			if first >= 0 && j < first {
				b.MonotonicityBreakers++
			}
			if first < 0 {
				first = j
			}
			b.KernelSum += Kernel(math.Abs(e.scheduled[i]-e.doses[j]), e.weights.Kappa)
		}
	}

	b.UnmatchedDoses = len(e.doses) - distinct
	return b, true
}

// Cost returns the weighted penalty of c; false marks an invalid chromosome.
func (e *Evaluator) Cost(c chromosome.BitVector) (float64, bool) {
	b, ok := e.Breakdown(c)
	if !ok {
		return 0, false
	}
	return b.Total(e.weights), true
}

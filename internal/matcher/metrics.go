package matcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedulematch_generations_total",
		Help: "Generations evolved across all matchers",
	})

	evaluationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedulematch_evaluations_total",
		Help: "Chromosomes scored by the cost evaluator",
	})

	invalidChromosomesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedulematch_invalid_chromosomes_total",
		Help: "Scored chromosomes that decoded to an out-of-range slot value",
	})

	restartsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "schedulematch_population_restarts_total",
		Help: "Population re-initializations after an all-invalid generation",
	})

	bestCostGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "schedulematch_best_cost",
		Help: "Best cost of the most recently evolved generation",
	})
)

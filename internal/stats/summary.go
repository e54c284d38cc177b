package stats

import (
	"math"
)

// CostSummary condenses a best-cost-per-generation series.
type CostSummary struct {
	Generations int     `json:"generations"`
	InitialBest float64 `json:"initial_best"`
	FinalBest   float64 `json:"final_best"`
	BestMean    float64 `json:"best_mean"`
	BestStd     float64 `json:"best_std"`
	BestMin     float64 `json:"best_min"`
	BestMax     float64 `json:"best_max"`
	Improvement float64 `json:"improvement"`
	// ImprovedAt is the 1-based generation of the last strict improvement, 0
	// if the series never improved.
	ImprovedAt int `json:"improved_at"`
}

func SummarizeCosts(history []float64) CostSummary {
	if len(history) == 0 {
		return CostSummary{}
	}
	s := CostSummary{
		Generations: len(history),
		InitialBest: history[0],
		FinalBest:   history[len(history)-1],
		BestMin:     history[0],
		BestMax:     history[0],
	}
	sum := 0.0
	for i, v := range history {
		sum += v
		s.BestMin = math.Min(s.BestMin, v)
		s.BestMax = math.Max(s.BestMax, v)
		if i > 0 && v < history[i-1] {
			s.ImprovedAt = i + 1
		}
	}
	s.BestMean = sum / float64(len(history))
	variance := 0.0
	for _, v := range history {
		d := v - s.BestMean
		variance += d * d
	}
	s.BestStd = math.Sqrt(variance / float64(len(history)))
	s.Improvement = s.InitialBest - s.FinalBest
	return s
}

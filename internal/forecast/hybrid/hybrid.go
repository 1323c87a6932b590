package hybrid

import (
	"errors"
	"math"
)

const (
	weightStep    = 0.05
	confidenceEps = 1e-8
	// confidence is clamped so a perfect model agreement never reads as
	// certainty and total disagreement still carries some signal
	ConfidenceFloor = 0.30
	ConfidenceCeil  = 0.95
)

// Weights blends the temporal and tree model outputs. The two components
// always sum to 1.
type Weights struct {
	Temporal float64 `json:"temporal"`
	Tree     float64 `json:"tree"`
}

// Combine applies the blend to one prediction pair.
func (w Weights) Combine(temporal, tree float64) float64 {
	return w.Temporal*temporal + w.Tree*tree
}

// SearchWeights grid-searches the blend in steps of 0.05, picking the
// combination with the lowest MAPE against the validation actuals. Ties
// keep the first grid point seen, so the search is deterministic.
func SearchWeights(temporal, tree, actual []float64) (Weights, error) {
	if len(temporal) == 0 || len(temporal) != len(tree) || len(temporal) != len(actual) {
		return Weights{}, errors.New("hybrid: prediction series length mismatch")
	}

	best := Weights{Temporal: 0.5, Tree: 0.5}
	bestScore := math.Inf(1)
	blended := make([]float64, len(actual))

	steps := int(math.Round(1/weightStep)) + 1
	for i := 0; i < steps; i++ {
		alpha := float64(i) * weightStep
		w := Weights{Temporal: alpha, Tree: 1 - alpha}
		for j := range blended {
			blended[j] = w.Combine(temporal[j], tree[j])
		}
		score := MAPE(blended, actual)
		if score < bestScore-1e-12 {
			bestScore = score
			best = w
		}
	}
	return best, nil
}

// Confidence scores how much the two models agree on one prediction,
// normalized by the ensemble magnitude and clamped to [0.30, 0.95].
func Confidence(temporal, tree, ensemble float64) float64 {
	c := 1 - math.Abs(temporal-tree)/(math.Abs(ensemble)+confidenceEps)
	if c < ConfidenceFloor {
		return ConfidenceFloor
	}
	if c > ConfidenceCeil {
		return ConfidenceCeil
	}
	return c
}

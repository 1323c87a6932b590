package hybrid

import "math"

// RMSE is the root mean squared error between predictions and actuals.
func RMSE(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	s := 0.0
	for i := range pred {
		d := pred[i] - actual[i]
		s += d * d
	}
	return math.Sqrt(s / float64(len(pred)))
}

// MAE is the mean absolute error.
func MAE(pred, actual []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	s := 0.0
	for i := range pred {
		s += math.Abs(pred[i] - actual[i])
	}
	return s / float64(len(pred))
}

// MAPE is the mean absolute percentage error, in percent. Rows with a zero
// actual are skipped rather than dividing by zero.
func MAPE(pred, actual []float64) float64 {
	s := 0.0
	n := 0
	for i := range pred {
		if actual[i] == 0 {
			continue
		}
		s += math.Abs((pred[i] - actual[i]) / actual[i])
		n++
	}
	if n == 0 {
		return 0
	}
	return s / float64(n) * 100
}

// DirectionalAccuracy is the fraction of predictions that called the
// direction of the move from the anchor price correctly. Flat moves count
// as correct only when predicted flat.
func DirectionalAccuracy(pred, actual, anchor []float64) float64 {
	if len(pred) == 0 {
		return 0
	}
	hits := 0
	for i := range pred {
		predMove := pred[i] - anchor[i]
		actualMove := actual[i] - anchor[i]
		if predMove*actualMove > 0 || (predMove == 0 && actualMove == 0) {
			hits++
		}
	}
	return float64(hits) / float64(len(pred))
}

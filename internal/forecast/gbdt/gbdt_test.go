package gbdt

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"
)

// syntheticRows draws feature vectors and a piecewise target the trees can
// capture: y depends on a threshold in feature 0 plus a linear term.
func syntheticRows(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		row := []float64{rng.Float64(), rng.Float64(), rng.Float64()}
		x[i] = row
		y[i] = 2 * row[1]
		if row[0] > 0.5 {
			y[i] += 5
		}
	}
	return x, y
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxTrees = 80
	cfg.MinLeaf = 3
	return cfg
}

func TestTrainBeatsBaselinePrediction(t *testing.T) {
	trainX, trainY := syntheticRows(200, 1)
	valX, valY := syntheticRows(60, 2)

	m := New(testConfig())
	report, err := m.Train(trainX, trainY, valX, valY)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if !m.Trained {
		t.Fatal("model not marked trained")
	}
	if report.Rounds == 0 {
		t.Fatal("no boosting rounds kept")
	}

	base := rmse(constant(m.Base, len(valY)), valY)
	if report.BestValRMSE >= base {
		t.Fatalf("boosting did not beat the mean baseline: %f >= %f", report.BestValRMSE, base)
	}
}

func TestTrainRespectsMaxTrees(t *testing.T) {
	trainX, trainY := syntheticRows(120, 3)
	valX, valY := syntheticRows(40, 4)

	cfg := testConfig()
	cfg.MaxTrees = 10
	cfg.EarlyStopRounds = 100
	m := New(cfg)
	if _, err := m.Train(trainX, trainY, valX, valY); err != nil {
		t.Fatalf("train: %v", err)
	}
	if len(m.Trees) > 10 {
		t.Fatalf("kept %d trees, limit 10", len(m.Trees))
	}
}

func TestJSONRoundTripPreservesPredictions(t *testing.T) {
	trainX, trainY := syntheticRows(150, 5)
	valX, valY := syntheticRows(50, 6)

	m := New(testConfig())
	if _, err := m.Train(trainX, trainY, valX, valY); err != nil {
		t.Fatalf("train: %v", err)
	}

	raw, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Model
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	probe := []float64{0.7, 0.3, 0.9}
	if got, want := restored.Predict(probe), m.Predict(probe); math.Abs(got-want) > 1e-12 {
		t.Fatalf("restored prediction drifted: got %f want %f", got, want)
	}
}

func TestTrainRejectsMismatchedLengths(t *testing.T) {
	x, y := syntheticRows(20, 7)
	m := New(testConfig())
	if _, err := m.Train(x, y[:10], x, y); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if _, err := m.Train(nil, nil, x, y); err == nil {
		t.Fatal("expected empty partition error")
	}
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

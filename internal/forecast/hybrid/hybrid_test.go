package hybrid

import (
	"math"
	"testing"
)

func TestSearchWeightsSumToOne(t *testing.T) {
	temporal := []float64{100, 102, 104, 98}
	tree := []float64{101, 103, 102, 99}
	actual := []float64{100.5, 102.4, 103.1, 98.6}

	w, err := SearchWeights(temporal, tree, actual)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got := w.Temporal + w.Tree; math.Abs(got-1) > 1e-9 {
		t.Fatalf("weights sum to %f, want 1", got)
	}
	if w.Temporal < 0 || w.Temporal > 1 {
		t.Fatalf("temporal weight %f out of range", w.Temporal)
	}
}

func TestSearchWeightsPrefersBetterModel(t *testing.T) {
	// temporal tracks the actuals exactly, tree is far off
	actual := []float64{100, 105, 95, 110, 102}
	tree := []float64{150, 160, 140, 170, 155}
	w, err := SearchWeights(actual, tree, actual)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if w.Temporal != 1 {
		t.Fatalf("expected full temporal weight, got %f", w.Temporal)
	}
}

func TestSearchWeightsLengthMismatch(t *testing.T) {
	if _, err := SearchWeights([]float64{1}, []float64{1, 2}, []float64{1}); err == nil {
		t.Fatal("expected length mismatch error")
	}
	if _, err := SearchWeights(nil, nil, nil); err == nil {
		t.Fatal("expected empty series error")
	}
}

func TestConfidenceBounds(t *testing.T) {
	tests := []struct {
		name                     string
		temporal, tree, ensemble float64
		want                     float64
	}{
		{"perfect agreement clamps to ceiling", 100, 100, 100, ConfidenceCeil},
		{"total disagreement clamps to floor", 100, 500, 300, ConfidenceFloor},
		{"moderate disagreement stays inside", 100, 110, 105, 1 - 10.0/(105+confidenceEps)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.temporal, tt.tree, tt.ensemble)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("got %f want %f", got, tt.want)
			}
			if got < ConfidenceFloor || got > ConfidenceCeil {
				t.Fatalf("confidence %f outside [%f, %f]", got, ConfidenceFloor, ConfidenceCeil)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	pred := []float64{102, 98, 105}
	actual := []float64{100, 100, 100}

	if got := MAE(pred, actual); math.Abs(got-3) > 1e-9 {
		t.Fatalf("MAE got %f want 3", got)
	}
	wantRMSE := math.Sqrt((4.0 + 4.0 + 25.0) / 3.0)
	if got := RMSE(pred, actual); math.Abs(got-wantRMSE) > 1e-9 {
		t.Fatalf("RMSE got %f want %f", got, wantRMSE)
	}
	if got := MAPE(pred, actual); math.Abs(got-3) > 1e-9 {
		t.Fatalf("MAPE got %f want 3", got)
	}
}

func TestMAPESkipsZeroActuals(t *testing.T) {
	if got := MAPE([]float64{1, 110}, []float64{0, 100}); math.Abs(got-10) > 1e-9 {
		t.Fatalf("got %f want 10", got)
	}
}

func TestDirectionalAccuracyMonotonicSeries(t *testing.T) {
	// on a strictly rising series any forecast that calls "up" is right
	// every time
	n := 50
	anchor := make([]float64, n)
	actual := make([]float64, n)
	pred := make([]float64, n)
	for i := 0; i < n; i++ {
		anchor[i] = 100 + float64(i)
		actual[i] = anchor[i] + 5
		pred[i] = anchor[i] + 0.1
	}
	if got := DirectionalAccuracy(pred, actual, anchor); got != 1 {
		t.Fatalf("monotonic series should score 1.0, got %f", got)
	}
}

func TestDirectionalAccuracy(t *testing.T) {
	anchor := []float64{100, 100, 100, 100}
	actual := []float64{105, 95, 103, 100}
	pred := []float64{102, 97, 99, 100}
	// up/up hit, down/down hit, up-predicted-down miss, flat/flat hit
	if got := DirectionalAccuracy(pred, actual, anchor); math.Abs(got-0.75) > 1e-9 {
		t.Fatalf("got %f want 0.75", got)
	}
}

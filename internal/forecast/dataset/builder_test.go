package dataset

import (
	"math"
	"reflect"
	"testing"
	"time"

	"FinPredict/internal/domain/models"
)

func syntheticRows(n int) []models.FeatureRow {
	rows := make([]models.FeatureRow, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		f := float64(i)
		c := 100 + 0.5*f + 3*math.Sin(f/7)
		rows[i] = models.FeatureRow{
			Timestamp:    start.AddDate(0, 0, i),
			Close:        c,
			Return1:      0.01 * math.Sin(f/5),
			LogReturn:    0.008 * math.Cos(f/9),
			SMA20:        c - 1,
			RSI14:        50 + 20*math.Sin(f/11),
			Volatility20: 0.01 + 0.005*math.Cos(f/13),
		}
	}
	return rows
}

func TestBuildSplitIsChronological(t *testing.T) {
	rows := syntheticRows(300)
	split, _, err := Build(rows, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	total := len(split.Train) + len(split.Val) + len(split.Test)
	if total == 0 {
		t.Fatal("no samples")
	}
	trainFrac := float64(len(split.Train)) / float64(total)
	if trainFrac < 0.69 || trainFrac > 0.71 {
		t.Fatalf("train fraction %.3f, want ~0.70", trainFrac)
	}
	if len(split.Val) == 0 || len(split.Test) == 0 {
		t.Fatal("validation and test must be non-empty")
	}

	lastTrain := split.Train[len(split.Train)-1].Anchor
	firstVal := split.Val[0].Anchor
	lastVal := split.Val[len(split.Val)-1].Anchor
	firstTest := split.Test[0].Anchor
	if lastTrain >= firstVal || lastVal >= firstTest {
		t.Fatalf("partitions overlap: train..%d val %d..%d test %d..", lastTrain, firstVal, lastVal, firstTest)
	}
}

func TestBuildSampleShapes(t *testing.T) {
	rows := syntheticRows(300)
	split, _, err := Build(rows, 7)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	s := split.Train[0]
	if len(s.Sequence) != SequenceLength {
		t.Fatalf("sequence length %d, want %d", len(s.Sequence), SequenceLength)
	}
	if len(s.Sequence[0]) != models.NumFeatures {
		t.Fatalf("sequence width %d, want %d", len(s.Sequence[0]), models.NumFeatures)
	}
	if len(s.Flat) != FlatWidth {
		t.Fatalf("flat width %d, want %d", len(s.Flat), FlatWidth)
	}
	if s.Target != rows[s.Anchor+7].Close {
		t.Fatalf("target %v, want close %d bars ahead %v", s.Target, 7, rows[s.Anchor+7].Close)
	}
}

// The scaler must be fit on training rows only: inflating the tail of the
// series (validation/test territory) cannot move the fitted bounds.
func TestScalerIgnoresHeldOutRows(t *testing.T) {
	rows := syntheticRows(300)
	_, base, err := Build(rows, 1)
	if err != nil {
		t.Fatalf("build base: %v", err)
	}

	spiked := syntheticRows(300)
	for i := 280; i < 300; i++ {
		spiked[i].Close *= 100
	}
	_, withSpike, err := Build(spiked, 1)
	if err != nil {
		t.Fatalf("build spiked: %v", err)
	}

	if base.TargetMax != withSpike.TargetMax || base.TargetMin != withSpike.TargetMin {
		t.Fatalf("target bounds moved with held-out rows: %v/%v vs %v/%v",
			base.TargetMin, base.TargetMax, withSpike.TargetMin, withSpike.TargetMax)
	}
	if !reflect.DeepEqual(base.FeatureMin, withSpike.FeatureMin) ||
		!reflect.DeepEqual(base.FeatureMax, withSpike.FeatureMax) {
		t.Fatal("feature bounds moved with held-out rows")
	}
}

func TestScalerReproducible(t *testing.T) {
	rows := syntheticRows(120)
	a, err := FitScaler(rows)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	b, err := FitScaler(rows)
	if err != nil {
		t.Fatalf("refit: %v", err)
	}
	if !reflect.DeepEqual(a, b) {
		t.Fatal("refitting on identical rows produced different bounds")
	}
}

func TestTargetScalingRoundTrip(t *testing.T) {
	rows := syntheticRows(120)
	s, err := FitScaler(rows)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	for _, price := range []float64{rows[0].Close, rows[60].Close, rows[119].Close * 1.3} {
		got := s.InverseTarget(s.ScaleTarget(price))
		if math.Abs(got-price) > 1e-9 {
			t.Fatalf("round trip %v -> %v", price, got)
		}
	}
}

// Inference-time windowing must reproduce training-time windowing exactly
// for the same anchor.
func TestBuildLatestMatchesTrainingViews(t *testing.T) {
	rows := syntheticRows(300)
	split, scaler, err := Build(rows, 1)
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	s := split.Val[len(split.Val)/2]
	sequence, flat, err := BuildLatest(rows[:s.Anchor+1], scaler)
	if err != nil {
		t.Fatalf("build latest: %v", err)
	}
	if !reflect.DeepEqual(sequence, s.Sequence) {
		t.Fatal("inference sequence diverges from training sequence")
	}
	if !reflect.DeepEqual(flat, s.Flat) {
		t.Fatal("inference flat vector diverges from training flat vector")
	}
}

func TestBuildRejectsShortTable(t *testing.T) {
	rows := syntheticRows(SequenceLength + 5)
	if _, _, err := Build(rows, 30); err == nil {
		t.Fatal("expected error for short feature table")
	}
}

package gru

import (
	"encoding/json"
	"math"
	"math/rand"
	"testing"

	"FinPredict/internal/forecast/dataset"
)

func tinyConfig() Config {
	cfg := DefaultConfig()
	cfg.Hidden = 8
	cfg.Dense = 4
	cfg.Dropout = 0
	cfg.Epochs = 60
	cfg.BatchSize = 8
	cfg.Seed = 7
	return cfg
}

// lastValueSamples builds sequences where the target is the final value of
// the single input feature, a task a GRU fits quickly.
func lastValueSamples(n, seqLen int, seed int64) []dataset.Sample {
	rng := rand.New(rand.NewSource(seed))
	out := make([]dataset.Sample, n)
	for i := range out {
		seq := make([][]float64, seqLen)
		for t := range seq {
			seq[t] = []float64{rng.Float64()}
		}
		out[i] = dataset.Sample{
			Sequence:     seq,
			TargetScaled: seq[seqLen-1][0],
		}
	}
	return out
}

func TestTrainReducesValidationLoss(t *testing.T) {
	train := lastValueSamples(64, 10, 1)
	val := lastValueSamples(16, 10, 2)

	n := New(1, tinyConfig())
	before := n.loss(val)

	report, err := n.Train(train, val)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if !n.Trained {
		t.Fatal("network not marked trained")
	}
	if report.BestValLoss >= before {
		t.Fatalf("validation loss did not improve: before=%f best=%f", before, report.BestValLoss)
	}
}

func TestPredictDeterministic(t *testing.T) {
	train := lastValueSamples(32, 8, 3)
	val := lastValueSamples(8, 8, 4)
	n := New(1, tinyConfig())
	if _, err := n.Train(train, val); err != nil {
		t.Fatalf("train: %v", err)
	}

	seq := lastValueSamples(1, 8, 5)[0].Sequence
	a := n.Predict(seq)
	b := n.Predict(seq)
	if a != b {
		t.Fatalf("predictions differ: %f vs %f", a, b)
	}
}

func TestJSONRoundTripPreservesPredictions(t *testing.T) {
	train := lastValueSamples(32, 8, 6)
	val := lastValueSamples(8, 8, 7)
	n := New(1, tinyConfig())
	if _, err := n.Train(train, val); err != nil {
		t.Fatalf("train: %v", err)
	}

	raw, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var restored Network
	if err := json.Unmarshal(raw, &restored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	seq := lastValueSamples(1, 8, 8)[0].Sequence
	if got, want := restored.Predict(seq), n.Predict(seq); math.Abs(got-want) > 1e-12 {
		t.Fatalf("restored prediction drifted: got %f want %f", got, want)
	}
	if !restored.Trained {
		t.Fatal("trained flag lost in round trip")
	}
}

func TestTrainRejectsEmptyPartitions(t *testing.T) {
	n := New(1, tinyConfig())
	if _, err := n.Train(nil, nil); err == nil {
		t.Fatal("expected error for empty partitions")
	}
}

package usecase

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"os"
	"sync"
	"testing"
	"time"

	"FinPredict/internal/domain/models"
	domrepo "FinPredict/internal/domain/repository"
	"FinPredict/internal/registry"
	"FinPredict/internal/repository"
)

// syntheticBars builds a plausible OHLCV series with drift and noise.
func syntheticBars(symbol string, n int, seed int64) []*models.PriceBar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]*models.PriceBar, n)
	price := 100.0
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		open := price
		price *= 1 + 0.0008 + 0.01*(rng.Float64()-0.5)
		high := math.Max(open, price) * (1 + 0.004*rng.Float64())
		low := math.Min(open, price) * (1 - 0.004*rng.Float64())
		bars[i] = &models.PriceBar{
			Symbol:    symbol,
			Timestamp: start.AddDate(0, 0, i),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    1e6 * (0.5 + rng.Float64()),
		}
	}
	return bars
}

// fastTrainerConfig shrinks both models so the full pipeline runs in test
// time while exercising every stage.
func fastTrainerConfig() TrainerConfig {
	cfg := DefaultTrainerConfig()
	cfg.Temporal.Hidden = 6
	cfg.Temporal.Dense = 4
	cfg.Temporal.Dropout = 0
	cfg.Temporal.Epochs = 4
	cfg.Temporal.BatchSize = 16
	cfg.Tree.MaxTrees = 25
	cfg.Tree.MinLeaf = 3
	return cfg
}

type trainedFixture struct {
	bars     domrepo.BarStore
	registry *registry.FS
	meta     *models.TrainingMetadata
	err      error
}

var (
	fixtureOnce sync.Once
	fixture     trainedFixture
)

// trained returns a shared 400-bar trained setup; training runs once for
// the whole package.
func trained(t *testing.T) *trainedFixture {
	t.Helper()
	fixtureOnce.Do(func() {
		root, err := os.MkdirTemp("", "finpredict-registry-*")
		if err != nil {
			fixture.err = err
			return
		}
		dir, err := registry.NewFS(root)
		if err != nil {
			fixture.err = err
			return
		}
		store := repository.NewMemoryBarStore()
		if err := store.Append(context.Background(), syntheticBars("AAPL", 400, 11)); err != nil {
			fixture.err = err
			return
		}
		trainer := NewTrainer(fastTrainerConfig(), store, dir, nil, nil, nil, nil)
		meta, err := trainer.TrainSymbol(context.Background(), "AAPL")
		fixture = trainedFixture{bars: store, registry: dir, meta: meta, err: err}
	})
	if fixture.err != nil {
		t.Fatalf("fixture training failed: %v", fixture.err)
	}
	return &fixture
}

func TestTrainSymbolEndToEnd(t *testing.T) {
	f := trained(t)

	if f.meta.Symbol != "AAPL" || f.meta.BarCount != 400 {
		t.Fatalf("unexpected metadata: %+v", f.meta)
	}
	if f.meta.FeatureRows != 200 {
		t.Fatalf("feature rows: want 400-200=200, got %d", f.meta.FeatureRows)
	}

	for _, horizon := range models.Horizons {
		set, err := f.registry.Load("AAPL", horizon)
		if err != nil {
			t.Fatalf("load horizon %d: %v", horizon, err)
		}
		if !set.Temporal.Trained || !set.Tree.Trained {
			t.Fatalf("horizon %d artifacts not trained", horizon)
		}
		if sum := set.Weights.Temporal + set.Weights.Tree; math.Abs(sum-1) > 1e-9 {
			t.Fatalf("horizon %d weights sum %f", horizon, sum)
		}
		ev := set.Evaluation
		if ev.TestSamples == 0 || ev.RMSE <= 0 {
			t.Fatalf("horizon %d evaluation empty: %+v", horizon, ev)
		}
		if ev.DirectionalAccuracy < 0 || ev.DirectionalAccuracy > 1 {
			t.Fatalf("horizon %d directional accuracy out of range: %f", horizon, ev.DirectionalAccuracy)
		}
	}
}

func TestTrainSymbolUnknownSymbol(t *testing.T) {
	dir, err := registry.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	trainer := NewTrainer(fastTrainerConfig(), repository.NewMemoryBarStore(), dir, nil, nil, nil, nil)
	if _, err := trainer.TrainSymbol(context.Background(), "NOPE"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestTrainSymbolInsufficientHistory(t *testing.T) {
	dir, err := registry.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := repository.NewMemoryBarStore()
	if err := store.Append(context.Background(), syntheticBars("TINY", 50, 3)); err != nil {
		t.Fatalf("append: %v", err)
	}
	trainer := NewTrainer(fastTrainerConfig(), store, dir, nil, nil, nil, nil)
	_, trainErr := trainer.TrainSymbol(context.Background(), "TINY")
	if !models.IsInsufficientHistory(trainErr) {
		t.Fatalf("want InsufficientHistoryError, got %v", trainErr)
	}
}

func TestTrainAllIsolatesFailures(t *testing.T) {
	dir, err := registry.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	store := repository.NewMemoryBarStore()
	ctx := context.Background()
	if err := store.Append(ctx, syntheticBars("GOOD", 400, 5)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(ctx, syntheticBars("SHORT", 50, 6)); err != nil {
		t.Fatalf("append: %v", err)
	}

	trainer := NewTrainer(fastTrainerConfig(), store, dir, nil, nil, nil, nil)
	results := trainer.TrainAll(ctx, []string{"GOOD", "SHORT"}, dir)

	bySymbol := map[string]error{}
	for _, r := range results {
		bySymbol[r.Symbol] = r.Err
	}
	if bySymbol["GOOD"] != nil {
		t.Fatalf("healthy symbol failed: %v", bySymbol["GOOD"])
	}
	if !models.IsInsufficientHistory(bySymbol["SHORT"]) {
		t.Fatalf("short symbol should fail with insufficient history: %v", bySymbol["SHORT"])
	}

	// the failed symbol must not block the healthy one's artifacts
	if _, err := dir.Load("GOOD", 1); err != nil {
		t.Fatalf("healthy symbol artifacts missing: %v", err)
	}

	entries, err := dir.Entries()
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	status := map[string]models.TrainingStatus{}
	for _, e := range entries {
		status[e.Symbol] = e.Status
	}
	if status["GOOD"] != models.TrainingComplete || status["SHORT"] != models.TrainingFailed {
		t.Fatalf("unexpected ledger statuses: %+v", status)
	}
}

func TestFastConfigsKeepProductionShape(t *testing.T) {
	// guard: defaults used in production stay at the documented values
	cfg := DefaultTrainerConfig()
	if cfg.Temporal.Hidden != 128 || cfg.Temporal.Patience != 10 {
		t.Fatalf("temporal defaults drifted: %+v", cfg.Temporal)
	}
	if cfg.Tree.Depth != 3 || cfg.Tree.MaxTrees != 300 || cfg.Tree.LearningRate != 0.05 {
		t.Fatalf("tree defaults drifted: %+v", cfg.Tree)
	}
	if cfg.Temporal.LearningRate != 1e-3 {
		t.Fatalf("temporal lr drifted: %v", cfg.Temporal.LearningRate)
	}
}

package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"FinPredict/internal/domain/models"
	"FinPredict/internal/registry"
	"FinPredict/internal/repository"
	"FinPredict/pkg/cache"
)

func testPredictor(t *testing.T, f *trainedFixture, ttl time.Duration) *Predictor {
	t.Helper()
	cfg := DefaultPredictorConfig()
	cfg.CacheTTL = ttl
	return NewPredictor(cfg, f.bars, f.registry, cache.NewMemoryCache(), nil, nil)
}

func TestPredictServesBundle(t *testing.T) {
	f := trained(t)
	p := testPredictor(t, f, time.Minute)

	for _, horizon := range models.Horizons {
		bundle, err := p.Predict(context.Background(), "aapl", horizon)
		if err != nil {
			t.Fatalf("predict horizon %d: %v", horizon, err)
		}
		if bundle.Symbol != "AAPL" || bundle.Horizon != horizon {
			t.Fatalf("identity drifted: %+v", bundle)
		}
		if bundle.Price <= 0 || bundle.CurrentPrice <= 0 {
			t.Fatalf("non-positive prices: %+v", bundle)
		}
		if bundle.Confidence < 0.30 || bundle.Confidence > 0.95 {
			t.Fatalf("confidence out of bounds: %f", bundle.Confidence)
		}
		switch bundle.Signal {
		case models.SignalStrongBuy, models.SignalBuy, models.SignalNeutral, models.SignalSell, models.SignalStrongSell:
		default:
			t.Fatalf("unknown signal %q", bundle.Signal)
		}
		if bundle.ComputedAt.IsZero() {
			t.Fatal("computed_at not set")
		}
	}
}

func TestPredictCacheTTL(t *testing.T) {
	f := trained(t)
	p := testPredictor(t, f, 150*time.Millisecond)
	ctx := context.Background()

	first, err := p.Predict(ctx, "AAPL", 1)
	if err != nil {
		t.Fatalf("first predict: %v", err)
	}
	second, err := p.Predict(ctx, "AAPL", 1)
	if err != nil {
		t.Fatalf("second predict: %v", err)
	}
	if !second.ComputedAt.Equal(first.ComputedAt) {
		t.Fatalf("within TTL the cached bundle must be served: %v vs %v", first.ComputedAt, second.ComputedAt)
	}
	if second.Price != first.Price || second.Signal != first.Signal {
		t.Fatalf("cached bundle content drifted")
	}

	time.Sleep(200 * time.Millisecond)
	third, err := p.Predict(ctx, "AAPL", 1)
	if err != nil {
		t.Fatalf("third predict: %v", err)
	}
	if !third.ComputedAt.After(first.ComputedAt) {
		t.Fatalf("expired entry should recompute: %v vs %v", third.ComputedAt, first.ComputedAt)
	}
}

func TestPredictAllReturnsPartialResults(t *testing.T) {
	f := trained(t)

	// registry holding only horizon 1 artifacts
	partial, err := registry.NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	set, err := f.registry.Load("AAPL", 1)
	if err != nil {
		t.Fatalf("load fixture artifacts: %v", err)
	}
	if err := partial.Put("AAPL", f.meta, []*registry.ArtifactSet{set}); err != nil {
		t.Fatalf("put: %v", err)
	}

	cfg := DefaultPredictorConfig()
	p := NewPredictor(cfg, f.bars, partial, cache.NewMemoryCache(), nil, nil)
	bundles, err := p.PredictAll(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("predict all: %v", err)
	}
	if len(bundles) != 1 || bundles[0].Horizon != 1 {
		t.Fatalf("want only horizon 1, got %+v", bundles)
	}
}

func TestPredictUnknownSymbol(t *testing.T) {
	f := trained(t)
	p := testPredictor(t, f, time.Minute)
	if _, err := p.Predict(context.Background(), "NOPE", 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestPredictUntrainedSymbol(t *testing.T) {
	f := trained(t)

	store := repository.NewMemoryBarStore()
	if err := store.Append(context.Background(), syntheticBars("MSFT", 400, 9)); err != nil {
		t.Fatalf("append: %v", err)
	}
	cfg := DefaultPredictorConfig()
	p := NewPredictor(cfg, store, f.registry, cache.NewMemoryCache(), nil, nil)
	if _, err := p.Predict(context.Background(), "MSFT", 1); !errors.Is(err, models.ErrNotTrained) {
		t.Fatalf("want ErrNotTrained, got %v", err)
	}
}

func TestPredictRejectsUnsupportedHorizon(t *testing.T) {
	f := trained(t)
	p := testPredictor(t, f, time.Minute)
	_, err := p.Predict(context.Background(), "AAPL", 3)
	var pe *models.PredictionError
	if !errors.As(err, &pe) {
		t.Fatalf("want PredictionError, got %v", err)
	}
}

func TestInvalidateSymbolDropsCachedBundle(t *testing.T) {
	f := trained(t)
	p := testPredictor(t, f, time.Hour)
	ctx := context.Background()

	first, err := p.Predict(ctx, "AAPL", 7)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	p.InvalidateSymbol(ctx, "AAPL")
	second, err := p.Predict(ctx, "AAPL", 7)
	if err != nil {
		t.Fatalf("predict after invalidate: %v", err)
	}
	if !second.ComputedAt.After(first.ComputedAt) && !second.ComputedAt.Equal(first.ComputedAt) {
		t.Fatalf("unexpected computed_at ordering")
	}
	if second.ComputedAt.Equal(first.ComputedAt) {
		t.Fatal("invalidation should force recompute")
	}
}

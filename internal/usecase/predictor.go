package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinPredict/internal/domain/models"
	domrepo "FinPredict/internal/domain/repository"
	"FinPredict/internal/forecast/dataset"
	"FinPredict/internal/forecast/features"
	"FinPredict/internal/forecast/hybrid"
	"FinPredict/internal/registry"
	"FinPredict/pkg/cache"
	applogger "FinPredict/pkg/logger"
)

// PredictorConfig bounds the inference service.
type PredictorConfig struct {
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	HistoryLimit   int           `yaml:"history_limit"`
	ModelCacheSize int           `yaml:"model_cache_size"`
}

func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		CacheTTL:       15 * time.Minute,
		HistoryLimit:   2000,
		ModelCacheSize: 32,
	}
}

// Predictor serves prediction bundles with a cache-aside read path: redis
// (or layered) cache first, then artifact load plus fresh inference on miss.
type Predictor struct {
	cfg      PredictorConfig
	bars     domrepo.BarStore
	registry *registry.FS
	cache    cache.Service
	metrics  domrepo.Metrics
	models   *modelCache
	l        *applogger.Logger
}

func NewPredictor(cfg PredictorConfig, bars domrepo.BarStore, reg *registry.FS, c cache.Service, metrics domrepo.Metrics, l *applogger.Logger) *Predictor {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 15 * time.Minute
	}
	return &Predictor{
		cfg:      cfg,
		bars:     bars,
		registry: reg,
		cache:    c,
		metrics:  metrics,
		models:   newModelCache(cfg.ModelCacheSize),
		l:        l,
	}
}

func predictionKey(symbol string, horizon int) string {
	return fmt.Sprintf("prediction:%s:%d", strings.ToUpper(symbol), horizon)
}

// Predict returns the bundle for one (symbol, horizon) pair. Within the
// cache TTL repeated calls serve the identical cached bundle; after expiry
// the bundle is recomputed with a fresh ComputedAt.
func (p *Predictor) Predict(ctx context.Context, symbol string, horizon int) (*models.PredictionBundle, error) {
	symbol = strings.ToUpper(symbol)
	if !models.ValidHorizon(horizon) {
		return nil, &models.PredictionError{Symbol: symbol, Horizon: horizon, Err: fmt.Errorf("unsupported horizon")}
	}

	key := predictionKey(symbol, horizon)
	if p.cache != nil {
		var cached models.PredictionBundle
		if err := p.cache.Get(ctx, key, &cached); err == nil {
			if p.metrics != nil {
				p.metrics.RecordCacheHit(true)
				p.metrics.RecordPredictionServed(symbol, horizon)
			}
			return &cached, nil
		}
	}
	if p.metrics != nil {
		p.metrics.RecordCacheHit(false)
	}

	bundle, err := p.compute(ctx, symbol, horizon)
	if err != nil {
		if p.metrics != nil {
			p.metrics.RecordError("prediction")
		}
		return nil, err
	}

	if p.cache != nil {
		if err := p.cache.Set(ctx, key, bundle, p.cfg.CacheTTL); err != nil && p.l != nil {
			p.l.Warn("prediction cache write failed",
				applogger.String("key", key),
				applogger.Error(err),
			)
		}
	}
	if p.metrics != nil {
		p.metrics.RecordPredictionServed(symbol, horizon)
	}
	return bundle, nil
}

// PredictAll returns bundles for every horizon the symbol has artifacts
// for. Horizons without a trained model are skipped; the call fails only
// when no horizon can be served.
func (p *Predictor) PredictAll(ctx context.Context, symbol string) ([]*models.PredictionBundle, error) {
	var out []*models.PredictionBundle
	var firstErr error
	for _, horizon := range models.Horizons {
		bundle, err := p.Predict(ctx, symbol, horizon)
		if err != nil {
			if errors.Is(err, models.ErrNotTrained) {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			return nil, err
		}
		out = append(out, bundle)
	}
	if len(out) == 0 {
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", strings.ToUpper(symbol), models.ErrNotTrained)
		}
		return nil, firstErr
	}
	return out, nil
}

// InvalidateSymbol drops the symbol's cached bundles and in-memory models.
// Called after a retrain installs new artifacts.
func (p *Predictor) InvalidateSymbol(ctx context.Context, symbol string) {
	symbol = strings.ToUpper(symbol)
	p.models.invalidateSymbol(symbol)
	if p.cache != nil {
		if err := p.cache.DeleteByPattern(ctx, "prediction:"+symbol+":*"); err != nil && p.l != nil {
			p.l.Warn("prediction cache invalidation failed",
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
		}
	}
}

func (p *Predictor) compute(ctx context.Context, symbol string, horizon int) (*models.PredictionBundle, error) {
	start := time.Now()

	bars, err := p.bars.Series(ctx, symbol, p.cfg.HistoryLimit)
	if err != nil {
		return nil, &models.PredictionError{Symbol: symbol, Horizon: horizon, Err: err}
	}
	// a symbol that was never ingested is not-found, not merely untrained
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrNotFound)
	}

	set, err := p.models.getOrLoad(symbol, horizon, func() (*registry.ArtifactSet, error) {
		return p.registry.Load(symbol, horizon)
	})
	if err != nil {
		return nil, err
	}

	rows, err := features.Compute(bars)
	if err != nil {
		var ih *models.InsufficientHistoryError
		if errors.As(err, &ih) {
			ih.Symbol = symbol
			return nil, ih
		}
		return nil, &models.PredictionError{Symbol: symbol, Horizon: horizon, Err: err}
	}

	sequence, flat, err := dataset.BuildLatest(rows, set.Scaler)
	if err != nil {
		return nil, &models.PredictionError{Symbol: symbol, Horizon: horizon, Err: err}
	}

	temporal := set.Scaler.InverseTarget(set.Temporal.Predict(sequence))
	tree := set.Tree.Predict(flat)
	price := set.Weights.Combine(temporal, tree)
	confidence := hybrid.Confidence(temporal, tree, price)

	current := bars[len(bars)-1].Close
	change := price - current
	changePct := 0.0
	if current != 0 {
		changePct = change / current * 100
	}

	bundle := &models.PredictionBundle{
		Symbol:        symbol,
		Horizon:       horizon,
		Price:         price,
		CurrentPrice:  current,
		Change:        change,
		ChangePercent: changePct,
		Confidence:    confidence,
		Signal:        models.ClassifySignal(horizon, changePct, confidence),
		ComputedAt:    time.Now().UTC(),
	}

	if p.metrics != nil {
		p.metrics.RecordLatency("predict", time.Since(start).Seconds())
	}
	return bundle, nil
}

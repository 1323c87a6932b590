package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinPredict/internal/domain/models"
	domrepo "FinPredict/internal/domain/repository"
	"FinPredict/internal/forecast/dataset"
	"FinPredict/internal/forecast/features"
	"FinPredict/internal/forecast/gbdt"
	"FinPredict/internal/forecast/gru"
	"FinPredict/internal/forecast/hybrid"
	"FinPredict/internal/registry"
	"FinPredict/pkg/cache"
	applogger "FinPredict/pkg/logger"
)

// TrainerConfig bounds one training run.
type TrainerConfig struct {
	HistoryLimit int         // max bars pulled per symbol, 0 = all
	Workers      int         // batch parallelism
	Version      string      // stamped into artifact metadata
	Temporal     gru.Config  `yaml:"temporal"`
	Tree         gbdt.Config `yaml:"tree"`
}

func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{
		HistoryLimit: 2000,
		Workers:      2,
		Version:      "v1",
		Temporal:     gru.DefaultConfig(),
		Tree:         gbdt.DefaultConfig(),
	}
}

// Trainer runs the full per-symbol pipeline: feature derivation, dataset
// construction per horizon, both model fits, ensemble weight search,
// held-out evaluation, and atomic artifact installation.
type Trainer struct {
	cfg      TrainerConfig
	bars     domrepo.BarStore
	registry *registry.FS
	events   domrepo.EventPublisher
	metrics  domrepo.Metrics
	cache    cache.Service
	l        *applogger.Logger
}

func NewTrainer(cfg TrainerConfig, bars domrepo.BarStore, reg *registry.FS, events domrepo.EventPublisher, metrics domrepo.Metrics, c cache.Service, l *applogger.Logger) *Trainer {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Trainer{cfg: cfg, bars: bars, registry: reg, events: events, metrics: metrics, cache: c, l: l}
}

// TrainSymbol trains every horizon for one symbol and installs the artifact
// set. Completion invalidates the symbol's cached predictions so the next
// request serves fresh model output.
func (t *Trainer) TrainSymbol(ctx context.Context, symbol string) (*models.TrainingMetadata, error) {
	symbol = strings.ToUpper(symbol)
	started := time.Now()

	bars, err := t.bars.Series(ctx, symbol, t.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("load bars for %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrNotFound)
	}

	rows, err := features.Compute(bars)
	if err != nil {
		var ih *models.InsufficientHistoryError
		if errors.As(err, &ih) {
			ih.Symbol = symbol
			return nil, ih
		}
		return nil, t.fail(ctx, symbol, 0, "feature derivation", err)
	}

	sets := make([]*registry.ArtifactSet, 0, len(models.Horizons))
	for _, horizon := range models.Horizons {
		set, err := t.trainHorizon(ctx, symbol, horizon, rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}

	meta := &models.TrainingMetadata{
		Symbol:          symbol,
		Version:         t.cfg.Version,
		TrainedAt:       time.Now().UTC(),
		TrainingSeconds: time.Since(started).Seconds(),
		BarCount:        len(bars),
		FeatureRows:     len(rows),
		RangeStart:      bars[0].Timestamp,
		RangeEnd:        bars[len(bars)-1].Timestamp,
		Horizons:        models.Horizons,
	}
	if err := t.registry.Put(symbol, meta, sets); err != nil {
		return nil, t.fail(ctx, symbol, 0, "artifact install", err)
	}

	t.invalidatePredictions(ctx, symbol)

	if t.metrics != nil {
		t.metrics.RecordTrainingRun(symbol, "complete")
		t.metrics.RecordLatency("train_symbol", meta.TrainingSeconds)
	}
	if t.events != nil {
		_ = t.events.PublishTrainingEvent(ctx, "training.completed", symbol, map[string]interface{}{
			"version":          meta.Version,
			"training_seconds": meta.TrainingSeconds,
			"feature_rows":     meta.FeatureRows,
		})
	}
	if t.l != nil {
		t.l.Info("symbol trained",
			applogger.String("symbol", symbol),
			applogger.Int("bars", len(bars)),
			applogger.Int("feature_rows", len(rows)),
			applogger.Duration("duration_ms", time.Since(started)),
		)
	}
	return meta, nil
}

func (t *Trainer) trainHorizon(ctx context.Context, symbol string, horizon int, rows []models.FeatureRow) (*registry.ArtifactSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	split, scaler, err := dataset.Build(rows, horizon)
	if err != nil {
		var ih *models.InsufficientHistoryError
		if errors.As(err, &ih) {
			ih.Symbol = symbol
			return nil, ih
		}
		return nil, t.fail(ctx, symbol, horizon, "dataset build", err)
	}

	temporal := gru.New(models.NumFeatures, t.cfg.Temporal)
	if _, err := temporal.Train(split.Train, split.Val); err != nil {
		return nil, t.fail(ctx, symbol, horizon, "temporal model", err)
	}

	tree := gbdt.New(t.cfg.Tree)
	trainX, trainY := flatPartition(split.Train)
	valX, valY := flatPartition(split.Val)
	if _, err := tree.Train(trainX, trainY, valX, valY); err != nil {
		return nil, t.fail(ctx, symbol, horizon, "tree model", err)
	}

	valTemporal := temporalPredictions(temporal, scaler, split.Val)
	valTree := treePredictions(tree, split.Val)
	weights, err := hybrid.SearchWeights(valTemporal, valTree, targets(split.Val))
	if err != nil {
		return nil, t.fail(ctx, symbol, horizon, "ensemble weight search", err)
	}

	evaluation := evaluate(symbol, horizon, temporal, tree, scaler, weights, rows, split.Test)

	if t.l != nil {
		t.l.Debug("horizon trained",
			applogger.String("symbol", symbol),
			applogger.Int("horizon", horizon),
			applogger.Any("weights", weights),
			applogger.Any("test_mape", evaluation.MAPE),
		)
	}

	return &registry.ArtifactSet{
		Symbol:     symbol,
		Horizon:    horizon,
		Scaler:     scaler,
		Temporal:   temporal,
		Tree:       tree,
		Weights:    weights,
		Evaluation: evaluation,
	}, nil
}

// BatchResult summarizes one symbol's outcome inside a batch run.
type BatchResult struct {
	Symbol string
	Err    error
}

// TrainAll trains symbols concurrently across the worker pool. Failures are
// isolated per symbol: a symbol with too little history is marked failed in
// the ledger and the rest of the batch proceeds.
func (t *Trainer) TrainAll(ctx context.Context, symbols []string, ledger domrepo.TrainingLedger) []BatchResult {
	for _, sym := range symbols {
		if ledger != nil {
			_ = ledger.SetStatus(sym, models.TrainingPending, nil)
		}
	}

	work := make(chan string)
	results := make(chan BatchResult, len(symbols))
	var wg sync.WaitGroup
	for i := 0; i < t.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range work {
				if ledger != nil {
					_ = ledger.SetStatus(sym, models.TrainingInProgress, nil)
				}
				_, err := t.TrainSymbol(ctx, sym)
				status := models.TrainingComplete
				if err != nil {
					status = models.TrainingFailed
				}
				if ledger != nil {
					_ = ledger.SetStatus(sym, status, err)
				}
				results <- BatchResult{Symbol: strings.ToUpper(sym), Err: err}
			}
		}()
	}

	for _, sym := range symbols {
		work <- sym
	}
	close(work)
	wg.Wait()
	close(results)

	out := make([]BatchResult, 0, len(symbols))
	for r := range results {
		out = append(out, r)
	}
	return out
}

// fail records a failed run and wraps the cause into a TrainingFailure.
func (t *Trainer) fail(ctx context.Context, symbol string, horizon int, cause string, err error) error {
	if t.metrics != nil {
		t.metrics.RecordTrainingRun(symbol, "failed")
	}
	if t.events != nil {
		_ = t.events.PublishTrainingEvent(ctx, "training.failed", symbol, map[string]interface{}{
			"cause": cause,
			"error": err.Error(),
		})
	}
	return &models.TrainingFailure{Symbol: symbol, Horizon: horizon, Cause: cause + ": " + err.Error(), Err: err}
}

func (t *Trainer) invalidatePredictions(ctx context.Context, symbol string) {
	if t.cache == nil {
		return
	}
	if err := t.cache.DeleteByPattern(ctx, "prediction:"+symbol+":*"); err != nil && t.l != nil {
		t.l.Warn("prediction cache invalidation failed",
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
	}
}

func evaluate(symbol string, horizon int, temporal *gru.Network, tree *gbdt.Model, scaler *dataset.Scaler, weights hybrid.Weights, rows []models.FeatureRow, test []dataset.Sample) *models.EvaluationReport {
	tPred := temporalPredictions(temporal, scaler, test)
	xPred := treePredictions(tree, test)
	actual := targets(test)

	blended := make([]float64, len(test))
	anchors := make([]float64, len(test))
	for i := range test {
		blended[i] = weights.Combine(tPred[i], xPred[i])
		anchors[i] = rows[test[i].Anchor].Close
	}

	return &models.EvaluationReport{
		Symbol:              symbol,
		Horizon:             horizon,
		TestSamples:         len(test),
		RMSE:                hybrid.RMSE(blended, actual),
		MAE:                 hybrid.MAE(blended, actual),
		MAPE:                hybrid.MAPE(blended, actual),
		DirectionalAccuracy: hybrid.DirectionalAccuracy(blended, actual, anchors),
		TemporalRMSE:        hybrid.RMSE(tPred, actual),
		TreeRMSE:            hybrid.RMSE(xPred, actual),
	}
}

func temporalPredictions(n *gru.Network, scaler *dataset.Scaler, samples []dataset.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = scaler.InverseTarget(n.Predict(s.Sequence))
	}
	return out
}

func treePredictions(m *gbdt.Model, samples []dataset.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = m.Predict(s.Flat)
	}
	return out
}

func flatPartition(samples []dataset.Sample) ([][]float64, []float64) {
	x := make([][]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = s.Flat
		y[i] = s.Target
	}
	return x, y
}

func targets(samples []dataset.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.Target
	}
	return out
}


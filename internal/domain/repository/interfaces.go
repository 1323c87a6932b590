package repository

import (
	"context"

	"FinPredict/internal/domain/models"
)

// BarStore provides ordered, append-only access to per-symbol OHLCV history.
// Ingestion owns gap-filling and OHLC validation; readers assume a clean
// series.
type BarStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Append(ctx context.Context, bars []*models.PriceBar) error
	Series(ctx context.Context, symbol string, limit int) ([]*models.PriceBar, error)
	Symbols(ctx context.Context) ([]string, error)
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher emits training lifecycle events for downstream consumers.
// Implementations must be nil-safe to wire: a nil publisher drops events.
type EventPublisher interface {
	PublishTrainingEvent(ctx context.Context, event string, symbol string, detail map[string]interface{}) error
	Close() error
}

// Metrics records operational metrics for serving and training.
type Metrics interface {
	RecordPredictionServed(symbol string, horizon int)
	RecordCacheHit(hit bool)
	RecordTrainingRun(symbol, outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}

// TrainingLedger tracks per-symbol batch training progress.
type TrainingLedger interface {
	SetStatus(symbol string, status models.TrainingStatus, trainErr error) error
	Entries() ([]models.LedgerEntry, error)
}

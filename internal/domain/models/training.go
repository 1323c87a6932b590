package models

import "time"

// TrainingStatus is the per-symbol state in the batch training ledger.
type TrainingStatus string

const (
	TrainingPending    TrainingStatus = "pending"
	TrainingInProgress TrainingStatus = "in_progress"
	TrainingComplete   TrainingStatus = "complete"
	TrainingFailed     TrainingStatus = "failed"
)

// LedgerEntry tracks one symbol's progress through a batch training run.
type LedgerEntry struct {
	Symbol     string         `json:"symbol"`
	Status     TrainingStatus `json:"status"`
	Error      string         `json:"error,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	Duration   float64        `json:"duration_seconds,omitempty"`
}

// TrainingJobHandle is returned by a fire-and-forget training trigger.
// Progress is observable through the registry ledger, not the handle.
type TrainingJobHandle struct {
	JobID    string    `json:"job_id"`
	Symbols  []string  `json:"symbols"`
	QueuedAt time.Time `json:"queued_at"`
}

// EvaluationReport holds held-out test-split error metrics for one
// (symbol, horizon) model pair plus the blended ensemble.
type EvaluationReport struct {
	Symbol              string  `json:"symbol"`
	Horizon             int     `json:"horizon"`
	TestSamples         int     `json:"test_samples"`
	RMSE                float64 `json:"rmse"`
	MAE                 float64 `json:"mae"`
	MAPE                float64 `json:"mape"`
	DirectionalAccuracy float64 `json:"directional_accuracy"`
	TemporalRMSE        float64 `json:"temporal_rmse"`
	TreeRMSE            float64 `json:"tree_rmse"`
}

// TrainingMetadata records provenance for a symbol's artifact set.
type TrainingMetadata struct {
	Symbol          string    `json:"symbol"`
	Version         string    `json:"version"`
	TrainedAt       time.Time `json:"trained_at"`
	TrainingSeconds float64   `json:"training_seconds"`
	BarCount        int       `json:"bar_count"`
	FeatureRows     int       `json:"feature_rows"`
	RangeStart      time.Time `json:"range_start"`
	RangeEnd        time.Time `json:"range_end"`
	Horizons        []int     `json:"horizons"`
}

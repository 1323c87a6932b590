package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for the prediction engine. Callers distinguish three
// conditions: the symbol was never ingested or trained (ErrNotFound), the
// symbol is known but this horizon has no completed artifact (ErrNotTrained),
// and everything else (wrapped as a PredictionError).
var (
	ErrNotFound   = errors.New("symbol not found")
	ErrNotTrained = errors.New("model not trained")
)

// InsufficientHistoryError signals a symbol with too few usable bars to
// train. Fatal for that symbol only; a batch run skips it and continues.
type InsufficientHistoryError struct {
	Symbol   string
	Have     int
	Required int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history for %s: have %d bars, need %d", e.Symbol, e.Have, e.Required)
}

// IsInsufficientHistory reports whether err is an InsufficientHistoryError.
func IsInsufficientHistory(err error) bool {
	var ih *InsufficientHistoryError
	return errors.As(err, &ih)
}

// PredictionError wraps an unexpected runtime failure during inference,
// distinct from ErrNotFound and ErrNotTrained so callers can retry.
type PredictionError struct {
	Symbol  string
	Horizon int
	Err     error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction failed for %s horizon %d: %v", e.Symbol, e.Horizon, e.Err)
}

func (e *PredictionError) Unwrap() error { return e.Err }

// TrainingFailure records a non-convergence or data error during one
// (symbol, horizon) training run. Isolated: it never aborts the batch.
type TrainingFailure struct {
	Symbol  string
	Horizon int
	Cause   string
	Err     error
}

func (e *TrainingFailure) Error() string {
	if e.Horizon > 0 {
		return fmt.Sprintf("training failed for %s horizon %d: %s", e.Symbol, e.Horizon, e.Cause)
	}
	return fmt.Sprintf("training failed for %s: %s", e.Symbol, e.Cause)
}

func (e *TrainingFailure) Unwrap() error { return e.Err }

package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinPredict/internal/domain/models"
	domrepo "FinPredict/internal/domain/repository"
	applogger "FinPredict/pkg/logger"
	"FinPredict/pkg/queue"
)

// TrainSymbolType is the queue message type for per-symbol training.
const TrainSymbolType = "train_symbol"

// TrainSymbolPayload is the queue message body.
type TrainSymbolPayload struct {
	Symbol string `json:"symbol"`
}

// TrainingTrigger enqueues fire-and-forget training work through the redis
// queue and seeds the ledger so status is observable immediately.
type TrainingTrigger struct {
	queue  queue.QueueService
	bars   domrepo.BarStore
	ledger domrepo.TrainingLedger
	l      *applogger.Logger
}

func NewTrainingTrigger(q queue.QueueService, bars domrepo.BarStore, ledger domrepo.TrainingLedger, l *applogger.Logger) *TrainingTrigger {
	return &TrainingTrigger{queue: q, bars: bars, ledger: ledger, l: l}
}

// Trigger enqueues one message per symbol. With all=true every symbol in
// the bar store is queued.
func (t *TrainingTrigger) Trigger(ctx context.Context, symbol string, all bool) (*models.TrainingJobHandle, error) {
	var symbols []string
	if all {
		var err error
		symbols, err = t.bars.Symbols(ctx)
		if err != nil {
			return nil, fmt.Errorf("list symbols: %w", err)
		}
		if len(symbols) == 0 {
			return nil, fmt.Errorf("no symbols ingested: %w", models.ErrNotFound)
		}
	} else {
		if symbol == "" {
			return nil, fmt.Errorf("symbol required")
		}
		symbols = []string{strings.ToUpper(symbol)}
	}

	for _, sym := range symbols {
		if err := t.queue.PublishMessage(ctx, TrainSymbolType, TrainSymbolPayload{Symbol: sym}); err != nil {
			return nil, fmt.Errorf("enqueue %s: %w", sym, err)
		}
		if t.ledger != nil {
			_ = t.ledger.SetStatus(sym, models.TrainingPending, nil)
		}
	}

	handle := &models.TrainingJobHandle{
		JobID:    fmt.Sprintf("train-%d", time.Now().UnixNano()),
		Symbols:  symbols,
		QueuedAt: time.Now().UTC(),
	}
	if t.l != nil {
		t.l.Info("training queued",
			applogger.String("job_id", handle.JobID),
			applogger.Strings("symbols", symbols),
		)
	}
	return handle, nil
}

// TrainSymbolJob consumes train_symbol messages from the redis queue.
type TrainSymbolJob struct {
	trainer   *Trainer
	predictor *Predictor
	ledger    domrepo.TrainingLedger
	l         *applogger.Logger
}

func NewTrainSymbolJob(trainer *Trainer, predictor *Predictor, ledger domrepo.TrainingLedger, l *applogger.Logger) *TrainSymbolJob {
	return &TrainSymbolJob{trainer: trainer, predictor: predictor, ledger: ledger, l: l}
}

func (j *TrainSymbolJob) Name() string { return "train-symbol" }
func (j *TrainSymbolJob) Type() string { return TrainSymbolType }

func (j *TrainSymbolJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[TrainSymbolPayload](payload)
	if err != nil {
		return fmt.Errorf("parse payload: %w", err)
	}

	if j.ledger != nil {
		_ = j.ledger.SetStatus(p.Symbol, models.TrainingInProgress, nil)
	}

	_, trainErr := j.trainer.TrainSymbol(ctx, p.Symbol)
	status := models.TrainingComplete
	if trainErr != nil {
		status = models.TrainingFailed
	}
	if j.ledger != nil {
		_ = j.ledger.SetStatus(p.Symbol, status, trainErr)
	}

	if trainErr == nil && j.predictor != nil {
		j.predictor.InvalidateSymbol(ctx, p.Symbol)
	}

	if trainErr != nil {
		if j.l != nil {
			j.l.Error("training job failed",
				applogger.String("symbol", p.Symbol),
				applogger.Error(trainErr),
			)
		}
		// deterministic failures are not worth retrying
		var tf *models.TrainingFailure
		if models.IsInsufficientHistory(trainErr) || errors.As(trainErr, &tf) || errors.Is(trainErr, models.ErrNotFound) {
			return nil
		}
		return trainErr
	}
	return nil
}

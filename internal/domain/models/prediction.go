package models

import "time"

// Signal labels a prediction by direction and strength, derived from the
// predicted change percent and confidence with horizon-aware thresholds.
type Signal string

const (
	SignalStrongBuy  Signal = "STRONG_BUY"
	SignalBuy        Signal = "BUY"
	SignalNeutral    Signal = "NEUTRAL"
	SignalSell       Signal = "SELL"
	SignalStrongSell Signal = "STRONG_SELL"
)

// PredictionBundle is the served prediction for one (symbol, horizon).
// Ephemeral: it lives in the cache for a bounded TTL and is never persisted.
type PredictionBundle struct {
	Symbol        string    `json:"symbol"`
	Horizon       int       `json:"horizon"`
	Price         float64   `json:"price"`
	CurrentPrice  float64   `json:"current_price"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Confidence    float64   `json:"confidence"`
	Signal        Signal    `json:"signal"`
	ComputedAt    time.Time `json:"computed_at"`
}

// ClassifySignal maps a predicted move to a trading signal. Thresholds widen
// with the horizon: a 1% move is strong over one day but noise over thirty.
func ClassifySignal(horizon int, changePercent, confidence float64) Signal {
	var weak, strong float64
	switch {
	case horizon <= 1:
		weak, strong = 0.5, 1.2
	case horizon <= 7:
		weak, strong = 1.2, 3.0
	default:
		weak, strong = 2.5, 6.0
	}

	switch {
	case changePercent > strong && confidence >= 0.65:
		return SignalStrongBuy
	case changePercent > weak && confidence >= 0.55:
		return SignalBuy
	case changePercent < -strong && confidence >= 0.65:
		return SignalStrongSell
	case changePercent < -weak && confidence >= 0.55:
		return SignalSell
	default:
		return SignalNeutral
	}
}

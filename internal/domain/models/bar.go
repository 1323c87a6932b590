package models

import "time"

// PriceBar is one daily OHLCV bar for a symbol. Bars are produced by
// ingestion, appended in time order, and never rewritten.
type PriceBar struct {
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Horizons is the forecast horizon set, in bars ahead.
var Horizons = []int{1, 7, 30}

// ValidHorizon reports whether h is a supported forecast horizon.
func ValidHorizon(h int) bool {
	for _, v := range Horizons {
		if v == h {
			return true
		}
	}
	return false
}

// MaxHorizon returns the largest supported horizon.
func MaxHorizon() int {
	max := Horizons[0]
	for _, h := range Horizons[1:] {
		if h > max {
			max = h
		}
	}
	return max
}

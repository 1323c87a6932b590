package models

import "time"

// NumFeatures is the width of the feature vector derived from one bar.
const NumFeatures = 36

// FeatureRow holds the engineered indicator values for a single bar.
// Every field is a pure function of the bar itself and a fixed trailing
// window of prior bars; nothing here may look forward.
type FeatureRow struct {
	Timestamp time.Time
	Close     float64 // raw close, kept for target construction

	// Price / return
	Return1   float64
	Return7   float64
	Return30  float64
	LogReturn float64
	HLSpread  float64
	OCSpread  float64

	// Moving averages
	SMA5      float64
	SMA10     float64
	SMA20     float64
	SMA50     float64
	SMA200    float64
	EMA12     float64
	EMA26     float64
	EMA50     float64
	DistSMA20 float64
	DistSMA50 float64

	// Momentum
	RSI14      float64
	MACD       float64
	MACDSignal float64
	MACDHist   float64
	StochK     float64
	StochD     float64
	ROC10      float64
	CCI14      float64
	WilliamsR  float64

	// Volatility
	BBWidth      float64
	BBPosition   float64
	ATR14        float64
	NATR14       float64
	Volatility5  float64
	Volatility10 float64
	Volatility20 float64

	// Volume
	VolumeSMA20 float64
	VolumeRatio float64
	OBV         float64
	AD          float64
}

// Vector returns the feature values in canonical order. The ordering is part
// of the model artifact contract: scaler bounds and model weights are indexed
// by position, so this order must never change between training and inference.
func (r *FeatureRow) Vector() []float64 {
	return []float64{
		r.Return1, r.Return7, r.Return30, r.LogReturn, r.HLSpread, r.OCSpread,
		r.SMA5, r.SMA10, r.SMA20, r.SMA50, r.SMA200,
		r.EMA12, r.EMA26, r.EMA50, r.DistSMA20, r.DistSMA50,
		r.RSI14, r.MACD, r.MACDSignal, r.MACDHist,
		r.StochK, r.StochD, r.ROC10, r.CCI14, r.WilliamsR,
		r.BBWidth, r.BBPosition, r.ATR14, r.NATR14,
		r.Volatility5, r.Volatility10, r.Volatility20,
		r.VolumeSMA20, r.VolumeRatio, r.OBV, r.AD,
	}
}

// FeatureNames mirrors Vector ordering, used in artifacts and reports.
var FeatureNames = []string{
	"return_1", "return_7", "return_30", "log_return", "hl_spread", "oc_spread",
	"sma_5", "sma_10", "sma_20", "sma_50", "sma_200",
	"ema_12", "ema_26", "ema_50", "dist_sma_20", "dist_sma_50",
	"rsi_14", "macd", "macd_signal", "macd_hist",
	"stoch_k", "stoch_d", "roc_10", "cci_14", "williams_r",
	"bb_width", "bb_position", "atr_14", "natr_14",
	"volatility_5", "volatility_10", "volatility_20",
	"volume_sma_20", "volume_ratio", "obv", "ad",
}

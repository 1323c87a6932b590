package features

import (
	"math"

	"FinPredict/internal/domain/models"
)

// WarmUp is the number of leading bars dropped from every feature table:
// the longest indicator lookback (the 200-bar moving average). A series of
// N bars always yields exactly N - WarmUp feature rows.
const WarmUp = 200

// Compute derives the feature table for one symbol's ordered bar series.
// It is the single feature code path shared by training and inference;
// every value is a function of the current bar and trailing bars only.
// Returns InsufficientHistoryError when the series cannot cover the
// warm-up window.
func Compute(bars []*models.PriceBar) ([]models.FeatureRow, error) {
	if len(bars) <= WarmUp {
		symbol := ""
		if len(bars) > 0 {
			symbol = bars[0].Symbol
		}
		return nil, &models.InsufficientHistoryError{Symbol: symbol, Have: len(bars), Required: WarmUp + 1}
	}

	n := len(bars)
	opens := make([]float64, n)
	highs := make([]float64, n)
	lows := make([]float64, n)
	closes := make([]float64, n)
	volumes := make([]float64, n)
	for i, b := range bars {
		opens[i] = b.Open
		highs[i] = b.High
		lows[i] = b.Low
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	logReturns := nanSlice(n)
	for i := 1; i < n; i++ {
		if closes[i-1] > 0 && closes[i] > 0 {
			logReturns[i] = math.Log(closes[i] / closes[i-1])
		} else {
			logReturns[i] = 0
		}
	}

	sma5 := sma(closes, 5)
	sma10 := sma(closes, 10)
	sma20 := sma(closes, 20)
	sma50 := sma(closes, 50)
	sma200 := sma(closes, 200)
	ema12 := ema(closes, 12)
	ema26 := ema(closes, 26)
	ema50 := ema(closes, 50)

	rsi14 := rsi(closes, 14)
	macdLine, macdSig, macdHist := macd(closes, 12, 26, 9)
	stochK, stochD := stochastic(highs, lows, closes, 14, 3, 3)
	roc10 := roc(closes, 10)
	cci14 := cci(highs, lows, closes, 14)
	willR := williamsR(highs, lows, closes, 14)

	bbWidth, bbPos := bollinger(closes, 20, 2)
	atr14 := atr(highs, lows, closes, 14)
	vol5 := rollingStd(logReturns, 5)
	vol10 := rollingStd(logReturns, 10)
	vol20 := rollingStd(logReturns, 20)

	volSMA20 := sma(volumes, 20)
	obvLine := obv(closes, volumes)
	ad := adLine(highs, lows, closes, volumes)

	rows := make([]models.FeatureRow, 0, n-WarmUp)
	for i := WarmUp; i < n; i++ {
		row := models.FeatureRow{
			Timestamp: bars[i].Timestamp,
			Close:     closes[i],

			Return1:   pctChange(closes, i, 1),
			Return7:   pctChange(closes, i, 7),
			Return30:  pctChange(closes, i, 30),
			LogReturn: logReturns[i],
			HLSpread:  safeDiv(highs[i]-lows[i], closes[i]),
			OCSpread:  safeDiv(closes[i]-opens[i], opens[i]),

			SMA5:      sma5[i],
			SMA10:     sma10[i],
			SMA20:     sma20[i],
			SMA50:     sma50[i],
			SMA200:    sma200[i],
			EMA12:     ema12[i],
			EMA26:     ema26[i],
			EMA50:     ema50[i],
			DistSMA20: safeDiv(closes[i]-sma20[i], sma20[i]),
			DistSMA50: safeDiv(closes[i]-sma50[i], sma50[i]),

			RSI14:      rsi14[i],
			MACD:       macdLine[i],
			MACDSignal: macdSig[i],
			MACDHist:   macdHist[i],
			StochK:     stochK[i],
			StochD:     stochD[i],
			ROC10:      roc10[i],
			CCI14:      cci14[i],
			WilliamsR:  willR[i],

			BBWidth:      bbWidth[i],
			BBPosition:   bbPos[i],
			ATR14:        atr14[i],
			NATR14:       safeDiv(atr14[i], closes[i]) * 100,
			Volatility5:  vol5[i],
			Volatility10: vol10[i],
			Volatility20: vol20[i],

			VolumeSMA20: volSMA20[i],
			VolumeRatio: safeDiv(volumes[i], volSMA20[i]),
			OBV:         obvLine[i],
			AD:          ad[i],
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func pctChange(closes []float64, i, period int) float64 {
	if i < period || closes[i-period] == 0 {
		return 0
	}
	return (closes[i] - closes[i-period]) / closes[i-period]
}

func safeDiv(num, den float64) float64 {
	if den == 0 || math.IsNaN(den) {
		return 0
	}
	return num / den
}

package features

import "math"

// Standard technical-analysis indicator kernels. Each function computes the
// indicator series over the full input with the conventional warm-up
// semantics: positions with insufficient trailing history hold NaN. Formulas
// match the TA-Lib definitions bar for bar, since downstream model quality
// degrades silently on formula drift.

func sma(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ema seeds with the SMA of the first period values, TA-Lib style.
func ema(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	prev := seed / float64(period)
	out[period-1] = prev
	k := 2.0 / float64(period+1)
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// rsi uses Wilder smoothing of average gains and losses.
func rsi(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	if len(closes) < period+1 {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)
	for i := period + 1; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// macd returns the MACD line, signal line, and histogram for the
// conventional 12/26/9 parameterization.
func macd(closes []float64, fast, slow, signal int) (line, sig, hist []float64) {
	emaFast := ema(closes, fast)
	emaSlow := ema(closes, slow)
	line = nanSlice(len(closes))
	for i := range closes {
		if !math.IsNaN(emaFast[i]) && !math.IsNaN(emaSlow[i]) {
			line[i] = emaFast[i] - emaSlow[i]
		}
	}
	// Signal is an EMA over the defined portion of the MACD line.
	sig = nanSlice(len(closes))
	hist = nanSlice(len(closes))
	start := firstDefined(line)
	if start < 0 || len(closes)-start < signal {
		return line, sig, hist
	}
	sub := ema(line[start:], signal)
	for i := range sub {
		if !math.IsNaN(sub[i]) {
			sig[start+i] = sub[i]
			hist[start+i] = line[start+i] - sub[i]
		}
	}
	return line, sig, hist
}

// stochastic returns slow %K and %D (fastK period, then two smoothing SMAs).
func stochastic(highs, lows, closes []float64, kPeriod, kSmooth, dSmooth int) (slowK, slowD []float64) {
	n := len(closes)
	fastK := nanSlice(n)
	for i := kPeriod - 1; i < n; i++ {
		hi, lo := highs[i], lows[i]
		for j := i - kPeriod + 1; j < i; j++ {
			if highs[j] > hi {
				hi = highs[j]
			}
			if lows[j] < lo {
				lo = lows[j]
			}
		}
		if hi == lo {
			fastK[i] = 50
		} else {
			fastK[i] = 100 * (closes[i] - lo) / (hi - lo)
		}
	}
	slowK = smaDefined(fastK, kSmooth)
	slowD = smaDefined(slowK, dSmooth)
	return slowK, slowD
}

func roc(closes []float64, period int) []float64 {
	out := nanSlice(len(closes))
	for i := period; i < len(closes); i++ {
		if closes[i-period] != 0 {
			out[i] = (closes[i] - closes[i-period]) / closes[i-period] * 100
		}
	}
	return out
}

// cci is the commodity channel index over typical price.
func cci(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	tp := make([]float64, n)
	for i := 0; i < n; i++ {
		tp[i] = (highs[i] + lows[i] + closes[i]) / 3
	}
	out := nanSlice(n)
	for i := period - 1; i < n; i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += tp[j]
		}
		mean := sum / float64(period)
		dev := 0.0
		for j := i - period + 1; j <= i; j++ {
			dev += math.Abs(tp[j] - mean)
		}
		dev /= float64(period)
		if dev == 0 {
			out[i] = 0
		} else {
			out[i] = (tp[i] - mean) / (0.015 * dev)
		}
	}
	return out
}

func williamsR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	for i := period - 1; i < n; i++ {
		hi, lo := highs[i], lows[i]
		for j := i - period + 1; j < i; j++ {
			if highs[j] > hi {
				hi = highs[j]
			}
			if lows[j] < lo {
				lo = lows[j]
			}
		}
		if hi == lo {
			out[i] = -50
		} else {
			out[i] = -100 * (hi - closes[i]) / (hi - lo)
		}
	}
	return out
}

// bollinger returns band width ((upper-lower)/middle) and the close's
// position within the band, for a 2-sigma band over period.
func bollinger(closes []float64, period int, dev float64) (width, position []float64) {
	n := len(closes)
	width = nanSlice(n)
	position = nanSlice(n)
	for i := period - 1; i < n; i++ {
		sum, sum2 := 0.0, 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += closes[j]
			sum2 += closes[j] * closes[j]
		}
		mean := sum / float64(period)
		variance := sum2/float64(period) - mean*mean
		if variance < 0 {
			variance = 0
		}
		sd := math.Sqrt(variance)
		upper := mean + dev*sd
		lower := mean - dev*sd
		if mean != 0 {
			width[i] = (upper - lower) / mean
		}
		if upper != lower {
			position[i] = (closes[i] - lower) / (upper - lower)
		} else {
			position[i] = 0.5
		}
	}
	return width, position
}

// atr uses Wilder smoothing over the true range.
func atr(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	out := nanSlice(n)
	if n < period+1 {
		return out
	}
	tr := make([]float64, n)
	tr[0] = highs[0] - lows[0]
	for i := 1; i < n; i++ {
		hl := highs[i] - lows[i]
		hc := math.Abs(highs[i] - closes[i-1])
		lc := math.Abs(lows[i] - closes[i-1])
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}
	sum := 0.0
	for i := 1; i <= period; i++ {
		sum += tr[i]
	}
	prev := sum / float64(period)
	out[period] = prev
	for i := period + 1; i < n; i++ {
		prev = (prev*float64(period-1) + tr[i]) / float64(period)
		out[i] = prev
	}
	return out
}

// rollingStd computes the sample standard deviation of values over a window.
func rollingStd(values []float64, window int) []float64 {
	n := len(values)
	out := nanSlice(n)
	if window <= 1 {
		return out
	}
	for i := window - 1; i < n; i++ {
		defined := true
		sum, sum2 := 0.0, 0.0
		for j := i - window + 1; j <= i; j++ {
			if math.IsNaN(values[j]) {
				defined = false
				break
			}
			sum += values[j]
			sum2 += values[j] * values[j]
		}
		if !defined {
			continue
		}
		mean := sum / float64(window)
		variance := (sum2 - float64(window)*mean*mean) / float64(window-1)
		if variance < 0 {
			variance = 0
		}
		out[i] = math.Sqrt(variance)
	}
	return out
}

// obv is the cumulative on-balance volume accumulator.
func obv(closes, volumes []float64) []float64 {
	n := len(closes)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	out[0] = volumes[0]
	for i := 1; i < n; i++ {
		switch {
		case closes[i] > closes[i-1]:
			out[i] = out[i-1] + volumes[i]
		case closes[i] < closes[i-1]:
			out[i] = out[i-1] - volumes[i]
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// adLine is the accumulation/distribution line.
func adLine(highs, lows, closes, volumes []float64) []float64 {
	n := len(closes)
	out := make([]float64, n)
	acc := 0.0
	for i := 0; i < n; i++ {
		if highs[i] != lows[i] {
			mfm := ((closes[i] - lows[i]) - (highs[i] - closes[i])) / (highs[i] - lows[i])
			acc += mfm * volumes[i]
		}
		out[i] = acc
	}
	return out
}

// smaDefined applies an SMA over a series that may lead with NaNs, starting
// the window at the first defined position.
func smaDefined(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	start := firstDefined(values)
	if start < 0 || len(values)-start < period {
		return out
	}
	sub := sma(values[start:], period)
	for i, v := range sub {
		if !math.IsNaN(v) {
			out[start+i] = v
		}
	}
	return out
}

func firstDefined(values []float64) int {
	for i, v := range values {
		if !math.IsNaN(v) {
			return i
		}
	}
	return -1
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

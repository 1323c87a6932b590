package dataset

import (
	"fmt"
	"math"

	"FinPredict/internal/domain/models"
)

// SequenceLength is the fixed window of feature rows fed to the temporal
// model (L in the pipeline contract).
const SequenceLength = 60

// Close-price lags and rolling windows for the flat feature view. The flat
// vector is built from the same feature table as the sequences, so the two
// model families always see feature-consistent inputs.
var (
	flatLags    = []int{1, 3, 5, 7, 14, 30}
	flatWindows = []int{5, 10, 20}
)

// FlatWidth is the width of a FlatFeatureVector: the anchor's feature row
// plus close lags plus rolling mean/std per window.
const FlatWidth = models.NumFeatures + 6 + 3*2

// Sample pairs one anchor's two input views with its target: the close
// price Horizon bars after the anchor.
type Sample struct {
	Anchor       int         // index into the feature table
	Sequence     [][]float64 // SequenceLength x NumFeatures, scaled
	Flat         []float64   // FlatWidth, raw units
	Target       float64     // close price at Anchor+Horizon
	TargetScaled float64
}

// Split holds the chronological train/validation/test partition of samples
// for one horizon. Train is the earliest contiguous 70% of anchors,
// validation the next 15%, test the final 15%.
type Split struct {
	Horizon int
	Train   []Sample
	Val     []Sample
	Test    []Sample
}

// MinimumRows is the smallest feature-table size that still yields a
// meaningful three-way split for the largest horizon.
func MinimumRows() int {
	// Need enough anchors past the sequence window for every partition to
	// hold at least a handful of samples.
	return SequenceLength + models.MaxHorizon() + 40
}

// Build windows the feature table into samples for one horizon, fits the
// scaler on the training portion only, and returns the chronological split
// together with the fitted scaler.
func Build(rows []models.FeatureRow, horizon int) (*Split, *Scaler, error) {
	anchors := validAnchors(len(rows), horizon)
	if len(anchors) < 10 {
		return nil, nil, &models.InsufficientHistoryError{
			Have:     len(rows),
			Required: MinimumRows(),
		}
	}

	trainEnd := int(float64(len(anchors)) * 0.70)
	valEnd := int(float64(len(anchors)) * 0.85)
	if trainEnd == 0 || valEnd == trainEnd || valEnd == len(anchors) {
		return nil, nil, fmt.Errorf("build dataset: split too small for %d anchors", len(anchors))
	}

	// Scaler sees only rows visible up to the last training anchor.
	lastTrainAnchor := anchors[trainEnd-1]
	scaler, err := FitScaler(rows[:lastTrainAnchor+1])
	if err != nil {
		return nil, nil, err
	}

	split := &Split{Horizon: horizon}
	for idx, anchor := range anchors {
		sample := materialize(rows, anchor, horizon, scaler)
		switch {
		case idx < trainEnd:
			split.Train = append(split.Train, sample)
		case idx < valEnd:
			split.Val = append(split.Val, sample)
		default:
			split.Test = append(split.Test, sample)
		}
	}
	return split, scaler, nil
}

// BuildLatest produces the inference-time input views for the most recent
// anchor: the trailing sequence window and the flat vector, scaled with the
// stored training scaler. This is the same windowing code the trainer uses;
// divergence here would be train/serve skew.
func BuildLatest(rows []models.FeatureRow, scaler *Scaler) (sequence [][]float64, flat []float64, err error) {
	anchor := len(rows) - 1
	if anchor < SequenceLength-1 || anchor < maxLag() {
		return nil, nil, fmt.Errorf("build latest: need %d feature rows, have %d", SequenceLength, len(rows))
	}
	sequence = scaledWindow(rows, anchor, scaler)
	flat = flatVector(rows, anchor)
	return sequence, flat, nil
}

func materialize(rows []models.FeatureRow, anchor, horizon int, scaler *Scaler) Sample {
	target := rows[anchor+horizon].Close
	return Sample{
		Anchor:       anchor,
		Sequence:     scaledWindow(rows, anchor, scaler),
		Flat:         flatVector(rows, anchor),
		Target:       target,
		TargetScaled: scaler.ScaleTarget(target),
	}
}

// validAnchors returns anchor indices with a full trailing sequence window,
// full lag coverage, and a target inside the table.
func validAnchors(n, horizon int) []int {
	start := SequenceLength - 1
	if maxLag() > start {
		start = maxLag()
	}
	var anchors []int
	for i := start; i+horizon < n; i++ {
		anchors = append(anchors, i)
	}
	return anchors
}

func scaledWindow(rows []models.FeatureRow, anchor int, scaler *Scaler) [][]float64 {
	window := make([][]float64, SequenceLength)
	for k := 0; k < SequenceLength; k++ {
		window[k] = scaler.TransformRow(rows[anchor-SequenceLength+1+k].Vector())
	}
	return window
}

func flatVector(rows []models.FeatureRow, anchor int) []float64 {
	out := make([]float64, 0, FlatWidth)
	out = append(out, rows[anchor].Vector()...)
	for _, lag := range flatLags {
		out = append(out, rows[anchor-lag].Close)
	}
	for _, w := range flatWindows {
		mean, std := rollingCloseStats(rows, anchor, w)
		out = append(out, mean, std)
	}
	return out
}

func rollingCloseStats(rows []models.FeatureRow, anchor, window int) (mean, std float64) {
	sum, sum2 := 0.0, 0.0
	for i := anchor - window + 1; i <= anchor; i++ {
		c := rows[i].Close
		sum += c
		sum2 += c * c
	}
	n := float64(window)
	mean = sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}

func maxLag() int {
	return flatLags[len(flatLags)-1]
}

package dataset

import (
	"fmt"

	"FinPredict/internal/domain/models"
)

// Scaler holds min/max bounds fit exclusively on the training split.
// Immutable after Fit: the same bounds scale validation, test, and every
// future inference call until the next full retraining.
type Scaler struct {
	FeatureMin []float64 `json:"feature_min"`
	FeatureMax []float64 `json:"feature_max"`
	TargetMin  float64   `json:"target_min"`
	TargetMax  float64   `json:"target_max"`
}

// FitScaler computes feature bounds over the given rows and target bounds
// over the close price of the same rows.
func FitScaler(rows []models.FeatureRow) (*Scaler, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("fit scaler: no rows")
	}
	width := models.NumFeatures
	s := &Scaler{
		FeatureMin: make([]float64, width),
		FeatureMax: make([]float64, width),
	}
	first := rows[0].Vector()
	copy(s.FeatureMin, first)
	copy(s.FeatureMax, first)
	s.TargetMin = rows[0].Close
	s.TargetMax = rows[0].Close

	for _, r := range rows[1:] {
		v := r.Vector()
		for j := 0; j < width; j++ {
			if v[j] < s.FeatureMin[j] {
				s.FeatureMin[j] = v[j]
			}
			if v[j] > s.FeatureMax[j] {
				s.FeatureMax[j] = v[j]
			}
		}
		if r.Close < s.TargetMin {
			s.TargetMin = r.Close
		}
		if r.Close > s.TargetMax {
			s.TargetMax = r.Close
		}
	}
	return s, nil
}

// TransformRow scales one feature vector into [0,1] per column. Columns with
// a degenerate range map to 0.
func (s *Scaler) TransformRow(v []float64) []float64 {
	out := make([]float64, len(v))
	for j := range v {
		span := s.FeatureMax[j] - s.FeatureMin[j]
		if span == 0 {
			out[j] = 0
			continue
		}
		out[j] = (v[j] - s.FeatureMin[j]) / span
	}
	return out
}

// ScaleTarget maps a price into the target's [0,1] range. Values outside
// the training range extrapolate beyond [0,1], which is intentional: a
// clamped target would hide trends past the training maximum.
func (s *Scaler) ScaleTarget(price float64) float64 {
	span := s.TargetMax - s.TargetMin
	if span == 0 {
		return 0
	}
	return (price - s.TargetMin) / span
}

// InverseTarget maps a scaled prediction back to price units.
func (s *Scaler) InverseTarget(scaled float64) float64 {
	return scaled*(s.TargetMax-s.TargetMin) + s.TargetMin
}

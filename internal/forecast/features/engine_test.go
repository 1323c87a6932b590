package features

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"
	"time"

	"FinPredict/internal/domain/models"
)

func syntheticBars(n int, seed int64) []*models.PriceBar {
	rng := rand.New(rand.NewSource(seed))
	bars := make([]*models.PriceBar, n)
	price := 100.0
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		open := price
		price *= 1 + 0.0008 + 0.01*(rng.Float64()-0.5)
		high := math.Max(open, price) * (1 + 0.004*rng.Float64())
		low := math.Min(open, price) * (1 - 0.004*rng.Float64())
		bars[i] = &models.PriceBar{
			Symbol:    "TEST",
			Timestamp: start.AddDate(0, 0, i),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     price,
			Volume:    1e6 * (0.5 + rng.Float64()),
		}
	}
	return bars
}

func TestComputeRowCount(t *testing.T) {
	bars := syntheticBars(400, 1)
	rows, err := Compute(bars)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(rows) != 400-WarmUp {
		t.Fatalf("want %d rows, got %d", 400-WarmUp, len(rows))
	}
	if !rows[0].Timestamp.Equal(bars[WarmUp].Timestamp) {
		t.Fatalf("first row timestamp %v, want %v", rows[0].Timestamp, bars[WarmUp].Timestamp)
	}
	if !rows[len(rows)-1].Timestamp.Equal(bars[399].Timestamp) {
		t.Fatal("last row must align with the last bar")
	}
}

func TestComputeInsufficientHistory(t *testing.T) {
	bars := syntheticBars(WarmUp, 2)
	_, err := Compute(bars)
	var ih *models.InsufficientHistoryError
	if !errors.As(err, &ih) {
		t.Fatalf("want InsufficientHistoryError, got %v", err)
	}
	if ih.Have != WarmUp || ih.Required != WarmUp+1 {
		t.Fatalf("unexpected bounds in error: %+v", ih)
	}
}

func TestComputeVectorWidth(t *testing.T) {
	bars := syntheticBars(250, 3)
	rows, err := Compute(bars)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for i, r := range rows {
		v := r.Vector()
		if len(v) != models.NumFeatures {
			t.Fatalf("row %d: vector width %d, want %d", i, len(v), models.NumFeatures)
		}
		for j, x := range v {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				t.Fatalf("row %d feature %d is not finite: %v", i, j, x)
			}
		}
	}
}

// Appending future bars must not change feature rows already computed: every
// feature is a function of the current bar and its trailing window only.
func TestComputeTrailingWindowOnly(t *testing.T) {
	bars := syntheticBars(400, 4)

	full, err := Compute(bars)
	if err != nil {
		t.Fatalf("compute full: %v", err)
	}
	prefix, err := Compute(bars[:350])
	if err != nil {
		t.Fatalf("compute prefix: %v", err)
	}

	for i := range prefix {
		if !reflect.DeepEqual(prefix[i], full[i]) {
			t.Fatalf("row %d changed when later bars were appended", i)
		}
	}
}

package repository

import (
	"context"
	"testing"
	"time"

	"FinPredict/internal/domain/models"
)

func TestMemoryBarStoreOrdersAndLimits(t *testing.T) {
	s := NewMemoryBarStore()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	// appended out of order on purpose
	bars := []*models.PriceBar{
		{Symbol: "aapl", Timestamp: base.AddDate(0, 0, 2), Close: 103},
		{Symbol: "aapl", Timestamp: base, Close: 101},
		{Symbol: "aapl", Timestamp: base.AddDate(0, 0, 1), Close: 102},
		{Symbol: "MSFT", Timestamp: base, Close: 400},
	}
	if err := s.Append(ctx, bars); err != nil {
		t.Fatalf("append: %v", err)
	}

	series, err := s.Series(ctx, "AAPL", 0)
	if err != nil {
		t.Fatalf("series: %v", err)
	}
	if len(series) != 3 {
		t.Fatalf("want 3 bars, got %d", len(series))
	}
	for i := 1; i < len(series); i++ {
		if !series[i-1].Timestamp.Before(series[i].Timestamp) {
			t.Fatalf("series not ascending at %d", i)
		}
	}

	limited, err := s.Series(ctx, "aapl", 2)
	if err != nil {
		t.Fatalf("limited series: %v", err)
	}
	if len(limited) != 2 || limited[1].Close != 103 {
		t.Fatalf("limit should keep the most recent bars: %+v", limited)
	}

	symbols, err := s.Symbols(ctx)
	if err != nil {
		t.Fatalf("symbols: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
		t.Fatalf("unexpected symbols: %v", symbols)
	}
}

package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryDeleteByPatternMatchesGlob(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	keys := []string{"prediction:AAPL:1", "prediction:AAPL:30", "prediction:MSFT:1", "other:AAPL"}
	for _, k := range keys {
		if err := mc.Set(ctx, k, "v", time.Minute); err != nil {
			t.Fatalf("set %s: %v", k, err)
		}
	}

	if err := mc.DeleteByPattern(ctx, "prediction:AAPL:*"); err != nil {
		t.Fatalf("delete by pattern: %v", err)
	}

	var dest string
	for _, k := range []string{"prediction:AAPL:1", "prediction:AAPL:30"} {
		if err := mc.Get(ctx, k, &dest); !errors.Is(err, ErrCacheMiss) {
			t.Fatalf("%s should be deleted, got %v", k, err)
		}
	}
	for _, k := range []string{"prediction:MSFT:1", "other:AAPL"} {
		if err := mc.Get(ctx, k, &dest); err != nil {
			t.Fatalf("%s should survive, got %v", k, err)
		}
	}
}

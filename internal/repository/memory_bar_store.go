package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"FinPredict/internal/domain/models"
	"FinPredict/internal/domain/repository"
)

// MemoryBarStore is an in-memory BarStore used by tests and the offline
// trainer when fed from a file instead of ClickHouse.
type MemoryBarStore struct {
	mu   sync.RWMutex
	bars map[string][]*models.PriceBar
}

func NewMemoryBarStore() repository.BarStore {
	return &MemoryBarStore{bars: make(map[string][]*models.PriceBar)}
}

func (s *MemoryBarStore) Init(ctx context.Context) error { return nil }

func (s *MemoryBarStore) Append(ctx context.Context, bars []*models.PriceBar) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bars {
		if b == nil || b.Symbol == "" {
			continue
		}
		key := strings.ToUpper(b.Symbol)
		s.bars[key] = append(s.bars[key], b)
	}
	for key := range s.bars {
		sort.Slice(s.bars[key], func(i, j int) bool {
			return s.bars[key][i].Timestamp.Before(s.bars[key][j].Timestamp)
		})
	}
	return nil
}

func (s *MemoryBarStore) Series(ctx context.Context, symbol string, limit int) ([]*models.PriceBar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	series := s.bars[strings.ToUpper(symbol)]
	if limit > 0 && len(series) > limit {
		series = series[len(series)-limit:]
	}
	out := make([]*models.PriceBar, len(series))
	copy(out, series)
	return out, nil
}

func (s *MemoryBarStore) Symbols(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.bars))
	for sym := range s.bars {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryBarStore) Health(ctx context.Context) error { return nil }

func (s *MemoryBarStore) Close() error { return nil }

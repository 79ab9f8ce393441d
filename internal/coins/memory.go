package coins

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory coin registry for local development and
// tests.
type MemoryStore struct {
	coins map[string]*Coin
	mu    sync.RWMutex
}

// NewMemoryStore creates an empty in-memory coin store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{coins: make(map[string]*Coin)}
}

func (s *MemoryStore) UpsertPrice(_ context.Context, symbol string, price float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coin, ok := s.coins[symbol]
	if !ok {
		coin = &Coin{Symbol: symbol, Name: symbol, IsActive: true}
		s.coins[symbol] = coin
	}
	coin.CurrentPrice = price
	coin.LastUpdated = at
	return nil
}

func (s *MemoryStore) FindBySymbol(_ context.Context, symbol string) (*Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coin, ok := s.coins[symbol]
	if !ok {
		return nil, nil
	}
	copied := *coin
	return &copied, nil
}

func (s *MemoryStore) FindAll(_ context.Context) ([]Coin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Coin, 0, len(s.coins))
	for _, coin := range s.coins {
		result = append(result, *coin)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Symbol < result[j].Symbol })
	return result, nil
}

package history

import (
	"context"
	"sync"
	"time"

	"github.com/pricewatch/crypto-alerts-backend/internal/ringbuffer"
)

// MemoryStore keeps the recent observation window per symbol in ring
// buffers. It backs local development when PostgreSQL is disabled and
// doubles as the store for tests.
type MemoryStore struct {
	buffers map[string]*ringbuffer.RingBuffer
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty in-memory history store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buffers: make(map[string]*ringbuffer.RingBuffer),
	}
}

func (s *MemoryStore) buffer(symbol string) *ringbuffer.RingBuffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	rb, ok := s.buffers[symbol]
	if !ok {
		rb = ringbuffer.New()
		s.buffers[symbol] = rb
	}
	return rb
}

// Record appends an observation to the symbol's ring buffer.
func (s *MemoryStore) Record(_ context.Context, obs PriceObservation) error {
	s.buffer(obs.Symbol).Append(ringbuffer.Observation{
		Symbol:     obs.Symbol,
		Price:      obs.Price,
		ObservedAt: obs.ObservedAt,
	})
	return nil
}

// FindRange returns buffered observations in [from, to], newest first.
func (s *MemoryStore) FindRange(_ context.Context, symbol string, from, to time.Time) ([]PriceObservation, error) {
	s.mu.RLock()
	rb, ok := s.buffers[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	return fromBuffered(rb.Window(from, to)), nil
}

// Latest returns up to limit most recent buffered observations.
func (s *MemoryStore) Latest(_ context.Context, symbol string, limit int) ([]PriceObservation, error) {
	s.mu.RLock()
	rb, ok := s.buffers[symbol]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	return fromBuffered(rb.Last(limit)), nil
}

func fromBuffered(buffered []ringbuffer.Observation) []PriceObservation {
	if len(buffered) == 0 {
		return nil
	}
	observations := make([]PriceObservation, len(buffered))
	for i, obs := range buffered {
		observations[i] = PriceObservation{
			Symbol:     obs.Symbol,
			Price:      obs.Price,
			ObservedAt: obs.ObservedAt,
		}
	}
	return observations
}

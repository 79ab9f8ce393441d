package ringbuffer

import (
	"sync"
	"time"
)

// Observation is a single price sample for one asset.
type Observation struct {
	Symbol     string    `json:"symbol"`
	Price      float64   `json:"price"`
	ObservedAt time.Time `json:"observed_at"`
}

// capacity covers 24 hours of observations at one sample per minute.
const capacity = 1440

// RingBuffer is a fixed-size circular buffer of price observations for a
// single symbol. Appends are O(1) and overwrite the oldest sample when
// full. Observations are expected to arrive in timestamp order.
type RingBuffer struct {
	samples [capacity]Observation
	head    int // next insertion point
	size    int
	mu      sync.RWMutex
}

// New creates an empty ring buffer.
func New() *RingBuffer {
	return &RingBuffer{}
}

// Append adds an observation, evicting the oldest sample when full.
func (rb *RingBuffer) Append(obs Observation) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.samples[rb.head] = obs
	rb.head = (rb.head + 1) % capacity

	if rb.size < capacity {
		rb.size++
	}
}

// Size returns the current number of buffered observations.
func (rb *RingBuffer) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// Latest returns the most recent observation, or nil when empty.
func (rb *RingBuffer) Latest() *Observation {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 {
		return nil
	}

	idx := rb.head - 1
	if idx < 0 {
		idx = capacity - 1
	}

	obs := rb.samples[idx]
	return &obs
}

// Window returns the observations with ObservedAt in [from, to], ordered
// newest first.
func (rb *RingBuffer) Window(from, to time.Time) []Observation {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	var result []Observation

	// Walk backwards from the newest sample; stop once we pass the lower
	// bound since samples are in arrival order.
	for i := 1; i <= rb.size; i++ {
		idx := rb.head - i
		if idx < 0 {
			idx += capacity
		}

		obs := rb.samples[idx]
		if obs.ObservedAt.Before(from) {
			break
		}
		if obs.ObservedAt.After(to) {
			continue
		}
		result = append(result, obs)
	}

	return result
}

// Last returns up to count most recent observations, newest first.
func (rb *RingBuffer) Last(count int) []Observation {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if count <= 0 || rb.size == 0 {
		return nil
	}
	if count > rb.size {
		count = rb.size
	}

	result := make([]Observation, count)
	for i := 0; i < count; i++ {
		idx := rb.head - 1 - i
		if idx < 0 {
			idx += capacity
		}
		result[i] = rb.samples[idx]
	}

	return result
}

// Clear resets the buffer.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.head = 0
	rb.size = 0
}

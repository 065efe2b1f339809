package memory

import (
	"context"
	"sync"
)

// Sequence is a per-year counter
type Sequence struct {
	mu     sync.Mutex
	values map[int]int64
}

// NewSequence constructs an empty counter
func NewSequence() *Sequence {
	return &Sequence{values: make(map[int]int64)}
}

// Next returns the next value for year, starting at 1
func (s *Sequence) Next(_ context.Context, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[year]++
	return s.values[year], nil
}

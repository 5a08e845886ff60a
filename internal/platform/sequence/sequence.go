// Package sequence provides named, monotonically increasing counters used for
// medical-record numbers and daily queue numbers. Every Store hands out each
// value exactly once, even under concurrent callers.
package sequence

import (
	"context"
	"fmt"
	"sync"
)

// Store issues the next value of a named counter. The first value issued for
// a fresh key is 1 unless the key was seeded.
type Store interface {
	Next(ctx context.Context, key string) (int64, error)
	// Seed raises the counter to at least value so the next issued number is
	// value+1. It never lowers a counter.
	Seed(ctx context.Context, key string, value int64) error
}

// MRNKey is the counter key for a treatment category.
func MRNKey(category string) string {
	return "mrn:" + category
}

// QueueKey is the counter key for a clinic day (YYYY-MM-DD).
func QueueKey(day string) string {
	return "queue:" + day
}

// MemoryStore keeps counters in process memory.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]int64)}
}

func (s *MemoryStore) Next(_ context.Context, key string) (int64, error) {
	if key == "" {
		return 0, fmt.Errorf("sequence key is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

func (s *MemoryStore) Seed(_ context.Context, key string, value int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value > s.counters[key] {
		s.counters[key] = value
	}
	return nil
}

// Current returns the last issued value without advancing the counter.
func (s *MemoryStore) Current(key string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}

package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/MiguelGP111/micampofresco/internal/core/port"
)

// RateLimitStore keeps attempt timestamps per key. Used when redis is disabled.
type RateLimitStore struct {
	mu       sync.Mutex
	attempts map[string][]time.Time
}

// NewRateLimitStore returns an empty store.
func NewRateLimitStore() *RateLimitStore {
	return &RateLimitStore{attempts: make(map[string][]time.Time)}
}

func (s *RateLimitStore) TrimWindow(_ context.Context, key string, window time.Duration, reference time.Time) error {
	if window <= 0 {
		return errors.New("window must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := reference.Add(-window)
	kept := s.attempts[key][:0]
	for _, at := range s.attempts[key] {
		if !at.Before(threshold) {
			kept = append(kept, at)
		}
	}
	if len(kept) == 0 {
		delete(s.attempts, key)
		return nil
	}
	s.attempts[key] = kept
	return nil
}

func (s *RateLimitStore) CountAttempts(_ context.Context, key string, window time.Duration, reference time.Time) (int, error) {
	if window <= 0 {
		return 0, errors.New("window must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, at := range s.attempts[key] {
		if inWindow(at, window, reference) {
			count++
		}
	}
	return count, nil
}

func (s *RateLimitStore) RecordAttempt(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[key] = append(s.attempts[key], at)
	return nil
}

func (s *RateLimitStore) OldestAttempt(_ context.Context, key string, window time.Duration, reference time.Time) (time.Time, bool, error) {
	if window <= 0 {
		return time.Time{}, false, errors.New("window must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		oldest time.Time
		found  bool
	)
	for _, at := range s.attempts[key] {
		if !inWindow(at, window, reference) {
			continue
		}
		if !found || at.Before(oldest) {
			oldest = at
			found = true
		}
	}
	return oldest, found, nil
}

func inWindow(at time.Time, window time.Duration, reference time.Time) bool {
	return !at.Before(reference.Add(-window)) && !at.After(reference)
}

var _ port.RateLimitStore = (*RateLimitStore)(nil)

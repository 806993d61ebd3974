// Package cache keeps the last ranked scan batch between requests.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/vadiminshakov/sbl/internal/sbscan"
)

const (
	marketHoursTTL = 15 * time.Minute
	offHoursTTL    = 60 * time.Minute

	marketOpenMinute  = 9 * 60
	marketCloseMinute = 16*60 + 30
)

// Store persists batches by key. Freshness is decided by the reader, so a stale
// batch stays loadable as a fallback.
type Store interface {
	Load(ctx context.Context, key string) (sbscan.Batch, bool, error)
	Save(ctx context.Context, key string, batch sbscan.Batch) error
}

// MarketHoursTTL returns how long a batch stays fresh at now: 15 minutes on weekdays
// between 09:00 and 16:30 (inclusive) in loc, 60 minutes otherwise.
func MarketHoursTTL(now time.Time, loc *time.Location) time.Duration {
	if loc != nil {
		now = now.In(loc)
	}

	switch now.Weekday() {
	case time.Saturday, time.Sunday:
		return offHoursTTL
	}

	minute := now.Hour()*60 + now.Minute()
	if minute >= marketOpenMinute && minute <= marketCloseMinute {
		return marketHoursTTL
	}

	return offHoursTTL
}

// Fresh reports whether a batch finished at finishedAt may still be served at now.
// Empty batches are never fresh.
func Fresh(batch sbscan.Batch, now time.Time, loc *time.Location) bool {
	if len(batch.Results) == 0 {
		return false
	}
	return now.Sub(batch.FinishedAt) < MarketHoursTTL(now, loc)
}

// MemoryStore in-process Store.
type MemoryStore struct {
	mu      sync.RWMutex
	batches map[string]sbscan.Batch
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{batches: make(map[string]sbscan.Batch)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (sbscan.Batch, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.batches[key]
	return b, ok, nil
}

func (s *MemoryStore) Save(_ context.Context, key string, batch sbscan.Batch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batches[key] = batch
	return nil
}

// Package scanjournal keeps an append-only history of scan batches.
package scanjournal

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"github.com/vadiminshakov/sbl/internal/sbscan"
)

const (
	DefaultDir   = "./wal/scans"
	segmentLimit = 100
	maxSegments  = 10

	batchKeyPrefix = "scan_batch_"
)

var errNotInitialized = errors.New("scan journal is not initialized")

// Record a journaled batch and its WAL index.
type Record struct {
	Index uint64       `json:"index"`
	Batch sbscan.Batch `json:"batch"`
}

// WALStore persists scan batches in a WAL.
type WALStore struct {
	wal *gowal.Wal
	mu  sync.RWMutex
}

// NewWALStore opens (or creates) the journal under dir.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = DefaultDir
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "scan_",
		SegmentThreshold: segmentLimit,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init scan WAL")
	}

	return &WALStore{wal: wal}, nil
}

// Append writes the batch and returns its index.
func (s *WALStore) Append(batch sbscan.Batch) (uint64, error) {
	if s == nil || s.wal == nil {
		return 0, errNotInitialized
	}
	if batch.ID == "" {
		return 0, errors.New("scan batch id is required")
	}

	payload, err := json.Marshal(batch)
	if err != nil {
		return 0, errors.Wrap(err, "marshal scan batch")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, batchKeyPrefix+batch.ID, payload); err != nil {
		return 0, errors.Wrap(err, "write scan batch")
	}

	return nextIndex, nil
}

// BatchesAfter returns all batches written after the provided WAL index.
// Indexes whose segment was rotated away are skipped.
func (s *WALStore) BatchesAfter(index uint64) ([]Record, error) {
	if s == nil || s.wal == nil {
		return nil, errNotInitialized
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	current := s.wal.CurrentIndex()
	if current <= index {
		return nil, nil
	}

	records := make([]Record, 0, current-index)
	for idx := index + 1; idx <= current; idx++ {
		key, payload, err := s.wal.Get(idx)
		if err != nil || !strings.HasPrefix(key, batchKeyPrefix) {
			continue
		}

		var batch sbscan.Batch
		if err := json.Unmarshal(payload, &batch); err != nil {
			return nil, errors.Wrapf(err, "decode scan batch %d", idx)
		}
		records = append(records, Record{Index: idx, Batch: batch})
	}

	return records, nil
}

// Latest returns the most recent batch, if any.
func (s *WALStore) Latest() (sbscan.Batch, bool, error) {
	current := s.CurrentIndex()
	if current == 0 {
		return sbscan.Batch{}, false, nil
	}

	records, err := s.BatchesAfter(current - 1)
	if err != nil {
		return sbscan.Batch{}, false, err
	}
	if len(records) == 0 {
		return sbscan.Batch{}, false, nil
	}

	return records[len(records)-1].Batch, true, nil
}

// CurrentIndex returns the latest WAL index stored.
func (s *WALStore) CurrentIndex() uint64 {
	if s == nil || s.wal == nil {
		return 0
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.wal.CurrentIndex()
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errNotInitialized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}

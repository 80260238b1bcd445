package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/pkg/metrics"
)

// MemoryStore keeps reports in a map guarded by a RWMutex.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]model.Report
	maxReports int
}

// NewMemoryStore creates an in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{byID: make(map[string]model.Report)}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateStoredReports(0)
	return s
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, r model.Report) error {
	start := time.Now()
	defer observe("save", start)

	if r.ID == "" {
		metrics.RecordStoreError("save")
		return ErrMissingID
	}

	s.mu.Lock()
	s.byID[r.ID] = r
	s.evict()
	n := len(s.byID)
	s.mu.Unlock()

	metrics.UpdateStoredReports(n)
	return nil
}

// evict drops the oldest finished reports over the bound. Must hold mu.
func (s *MemoryStore) evict() {
	if s.maxReports <= 0 || len(s.byID) <= s.maxReports {
		return
	}
	var done []model.Report
	for _, r := range s.byID {
		if r.Status.Terminal() {
			done = append(done, r)
		}
	}
	slices.SortFunc(done, func(a, b model.Report) int { return -newestFirst(a, b) })
	for _, r := range done {
		if len(s.byID) <= s.maxReports {
			return
		}
		delete(s.byID, r.ID)
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, id string) (model.Report, error) {
	start := time.Now()
	defer observe("get", start)

	s.mu.RLock()
	r, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return model.Report{}, ErrNotFound
	}
	return r, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, limit int) ([]model.Report, error) {
	start := time.Now()
	defer observe("list", start)

	if limit < 1 {
		metrics.RecordStoreError("list")
		return nil, ErrInvalidLimit
	}

	s.mu.RLock()
	out := make([]model.Report, 0, len(s.byID))
	for _, r := range s.byID {
		out = append(out, r)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, newestFirst)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count implements Store.
func (s *MemoryStore) Count(context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

// newestFirst orders by submission time desc, then id desc.
func newestFirst(a, b model.Report) int {
	if c := b.SubmittedAt.Compare(a.SubmittedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000)
}

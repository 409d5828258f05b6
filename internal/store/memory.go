package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps runs in process memory. Runs are copied on the way in
// and out so callers never share state with the store.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*Run
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: make(map[uuid.UUID]*Run), now: time.Now}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateRun(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if run.ID != uuid.Nil {
		if _, ok := s.runs[run.ID]; ok {
			return fmt.Errorf("run %s already exists", run.ID)
		}
	}
	prepareNew(run, s.now().UTC())
	s.runs[run.ID] = run.clone()
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	return r.clone(), nil
}

func (s *MemoryStore) ListRuns(_ context.Context, filter RunFilter) ([]*Run, error) {
	return s.snapshot(func(runs []*Run) []*Run { return selectRuns(runs, filter) }), nil
}

func (s *MemoryStore) GetPendingRuns(_ context.Context) ([]*Run, error) {
	return s.snapshot(pendingRuns), nil
}

func (s *MemoryStore) UpdateRun(_ context.Context, run *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.runs[run.ID]; !ok {
		return fmt.Errorf("update run %s: %w", run.ID, ErrRunNotFound)
	}
	run.UpdatedAt = s.now().UTC()
	s.runs[run.ID] = run.clone()
	return nil
}

func (s *MemoryStore) GetStats(_ context.Context) (*RunStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	return computeStats(runs), nil
}

func (s *MemoryStore) snapshot(pick func([]*Run) []*Run) []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]*Run, 0, len(s.runs))
	for _, r := range s.runs {
		runs = append(runs, r)
	}
	picked := pick(runs)
	out := make([]*Run, len(picked))
	for i, r := range picked {
		out[i] = r.clone()
	}
	return out
}

package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/sitesearch-crawler/internal/crawler"
)

// RunStore keeps run history in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs []crawler.RunResult
}

// NewRunStore constructs an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{}
}

// RecordRun appends result without its documents.
func (s *RunStore) RecordRun(_ context.Context, result crawler.RunResult) error {
	result.Documents = nil
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, result)
	return nil
}

// Runs returns recorded runs in insertion order.
func (s *RunStore) Runs() []crawler.RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]crawler.RunResult, len(s.runs))
	copy(out, s.runs)
	return out
}

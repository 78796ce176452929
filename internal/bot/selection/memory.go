package selection

import (
	"context"
	"sync"

	"github.com/granite-bot/server/internal/bot/model"
)

// MemoryStore keeps selection records in process memory, for tests and
// single-node deployments.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.SelectionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.SelectionRecord)}
}

func (s *MemoryStore) Get(_ context.Context, sessionKey string) (model.SelectionRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, found := s.records[sessionKey]
	return record, found, nil
}

func (s *MemoryStore) Put(_ context.Context, record model.SelectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.SessionKey] = record
	return nil
}

var _ Store = (*MemoryStore)(nil)

package contextstore

import (
	"context"
	"sync"

	"github.com/granite-bot/server/internal/bot/model"
)

// MemoryBackend keeps conversation histories in process memory. It backs
// tests and single-node deployments that can afford to lose context on
// restart.
type MemoryBackend struct {
	mu       sync.RWMutex
	contexts map[string]model.History
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{contexts: make(map[string]model.History)}
}

func (b *MemoryBackend) Load(_ context.Context, conversationID string) (model.History, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.contexts[conversationID].Clone(), nil
}

func (b *MemoryBackend) Save(_ context.Context, conversationID string, history model.History) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contexts[conversationID] = history.Clone()
	return nil
}

func (b *MemoryBackend) Delete(_ context.Context, conversationID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.contexts, conversationID)
	return nil
}

var _ Backend = (*MemoryBackend)(nil)

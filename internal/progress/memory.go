package progress

import (
	"context"
	"sync"
)

// MemoryTracker is the in-process Tracker used when no Redis is
// configured.
type MemoryTracker struct {
	mu     sync.RWMutex
	stages map[string]string
}

// NewMemory creates an empty in-memory tracker.
func NewMemory() *MemoryTracker {
	return &MemoryTracker{stages: make(map[string]string)}
}

func (t *MemoryTracker) Set(ctx context.Context, conversationID, stage string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stages[conversationID] = stage
	return nil
}

func (t *MemoryTracker) Clear(ctx context.Context, conversationID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.stages, conversationID)
	return nil
}

func (t *MemoryTracker) Get(ctx context.Context, conversationID string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stages[conversationID], nil
}

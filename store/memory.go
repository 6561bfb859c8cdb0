package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/roundwise/roundwise/types"
)

// MemoryStore is an in-process Store. It backs tests and the zero-config
// development mode; nothing survives a restart.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]*types.Conversation
}

// NewMemory creates an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{conversations: make(map[string]*types.Conversation)}
}

func (s *MemoryStore) Create(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.NewString()
	s.conversations[id] = &types.Conversation{
		ID:        id,
		CreatedAt: time.Now().UTC(),
	}
	return id, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := &types.Conversation{
		ID:        conv.ID,
		CreatedAt: conv.CreatedAt,
		Messages:  append([]types.Message(nil), conv.Messages...),
	}
	return out, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]types.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.ConversationSummary, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, types.ConversationSummary{
			ID:           conv.ID,
			CreatedAt:    conv.CreatedAt,
			MessageCount: len(conv.Messages),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, id string, msg types.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return ErrNotFound
	}
	conv.Messages = append(conv.Messages, msg)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

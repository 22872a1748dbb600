package sessionstore

import (
	"context"
	"sync"

	"github.com/moltis-ai/moltis/internal/llm/model"
)

// MemoryStore is an in-process Store backing tests and deployments that do
// not need durability across restarts. Writes for a given key are
// serialized behind a per-store mutex; this is sufficient for tests and
// single-process deployments where session keys are not contended at scale.
type MemoryStore struct {
	mu       sync.Mutex
	messages map[string][]*model.Message
	meta     map[string]Metadata
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages: make(map[string][]*model.Message),
		meta:     make(map[string]Metadata),
	}
}

func (s *MemoryStore) Append(ctx context.Context, key string, msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[key] = append(s.messages[key], msg)
	return nil
}

func (s *MemoryStore) Read(ctx context.Context, key string) ([]*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[key]
	out := make([]*model.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[key]), nil
}

func (s *MemoryStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.messages, key)
	delete(s.meta, key)
	return nil
}

func (s *MemoryStore) ReplaceHistory(ctx context.Context, key string, msgs []*model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]*model.Message, len(msgs))
	copy(cp, msgs)
	s.messages[key] = cp
	return nil
}

func (s *MemoryStore) UpsertMetadata(ctx context.Context, meta Metadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[meta.Key] = meta
	return nil
}

func (s *MemoryStore) LoadMetadata(ctx context.Context, key string) (Metadata, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta, ok := s.meta[key]
	return meta, ok, nil
}

var _ Store = (*MemoryStore)(nil)
var _ MetadataStore = (*MemoryStore)(nil)

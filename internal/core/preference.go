package core

import (
	"context"
	"sync"

	"genecatalog/pkg/domain"
)

// PreferenceStore persists the active source between runs. LoadSource
// returns "" when nothing has been saved.
type PreferenceStore interface {
	LoadSource(ctx context.Context) (domain.SourceID, error)
	SaveSource(ctx context.Context, id domain.SourceID) error
}

// MemoryPreferenceStore keeps the preference in process memory.
type MemoryPreferenceStore struct {
	mu sync.Mutex
	id domain.SourceID
}

// NewMemoryPreferenceStore returns an empty in-memory preference store.
func NewMemoryPreferenceStore() *MemoryPreferenceStore { return &MemoryPreferenceStore{} }

// LoadSource implements PreferenceStore.
func (m *MemoryPreferenceStore) LoadSource(context.Context) (domain.SourceID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, nil
}

// SaveSource implements PreferenceStore.
func (m *MemoryPreferenceStore) SaveSource(_ context.Context, id domain.SourceID) error {
	m.mu.Lock()
	m.id = id
	m.mu.Unlock()
	return nil
}

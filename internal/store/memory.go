package store

import (
	"context"
	"sync"

	"github.com/serroba/linkshort/internal/shortener"
)

// MemoryStore is the process-lifetime link registry.
// Entries are never updated or removed.
type MemoryStore struct {
	mu    sync.RWMutex
	links map[shortener.Code]shortener.Link
}

// NewMemoryStore creates an empty registry.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links: make(map[shortener.Code]shortener.Link),
	}
}

// Insert stores a copy of the link, or returns shortener.ErrCodeTaken when
// the code is already present, expired or not.
func (m *MemoryStore) Insert(_ context.Context, link *shortener.Link) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.links[link.Code]; ok {
		return shortener.ErrCodeTaken
	}

	m.links[link.Code] = *link

	return nil
}

// GetByCode returns a copy of the stored link.
func (m *MemoryStore) GetByCode(_ context.Context, code shortener.Code) (*shortener.Link, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	link, ok := m.links[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &link, nil
}

// Len returns the number of stored links, including expired ones.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.links)
}

// Compile-time check.
var _ shortener.Repository = (*MemoryStore)(nil)

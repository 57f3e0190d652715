package resource

import (
	"context"
	"sync"
	"time"

	"finsense.io/compliance/internal/auth"
)

// MemoryStore is a map-backed Store for tests and database-less runs.
// The clone function must return a deep copy so callers never share
// state with the map.
type MemoryStore[T Record] struct {
	mu    sync.RWMutex
	items map[string]T
	clone func(T) T
}

func NewMemoryStore[T Record](clone func(T) T) *MemoryStore[T] {
	return &MemoryStore[T]{items: make(map[string]T), clone: clone}
}

func (m *MemoryStore[T]) Create(ctx context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[rec.RecordID()]; ok {
		return auth.ErrConflict
	}
	now := time.Now().UTC()
	meta := rec.Lifecycle()
	meta.CreatedAt = now
	meta.UpdatedAt = now
	m.items[rec.RecordID()] = m.clone(rec)
	return nil
}

func (m *MemoryStore[T]) Find(ctx context.Context, id string) (T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var zero T
	rec, ok := m.items[id]
	if !ok || rec.Lifecycle().Deleted() {
		return zero, auth.ErrNotFound
	}
	return m.clone(rec), nil
}

func (m *MemoryStore[T]) List(ctx context.Context, scope auth.ListScope) ([]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []T{}
	if scope.Empty() {
		return out, nil
	}
	for _, rec := range m.items {
		meta := rec.Lifecycle()
		if meta.Deleted() {
			continue
		}
		if !scope.All && meta.CreatedBy != scope.CreatedBy {
			continue
		}
		out = append(out, m.clone(rec))
	}
	return out, nil
}

func (m *MemoryStore[T]) Update(ctx context.Context, rec T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.items[rec.RecordID()]
	if !ok || existing.Lifecycle().Deleted() {
		return auth.ErrNotFound
	}
	rec.Lifecycle().UpdatedAt = time.Now().UTC()
	m.items[rec.RecordID()] = m.clone(rec)
	return nil
}

package engine

import (
	"maps"
	"sync"
)

// Compile-time check to ensure MapStore implements the Store interface.
var _ Store[any] = (*MapStore[any])(nil)

// MapStore is an in-memory implementation of Store using a Go map.
// It's suitable for datasets that fit in memory and provides fast O(1) access.
type MapStore[T any] struct {
	mu   sync.RWMutex
	data map[uint64]T
}

// NewMapStore creates a new in-memory map-based store.
func NewMapStore[T any]() *MapStore[T] {
	return &MapStore[T]{
		data: make(map[uint64]T),
	}
}

// Get retrieves the payload associated with the given ID.
func (m *MapStore[T]) Get(id uint64) (T, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[id]
	return v, ok
}

// Set stores a payload associated with the given ID.
func (m *MapStore[T]) Set(id uint64, data T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[id] = data
	return nil
}

// Delete removes the payload associated with the given ID.
func (m *MapStore[T]) Delete(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[id]; !ok {
		return ErrNotFound
	}

	delete(m.data, id)
	return nil
}

// BatchGet retrieves payloads for multiple IDs in a single operation.
func (m *MapStore[T]) BatchGet(ids []uint64) (map[uint64]T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[uint64]T, len(ids))
	for _, id := range ids {
		if data, ok := m.data[id]; ok {
			result[id] = data
		}
	}

	return result, nil
}

// BatchSet stores multiple id -> payload pairs in a single operation.
func (m *MapStore[T]) BatchSet(items map[uint64]T) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	maps.Copy(m.data, items)
	return nil
}

// BatchDelete removes payloads for multiple IDs in a single operation.
func (m *MapStore[T]) BatchDelete(ids []uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, id := range ids {
		delete(m.data, id)
	}

	return nil
}

// Len returns the number of items currently stored.
func (m *MapStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.data)
}

// Clear removes all items from the store.
func (m *MapStore[T]) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data = make(map[uint64]T)
	return nil
}

// ToMap returns a copy of all payloads as a map (for serialization).
func (m *MapStore[T]) ToMap() map[uint64]T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return maps.Clone(m.data)
}

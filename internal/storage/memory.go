package storage

import (
	"sort"
	"sync"
)

// Memory implements Storage using an in-memory map. The pool client may
// touch it from concurrent nullifier batches, so access is locked.
type Memory struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewMemory creates an empty store. Nothing is shared between stores.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]string),
	}
}

// GetItem retrieves a value by key.
func (m *Memory) GetItem(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok
}

// SetItem stores a key-value pair.
func (m *Memory) SetItem(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

// RemoveItem deletes a key. Missing keys are ignored.
func (m *Memory) RemoveItem(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
}

// Clear removes every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]string)
}

// Key returns the key at position index in sorted order.
func (m *Memory) Key(index int) (string, bool) {
	keys := m.Keys()
	if index < 0 || index >= len(keys) {
		return "", false
	}
	return keys[index], true
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Keys returns all keys in sorted order.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	m.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

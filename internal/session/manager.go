/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import "sync"

// DefaultTable is the id of the single table the server runs.
const DefaultTable = "parlor"

// Manager holds one Store per table id.
type Manager struct {
	mu     sync.Mutex
	tables map[string]*Store
}

func NewManager() *Manager {
	return &Manager{
		tables: make(map[string]*Store),
	}
}

// Table returns the store for id, creating an empty one on first use.
func (m *Manager) Table(id string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()

	if store, ok := m.tables[id]; ok {
		return store
	}
	store := NewStore()
	m.tables[id] = store
	return store
}

// Tables returns the ids of every known table.
func (m *Manager) Tables() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.tables))
	for id := range m.tables {
		ids = append(ids, id)
	}
	return ids
}

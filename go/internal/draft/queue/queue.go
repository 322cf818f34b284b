// Package queue maintains a participant's ordered list of preferred
// players. The list lives independently of any single draft room so it
// can be prepared ahead of time and reused.
package queue

import (
	"context"
	"fmt"
	"sync"
)

// Store persists a user's queue. Implementations back it with memory, a
// file, or redis interchangeably.
type Store interface {
	Load(ctx context.Context, userID string) ([]string, error)
	Save(ctx context.Context, userID string, ids []string) error
}

// Manager holds one user's queue in memory and writes through the Store
// after every mutation. Ids are unique; re-adding a present id is a
// no-op.
type Manager struct {
	userID string
	store  Store

	mu  sync.Mutex
	ids []string
}

// NewManager loads the user's persisted queue and wraps it.
func NewManager(ctx context.Context, userID string, store Store) (*Manager, error) {
	ids, err := store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queue for %s: %w", userID, err)
	}
	return &Manager{userID: userID, store: store, ids: dedupe(ids)}, nil
}

// IDs returns a copy of the queue in priority order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// Len returns the number of queued players.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ids)
}

// Append adds a player to the end of the queue. Adding an id already
// present is a no-op.
func (m *Manager) Append(ctx context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.indexOf(playerID) >= 0 {
		return nil
	}
	m.ids = append(m.ids, playerID)
	return m.saveLocked(ctx)
}

// Remove deletes a player from the queue. Removing an absent id is a
// no-op.
func (m *Manager) Remove(ctx context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(playerID)
	if i < 0 {
		return nil
	}
	m.ids = append(m.ids[:i], m.ids[i+1:]...)
	return m.saveLocked(ctx)
}

// MoveTo places a queued player at the given position (drag reorder).
// Positions out of range clamp to the queue bounds.
func (m *Manager) MoveTo(ctx context.Context, playerID string, pos int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexOf(playerID)
	if i < 0 {
		return fmt.Errorf("player %s not in queue", playerID)
	}
	if pos < 0 {
		pos = 0
	}
	if pos >= len(m.ids) {
		pos = len(m.ids) - 1
	}
	if pos == i {
		return nil
	}
	id := m.ids[i]
	m.ids = append(m.ids[:i], m.ids[i+1:]...)
	m.ids = append(m.ids[:pos], append([]string{id}, m.ids[pos:]...)...)
	return m.saveLocked(ctx)
}

// MoveToTop is the fast path for promoting a player to first priority.
func (m *Manager) MoveToTop(ctx context.Context, playerID string) error {
	return m.MoveTo(ctx, playerID, 0)
}

// Clear empties the queue.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ids) == 0 {
		return nil
	}
	m.ids = nil
	return m.saveLocked(ctx)
}

func (m *Manager) indexOf(playerID string) int {
	for i, id := range m.ids {
		if id == playerID {
			return i
		}
	}
	return -1
}

func (m *Manager) saveLocked(ctx context.Context) error {
	ids := make([]string, len(m.ids))
	copy(ids, m.ids)
	if err := m.store.Save(ctx, m.userID, ids); err != nil {
		return fmt.Errorf("failed to save queue for %s: %w", m.userID, err)
	}
	return nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

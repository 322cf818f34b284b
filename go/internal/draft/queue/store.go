package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// MemoryStore keeps queues in a process-local map. Used by tests and the
// offline adapter wiring.
type MemoryStore struct {
	mu     sync.RWMutex
	queues map[string][]string
}

// NewMemoryStore builds an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{queues: make(map[string][]string)}
}

// Load implements Store.
func (s *MemoryStore) Load(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, len(s.queues[userID]))
	copy(ids, s.queues[userID])
	return ids, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, userID string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make([]string, len(ids))
	copy(saved, ids)
	s.queues[userID] = saved
	return nil
}

// FileStore persists one JSON file per user under a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the backing directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create queue dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(userID string) string {
	return filepath.Join(s.dir, userID+".json")
}

// Load implements Store. A missing file is an empty queue.
func (s *FileStore) Load(_ context.Context, userID string) ([]string, error) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse queue file: %w", err)
	}
	return ids, nil
}

// Save implements Store.
func (s *FileStore) Save(_ context.Context, userID string, ids []string) error {
	data, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to marshal queue: %w", err)
	}
	if err := os.WriteFile(s.path(userID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write queue file: %w", err)
	}
	return nil
}

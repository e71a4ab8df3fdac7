package blob

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(_ context.Context, workspaceID, name string, content []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	workspaceID, name, err := validateKey(workspaceID, name)
	if err != nil {
		return err
	}
	key := objectKey(workspaceID, name)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, workspaceID, name string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	workspaceID, name, err := validateKey(workspaceID, name)
	if err != nil {
		return nil, err
	}
	key := objectKey(workspaceID, name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

// Delete removes one object. Deleting an absent object is not an error.
func (s *MemoryStore) Delete(_ context.Context, workspaceID, name string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	workspaceID, name, err := validateKey(workspaceID, name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, objectKey(workspaceID, name))
	return nil
}

func (s *MemoryStore) DeleteAll(_ context.Context, workspaceID string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	workspaceID, err := validateWorkspace(workspaceID)
	if err != nil {
		return err
	}
	prefix := workspaceID + "/"
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			delete(s.data, key)
		}
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, workspaceID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	workspaceID, err := validateWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	prefix := workspaceID + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 16)
	for key := range s.data {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, strings.TrimPrefix(key, prefix))
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) GetURL(_ context.Context, _, _ string) (string, error) {
	// Memory store cannot produce download URLs.
	return "", nil
}

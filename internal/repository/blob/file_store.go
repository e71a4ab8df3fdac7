package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileStore persists objects under a local root directory by
// workspaceID/name. The root is pinned to its absolute, symlink-resolved
// location once; every object path is validated and confined beneath it.
type FileStore struct {
	root string

	initOnce sync.Once
	absRoot  string
	initErr  error
}

func NewFileStore(root string) *FileStore {
	return &FileStore{root: strings.TrimSpace(root)}
}

// ensureRoot creates the root directory on first use and records where
// it really lives. Containment checks compare against that location, so
// a symlinked root cannot be used to write elsewhere.
func (s *FileStore) ensureRoot() (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	s.initOnce.Do(func() {
		if s.root == "" {
			s.initErr = fmt.Errorf("root is required")
			return
		}
		if err := os.MkdirAll(s.root, 0o755); err != nil {
			s.initErr = err
			return
		}
		abs, err := filepath.Abs(s.root)
		if err != nil {
			s.initErr = err
			return
		}
		abs, err = filepath.EvalSymlinks(abs)
		if err != nil {
			s.initErr = err
			return
		}
		s.absRoot = abs
	})
	return s.absRoot, s.initErr
}

func (s *FileStore) Put(_ context.Context, workspaceID, name string, content []byte) error {
	fullPath, err := s.pathFor(workspaceID, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, content, 0o644)
}

func (s *FileStore) Get(_ context.Context, workspaceID, name string) ([]byte, error) {
	fullPath, err := s.pathFor(workspaceID, name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Delete removes one object. Deleting an absent object is not an error.
func (s *FileStore) Delete(_ context.Context, workspaceID, name string) error {
	fullPath, err := s.pathFor(workspaceID, name)
	if err != nil {
		return err
	}
	if err := os.Remove(fullPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *FileStore) DeleteAll(_ context.Context, workspaceID string) error {
	wsRoot, err := s.workspaceRoot(workspaceID)
	if err != nil {
		return err
	}
	return os.RemoveAll(wsRoot)
}

func (s *FileStore) List(_ context.Context, workspaceID string) ([]string, error) {
	wsRoot, err := s.workspaceRoot(workspaceID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, 8)
	walkErr := filepath.WalkDir(wsRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(wsRoot, path)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return []string{}, nil
		}
		return nil, walkErr
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) GetURL(_ context.Context, _, _ string) (string, error) {
	return "", nil
}

func (s *FileStore) workspaceRoot(workspaceID string) (string, error) {
	absRoot, err := s.ensureRoot()
	if err != nil {
		return "", err
	}
	workspaceID, err = validateWorkspace(workspaceID)
	if err != nil {
		return "", err
	}
	if strings.Contains(workspaceID, "..") || filepath.IsAbs(workspaceID) {
		return "", fmt.Errorf("invalid workspace_id: %s", workspaceID)
	}
	return s.confine(absRoot, workspaceID)
}

func (s *FileStore) pathFor(workspaceID, name string) (string, error) {
	wsRoot, err := s.workspaceRoot(workspaceID)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("object name is required")
	}
	if strings.Contains(name, "..") || filepath.IsAbs(name) {
		return "", fmt.Errorf("invalid object name: %s", name)
	}
	return s.confine(wsRoot, name)
}

// confine joins rel beneath base and rejects results outside the pinned
// root. The string checks above catch the normal cases; this is the
// backstop for anything they miss.
func (s *FileStore) confine(base, rel string) (string, error) {
	joined := filepath.Join(base, filepath.FromSlash(rel))
	if !withinRoot(s.absRoot, joined) {
		return "", fmt.Errorf("path escapes store root: %s", rel)
	}
	return joined, nil
}

func withinRoot(root, path string) bool {
	root = filepath.Clean(root)
	path = filepath.Clean(path)
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}

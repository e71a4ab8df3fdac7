// Package workspace manages uploaded archives: decoding, metadata,
// entry browsing, and storage of the raw archive bytes.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"zipsight/internal/archive"
	"zipsight/internal/repository/blob"
)

var (
	ErrNotFound      = errors.New("workspace not found")
	ErrEntryNotFound = errors.New("entry not found")
)

// entryCacheSize bounds how many decoded entry sets stay in memory.
// Evicted sets are re-decoded from the stored archive on demand.
const entryCacheSize = 64

type Workspace struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	FileCount   int       `json:"fileCount"`
	DirCount    int       `json:"dirCount"`
	ArchiveSize int64     `json:"archiveSize"`
}

type Service struct {
	mu    sync.RWMutex
	items map[string]*Workspace

	blobs   blob.Store
	entries *lru.Cache[string, []archive.Entry]
	limits  archive.DecodeLimits
	log     *logrus.Entry
}

func New(blobs blob.Store, limits archive.DecodeLimits, log *logrus.Entry) (*Service, error) {
	if blobs == nil {
		return nil, fmt.Errorf("blob store is required")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	cache, err := lru.New[string, []archive.Entry](entryCacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		items:   make(map[string]*Workspace),
		blobs:   blobs,
		entries: cache,
		limits:  limits,
		log:     log,
	}, nil
}

// Create decodes the archive, stores its bytes, and registers a new
// workspace. A malformed archive fails before anything is written.
func (s *Service) Create(ctx context.Context, name string, data []byte) (*Workspace, error) {
	if s == nil {
		return nil, fmt.Errorf("workspace service is not available")
	}
	entries, err := archive.Decode(data, s.limits)
	if err != nil {
		return nil, err
	}

	id := uuid.New().String()
	if err := s.blobs.Put(ctx, id, blob.ObjectArchive, data); err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}

	now := time.Now()
	ws := &Workspace{
		ID:          id,
		Name:        workspaceName(name),
		CreatedAt:   now,
		UpdatedAt:   now,
		ArchiveSize: int64(len(data)),
	}
	ws.FileCount, ws.DirCount = countEntries(entries)

	s.mu.Lock()
	s.items[id] = ws
	s.mu.Unlock()
	s.entries.Add(id, entries)

	s.log.WithFields(logrus.Fields{
		"workspace": id,
		"files":     ws.FileCount,
		"dirs":      ws.DirCount,
		"bytes":     ws.ArchiveSize,
	}).Info("workspace created")

	out := *ws
	return &out, nil
}

// Replace swaps the workspace's archive for a new one. The previous
// analysis report describes content that no longer exists, so it is
// dropped along with the cached entries.
func (s *Service) Replace(ctx context.Context, id, name string, data []byte) (*Workspace, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)

	entries, err := archive.Decode(data, s.limits)
	if err != nil {
		return nil, err
	}
	if err := s.blobs.Put(ctx, id, blob.ObjectArchive, data); err != nil {
		return nil, fmt.Errorf("store archive: %w", err)
	}
	if err := s.blobs.Delete(ctx, id, blob.ObjectReport); err != nil && !errors.Is(err, blob.ErrNotFound) {
		s.log.WithError(err).WithField("workspace", id).Warn("drop stale report")
	}

	s.mu.Lock()
	ws, ok := s.items[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if strings.TrimSpace(name) != "" {
		ws.Name = strings.TrimSpace(name)
	}
	ws.UpdatedAt = time.Now()
	ws.ArchiveSize = int64(len(data))
	ws.FileCount, ws.DirCount = countEntries(entries)
	out := *ws
	s.mu.Unlock()
	s.entries.Add(id, entries)

	s.log.WithFields(logrus.Fields{
		"workspace": id,
		"files":     out.FileCount,
		"bytes":     out.ArchiveSize,
	}).Info("workspace archive replaced")

	return &out, nil
}

func (s *Service) Get(id string) (*Workspace, error) {
	if s == nil {
		return nil, fmt.Errorf("workspace service is not available")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("workspace id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	ws, ok := s.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *ws
	return &out, nil
}

// List returns all workspaces, newest first.
func (s *Service) List() []*Workspace {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	out := make([]*Workspace, 0, len(s.items))
	for _, ws := range s.items {
		copied := *ws
		out = append(out, &copied)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Entries returns the decoded entry set, re-decoding from the stored
// archive when the cache has moved on.
func (s *Service) Entries(ctx context.Context, id string) ([]archive.Entry, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)

	if cached, ok := s.entries.Get(id); ok {
		return cached, nil
	}

	data, err := s.blobs.Get(ctx, id, blob.ObjectArchive)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	entries, err := archive.Decode(data, s.limits)
	if err != nil {
		return nil, err
	}
	s.entries.Add(id, entries)
	return entries, nil
}

// File looks up a single file entry by its archive-relative path.
func (s *Service) File(ctx context.Context, id, path string) (*archive.Entry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	entries, err := s.Entries(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if entries[i].Path != path {
			continue
		}
		if entries[i].IsDirectory {
			return nil, fmt.Errorf("%w: %s is a directory", ErrEntryNotFound, path)
		}
		e := entries[i]
		return &e, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, path)
}

// Delete removes the workspace and every stored object belonging to it.
func (s *Service) Delete(ctx context.Context, id string) error {
	if s == nil {
		return fmt.Errorf("workspace service is not available")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("workspace id is required")
	}

	s.mu.Lock()
	_, ok := s.items[id]
	delete(s.items, id)
	s.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	s.entries.Remove(id)
	if err := s.blobs.DeleteAll(ctx, id); err != nil {
		return fmt.Errorf("delete workspace objects: %w", err)
	}
	s.log.WithField("workspace", id).Info("workspace deleted")
	return nil
}

// Archive returns the stored archive bytes.
func (s *Service) Archive(ctx context.Context, id string) ([]byte, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	data, err := s.blobs.Get(ctx, strings.TrimSpace(id), blob.ObjectArchive)
	if errors.Is(err, blob.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

// ArchiveURL returns a direct download URL, or "" when the backend has
// no URL support.
func (s *Service) ArchiveURL(ctx context.Context, id string) (string, error) {
	if _, err := s.Get(id); err != nil {
		return "", err
	}
	return s.blobs.GetURL(ctx, strings.TrimSpace(id), blob.ObjectArchive)
}

func workspaceName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Workspace"
	}
	return name
}

func countEntries(entries []archive.Entry) (files, dirs int) {
	for _, e := range entries {
		if e.IsDirectory {
			dirs++
		} else {
			files++
		}
	}
	return files, dirs
}

// Package blob wraps a blob.Store with in-memory read caches for object
// content, listings, and presigned URLs.
package blob

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	blobrepo "zipsight/internal/repository/blob"
)

type Store = blobrepo.Store

type CacheConfig struct {
	ObjectTTL        time.Duration
	ObjectMaxEntries int

	ListTTL        time.Duration
	ListMaxEntries int

	URLTTL        time.Duration
	URLMaxEntries int
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		ObjectTTL:        5 * time.Minute,
		ObjectMaxEntries: 1024,
		ListTTL:          30 * time.Second,
		ListMaxEntries:   512,
		URLTTL:           5 * time.Minute,
		URLMaxEntries:    1024,
	}
}

type MetricsSnapshot struct {
	ObjectHits     uint64
	ObjectMisses   uint64
	ListHits       uint64
	ListMisses     uint64
	URLHits        uint64
	URLMisses      uint64
	OriginReads    uint64
	OriginWrites   uint64
	OriginReadErr  uint64
	OriginWriteErr uint64
}

type Metrics struct {
	objectHits     atomic.Uint64
	objectMisses   atomic.Uint64
	listHits       atomic.Uint64
	listMisses     atomic.Uint64
	urlHits        atomic.Uint64
	urlMisses      atomic.Uint64
	originReads    atomic.Uint64
	originWrites   atomic.Uint64
	originReadErr  atomic.Uint64
	originWriteErr atomic.Uint64
}

func (m *Metrics) snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	return MetricsSnapshot{
		ObjectHits:     m.objectHits.Load(),
		ObjectMisses:   m.objectMisses.Load(),
		ListHits:       m.listHits.Load(),
		ListMisses:     m.listMisses.Load(),
		URLHits:        m.urlHits.Load(),
		URLMisses:      m.urlMisses.Load(),
		OriginReads:    m.originReads.Load(),
		OriginWrites:   m.originWrites.Load(),
		OriginReadErr:  m.originReadErr.Load(),
		OriginWriteErr: m.originWriteErr.Load(),
	}
}

type CachedStore struct {
	origin Store

	objectCache *expirable.LRU[string, []byte]
	listCache   *expirable.LRU[string, []string]
	urlCache    *expirable.LRU[string, string]
	metrics     Metrics
}

func NewCachedStore(origin Store, cfg CacheConfig) *CachedStore {
	def := DefaultCacheConfig()
	if cfg.ObjectTTL <= 0 {
		cfg.ObjectTTL = def.ObjectTTL
	}
	if cfg.ObjectMaxEntries <= 0 {
		cfg.ObjectMaxEntries = def.ObjectMaxEntries
	}
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = def.ListTTL
	}
	if cfg.ListMaxEntries <= 0 {
		cfg.ListMaxEntries = def.ListMaxEntries
	}
	if cfg.URLTTL <= 0 {
		cfg.URLTTL = def.URLTTL
	}
	if cfg.URLMaxEntries <= 0 {
		cfg.URLMaxEntries = def.URLMaxEntries
	}

	return &CachedStore{
		origin:      origin,
		objectCache: expirable.NewLRU[string, []byte](cfg.ObjectMaxEntries, nil, cfg.ObjectTTL),
		listCache:   expirable.NewLRU[string, []string](cfg.ListMaxEntries, nil, cfg.ListTTL),
		urlCache:    expirable.NewLRU[string, string](cfg.URLMaxEntries, nil, cfg.URLTTL),
	}
}

func (s *CachedStore) Put(ctx context.Context, workspaceID, name string, content []byte) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.Put(ctx, workspaceID, name, content); err != nil {
		s.metrics.originWriteErr.Add(1)
		return err
	}

	key := cacheKey(workspaceID, name)
	s.objectCache.Add(key, append([]byte(nil), content...))
	s.listCache.Remove(strings.TrimSpace(workspaceID))
	s.urlCache.Remove(key)
	return nil
}

func (s *CachedStore) Get(ctx context.Context, workspaceID, name string) ([]byte, error) {
	key := cacheKey(workspaceID, name)
	if raw, ok := s.objectCache.Get(key); ok {
		s.metrics.objectHits.Add(1)
		return append([]byte(nil), raw...), nil
	}
	s.metrics.objectMisses.Add(1)
	s.metrics.originReads.Add(1)

	raw, err := s.origin.Get(ctx, workspaceID, name)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	copied := append([]byte(nil), raw...)
	s.objectCache.Add(key, copied)
	return append([]byte(nil), copied...), nil
}

func (s *CachedStore) Delete(ctx context.Context, workspaceID, name string) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.Delete(ctx, workspaceID, name); err != nil {
		s.metrics.originWriteErr.Add(1)
		return err
	}

	key := cacheKey(workspaceID, name)
	s.objectCache.Remove(key)
	s.urlCache.Remove(key)
	s.listCache.Remove(strings.TrimSpace(workspaceID))
	return nil
}

func (s *CachedStore) DeleteAll(ctx context.Context, workspaceID string) error {
	s.metrics.originWrites.Add(1)
	if err := s.origin.DeleteAll(ctx, workspaceID); err != nil {
		s.metrics.originWriteErr.Add(1)
		return err
	}

	prefix := strings.TrimSpace(workspaceID) + "/"
	for _, key := range s.objectCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.objectCache.Remove(key)
		}
	}
	for _, key := range s.urlCache.Keys() {
		if strings.HasPrefix(key, prefix) {
			s.urlCache.Remove(key)
		}
	}
	s.listCache.Remove(strings.TrimSpace(workspaceID))
	return nil
}

func (s *CachedStore) List(ctx context.Context, workspaceID string) ([]string, error) {
	key := strings.TrimSpace(workspaceID)
	if list, ok := s.listCache.Get(key); ok {
		s.metrics.listHits.Add(1)
		return append([]string(nil), list...), nil
	}
	s.metrics.listMisses.Add(1)
	s.metrics.originReads.Add(1)

	list, err := s.origin.List(ctx, workspaceID)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return nil, err
	}
	copied := append([]string(nil), list...)
	s.listCache.Add(key, copied)
	return append([]string(nil), copied...), nil
}

func (s *CachedStore) GetURL(ctx context.Context, workspaceID, name string) (string, error) {
	key := cacheKey(workspaceID, name)
	if cached, ok := s.urlCache.Get(key); ok {
		s.metrics.urlHits.Add(1)
		return cached, nil
	}
	s.metrics.urlMisses.Add(1)
	s.metrics.originReads.Add(1)

	url, err := s.origin.GetURL(ctx, workspaceID, name)
	if err != nil {
		s.metrics.originReadErr.Add(1)
		return "", err
	}
	// Empty means the backend has no URL support; not worth caching.
	if strings.TrimSpace(url) != "" {
		s.urlCache.Add(key, url)
	}
	return url, nil
}

func (s *CachedStore) Metrics() MetricsSnapshot {
	if s == nil {
		return MetricsSnapshot{}
	}
	return s.metrics.snapshot()
}

func cacheKey(workspaceID, name string) string {
	return strings.TrimSpace(workspaceID) + "/" + strings.TrimLeft(strings.TrimSpace(name), "/")
}

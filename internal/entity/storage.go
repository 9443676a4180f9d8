package entity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru"
)

// Storage loads entities and describes their types.
type Storage interface {
	// LoadMultiple returns the entities found among ids, keyed by id.
	// Missing ids are absent from the result.
	LoadMultiple(ctx context.Context, entityType string, ids []string) (map[string]Entity, error)
	EntityType(id string) (Type, bool)
}

// UnknownTypeError is returned when loading entities of an undefined type.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("the %q entity type does not exist", e.Type)
}

// MemoryStorage keeps entities in memory.
type MemoryStorage struct {
	mu       sync.RWMutex
	types    map[string]Type
	entities map[string]map[string]Entity
	loads    atomic.Int64
}

var _ Storage = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		types:    make(map[string]Type),
		entities: make(map[string]map[string]Entity),
	}
}

// AddType defines an entity type.
func (s *MemoryStorage) AddType(t Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types[t.ID] = t
	if s.entities[t.ID] == nil {
		s.entities[t.ID] = make(map[string]Entity)
	}
}

// Save stores e. Its type must be defined.
func (s *MemoryStorage) Save(e Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byID, ok := s.entities[e.EntityTypeID()]
	if !ok {
		return &UnknownTypeError{Type: e.EntityTypeID()}
	}
	byID[e.ID()] = e
	return nil
}

// Delete removes an entity.
func (s *MemoryStorage) Delete(entityType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entities[entityType], id)
}

func (s *MemoryStorage) EntityType(id string) (Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[id]
	return t, ok
}

// Types returns the defined types sorted by id.
func (s *MemoryStorage) Types() []Type {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Type, 0, len(s.types))
	for _, t := range s.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *MemoryStorage) LoadMultiple(ctx context.Context, entityType string, ids []string) (map[string]Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.loads.Add(1)
	s.mu.RLock()
	defer s.mu.RUnlock()
	byID, ok := s.entities[entityType]
	if !ok {
		return nil, &UnknownTypeError{Type: entityType}
	}
	out := make(map[string]Entity, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

// Loads returns the number of LoadMultiple calls served so far.
func (s *MemoryStorage) Loads() int64 { return s.loads.Load() }

// CachedStorage keeps recently loaded entities in an LRU cache in front of
// another Storage. Misses are not cached.
type CachedStorage struct {
	inner Storage
	cache *lru.Cache
}

var _ Storage = (*CachedStorage)(nil)

// NewCachedStorage caches up to size entities loaded from inner.
func NewCachedStorage(inner Storage, size int) (*CachedStorage, error) {
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("entity cache: %w", err)
	}
	return &CachedStorage{inner: inner, cache: cache}, nil
}

func (c *CachedStorage) EntityType(id string) (Type, bool) { return c.inner.EntityType(id) }

func (c *CachedStorage) LoadMultiple(ctx context.Context, entityType string, ids []string) (map[string]Entity, error) {
	out := make(map[string]Entity, len(ids))
	var missing []string
	for _, id := range ids {
		if v, ok := c.cache.Get(CacheTag(entityType, id)); ok {
			out[id] = v.(Entity)
			continue
		}
		missing = append(missing, id)
	}
	if len(missing) == 0 {
		return out, nil
	}
	loaded, err := c.inner.LoadMultiple(ctx, entityType, missing)
	if err != nil {
		return nil, err
	}
	for id, e := range loaded {
		c.cache.Add(CacheTag(entityType, id), e)
		out[id] = e
	}
	return out, nil
}

// Invalidate drops cached entities by their cache tags ("<type>:<id>").
// Tags that name no cached entity are ignored.
func (c *CachedStorage) Invalidate(tags ...string) {
	for _, tag := range tags {
		c.cache.Remove(tag)
	}
}

// Len returns the number of cached entities.
func (c *CachedStorage) Len() int { return c.cache.Len() }

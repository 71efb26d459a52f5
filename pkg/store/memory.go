package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/cyrogem/nodedialogue/pkg/asset"
)

// MemoryStore keeps assets in a map. Stored assets are copied on the way in
// and out so callers cannot alias them.
type MemoryStore struct {
	mu     sync.RWMutex
	assets map[string]asset.Asset
}

// NewMemoryStore creates an empty in-memory backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{assets: make(map[string]asset.Asset)}
}

func (s *MemoryStore) Kind() string { return "memory" }

func (s *MemoryStore) Create(ctx context.Context, name string, a *asset.Asset) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[name]; ok {
		return false, nil
	}
	s.assets[name] = copyAsset(a)
	return true, nil
}

func (s *MemoryStore) Put(ctx context.Context, name string, a *asset.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.assets[name] = copyAsset(a)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, name string) (*asset.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[name]
	if !ok {
		return nil, notFound(name)
	}
	c := copyAsset(&a)
	return &c, nil
}

func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.assets)), nil
}

func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[name]; !ok {
		return notFound(name)
	}
	delete(s.assets, name)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func copyAsset(a *asset.Asset) asset.Asset {
	c := *a
	c.Speakers = slices.Clone(a.Speakers)
	c.Lines = slices.Clone(a.Lines)
	c.Type = slices.Clone(a.Type)
	c.Position = slices.Clone(a.Position)
	c.Dimensions = slices.Clone(a.Dimensions)
	c.OptionLines = slices.Clone(a.OptionLines)
	c.Target = make([]asset.TargetList, len(a.Target))
	for i, t := range a.Target {
		c.Target[i] = asset.TargetList{Target: slices.Clone(t.Target)}
	}
	return c
}

var _ Backend = (*MemoryStore)(nil)

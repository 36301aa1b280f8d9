package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/Ahmed-Sermani/go-pagerank/objstore"
	"golang.org/x/xerrors"
)

var _ objstore.Store = (*InMemoryStore)(nil)

// InMemoryStore is an objstore.Store that keeps all objects in a map. It is
// safe for concurrent use.
type InMemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
}

// NewInMemoryStore creates an empty in-memory object store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		objects: make(map[string][]byte),
	}
}

func (s *InMemoryStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.objects {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	return names, nil
}

func (s *InMemoryStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, xerrors.Errorf("get %q: %w", name, err)
	}

	s.mu.RLock()
	data, found := s.objects[name]
	s.mu.RUnlock()
	if !found {
		return nil, xerrors.Errorf("get %q: %w", name, objstore.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (s *InMemoryStore) Put(_ context.Context, name string, data []byte, _ string) error {
	s.mu.Lock()
	s.objects[name] = append([]byte(nil), data...)
	s.mu.Unlock()
	return nil
}

// Delete removes the named object if it exists.
func (s *InMemoryStore) Delete(name string) {
	s.mu.Lock()
	delete(s.objects, name)
	s.mu.Unlock()
}

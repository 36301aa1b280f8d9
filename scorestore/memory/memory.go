package memory

import (
	"context"
	"sync"

	"github.com/Ahmed-Sermani/go-pagerank/scorestore"
	"golang.org/x/xerrors"
)

var _ scorestore.Store = (*InMemoryStore)(nil)

// InMemoryStore keeps the scores of the last ranking run in memory.
type InMemoryStore struct {
	mu     sync.RWMutex
	scores []float64
}

// NewInMemoryStore creates a new in-memory score store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) UpdateScores(ctx context.Context, scores []float64) error {
	if err := ctx.Err(); err != nil {
		return xerrors.Errorf("update scores: %w", err)
	}

	sCopy := append([]float64(nil), scores...)
	s.mu.Lock()
	s.scores = sCopy
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) Score(_ context.Context, id int) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id < 0 || id >= len(s.scores) {
		return 0, xerrors.Errorf("score of page %d: %w", id, scorestore.ErrNotFound)
	}
	return s.scores[id], nil
}

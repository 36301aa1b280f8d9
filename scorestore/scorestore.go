/*
   Persistence for the PageRank scores produced by a ranking run.
*/
package scorestore

import (
	"context"

	"golang.org/x/xerrors"
)

var (
	// ErrNotFound is returned when looking up the score of a page that has
	// not been ranked.
	ErrNotFound = xerrors.New("score not found")
)

// Store is implemented by objects that persist PageRank scores.
type Store interface {
	// UpdateScores replaces the stored scores with scores, indexed by page
	// id. Pages outside the new page space are removed. The update is
	// atomic: readers observe either the old or the new set of scores.
	UpdateScores(ctx context.Context, scores []float64) error

	// Score returns the stored score of page id.
	Score(ctx context.Context, id int) (float64, error)
}

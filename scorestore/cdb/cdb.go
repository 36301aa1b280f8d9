package cdb

import (
	"context"
	"database/sql"

	"github.com/Ahmed-Sermani/go-pagerank/scorestore"
	"github.com/lib/pq"
	"golang.org/x/xerrors"
)

const (
	// Scores are upserted in batches to keep the array parameters of a
	// single statement bounded.
	upsertBatchSize = 10000

	createTableQuery = `
  CREATE TABLE IF NOT EXISTS page_scores (
    page_id INT PRIMARY KEY,
    score FLOAT8 NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
  )
  `
	upsertScoresQuery = `
  INSERT INTO page_scores (page_id, score, updated_at)
  SELECT s.page_id, s.score, NOW() FROM UNNEST($1::INT8[], $2::FLOAT8[]) AS s(page_id, score)
  ON CONFLICT (page_id) DO UPDATE SET score=excluded.score, updated_at=excluded.updated_at
  `
	rmStaleScoresQuery = `
  DELETE FROM page_scores WHERE page_id >= $1
  `
	getScoreQuery = `
  SELECT score FROM page_scores WHERE page_id=$1
  `
)

var _ scorestore.Store = (*CockroachDBStore)(nil)

// CockroachDBStore persists scores in a CockroachDB or PostgreSQL table.
type CockroachDBStore struct {
	db *sql.DB
}

// NewCockroachDBStore connects to the database at dsn and creates the
// page_scores table if it's missing.
func NewCockroachDBStore(dsn string) (*CockroachDBStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if _, err = db.Exec(createTableQuery); err != nil {
		_ = db.Close()
		return nil, xerrors.Errorf("create page_scores table: %w", err)
	}

	return &CockroachDBStore{db}, nil
}

func (c *CockroachDBStore) Close() error {
	return c.db.Close()
}

func (c *CockroachDBStore) UpdateScores(ctx context.Context, scores []float64) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Errorf("update scores: %w", err)
	}

	ids := make([]int64, 0, upsertBatchSize)
	for from := 0; from < len(scores); from += upsertBatchSize {
		to := from + upsertBatchSize
		if to > len(scores) {
			to = len(scores)
		}
		ids = ids[:0]
		for id := from; id < to; id++ {
			ids = append(ids, int64(id))
		}
		if _, err = tx.ExecContext(ctx, upsertScoresQuery, pq.Array(ids), pq.Array(scores[from:to])); err != nil {
			_ = tx.Rollback()
			return xerrors.Errorf("update scores: %w", err)
		}
	}
	if _, err = tx.ExecContext(ctx, rmStaleScoresQuery, len(scores)); err != nil {
		_ = tx.Rollback()
		return xerrors.Errorf("update scores: remove stale scores: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return xerrors.Errorf("update scores: %w", err)
	}
	return nil
}

func (c *CockroachDBStore) Score(ctx context.Context, id int) (float64, error) {
	var score float64
	row := c.db.QueryRowContext(ctx, getScoreQuery, id)
	if err := row.Scan(&score); err != nil {
		if xerrors.Is(err, sql.ErrNoRows) {
			return 0, xerrors.Errorf("score of page %d: %w", id, scorestore.ErrNotFound)
		}
		return 0, xerrors.Errorf("score of page %d: %w", id, err)
	}
	return score, nil
}

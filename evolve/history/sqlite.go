//go:build sqlite

package history

import (
	"context"
	"database/sql"
	"errors"
	"sync"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	return NewSQLiteStore(path), nil
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, record Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (
			run_id, generation, size, steps,
			best_score, mean_score, stdev_score, median_score, degenerate
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			size = excluded.size,
			steps = excluded.steps,
			best_score = excluded.best_score,
			mean_score = excluded.mean_score,
			stdev_score = excluded.stdev_score,
			median_score = excluded.median_score,
			degenerate = excluded.degenerate
	`, record.RunID, record.Generation, record.Size, record.Steps,
		record.BestScore, record.MeanScore, record.StdevScore, record.MedianScore, record.Degenerate)
	return err
}

func (s *SQLiteStore) List(ctx context.Context, runID string) ([]Record, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `
		SELECT run_id, generation, size, steps,
			best_score, mean_score, stdev_score, median_score, degenerate
		FROM generations
		WHERE run_id = ?
		ORDER BY generation
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.RunID, &r.Generation, &r.Size, &r.Steps,
			&r.BestScore, &r.MeanScore, &r.StdevScore, &r.MedianScore, &r.Degenerate); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, ErrNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			size INTEGER NOT NULL,
			steps INTEGER NOT NULL,
			best_score REAL NOT NULL,
			mean_score REAL NOT NULL,
			stdev_score REAL NOT NULL,
			median_score REAL NOT NULL,
			degenerate BOOLEAN NOT NULL,
			PRIMARY KEY (run_id, generation)
		);
	`)
	return err
}

// Package store records run history in a sqlite database. The control loop
// works without it; attaching a store makes finished runs queryable across a
// batch.
package store

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Store is a sqlite-backed run history. Safe for concurrent use.
type Store struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// ArchiveRow is one persisted archive entry of a run.
type ArchiveRow struct {
	Rank          int
	Distance      float64
	Round         int
	SampleID      int
	StructurePath string
}

// RunRow is one recorded run.
type RunRow struct {
	ID            string
	Input         string
	Status        string
	FinalDistance sql.NullFloat64
	StartedAt     time.Time
	FinishedAt    sql.NullTime
}

// New returns an uninitialized store for the given database path.
func New(path string) *Store {
	return &Store{path: path}
}

// Init opens the database and creates the schema.
func (s *Store) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("store path is required")
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

// CreateRun records a newly started run.
func (s *Store) CreateRun(ctx context.Context, id, input string, startedAt time.Time) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO runs (id, input, status, started_at)
		VALUES (?, ?, 'running', ?)
		ON CONFLICT(id) DO NOTHING
	`, id, input, startedAt.UTC())
	return err
}

// FinishRun records a run's terminal status and final distance.
func (s *Store) FinishRun(ctx context.Context, id, status string, finalDistance float64, finishedAt time.Time) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE runs SET status = ?, final_distance = ?, finished_at = ?
		WHERE id = ?
	`, status, finalDistance, finishedAt.UTC(), id)
	return err
}

// GetRun returns one recorded run.
func (s *Store) GetRun(ctx context.Context, id string) (RunRow, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return RunRow{}, false, err
	}
	var row RunRow
	err = db.QueryRowContext(ctx, `
		SELECT id, input, status, final_distance, started_at, finished_at
		FROM runs WHERE id = ?
	`, id).Scan(&row.ID, &row.Input, &row.Status, &row.FinalDistance, &row.StartedAt, &row.FinishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunRow{}, false, nil
		}
		return RunRow{}, false, err
	}
	return row, true, nil
}

// RecordRound records a closed round's best outcome.
func (s *Store) RecordRound(ctx context.Context, runID string, idx, bestSample int, bestDistance float64, converged bool) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO rounds (run_id, idx, best_sample, best_distance, converged)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, idx) DO UPDATE SET
			best_sample = excluded.best_sample,
			best_distance = excluded.best_distance,
			converged = excluded.converged
	`, runID, idx, bestSample, bestDistance, converged)
	return err
}

// ReplaceArchive replaces the recorded archive of a run with the given rows.
func (s *Store) ReplaceArchive(ctx context.Context, runID string, rows []ArchiveRow) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM archive WHERE run_id = ?`, runID); err != nil {
		_ = tx.Rollback()
		return err
	}
	for _, row := range rows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO archive (run_id, rank, distance, round, sample, structure_path)
			VALUES (?, ?, ?, ?, ?, ?)
		`, runID, row.Rank, row.Distance, row.Round, row.SampleID, row.StructurePath)
		if err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// ArchiveFor returns the recorded archive rows of a run in rank order.
func (s *Store) ArchiveFor(ctx context.Context, runID string) ([]ArchiveRow, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT rank, distance, round, sample, structure_path
		FROM archive WHERE run_id = ? ORDER BY rank
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ArchiveRow
	for rows.Next() {
		var row ArchiveRow
		if err := rows.Scan(&row.Rank, &row.Distance, &row.Round, &row.SampleID, &row.StructurePath); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Store) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			status TEXT NOT NULL,
			final_distance REAL,
			started_at TIMESTAMP NOT NULL,
			finished_at TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS rounds (
			run_id TEXT NOT NULL,
			idx INTEGER NOT NULL,
			best_sample INTEGER NOT NULL,
			best_distance REAL NOT NULL,
			converged INTEGER NOT NULL,
			PRIMARY KEY (run_id, idx)
		);
		CREATE TABLE IF NOT EXISTS archive (
			run_id TEXT NOT NULL,
			rank INTEGER NOT NULL,
			distance REAL NOT NULL,
			round INTEGER NOT NULL,
			sample INTEGER NOT NULL,
			structure_path TEXT NOT NULL,
			PRIMARY KEY (run_id, rank)
		);
	`)
	return err
}

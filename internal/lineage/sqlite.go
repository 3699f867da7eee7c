package lineage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps lineage records in a SQLite database, one row per
// chromosome of a run, with the record itself as a JSON payload.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore returns a store for the database at path. Call Init before use.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Init opens the database and creates the lineage table if needed.
// Calling it on an open store is a no-op.
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

// Save writes all records in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, records ...Record) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		if err := checkVersion(r); err != nil {
			return err
		}
		payload, err := EncodeRecord(r)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO lineage (run_id, chromosome_id, parent1_id, parent2_id, generation, schema_version, codec_version, payload)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(run_id, chromosome_id) DO UPDATE SET
				parent1_id = excluded.parent1_id,
				parent2_id = excluded.parent2_id,
				generation = excluded.generation,
				schema_version = excluded.schema_version,
				codec_version = excluded.codec_version,
				payload = excluded.payload
		`, r.RunID, r.Snapshot.ID, r.Snapshot.Parent1ID, r.Snapshot.Parent2ID, r.Generation, r.SchemaVersion, r.CodecVersion, payload)
		if err != nil {
			return fmt.Errorf("save chromosome %d: %w", r.Snapshot.ID, err)
		}
	}
	return tx.Commit()
}

// Get loads the record of chromosomeID in runID. The boolean is false when
// no such record exists.
func (s *SQLiteStore) Get(ctx context.Context, runID string, chromosomeID int) (Record, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return Record{}, false, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM lineage WHERE run_id = ? AND chromosome_id = ?`,
		runID, chromosomeID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, err
	}

	record, err := DecodeRecord(payload)
	if err != nil {
		return Record{}, false, fmt.Errorf("decode chromosome %d: %w", chromosomeID, err)
	}
	return record, true, nil
}

// Close releases the database handle. The store can be opened again with Init.
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
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS lineage (
			run_id TEXT NOT NULL,
			chromosome_id INTEGER NOT NULL,
			parent1_id INTEGER NOT NULL,
			parent2_id INTEGER NOT NULL,
			generation INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL,
			PRIMARY KEY (run_id, chromosome_id)
		);
	`)
	return err
}

package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is the default cache backend: a single local database file
// that survives process restarts.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the cache database at the given path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	// WAL mode so concurrent fetch goroutines do not serialize on writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migrate cache schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS responses (
		url        TEXT PRIMARY KEY,
		body       BLOB NOT NULL,
		fetched_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Get returns the stored bytes for a URL.
func (s *SQLiteStore) Get(ctx context.Context, url string) ([]byte, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM responses WHERE url = ?`, url).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return body, true, nil
}

// Put stores bytes for a URL, overwriting any previous entry.
func (s *SQLiteStore) Put(ctx context.Context, url string, body []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO responses (url, body, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT (url) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		url, body, time.Now().UTC(),
	)
	return err
}

// Delete removes a single entry.
func (s *SQLiteStore) Delete(ctx context.Context, url string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM responses WHERE url = ?`, url)
	return err
}

// Reset removes all entries.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM responses`)
	return err
}

// Contains reports whether an entry exists.
func (s *SQLiteStore) Contains(ctx context.Context, url string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM responses WHERE url = ?`, url).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

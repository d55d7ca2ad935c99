// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache is a content-addressed, namespaced, TTL-based store for
// collaborator responses. Entries are keyed by an exact hash of the query
// text, so caching is exact-match only. Storage failures degrade to a miss
// on read and a no-op on write; they are never surfaced to callers.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Namespaces used by the pipeline.
const (
	NamespaceSearch = "search"
	NamespaceLLM    = "llm"
)

const dbFile = "litreview.db"

// Store is a SQLite-backed response cache. A nil *Store is valid and
// behaves as a disabled cache: every Get misses, every Put is a no-op.
type Store struct {
	db     *sql.DB
	maxAge time.Duration

	// now is the clock; tests substitute it to force expiry.
	now func() time.Time
}

// Open creates or opens the cache database under dir. Entries older than
// maxAge are treated as absent and removed when encountered.
func Open(dir string, maxAge time.Duration) (*Store, error) {
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}

	s := &Store{db: db, maxAge: maxAge, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		query TEXT NOT NULL,
		value BLOB NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, key)
	)`)
	return err
}

// Key returns the cache key for a query: the hex SHA-256 of the exact text.
func Key(query string) string {
	sum := sha256.Sum256([]byte(query))
	return fmt.Sprintf("%x", sum)
}

// Get returns the cached value for the query in the given namespace, or
// ok=false on a miss. An expired entry is deleted, not merely skipped.
// Storage errors are swallowed and reported as a miss.
func (s *Store) Get(namespace, query string) ([]byte, bool) {
	if s == nil {
		return nil, false
	}

	key := Key(query)
	var value []byte
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT value, created_at FROM entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value, &createdAt)
	if err != nil {
		return nil, false
	}

	if s.now().Sub(time.Unix(createdAt, 0)) > s.maxAge {
		s.db.Exec(`DELETE FROM entries WHERE namespace = ? AND key = ?`, namespace, key)
		return nil, false
	}
	return value, true
}

// Put stores value for the query in the given namespace, overwriting any
// prior entry with a fresh timestamp. Storage errors are swallowed.
func (s *Store) Put(namespace, query string, value []byte) {
	if s == nil {
		return
	}
	s.db.Exec(
		`INSERT INTO entries (namespace, key, query, value, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET
			query=excluded.query, value=excluded.value, created_at=excluded.created_at`,
		namespace, Key(query), query, value, s.now().Unix(),
	)
}

// Purge removes every entry in the given namespace, or all entries when
// namespace is empty.
func (s *Store) Purge(namespace string) error {
	if s == nil {
		return nil
	}
	var err error
	if namespace == "" {
		_, err = s.db.Exec(`DELETE FROM entries`)
	} else {
		_, err = s.db.Exec(`DELETE FROM entries WHERE namespace = ?`, namespace)
	}
	if err != nil {
		return fmt.Errorf("purging cache: %w", err)
	}
	return nil
}

// Sweep removes all expired entries across namespaces and returns how many
// were deleted.
func (s *Store) Sweep() (int, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := s.now().Add(-s.maxAge).Unix()
	res, err := s.db.Exec(`DELETE FROM entries WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweeping cache: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

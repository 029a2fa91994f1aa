// Package sigcache persists plugin checksums keyed by file identity
// (path, size, mtime) so that repeated runs against an unchanged
// install do not re-read plugin contents.
package sigcache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS signatures (
    path TEXT NOT NULL,
    size INTEGER NOT NULL,
    mtime_ns INTEGER NOT NULL,
    crc INTEGER NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (path, size, mtime_ns)
);`

// Cache is a persistent checksum store backed by a SQLite database. A
// file is identified by its path together with its size and
// modification time; any change to the file makes the old identity
// unreachable, so entries never serve stale checksums.
type Cache struct {
	db *sql.DB

	mu     sync.Mutex
	closed bool
}

// Open creates or opens the signature database inside dir, creating
// the directory if needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "signatures.db"))
	if err != nil {
		return nil, fmt.Errorf("opening signature cache: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing signature cache: %w", err)
	}
	return &Cache{db: db}, nil
}

// Lookup returns the recorded checksum for the given file identity.
func (c *Cache) Lookup(path string, size, mtimeNS int64) (uint32, bool, error) {
	var crc uint32
	err := c.db.QueryRow(
		`SELECT crc FROM signatures WHERE path = ? AND size = ? AND mtime_ns = ?`,
		path, size, mtimeNS,
	).Scan(&crc)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("querying signature cache: %w", err)
	}
	return crc, true, nil
}

// Store records the checksum for a file identity, dropping any older
// identities recorded for the same path.
func (c *Cache) Store(path string, size, mtimeNS int64, crc uint32) error {
	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("storing signature: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM signatures WHERE path = ?`, path); err != nil {
		tx.Rollback()
		return fmt.Errorf("storing signature: %w", err)
	}
	if _, err := tx.Exec(
		`INSERT INTO signatures (path, size, mtime_ns, crc, updated_at) VALUES (?, ?, ?, ?, ?)`,
		path, size, mtimeNS, crc, time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		tx.Rollback()
		return fmt.Errorf("storing signature: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storing signature: %w", err)
	}
	return nil
}

// Close releases the database. Idempotent.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.db.Close()
}

// Package cache implements the driver-level content-addressed compile
// cache: a memo from a hash of an annotated source module plus the active
// target options to the already-lowered target module text. It is never
// consulted by the reference-counting pass or the lowerer themselves; both
// remain pure functions of their input, matching the rest of the pipeline
// built out of the teacher corpus's own optional on-disk persistence.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"lowerc/src/source"
)

// Cache is a handle to the on-disk compile cache database. A nil *Cache is
// valid and behaves as an always-miss cache, so callers need not special
// case -no-cache or an unset cache directory.
type Cache struct {
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite-backed cache database under
// dir. Passing an empty dir returns a nil *Cache.
func Open(dir string) (*Cache, error) {
	if dir == "" {
		return nil, nil
	}
	path := filepath.Join(dir, "lowerc-cache.sqlite")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache: opening %s: %w", path, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS entries (
	key        TEXT PRIMARY KEY,
	build_id   TEXT NOT NULL,
	target_ir  TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache: creating schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle. Safe to call on a nil
// *Cache.
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.db.Close()
}

// Key computes the content-addressed cache key for an annotated source
// module under the given target identifier: a structural hash of the
// module's printed textual form (source.Print is already a canonical,
// order-preserving serialization of every construct the module can hold)
// combined with the target string. Two structurally distinct modules never
// collide; two calls on the same module and target always agree.
func Key(annotated *source.Module, target string) string {
	h := sha256.New()
	h.Write([]byte(source.Print(annotated)))
	h.Write([]byte{0})
	h.Write([]byte(target))
	return hex.EncodeToString(h.Sum(nil))
}

// Lookup returns the cached target-IR text for key, if present. A nil
// *Cache always misses.
func (c *Cache) Lookup(key string) (text string, hit bool, err error) {
	if c == nil {
		return "", false, nil
	}
	row := c.db.QueryRow(`SELECT target_ir FROM entries WHERE key = ?`, key)
	if err := row.Scan(&text); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, fmt.Errorf("cache: lookup %s: %w", key, err)
	}
	return text, true, nil
}

// Store records targetIR under key, tagged with a fresh build id for
// diagnostics (e.g. correlating a cache hit back to the compile that
// populated it). Storing an existing key overwrites its entry, since a
// content-addressed key never legitimately maps to two different texts
// short of a hash collision. A nil *Cache silently discards the store.
func (c *Cache) Store(key, targetIR string) error {
	if c == nil {
		return nil
	}
	buildID := uuid.New().String()
	_, err := c.db.Exec(
		`INSERT INTO entries (key, build_id, target_ir, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET build_id = excluded.build_id, target_ir = excluded.target_ir, created_at = excluded.created_at`,
		key, buildID, targetIR, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("cache: storing %s: %w", key, err)
	}
	return nil
}

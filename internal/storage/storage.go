// Package storage provides the durable document store backing the project
// Store. Documents are JSON blobs keyed by name in a single SQLite table;
// the project lives under one key and the asset bin under another, with
// independent lifecycles.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Document keys used by the project store.
const (
	KeyProject = "project"
	KeyAssets  = "assets"
)

// SchemaVersion is stamped into every saved document so a future loader
// can migrate old shapes. Legacy documents without the field read as
// version 0 and load unchanged.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS documents (
    key         TEXT PRIMARY KEY,
    value       TEXT NOT NULL,
    updated_at  INTEGER NOT NULL
);
`

// ErrNotFound is returned when no document exists under a key.
var ErrNotFound = errors.New("storage: document not found")

// Store is a SQLite-backed key/document store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating storage dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save writes the JSON document under key, stamping the schema version.
func (s *Store) Save(key string, doc []byte) error {
	stamped, err := sjson.SetBytes(doc, "schemaVersion", SchemaVersion)
	if err != nil {
		return fmt.Errorf("stamping document %q: %w", key, err)
	}
	_, err = s.db.Exec(
		`INSERT INTO documents (key, value, updated_at) VALUES (?, ?, strftime('%s','now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(stamped),
	)
	if err != nil {
		return fmt.Errorf("saving document %q: %w", key, err)
	}
	return nil
}

// Load reads the document under key. The stored schema version is
// returned alongside the raw bytes; callers decide how to migrate.
func (s *Store) Load(key string) ([]byte, int, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM documents WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, 0, ErrNotFound
	}
	if err != nil {
		return nil, 0, fmt.Errorf("loading document %q: %w", key, err)
	}
	version := int(gjson.Get(value, "schemaVersion").Int())
	return []byte(value), version, nil
}

// Delete removes the document under key. Missing keys are not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM documents WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting document %q: %w", key, err)
	}
	return nil
}

// Package sqlite provides a SQLite document backend for the store Gateway.
package sqlite

import (
	"database/sql"
	_ "embed"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookwise/bookwise/internal/errors"
	"github.com/bookwise/bookwise/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

var _ store.Backend = (*Backend)(nil)

// Backend stores each document as one row of the documents table.
type Backend struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open creates a new SQLite backend at the given path.
// It configures WAL mode, sets pragmas, and creates the schema.
func Open(path string, logger *slog.Logger) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Single-user documents: one writer is enough.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("sqlite database opened", "path", path)

	return &Backend{db: db, logger: logger, now: time.Now}, nil
}

// Get retrieves the value stored under key.
func (b *Backend) Get(key string) ([]byte, error) {
	var data []byte
	err := b.db.QueryRow(`SELECT value FROM documents WHERE key = ?`, key).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFoundf("key %s not found", key)
	}
	if err != nil {
		return nil, errors.Storage(err, "sqlite get "+key)
	}
	return data, nil
}

// Put inserts or replaces the value stored under key.
func (b *Backend) Put(key string, value []byte) error {
	_, err := b.db.Exec(`
		INSERT INTO documents (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, b.now().UnixMilli())
	if err != nil {
		return errors.Storage(err, "sqlite put "+key)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Backend) Delete(key string) error {
	if _, err := b.db.Exec(`DELETE FROM documents WHERE key = ?`, key); err != nil {
		return errors.Storage(err, "sqlite delete "+key)
	}
	return nil
}

// Keys lists every key in sorted order.
func (b *Backend) Keys() ([]string, error) {
	rows, err := b.db.Query(`SELECT key FROM documents ORDER BY key`)
	if err != nil {
		return nil, errors.Storage(err, "sqlite list keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, errors.Storage(err, "sqlite scan key")
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(err, "sqlite list keys")
	}
	return keys, nil
}

// Close closes the underlying database connection.
func (b *Backend) Close() error {
	b.logger.Info("closing sqlite database")
	return b.db.Close()
}

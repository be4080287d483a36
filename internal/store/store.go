// Package store persists whole JSON documents under string keys.
//
// The Gateway is deliberately forgiving: Save and Remove report failure as
// false and Load treats a corrupt document as absent. Callers keep their
// in-memory state authoritative and never see storage errors directly.
package store

import (
	"encoding/json"
	"log/slog"

	"github.com/bookwise/bookwise/internal/errors"
)

// Document keys.
const (
	LibraryKey  = "bookwise_library"
	ProgressKey = "bookwise_progress"
)

// Backend is a raw byte store. Get must return an error matching
// errors.ErrNotFound for a missing key; any other error is a storage failure.
type Backend interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

// Gateway serializes documents onto a Backend.
type Gateway struct {
	backend Backend
	logger  *slog.Logger
}

// New creates a Gateway. A nil logger discards output.
func New(backend Backend, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Gateway{backend: backend, logger: logger}
}

// Save encodes value as JSON and stores it under key.
func (g *Gateway) Save(key string, value any) bool {
	data, err := json.Marshal(value)
	if err != nil {
		g.logger.Error("failed to encode document", "key", key, "error", err)
		return false
	}
	if err := g.backend.Put(key, data); err != nil {
		g.logger.Error("failed to save document", "key", key, "error", err)
		return false
	}
	return true
}

// Load decodes the document stored under key into dest.
// Returns false when the document is absent, unreadable or corrupt.
// On false, dest may be partially populated and must be discarded.
func (g *Gateway) Load(key string, dest any) bool {
	data, err := g.backend.Get(key)
	if errors.Is(err, errors.ErrNotFound) {
		return false
	}
	if err != nil {
		g.logger.Error("failed to read document", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		g.logger.Warn("ignoring corrupt document",
			"key", key,
			"error", errors.Corrupt(err, "decode "+key))
		return false
	}
	return true
}

// Remove deletes the document under key. Removing an absent key succeeds.
func (g *Gateway) Remove(key string) bool {
	if err := g.backend.Delete(key); err != nil {
		g.logger.Error("failed to remove document", "key", key, "error", err)
		return false
	}
	return true
}

// Raw returns the stored bytes for key without decoding them.
func (g *Gateway) Raw(key string) ([]byte, bool) {
	data, err := g.backend.Get(key)
	if err != nil {
		if !errors.Is(err, errors.ErrNotFound) {
			g.logger.Error("failed to read document", "key", key, "error", err)
		}
		return nil, false
	}
	return data, true
}

// Keys lists every stored key.
func (g *Gateway) Keys() ([]string, error) {
	return g.backend.Keys()
}

// Close releases the backend.
func (g *Gateway) Close() error {
	return g.backend.Close()
}

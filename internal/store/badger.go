package store

import (
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/bookwise/bookwise/internal/errors"
)

// BadgerBackend stores documents in a Badger database.
type BadgerBackend struct {
	db     *badger.DB
	logger *slog.Logger
}

// OpenBadger opens (or creates) a Badger database at path.
func OpenBadger(path string, logger *slog.Logger) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Every mutation is durable before Save returns
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	return openBadger(opts, logger, path)
}

// OpenBadgerInMemory opens a Badger database that lives only in memory.
func OpenBadgerInMemory(logger *slog.Logger) (*BadgerBackend, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	return openBadger(opts, logger, ":memory:")
}

func openBadger(opts badger.Options, logger *slog.Logger, path string) (*BadgerBackend, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	logger.Info("badger database opened", "path", path)

	return &BadgerBackend{db: db, logger: logger}, nil
}

// Get retrieves the value stored under key.
func (b *BadgerBackend) Get(key string) ([]byte, error) {
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.NotFoundf("key %s not found", key)
	}
	if err != nil {
		return nil, errors.Storage(err, "badger get "+key)
	}
	return data, nil
}

// Put stores value under key.
func (b *BadgerBackend) Put(key string, value []byte) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return errors.Storage(err, "badger put "+key)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *BadgerBackend) Delete(key string) error {
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return errors.Storage(err, "badger delete "+key)
	}
	return nil
}

// Keys lists every key in the database.
func (b *BadgerBackend) Keys() ([]string, error) {
	var keys []string
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, string(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Storage(err, "badger list keys")
	}
	return keys, nil
}

// Close gracefully closes the database.
func (b *BadgerBackend) Close() error {
	b.logger.Info("closing badger database")
	return b.db.Close()
}

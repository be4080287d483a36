package providers

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/samber/do/v2"

	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/store"
	"github.com/bookwise/bookwise/internal/store/sqlite"
)

// StoreHandle wraps the document gateway with shutdown capability.
type StoreHandle struct {
	*store.Gateway
	Backend string
	once    sync.Once
	err     error
}

// Shutdown implements do.Shutdownable. Safe to call more than once.
func (h *StoreHandle) Shutdown() error {
	h.once.Do(func() {
		h.err = h.Close()
	})
	return h.err
}

// ProvideStore opens the configured storage backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	backend, path, err := openBackend(cfg, log)
	if err != nil {
		return nil, err
	}

	log.Info("storage initialized", "backend", cfg.Storage.Backend, "path", path)

	return &StoreHandle{
		Gateway: store.New(backend, log.With("component", "store")),
		Backend: cfg.Storage.Backend,
	}, nil
}

func openBackend(cfg *config.Config, log *slog.Logger) (store.Backend, string, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		return store.NewMemoryBackend(), "", nil
	case config.BackendSQLite:
		if err := os.MkdirAll(cfg.Storage.DataPath, 0o755); err != nil {
			return nil, "", fmt.Errorf("create data directory: %w", err)
		}
		backend, err := sqlite.Open(cfg.SQLitePath(), log)
		if err != nil {
			return nil, "", fmt.Errorf("open sqlite: %w", err)
		}
		return backend, cfg.SQLitePath(), nil
	default:
		backend, err := store.OpenBadger(cfg.BadgerPath(), log)
		if err != nil {
			return nil, "", fmt.Errorf("open badger: %w", err)
		}
		return backend, cfg.BadgerPath(), nil
	}
}

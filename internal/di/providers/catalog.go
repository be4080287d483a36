package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/bookwise/bookwise/internal/catalog"
	"github.com/bookwise/bookwise/internal/config"
)

// CatalogHandle holds the catalog client. Client is nil when no catalog
// directory is configured.
type CatalogHandle struct {
	*catalog.Client
	Dir string
}

// Enabled reports whether catalog lookups are available.
func (h *CatalogHandle) Enabled() bool {
	return h.Client != nil
}

// ProvideCatalogClient provides the throttled catalog client.
func ProvideCatalogClient(i do.Injector) (*CatalogHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if cfg.Catalog.Dir == "" {
		return &CatalogHandle{}, nil
	}

	client := catalog.New("local", catalog.DirFetcher{Dir: cfg.Catalog.Dir},
		catalog.WithRateLimit(cfg.Catalog.RequestsPerSecond, cfg.Catalog.Burst),
		catalog.WithLogger(log.With("component", "catalog")),
	)
	log.Debug("catalog client initialized", "dir", cfg.Catalog.Dir)

	return &CatalogHandle{Client: client, Dir: cfg.Catalog.Dir}, nil
}

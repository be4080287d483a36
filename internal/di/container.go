// Package di provides dependency injection configuration for Bookwise.
package di

import (
	"context"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/di/providers"
	"github.com/bookwise/bookwise/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer(overrides config.Overrides) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, overrides)
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage and search
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Catalog
	do.Provide(injector, providers.ProvideCatalogClient)

	// Business services
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideProgressService)

	return injector
}

// Bootstrap initializes all services so that setter wiring (indexer,
// removal cascade) is in place before any command runs.
func Bootstrap(ctx context.Context, injector do.Injector) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*slog.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.CatalogHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.LibraryService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.ProgressService](injector); err != nil {
		return err
	}

	return providers.TriggerSearchReindexIfNeeded(ctx, injector)
}

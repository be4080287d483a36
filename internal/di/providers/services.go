package providers

import (
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/bookwise/bookwise/internal/service"
)

// ProvideLibraryService provides the library service wired to the search
// index.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*slog.Logger](i)

	svc := service.NewLibraryService(storeHandle.Gateway, log.With("component", "library"))
	svc.SetIndexer(indexHandle.Indexer())

	return svc, nil
}

// ProvideProgressService provides the progress service and registers it for
// book removal cascades.
func ProvideProgressService(i do.Injector) (*service.ProgressService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	library := do.MustInvoke[*service.LibraryService](i)
	log := do.MustInvoke[*slog.Logger](i)

	svc := service.NewProgressService(storeHandle.Gateway, log.With("component", "progress"))

	// Wire the cascade here to avoid a constructor cycle
	library.SetRemovalListener(svc)

	return svc, nil
}

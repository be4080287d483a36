package providers

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/do/v2"

	"github.com/bookwise/bookwise/internal/config"
	"github.com/bookwise/bookwise/internal/search"
	"github.com/bookwise/bookwise/internal/service"
)

var _ service.BookIndexer = (*search.Index)(nil)

// SearchIndexHandle wraps the search index with shutdown capability.
// Index is nil when search is disabled.
type SearchIndexHandle struct {
	*search.Index
	once sync.Once
	err  error
}

// Enabled reports whether a full-text index is available.
func (h *SearchIndexHandle) Enabled() bool {
	return h.Index != nil
}

// Indexer returns the index as the library's indexer, or a no-op.
func (h *SearchIndexHandle) Indexer() service.BookIndexer {
	if h.Index == nil {
		return service.NoopBookIndexer{}
	}
	return h.Index
}

// Shutdown implements do.Shutdownable. Safe to call more than once.
func (h *SearchIndexHandle) Shutdown() error {
	if h.Index == nil {
		return nil
	}
	h.once.Do(func() {
		h.err = h.Close()
	})
	return h.err
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*slog.Logger](i)

	if !cfg.Search.Enabled {
		log.Debug("full-text search disabled")
		return &SearchIndexHandle{}, nil
	}

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.SearchPath(),
		Logger:   log.With("component", "search"),
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Debug("search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index when its document count
// differs from the library's book count. That happens after a mapping change,
// on a fresh index, or after runs with search disabled.
func TriggerSearchReindexIfNeeded(ctx context.Context, i do.Injector) error {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	if !indexHandle.Enabled() {
		return nil
	}
	library := do.MustInvoke[*service.LibraryService](i)
	log := do.MustInvoke[*slog.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	books := len(library.Books())
	if docCount == uint64(books) {
		return nil
	}

	log.Info("search index out of sync with library, reindexing",
		"documents", docCount,
		"book_count", books,
	)
	return library.Reindex(ctx)
}

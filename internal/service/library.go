package service

import (
	"cmp"
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/bookwise/bookwise/internal/domain"
	"github.com/bookwise/bookwise/internal/id"
	"github.com/bookwise/bookwise/internal/search"
	"github.com/bookwise/bookwise/internal/store"
)

// DefaultShelfName is used when a shelf is created without a name.
const DefaultShelfName = "Untitled Shelf"

// ErrSearchDisabled is returned by full-text operations when no index is configured.
var ErrSearchDisabled = stderrors.New("full-text search is disabled")

// DocumentStore persists whole documents under string keys.
// *store.Gateway satisfies it.
type DocumentStore interface {
	Save(key string, value any) bool
	Load(key string, dest any) bool
}

// BookIndexer keeps a full-text index in sync with the library.
// Set via SetIndexer after construction to avoid circular dependencies.
type BookIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	DeleteBook(ctx context.Context, bookID string) error
	// ReplaceAll drops every indexed document and indexes books instead.
	ReplaceAll(ctx context.Context, books []*domain.Book) error
	Query(ctx context.Context, params search.Params) (*search.Result, error)
}

// NoopBookIndexer is a no-op implementation used when search is disabled.
type NoopBookIndexer struct{}

// IndexBook is a no-op.
func (NoopBookIndexer) IndexBook(context.Context, *domain.Book) error { return nil }

// DeleteBook is a no-op.
func (NoopBookIndexer) DeleteBook(context.Context, string) error { return nil }

// ReplaceAll always fails with ErrSearchDisabled.
func (NoopBookIndexer) ReplaceAll(context.Context, []*domain.Book) error {
	return ErrSearchDisabled
}

// Query always fails with ErrSearchDisabled.
func (NoopBookIndexer) Query(context.Context, search.Params) (*search.Result, error) {
	return nil, ErrSearchDisabled
}

// BookRemovalListener is notified after a book leaves the library.
// ProgressService implements it to drop the book's progress record.
type BookRemovalListener interface {
	BookRemoved(bookID string)
}

// CatalogClient resolves an external catalog id into normalized book data.
type CatalogClient interface {
	GetDetails(ctx context.Context, volumeID string) (domain.BookInput, error)
}

// FullTextResult is a ranked page of library books.
type FullTextResult struct {
	Query  string        `json:"query"`
	Total  uint64        `json:"total"` // Matches before offset and limit
	Hits   []FullTextHit `json:"hits"`
	Facets search.Facets `json:"facets"`
}

// FullTextHit is one ranked book.
type FullTextHit struct {
	Book       *domain.Book      `json:"book"`
	Score      float64           `json:"score"`
	Highlights map[string]string `json:"highlights,omitempty"`
}

// libraryDocument is the persisted form of the library.
type libraryDocument struct {
	Books       map[string]*domain.Book  `json:"books"`
	Shelves     map[string]*domain.Shelf `json:"shelves"`
	LastUpdated time.Time                `json:"lastUpdated"`
}

// LibraryService owns the books and shelves of the library.
// Every mutation is persisted as a whole document before returning.
// Entities handed out are snapshots; mutate them through the service.
type LibraryService struct {
	mu          sync.Mutex
	store       DocumentStore
	logger      *slog.Logger
	indexer     BookIndexer
	listener    BookRemovalListener
	now         func() time.Time
	books       map[string]*domain.Book
	shelves     map[string]*domain.Shelf
	lastUpdated time.Time
}

// NewLibraryService loads the library document and creates any missing default shelves.
func NewLibraryService(docs DocumentStore, logger *slog.Logger) *LibraryService {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &LibraryService{
		store:   docs,
		logger:  logger,
		indexer: NoopBookIndexer{},
		now:     time.Now,
		books:   make(map[string]*domain.Book),
		shelves: make(map[string]*domain.Shelf),
	}
	s.load()
	return s
}

// SetIndexer sets the full-text indexer.
func (s *LibraryService) SetIndexer(indexer BookIndexer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if indexer == nil {
		indexer = NoopBookIndexer{}
	}
	s.indexer = indexer
}

// SetRemovalListener sets the listener notified by RemoveBook.
func (s *LibraryService) SetRemovalListener(listener BookRemovalListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listener = listener
}

func (s *LibraryService) load() {
	var doc libraryDocument
	if s.store.Load(store.LibraryKey, &doc) {
		for key, b := range doc.Books {
			if b == nil {
				continue
			}
			if b.ID == "" {
				b.ID = key
			}
			b.Normalize()
			s.books[b.ID] = b
		}
		for key, sh := range doc.Shelves {
			if sh == nil {
				continue
			}
			if sh.ID == "" {
				sh.ID = key
			}
			sh.Normalize()
			s.shelves[sh.ID] = sh
		}
		s.lastUpdated = doc.LastUpdated
	}

	created := false
	now := s.now()
	for _, spec := range domain.DefaultShelfSpecs {
		if sh, ok := s.shelves[spec.ID]; ok {
			sh.Type = domain.ShelfDefault
			continue
		}
		s.shelves[spec.ID] = domain.NewDefaultShelf(spec, now)
		created = true
	}
	if created {
		s.persist()
	}

	s.logger.Info("library loaded",
		"books", len(s.books),
		"shelves", len(s.shelves),
	)
}

// persist writes the whole library. Callers must hold s.mu.
func (s *LibraryService) persist() {
	s.lastUpdated = s.now()
	s.store.Save(store.LibraryKey, libraryDocument{
		Books:       s.books,
		Shelves:     s.shelves,
		LastUpdated: s.lastUpdated,
	})
}

// AddBook adds a book built from catalog input. If a book with the same id
// is already in the library, the stored book is returned unchanged.
// An input without an id is given a generated one.
func (s *LibraryService) AddBook(in domain.BookInput) *domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.books[in.ID]; ok && in.ID != "" {
		return existing.Clone()
	}
	if in.ID == "" {
		bookID, err := id.Generate("book")
		if err != nil {
			s.logger.Error("failed to generate book id", "error", err)
			return nil
		}
		in.ID = bookID
	}

	book := domain.NewBook(in, s.now())
	s.books[book.ID] = book
	s.persist()
	s.index(book)

	s.logger.Info("book added", "book_id", book.ID, "title", book.Title)
	return book.Clone()
}

// GetBook returns the book with the given id, or nil.
func (s *LibraryService) GetBook(bookID string) *domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.books[bookID].Clone()
}

// Books returns every book ordered by added date, oldest first.
func (s *LibraryService) Books() []*domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	books := make([]*domain.Book, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, b.Clone())
	}
	sortByAddedDate(books)
	return books
}

// UpdateBook merges the update into the book. Returns nil if the book does not exist.
func (s *LibraryService) UpdateBook(bookID string, update domain.BookUpdate) *domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return nil
	}
	book.Apply(update)
	s.persist()
	s.index(book)

	s.logger.Debug("book updated", "book_id", bookID)
	return book.Clone()
}

// RemoveBook removes the book and its membership on every shelf.
// Returns false if the book does not exist.
func (s *LibraryService) RemoveBook(bookID string) bool {
	s.mu.Lock()

	if _, ok := s.books[bookID]; !ok {
		s.mu.Unlock()
		return false
	}

	now := s.now()
	for _, sh := range s.shelves {
		sh.RemoveBook(bookID, now)
	}
	delete(s.books, bookID)
	s.persist()

	if err := s.indexer.DeleteBook(context.Background(), bookID); err != nil {
		s.logger.Warn("failed to remove book from search index", "book_id", bookID, "error", err)
	}
	listener := s.listener
	s.mu.Unlock()

	// Outside the lock: the listener may call back into the library.
	if listener != nil {
		listener.BookRemoved(bookID)
	}

	s.logger.Info("book removed", "book_id", bookID)
	return true
}

// AddTag tags a book. Returns nil if the book does not exist.
func (s *LibraryService) AddTag(bookID, tag string) *domain.Book {
	return s.mutateBook(bookID, func(b *domain.Book) bool {
		return b.AddTag(tag)
	})
}

// RemoveTag untags a book. Returns nil if the book does not exist.
func (s *LibraryService) RemoveTag(bookID, tag string) *domain.Book {
	return s.mutateBook(bookID, func(b *domain.Book) bool {
		return b.RemoveTag(tag)
	})
}

// AddNote appends a note to a book. Returns nil if the book does not exist.
func (s *LibraryService) AddNote(bookID, content string, page *int) *domain.Book {
	noteID, err := id.Generate("note")
	if err != nil {
		s.logger.Error("failed to generate note id", "book_id", bookID, "error", err)
		return nil
	}
	return s.mutateBook(bookID, func(b *domain.Book) bool {
		b.AddNote(noteID, content, page, s.now())
		return true
	})
}

// mutateBook applies fn and persists when it reports a change.
func (s *LibraryService) mutateBook(bookID string, fn func(*domain.Book) bool) *domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, ok := s.books[bookID]
	if !ok {
		return nil
	}
	if fn(book) {
		s.persist()
		s.index(book)
	}
	return book.Clone()
}

// CreateShelf creates a custom shelf. A blank name becomes DefaultShelfName.
func (s *LibraryService) CreateShelf(name, description, color string) *domain.Shelf {
	shelfID, err := id.Generate("shelf")
	if err != nil {
		s.logger.Error("failed to generate shelf id", "error", err)
		return nil
	}
	if name == "" {
		name = DefaultShelfName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	shelf := domain.NewCustomShelf(shelfID, name, description, color, s.now())
	s.shelves[shelfID] = shelf
	s.persist()

	s.logger.Info("shelf created", "shelf_id", shelfID, "name", name)
	return shelf.Clone()
}

// GetShelf returns the shelf with the given id, or nil.
func (s *LibraryService) GetShelf(shelfID string) *domain.Shelf {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shelves[shelfID].Clone()
}

// AllShelves returns default shelves in their fixed order, then custom shelves by creation time.
func (s *LibraryService) AllShelves() []*domain.Shelf {
	return s.filterShelves(func(*domain.Shelf) bool { return true })
}

// DefaultShelves returns the built-in shelves.
func (s *LibraryService) DefaultShelves() []*domain.Shelf {
	return s.filterShelves((*domain.Shelf).IsDefault)
}

// CustomShelves returns the user-created shelves.
func (s *LibraryService) CustomShelves() []*domain.Shelf {
	return s.filterShelves(func(sh *domain.Shelf) bool { return !sh.IsDefault() })
}

func (s *LibraryService) filterShelves(keep func(*domain.Shelf) bool) []*domain.Shelf {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Shelf
	for _, sh := range s.orderedShelves() {
		if keep(sh) {
			out = append(out, sh.Clone())
		}
	}
	return out
}

// orderedShelves returns the live shelves in display order. Callers must hold s.mu.
func (s *LibraryService) orderedShelves() []*domain.Shelf {
	shelves := slices.Collect(maps.Values(s.shelves))
	slices.SortFunc(shelves, func(a, b *domain.Shelf) int {
		ra, rb := domain.DefaultShelfRank(a.ID), domain.DefaultShelfRank(b.ID)
		switch {
		case a.IsDefault() && b.IsDefault():
			return cmp.Compare(ra, rb)
		case a.IsDefault():
			return -1
		case b.IsDefault():
			return 1
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return shelves
}

// UpdateShelf merges the update into the shelf and bumps its UpdatedAt.
// Returns nil if the shelf does not exist.
func (s *LibraryService) UpdateShelf(shelfID string, update domain.ShelfUpdate) *domain.Shelf {
	s.mu.Lock()
	defer s.mu.Unlock()

	shelf, ok := s.shelves[shelfID]
	if !ok {
		return nil
	}
	shelf.Apply(update, s.now())
	s.persist()

	s.logger.Debug("shelf updated", "shelf_id", shelfID)
	return shelf.Clone()
}

// DeleteShelf deletes a custom shelf. Default shelves are never deleted.
func (s *LibraryService) DeleteShelf(shelfID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	shelf, ok := s.shelves[shelfID]
	if !ok {
		return false
	}
	if shelf.IsDefault() {
		s.logger.Debug("refusing to delete default shelf", "shelf_id", shelfID)
		return false
	}
	delete(s.shelves, shelfID)
	s.persist()

	s.logger.Info("shelf deleted", "shelf_id", shelfID)
	return true
}

// AddBookToShelf appends the book to the shelf. Returns false if either does
// not exist or the book is already on the shelf.
func (s *LibraryService) AddBookToShelf(bookID, shelfID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.addToShelf(bookID, shelfID) {
		return false
	}
	s.persist()
	return true
}

// RemoveBookFromShelf removes the book from the shelf. Returns false if it was not there.
func (s *LibraryService) RemoveBookFromShelf(bookID, shelfID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	shelf, ok := s.shelves[shelfID]
	if !ok || !shelf.RemoveBook(bookID, s.now()) {
		return false
	}
	s.persist()
	return true
}

// MoveBookBetweenShelves removes the book from one shelf and adds it to another.
// Nothing changes when the book or target shelf is missing or the book is not
// on the source shelf; in particular a missing target never strands the book
// off its source shelf. If the book already sits on the target it is still
// taken off the source, and false is returned.
func (s *LibraryService) MoveBookBetweenShelves(bookID, fromShelfID, toShelfID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.shelves[fromShelfID]
	if !ok {
		return false
	}
	if _, ok := s.shelves[toShelfID]; !ok {
		return false
	}
	if _, ok := s.books[bookID]; !ok {
		return false
	}
	if !from.RemoveBook(bookID, s.now()) {
		return false
	}

	added := s.addToShelf(bookID, toShelfID)
	s.persist()
	return added
}

// ReorderBookInShelf moves the book at position from to position to.
func (s *LibraryService) ReorderBookInShelf(shelfID string, from, to int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	shelf, ok := s.shelves[shelfID]
	if !ok || !shelf.MoveBook(from, to, s.now()) {
		return false
	}
	s.persist()
	return true
}

// addToShelf adds membership without persisting. Callers must hold s.mu.
func (s *LibraryService) addToShelf(bookID, shelfID string) bool {
	shelf, ok := s.shelves[shelfID]
	if !ok {
		return false
	}
	if _, ok := s.books[bookID]; !ok {
		return false
	}
	return shelf.AddBook(bookID, s.now())
}

// AddFromCatalog fetches a volume from the catalog and adds it to the library.
func (s *LibraryService) AddFromCatalog(ctx context.Context, client CatalogClient, volumeID string) (*domain.Book, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	in, err := client.GetDetails(ctx, volumeID)
	if err != nil {
		return nil, fmt.Errorf("get catalog details for %s: %w", volumeID, err)
	}
	if in.ID == "" {
		in.ID = volumeID
	}

	book := s.AddBook(in)
	if book == nil {
		return nil, fmt.Errorf("add catalog volume %s", volumeID)
	}
	return book, nil
}

// FullTextSearch runs a ranked query through the full-text index and
// resolves the hits to library books. A limit of zero means the default.
func (s *LibraryService) FullTextSearch(ctx context.Context, params search.Params) (*FullTextResult, error) {
	if params.Limit <= 0 {
		params.Limit = search.DefaultParams().Limit
	}

	s.mu.Lock()
	indexer := s.indexer
	s.mu.Unlock()

	result, err := indexer.Query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("full-text search: %w", err)
	}

	s.logger.Debug("full-text search",
		"query", result.Query,
		"total", result.Total,
		"took_ms", result.TookMs,
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	out := &FullTextResult{
		Query:  result.Query,
		Total:  result.Total,
		Hits:   make([]FullTextHit, 0, len(result.Hits)),
		Facets: result.Facets,
	}
	for _, hit := range result.Hits {
		// The index may briefly lag behind removals.
		b, ok := s.books[hit.ID]
		if !ok {
			continue
		}
		out.Hits = append(out.Hits, FullTextHit{
			Book:       b.Clone(),
			Score:      hit.Score,
			Highlights: hit.Highlights,
		})
	}
	return out, nil
}

// Reindex replaces the full-text index contents with the current library,
// dropping documents of books removed while the index was detached.
func (s *LibraryService) Reindex(ctx context.Context) error {
	s.mu.Lock()
	indexer := s.indexer
	books := make([]*domain.Book, 0, len(s.books))
	for _, b := range s.books {
		books = append(books, b.Clone())
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	sortByAddedDate(books)

	start := time.Now()
	if err := indexer.ReplaceAll(ctx, books); err != nil {
		return fmt.Errorf("reindex library: %w", err)
	}

	s.logger.Info("library reindexed",
		"books", len(books),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// index pushes a book to the indexer. Failures only degrade search.
func (s *LibraryService) index(book *domain.Book) {
	if err := s.indexer.IndexBook(context.Background(), book); err != nil {
		s.logger.Warn("failed to index book", "book_id", book.ID, "error", err)
	}
}

func sortByAddedDate(books []*domain.Book) {
	slices.SortFunc(books, func(a, b *domain.Book) int {
		if c := a.AddedDate.Compare(b.AddedDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookwise/bookwise/internal/domain"
	"github.com/bookwise/bookwise/internal/errors"
	"github.com/bookwise/bookwise/internal/search"
	"github.com/bookwise/bookwise/internal/store"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 14, 12, 0, 0, 0, time.Local)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupTestGateway(t *testing.T) *store.Gateway {
	t.Helper()

	backend, err := store.OpenBadgerInMemory(nil)
	require.NoError(t, err)
	gw := store.New(backend, testLogger())
	t.Cleanup(func() { _ = gw.Close() })
	return gw
}

func setupTestLibrary(t *testing.T) (*LibraryService, *store.Gateway, *fakeClock) {
	t.Helper()

	gw := setupTestGateway(t)
	clock := newFakeClock()
	svc := NewLibraryService(gw, testLogger())
	svc.now = clock.Now
	return svc, gw, clock
}

func addTestBook(t *testing.T, svc *LibraryService, bookID, title string, authors ...string) *domain.Book {
	t.Helper()
	book := svc.AddBook(domain.BookInput{ID: bookID, Title: title, Authors: authors})
	require.NotNil(t, book)
	return book
}

func shelfIDs(shelves []*domain.Shelf) []string {
	ids := make([]string, len(shelves))
	for i, sh := range shelves {
		ids[i] = sh.ID
	}
	return ids
}

func bookIDs(books []*domain.Book) []string {
	ids := make([]string, len(books))
	for i, b := range books {
		ids[i] = b.ID
	}
	return ids
}

func TestLibraryService_CreatesDefaultShelves(t *testing.T) {
	svc, gw, _ := setupTestLibrary(t)

	shelves := svc.DefaultShelves()

	assert.Equal(t, []string{"want-to-read", "currently-reading", "read", "favorites"}, shelfIDs(shelves))
	assert.Equal(t, "Want to Read", shelves[0].Name)
	for _, sh := range shelves {
		assert.True(t, sh.IsDefault())
		assert.Empty(t, sh.BookIDs)
	}
	assert.Empty(t, svc.CustomShelves())

	var doc libraryDocument
	require.True(t, gw.Load(store.LibraryKey, &doc))
	assert.Len(t, doc.Shelves, 4)
}

func TestLibraryService_AddBook_IsIdempotent(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)

	first := addTestBook(t, svc, "b1", "Dune", "Frank Herbert")
	second := svc.AddBook(domain.BookInput{ID: "b1", Title: "Different Title"})

	assert.Equal(t, "Dune", second.Title)
	assert.Equal(t, first, second)
	assert.Len(t, svc.Books(), 1)
}

func TestLibraryService_AddBook_GeneratesMissingID(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)

	book := svc.AddBook(domain.BookInput{Title: "Anonymous"})

	require.NotNil(t, book)
	assert.True(t, strings.HasPrefix(book.ID, "book_"))
	assert.NotNil(t, svc.GetBook(book.ID))
}

func TestLibraryService_GetBook_ReturnsSnapshot(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune")

	snapshot := svc.GetBook("b1")
	snapshot.Title = "Mutated"
	snapshot.Tags = append(snapshot.Tags, "sneaky")

	assert.Equal(t, "Dune", svc.GetBook("b1").Title)
	assert.Empty(t, svc.GetBook("b1").Tags)
	assert.Nil(t, svc.GetBook("missing"))
}

func TestLibraryService_UpdateBook(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune", "Frank Herbert")
	review := "A classic."

	updated := svc.UpdateBook("b1", domain.BookUpdate{UserReview: &review})

	require.NotNil(t, updated)
	assert.Equal(t, "A classic.", updated.UserReview)
	assert.Equal(t, "Dune", updated.Title)
	assert.Nil(t, svc.UpdateBook("missing", domain.BookUpdate{UserReview: &review}))
}

func TestLibraryService_DuneScenario(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)

	addTestBook(t, svc, "b1", "Dune")
	require.True(t, svc.AddBookToShelf("b1", domain.ShelfWantToRead))

	books := svc.BooksFromShelf(domain.ShelfWantToRead)
	require.Len(t, books, 1)
	assert.Equal(t, "b1", books[0].ID)
	assert.Equal(t, "Dune", books[0].Title)

	require.True(t, svc.RemoveBook("b1"))
	assert.Empty(t, svc.BooksFromShelf(domain.ShelfWantToRead))
}

func TestLibraryService_RemoveBook_CascadesToEveryShelf(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune")
	addTestBook(t, svc, "b2", "Emma")
	custom := svc.CreateShelf("Sci-Fi", "", "")
	for _, shelfID := range []string{domain.ShelfWantToRead, domain.ShelfFavorites, custom.ID} {
		require.True(t, svc.AddBookToShelf("b1", shelfID))
	}
	require.True(t, svc.AddBookToShelf("b2", domain.ShelfFavorites))

	require.True(t, svc.RemoveBook("b1"))

	assert.Empty(t, svc.ShelvesForBook("b1"))
	for _, sh := range svc.AllShelves() {
		assert.NotContains(t, sh.BookIDs, "b1", "shelf %s", sh.ID)
	}
	assert.Equal(t, []string{"b2"}, svc.GetShelf(domain.ShelfFavorites).BookIDs)
	assert.False(t, svc.RemoveBook("b1"))
}

func TestLibraryService_DeleteShelf_ProtectsDefaults(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)

	for _, spec := range domain.DefaultShelfSpecs {
		assert.False(t, svc.DeleteShelf(spec.ID), spec.ID)
		assert.NotNil(t, svc.GetShelf(spec.ID), spec.ID)
	}

	custom := svc.CreateShelf("Temp", "", "")
	assert.True(t, svc.DeleteShelf(custom.ID))
	assert.Nil(t, svc.GetShelf(custom.ID))
	assert.False(t, svc.DeleteShelf(custom.ID))
}

func TestLibraryService_AddBookToShelf_IsIdempotent(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune")

	assert.True(t, svc.AddBookToShelf("b1", domain.ShelfRead))
	assert.Equal(t, 1, svc.GetShelf(domain.ShelfRead).BookCount())

	assert.False(t, svc.AddBookToShelf("b1", domain.ShelfRead))
	assert.Equal(t, 1, svc.GetShelf(domain.ShelfRead).BookCount())
}

func TestLibraryService_AddBookToShelf_RequiresBothEntities(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune")

	assert.False(t, svc.AddBookToShelf("missing", domain.ShelfRead))
	assert.False(t, svc.AddBookToShelf("b1", "no-such-shelf"))
	assert.Empty(t, svc.GetShelf(domain.ShelfRead).BookIDs)
}

func TestLibraryService_AddBookToShelf_AppendsInOrder(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	for _, id := range []string{"b1", "b2", "b3"} {
		addTestBook(t, svc, id, "Book "+id)
		require.True(t, svc.AddBookToShelf(id, domain.ShelfWantToRead))
	}

	assert.Equal(t, []string{"b1", "b2", "b3"}, bookIDs(svc.BooksFromShelf(domain.ShelfWantToRead)))
}

func TestLibraryService_RemoveBookFromShelf(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune")
	require.True(t, svc.AddBookToShelf("b1", domain.ShelfRead))

	assert.True(t, svc.RemoveBookFromShelf("b1", domain.ShelfRead))
	assert.False(t, svc.RemoveBookFromShelf("b1", domain.ShelfRead))
	assert.False(t, svc.RemoveBookFromShelf("b1", "no-such-shelf"))
	assert.NotNil(t, svc.GetBook("b1"))
}

func TestLibraryService_MoveBookBetweenShelves(t *testing.T) {
	t.Run("moves membership", func(t *testing.T) {
		svc, _, _ := setupTestLibrary(t)
		addTestBook(t, svc, "b1", "Dune")
		require.True(t, svc.AddBookToShelf("b1", domain.ShelfCurrentlyReading))

		assert.True(t, svc.MoveBookBetweenShelves("b1", domain.ShelfCurrentlyReading, domain.ShelfRead))

		assert.Equal(t, []string{domain.ShelfRead}, shelfIDs(svc.ShelvesForBook("b1")))
	})

	t.Run("not on source leaves target untouched", func(t *testing.T) {
		svc, _, _ := setupTestLibrary(t)
		addTestBook(t, svc, "b1", "Dune")

		assert.False(t, svc.MoveBookBetweenShelves("b1", domain.ShelfCurrentlyReading, domain.ShelfRead))

		assert.Empty(t, svc.GetShelf(domain.ShelfRead).BookIDs)
	})

	t.Run("missing target changes nothing", func(t *testing.T) {
		svc, _, _ := setupTestLibrary(t)
		addTestBook(t, svc, "b1", "Dune")
		require.True(t, svc.AddBookToShelf("b1", domain.ShelfCurrentlyReading))

		assert.False(t, svc.MoveBookBetweenShelves("b1", domain.ShelfCurrentlyReading, "no-such-shelf"))

		assert.Equal(t, []string{"b1"}, svc.GetShelf(domain.ShelfCurrentlyReading).BookIDs)
	})

	t.Run("already on target is removed from source", func(t *testing.T) {
		svc, _, _ := setupTestLibrary(t)
		addTestBook(t, svc, "b1", "Dune")
		require.True(t, svc.AddBookToShelf("b1", domain.ShelfCurrentlyReading))
		require.True(t, svc.AddBookToShelf("b1", domain.ShelfRead))

		assert.False(t, svc.MoveBookBetweenShelves("b1", domain.ShelfCurrentlyReading, domain.ShelfRead))

		assert.Equal(t, []string{domain.ShelfRead}, shelfIDs(svc.ShelvesForBook("b1")))
	})
}

func TestLibraryService_ReorderBookInShelf(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	for _, id := range []string{"b1", "b2", "b3"} {
		addTestBook(t, svc, id, "Book "+id)
		require.True(t, svc.AddBookToShelf(id, domain.ShelfFavorites))
	}

	assert.True(t, svc.ReorderBookInShelf(domain.ShelfFavorites, 2, 0))
	assert.Equal(t, []string{"b3", "b1", "b2"}, svc.GetShelf(domain.ShelfFavorites).BookIDs)

	assert.False(t, svc.ReorderBookInShelf(domain.ShelfFavorites, 5, 0))
	assert.False(t, svc.ReorderBookInShelf("no-such-shelf", 0, 1))
}

func TestLibraryService_CreateShelf(t *testing.T) {
	svc, _, clock := setupTestLibrary(t)

	shelf := svc.CreateShelf("Sci-Fi", "Space and beyond", "#3366ff")

	require.NotNil(t, shelf)
	assert.True(t, strings.HasPrefix(shelf.ID, "shelf_"))
	assert.Equal(t, domain.ShelfCustom, shelf.Type)
	assert.Equal(t, "Space and beyond", shelf.Description)
	assert.Equal(t, "#3366ff", shelf.Color)
	assert.Equal(t, clock.Now(), shelf.CreatedAt)

	other := svc.CreateShelf("", "", "")
	assert.NotEqual(t, shelf.ID, other.ID)
	assert.Equal(t, DefaultShelfName, other.Name)
}

func TestLibraryService_AllShelves_Order(t *testing.T) {
	svc, _, clock := setupTestLibrary(t)
	first := svc.CreateShelf("First", "", "")
	clock.Advance(time.Minute)
	second := svc.CreateShelf("Second", "", "")

	assert.Equal(t,
		[]string{"want-to-read", "currently-reading", "read", "favorites", first.ID, second.ID},
		shelfIDs(svc.AllShelves()))
	assert.Equal(t, []string{first.ID, second.ID}, shelfIDs(svc.CustomShelves()))
}

func TestLibraryService_UpdateShelf(t *testing.T) {
	svc, _, clock := setupTestLibrary(t)
	shelf := svc.CreateShelf("Old", "", "")
	clock.Advance(time.Hour)
	name := "New"

	updated := svc.UpdateShelf(shelf.ID, domain.ShelfUpdate{Name: &name})

	require.NotNil(t, updated)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, clock.Now(), updated.UpdatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))
	assert.Nil(t, svc.UpdateShelf("no-such-shelf", domain.ShelfUpdate{Name: &name}))
}

func TestLibraryService_BooksFromShelf_SkipsDanglingIDs(t *testing.T) {
	gw := store.New(store.NewMemoryBackend(), testLogger())
	require.True(t, gw.Save(store.LibraryKey, map[string]any{
		"books": map[string]any{
			"b1": map[string]any{"id": "b1", "title": "Dune"},
		},
		"shelves": map[string]any{
			"read": map[string]any{"id": "read", "name": "Read", "type": "default", "bookIds": []string{"ghost", "b1"}},
		},
	}))

	svc := NewLibraryService(gw, testLogger())

	assert.Equal(t, []string{"b1"}, bookIDs(svc.BooksFromShelf(domain.ShelfRead)))
	assert.Nil(t, svc.BooksFromShelf("no-such-shelf"))
	assert.Len(t, svc.DefaultShelves(), 4)
}

func TestLibraryService_SearchBooks(t *testing.T) {
	svc, _, clock := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune", "Frank Herbert")
	clock.Advance(time.Minute)
	addTestBook(t, svc, "b2", "Emma", "Jane Austen")
	clock.Advance(time.Minute)
	desc := "A desert planet saga continues."
	svc.AddBook(domain.BookInput{ID: "b3", Title: "Children of Dune", Authors: []string{"Frank Herbert"}, Description: desc})
	svc.AddTag("b2", "classic")
	svc.AddTag("b3", "sci-fi")
	require.True(t, svc.AddBookToShelf("b1", domain.ShelfRead))

	tests := []struct {
		name    string
		query   string
		filters SearchFilters
		want    []string
	}{
		{"title case-insensitive", "dUNE", SearchFilters{}, []string{"b1", "b3"}},
		{"author", "austen", SearchFilters{}, []string{"b2"}},
		{"description", "DESERT PLANET", SearchFilters{}, []string{"b3"}},
		{"empty query matches all", "  ", SearchFilters{}, []string{"b1", "b2", "b3"}},
		{"shelf filter", "dune", SearchFilters{ShelfID: domain.ShelfRead}, []string{"b1"}},
		{"unknown shelf", "", SearchFilters{ShelfID: "nope"}, []string{}},
		{"any tag", "", SearchFilters{Tags: []string{"classic", "sci-fi"}}, []string{"b2", "b3"}},
		{"tag and query", "herbert", SearchFilters{Tags: []string{"sci-fi"}}, []string{"b3"}},
		{"no match", "tolkien", SearchFilters{}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, bookIDs(svc.SearchBooks(tt.query, tt.filters)))
		})
	}
}

func TestLibraryService_SearchBooks_FoldsUnicode(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Der Große Gatsby")

	assert.Len(t, svc.SearchBooks("GROSSE", SearchFilters{}), 1)
}

func TestLibraryService_LibraryStats(t *testing.T) {
	svc, _, clock := setupTestLibrary(t)
	books := []domain.BookInput{
		{ID: "b1", Title: "Dune", Authors: []string{"Frank Herbert"}, Categories: []string{"Fiction"}},
		{ID: "b2", Title: "Dune Messiah", Authors: []string{"Frank Herbert"}, Categories: []string{"Fiction"}},
		{ID: "b3", Title: "Emma", Authors: []string{"Jane Austen"}, Categories: []string{"Romance"}},
		{ID: "b4", Title: "Persuasion", Authors: []string{"Jane Austen"}, Categories: []string{"Romance"}},
		{ID: "b5", Title: "Good Omens", Authors: []string{"Terry Pratchett", "Neil Gaiman"}, Categories: []string{"Fiction", "Humor"}},
		{ID: "b6", Title: "Stardust", Authors: []string{"Neil Gaiman"}, Categories: []string{"Fantasy"}},
		{ID: "b7", Title: "Beowulf"},
	}
	for _, in := range books {
		require.NotNil(t, svc.AddBook(in))
		clock.Advance(time.Minute)
	}
	custom := svc.CreateShelf("Sci-Fi", "", "")
	require.True(t, svc.AddBookToShelf("b1", custom.ID))
	require.True(t, svc.AddBookToShelf("b1", domain.ShelfRead))
	require.True(t, svc.AddBookToShelf("b2", domain.ShelfRead))

	stats := svc.LibraryStats()

	assert.Equal(t, 7, stats.TotalBooks)
	assert.Equal(t, 5, stats.TotalShelves)
	assert.Equal(t, map[string]int{
		"Want to Read": 0, "Currently Reading": 0, "Read": 2, "Favorites": 0, "Sci-Fi": 1,
	}, stats.BooksByShelf)
	assert.Equal(t, []string{"b7", "b6", "b5", "b4", "b3"}, bookIDs(stats.RecentlyAdded))
	assert.Equal(t, []domain.AuthorCount{
		{Author: "Frank Herbert", Count: 2},
		{Author: "Jane Austen", Count: 2},
		{Author: "Neil Gaiman", Count: 2},
		{Author: "Terry Pratchett", Count: 1},
		{Author: "Unknown Author", Count: 1},
	}, stats.MostReadAuthors)
	assert.Equal(t, []domain.GenreCount{
		{Genre: "Fiction", Count: 3},
		{Genre: "Romance", Count: 2},
		{Genre: "Fantasy", Count: 1},
		{Genre: "Humor", Count: 1},
	}, stats.PopularGenres)
}

func TestLibraryService_LibraryStats_Empty(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)

	stats := svc.LibraryStats()

	assert.Zero(t, stats.TotalBooks)
	assert.Equal(t, 4, stats.TotalShelves)
	assert.Empty(t, stats.RecentlyAdded)
	assert.NotNil(t, stats.MostReadAuthors)
	assert.NotNil(t, stats.PopularGenres)
}

func TestLibraryService_TagsAndNotes(t *testing.T) {
	svc, _, clock := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune")
	page := 12

	svc.AddTag("b1", "classic")
	svc.AddTag("b1", "classic")
	book := svc.AddNote("b1", "Fear is the mind-killer.", &page)

	require.NotNil(t, book)
	assert.Equal(t, []string{"classic"}, book.Tags)
	require.Len(t, book.Notes, 1)
	assert.True(t, strings.HasPrefix(book.Notes[0].ID, "note_"))
	assert.Equal(t, 12, *book.Notes[0].Page)
	assert.Equal(t, clock.Now(), book.Notes[0].CreatedAt)

	assert.Empty(t, svc.RemoveTag("b1", "classic").Tags)
	assert.Nil(t, svc.AddTag("missing", "x"))
	assert.Nil(t, svc.AddNote("missing", "x", nil))
}

func TestLibraryService_RoundTripPersistence(t *testing.T) {
	svc, gw, clock := setupTestLibrary(t)
	page := 7
	addTestBook(t, svc, "b1", "Dune", "Frank Herbert")
	svc.AddBook(domain.BookInput{
		ID:          "b2",
		Title:       "Emma",
		Authors:     []string{"Jane Austen"},
		ISBN:        domain.ISBN{ISBN10: "0141439580"},
		Pages:       474,
		Categories:  []string{"Fiction"},
		Cover:       domain.CoverLinks{Small: "s.jpg", Medium: "m.jpg", Large: "l.jpg"},
		IsEbook:     true,
		UserRating:  4.5,
		Description: "Handsome, clever, and rich.",
	})
	svc.AddTag("b2", "classic")
	svc.AddNote("b2", "Re-read chapter 3", &page)
	clock.Advance(time.Minute)
	custom := svc.CreateShelf("Sci-Fi", "Space", "#000000")
	require.True(t, svc.AddBookToShelf("b1", custom.ID))
	require.True(t, svc.AddBookToShelf("b2", domain.ShelfRead))
	require.True(t, svc.AddBookToShelf("b1", domain.ShelfRead))

	reloaded := NewLibraryService(gw, testLogger())

	if diff := cmp.Diff(svc.Books(), reloaded.Books()); diff != "" {
		t.Errorf("books differ after reload (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(svc.AllShelves(), reloaded.AllShelves()); diff != "" {
		t.Errorf("shelves differ after reload (-want +got):\n%s", diff)
	}
}

func TestLibraryService_PersistenceFailureKeepsMemoryState(t *testing.T) {
	svc := NewLibraryService(store.New(failingBackend{}, testLogger()), testLogger())

	addTestBook(t, svc, "b1", "Dune")

	assert.True(t, svc.AddBookToShelf("b1", domain.ShelfRead))
	assert.Equal(t, []string{"b1"}, bookIDs(svc.BooksFromShelf(domain.ShelfRead)))
}

type recordingListener struct {
	mu      sync.Mutex
	removed []string
}

func (l *recordingListener) BookRemoved(bookID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removed = append(l.removed, bookID)
}

func TestLibraryService_RemoveBook_NotifiesListener(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	listener := &recordingListener{}
	svc.SetRemovalListener(listener)
	addTestBook(t, svc, "b1", "Dune")

	svc.RemoveBook("b1")
	svc.RemoveBook("b1")

	assert.Equal(t, []string{"b1"}, listener.removed)
}

type fakeIndexer struct {
	mu      sync.Mutex
	indexed map[string]string
	results []string
	params  search.Params
	err     error
}

func newFakeIndexer() *fakeIndexer {
	return &fakeIndexer{indexed: make(map[string]string)}
}

func (f *fakeIndexer) IndexBook(_ context.Context, book *domain.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.indexed[book.ID] = book.Title
	return nil
}

func (f *fakeIndexer) DeleteBook(_ context.Context, bookID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, bookID)
	return nil
}

func (f *fakeIndexer) ReplaceAll(_ context.Context, books []*domain.Book) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed = make(map[string]string, len(books))
	for _, b := range books {
		f.indexed[b.ID] = b.Title
	}
	return nil
}

func (f *fakeIndexer) Query(_ context.Context, params search.Params) (*search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.params = params
	result := &search.Result{Query: params.Query, Total: uint64(len(f.results))}
	for i, bookID := range f.results {
		result.Hits = append(result.Hits, search.Hit{ID: bookID, Score: float64(len(f.results) - i)})
	}
	return result, nil
}

func hitBookIDs(result *FullTextResult) []string {
	ids := make([]string, len(result.Hits))
	for i, h := range result.Hits {
		ids[i] = h.Book.ID
	}
	return ids
}

func textQuery(q string, limit int) search.Params {
	params := search.DefaultParams()
	params.Query = q
	params.Limit = limit
	return params
}

func TestLibraryService_KeepsIndexerInSync(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	indexer := newFakeIndexer()
	svc.SetIndexer(indexer)

	addTestBook(t, svc, "b1", "Dune")
	addTestBook(t, svc, "b2", "Emma")
	title := "Dune (1965)"
	svc.UpdateBook("b1", domain.BookUpdate{Title: &title})
	svc.RemoveBook("b2")

	assert.Equal(t, map[string]string{"b1": "Dune (1965)"}, indexer.indexed)
}

func TestLibraryService_IndexFailureDoesNotBlockMutation(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	indexer := newFakeIndexer()
	indexer.err = errors.Internal("index closed")
	svc.SetIndexer(indexer)

	assert.NotNil(t, svc.AddBook(domain.BookInput{ID: "b1"}))
	assert.NotNil(t, svc.GetBook("b1"))
}

func TestLibraryService_FullTextSearch(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune")
	addTestBook(t, svc, "b2", "Emma")

	_, err := svc.FullTextSearch(ctx, textQuery("dune", 10))
	assert.ErrorIs(t, err, ErrSearchDisabled)
	assert.ErrorIs(t, svc.Reindex(ctx), ErrSearchDisabled)

	indexer := newFakeIndexer()
	indexer.results = []string{"b2", "gone", "b1"}
	svc.SetIndexer(indexer)

	result, err := svc.FullTextSearch(ctx, textQuery("anything", 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"b2", "b1"}, hitBookIDs(result))
	assert.Equal(t, uint64(3), result.Total)
	assert.Equal(t, search.DefaultParams().Limit, indexer.params.Limit)

	require.NoError(t, svc.Reindex(ctx))
	assert.Len(t, indexer.indexed, 2)
}

func TestLibraryService_ReindexDropsRemovedBooks(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTestLibrary(t)
	index, err := search.NewIndex(search.Options{})
	require.NoError(t, err)
	defer index.Close()

	svc.SetIndexer(index)
	addTestBook(t, svc, "a", "Dune Dune Dune")
	addTestBook(t, svc, "b", "Dune Messiah")

	// Removed while the index is detached, so its document goes stale.
	svc.SetIndexer(nil)
	require.True(t, svc.RemoveBook("a"))
	svc.SetIndexer(index)

	require.NoError(t, svc.Reindex(ctx))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	result, err := svc.FullTextSearch(ctx, textQuery("dune", 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, hitBookIDs(result))
	assert.Equal(t, uint64(1), result.Total)
}

type fakeCatalog struct {
	volumes map[string]domain.BookInput
}

func (f fakeCatalog) GetDetails(_ context.Context, volumeID string) (domain.BookInput, error) {
	in, ok := f.volumes[volumeID]
	if !ok {
		return domain.BookInput{}, errors.NotFoundf("volume %s not found", volumeID)
	}
	return in, nil
}

func TestLibraryService_AddFromCatalog(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupTestLibrary(t)
	catalog := fakeCatalog{volumes: map[string]domain.BookInput{
		"vol-1": {Title: "Dune", Authors: []string{"Frank Herbert"}},
	}}

	book, err := svc.AddFromCatalog(ctx, catalog, "vol-1")
	require.NoError(t, err)
	assert.Equal(t, "vol-1", book.ID)
	assert.Equal(t, "Dune", book.Title)

	_, err = svc.AddFromCatalog(ctx, catalog, "vol-404")
	assert.True(t, errors.Is(err, errors.ErrNotFound))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = svc.AddFromCatalog(cancelled, catalog, "vol-1")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLibraryService_ConcurrentMembership(t *testing.T) {
	svc, _, _ := setupTestLibrary(t)
	addTestBook(t, svc, "b1", "Dune")

	var wg sync.WaitGroup
	results := make(chan bool, 20)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.AddBookToShelf("b1", domain.ShelfFavorites)
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for ok := range results {
		if ok {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, []string{"b1"}, svc.GetShelf(domain.ShelfFavorites).BookIDs)
}

type failingBackend struct{}

func (failingBackend) Get(string) ([]byte, error) {
	return nil, errors.Storage(io.ErrClosedPipe, "get")
}

func (failingBackend) Put(string, []byte) error {
	return errors.Storage(io.ErrClosedPipe, "put")
}

func (failingBackend) Delete(string) error {
	return errors.Storage(io.ErrClosedPipe, "delete")
}

func (failingBackend) Keys() ([]string, error) { return nil, nil }

func (failingBackend) Close() error { return nil }

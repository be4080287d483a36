package service

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/bookwise/bookwise/internal/domain"
)

// SearchFilters narrows SearchBooks. Zero values disable a filter.
type SearchFilters struct {
	ShelfID string   // Only books on this shelf
	Tags    []string // Books carrying at least one of these tags
}

// BooksFromShelf returns the shelf's books in shelf order. Ids whose book no
// longer exists are skipped. Returns nil if the shelf does not exist.
func (s *LibraryService) BooksFromShelf(shelfID string) []*domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()

	shelf, ok := s.shelves[shelfID]
	if !ok {
		return nil
	}
	books := make([]*domain.Book, 0, len(shelf.BookIDs))
	for _, bookID := range shelf.BookIDs {
		if b, ok := s.books[bookID]; ok {
			books = append(books, b.Clone())
		}
	}
	return books
}

// ShelvesForBook returns every shelf holding the book, in display order.
func (s *LibraryService) ShelvesForBook(bookID string) []*domain.Shelf {
	return s.filterShelves(func(sh *domain.Shelf) bool {
		return sh.ContainsBook(bookID)
	})
}

// SearchBooks matches query as a case-insensitive substring of the title, any
// author or the description, then applies the filters. An empty query matches
// every book. Results are ordered by added date, oldest first.
func (s *LibraryService) SearchBooks(query string, filters SearchFilters) []*domain.Book {
	// cases.Caser is stateful and not safe for concurrent use.
	fold := cases.Fold()
	needle := fold.String(strings.TrimSpace(query))

	s.mu.Lock()
	defer s.mu.Unlock()

	var shelf *domain.Shelf
	if filters.ShelfID != "" {
		sh, ok := s.shelves[filters.ShelfID]
		if !ok {
			return []*domain.Book{}
		}
		shelf = sh
	}

	results := []*domain.Book{}
	for _, b := range s.books {
		if shelf != nil && !shelf.ContainsBook(b.ID) {
			continue
		}
		if len(filters.Tags) > 0 && !slices.ContainsFunc(filters.Tags, b.HasTag) {
			continue
		}
		if needle != "" && !matchesQuery(fold, b, needle) {
			continue
		}
		results = append(results, b.Clone())
	}
	sortByAddedDate(results)
	return results
}

func matchesQuery(fold cases.Caser, b *domain.Book, needle string) bool {
	if strings.Contains(fold.String(b.Title), needle) {
		return true
	}
	for _, a := range b.Authors {
		if strings.Contains(fold.String(a), needle) {
			return true
		}
	}
	return strings.Contains(fold.String(b.Description), needle)
}

// LibraryStats aggregates the library. It has no side effects.
// BooksByShelf is keyed by shelf name; when two shelves share a name the
// later one in display order wins.
func (s *LibraryService) LibraryStats() domain.LibraryStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := domain.LibraryStats{
		TotalBooks:   len(s.books),
		TotalShelves: len(s.shelves),
		BooksByShelf: make(map[string]int, len(s.shelves)),
	}
	for _, sh := range s.orderedShelves() {
		stats.BooksByShelf[sh.Name] = sh.BookCount()
	}

	authors := make(map[string]int)
	genres := make(map[string]int)
	recent := make([]*domain.Book, 0, len(s.books))
	for _, b := range s.books {
		for _, a := range b.Authors {
			authors[a]++
		}
		for _, g := range b.Categories {
			genres[g]++
		}
		recent = append(recent, b)
	}

	slices.SortFunc(recent, func(a, b *domain.Book) int {
		if c := b.AddedDate.Compare(a.AddedDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	stats.RecentlyAdded = make([]*domain.Book, 0, domain.TopN)
	for _, b := range recent[:min(len(recent), domain.TopN)] {
		stats.RecentlyAdded = append(stats.RecentlyAdded, b.Clone())
	}

	for _, e := range topCounts(authors) {
		stats.MostReadAuthors = append(stats.MostReadAuthors, domain.AuthorCount{Author: e.name, Count: e.count})
	}
	for _, e := range topCounts(genres) {
		stats.PopularGenres = append(stats.PopularGenres, domain.GenreCount{Genre: e.name, Count: e.count})
	}
	if stats.MostReadAuthors == nil {
		stats.MostReadAuthors = []domain.AuthorCount{}
	}
	if stats.PopularGenres == nil {
		stats.PopularGenres = []domain.GenreCount{}
	}
	return stats
}

type nameCount struct {
	name  string
	count int
}

// topCounts ranks by count descending, then name ascending, and keeps TopN.
func topCounts(counts map[string]int) []nameCount {
	ranked := make([]nameCount, 0, len(counts))
	for name, n := range counts {
		ranked = append(ranked, nameCount{name: name, count: n})
	}
	slices.SortFunc(ranked, func(a, b nameCount) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	return ranked[:min(len(ranked), domain.TopN)]
}

package domain

import (
	"fmt"
	"slices"
	"time"
)

// ShelfType distinguishes the protected built-in shelves from user-created ones.
type ShelfType uint8

const (
	// ShelfCustom is a user-created shelf. It can be renamed and deleted.
	ShelfCustom ShelfType = iota
	// ShelfDefault is one of the built-in shelves. It can never be deleted.
	ShelfDefault
)

// String returns the persisted form of the type.
func (t ShelfType) String() string {
	if t == ShelfDefault {
		return "default"
	}
	return "custom"
}

// MarshalText encodes the type as "default" or "custom".
func (t ShelfType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText decodes the persisted form. Anything other than "default" is custom.
func (t *ShelfType) UnmarshalText(b []byte) error {
	if string(b) == "default" {
		*t = ShelfDefault
	} else {
		*t = ShelfCustom
	}
	return nil
}

// Well-known ids of the default shelves.
const (
	ShelfWantToRead       = "want-to-read"
	ShelfCurrentlyReading = "currently-reading"
	ShelfRead             = "read"
	ShelfFavorites        = "favorites"
)

// DefaultShelfSpec names one built-in shelf.
type DefaultShelfSpec struct {
	ID   string
	Name string
}

// DefaultShelfSpecs lists the built-in shelves in display order.
var DefaultShelfSpecs = []DefaultShelfSpec{
	{ID: ShelfWantToRead, Name: "Want to Read"},
	{ID: ShelfCurrentlyReading, Name: "Currently Reading"},
	{ID: ShelfRead, Name: "Read"},
	{ID: ShelfFavorites, Name: "Favorites"},
}

// DefaultShelfRank returns the display position of a default shelf id, or -1.
func DefaultShelfRank(id string) int {
	return slices.IndexFunc(DefaultShelfSpecs, func(s DefaultShelfSpec) bool {
		return s.ID == id
	})
}

// Shelf is a named, ordered collection of book ids.
// A book may sit on any number of shelves; BookIDs holds each id at most once.
type Shelf struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        ShelfType `json:"type"`
	BookIDs     []string  `json:"bookIds"` // Insertion ordered, unique
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Color       string    `json:"color,omitempty"`
	Description string    `json:"description"`
}

// NewDefaultShelf builds one of the built-in shelves.
func NewDefaultShelf(spec DefaultShelfSpec, now time.Time) *Shelf {
	return &Shelf{
		ID:        spec.ID,
		Name:      spec.Name,
		Type:      ShelfDefault,
		BookIDs:   []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewCustomShelf builds a user shelf.
func NewCustomShelf(id, name, description, color string, now time.Time) *Shelf {
	return &Shelf{
		ID:          id,
		Name:        name,
		Type:        ShelfCustom,
		BookIDs:     []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
		Color:       color,
		Description: description,
	}
}

// IsDefault reports whether the shelf is protected.
func (s *Shelf) IsDefault() bool {
	return s.Type == ShelfDefault
}

// AddBook appends a book id. Returns false if it is already on the shelf.
func (s *Shelf) AddBook(bookID string, now time.Time) bool {
	if slices.Contains(s.BookIDs, bookID) {
		return false
	}
	s.BookIDs = append(s.BookIDs, bookID)
	s.UpdatedAt = now
	return true
}

// RemoveBook removes a book id. Returns false if it was not present.
func (s *Shelf) RemoveBook(bookID string, now time.Time) bool {
	i := slices.Index(s.BookIDs, bookID)
	if i < 0 {
		return false
	}
	s.BookIDs = slices.Delete(s.BookIDs, i, i+1)
	s.UpdatedAt = now
	return true
}

// MoveBook moves the id at position from to position to, shifting the rest.
func (s *Shelf) MoveBook(from, to int, now time.Time) bool {
	n := len(s.BookIDs)
	if from < 0 || from >= n || to < 0 || to >= n {
		return false
	}
	if from == to {
		return true
	}
	id := s.BookIDs[from]
	s.BookIDs = slices.Delete(s.BookIDs, from, from+1)
	s.BookIDs = slices.Insert(s.BookIDs, to, id)
	s.UpdatedAt = now
	return true
}

// ContainsBook checks if a book ID is on this shelf.
func (s *Shelf) ContainsBook(bookID string) bool {
	return slices.Contains(s.BookIDs, bookID)
}

// BookCount returns the number of books on the shelf.
func (s *Shelf) BookCount() int {
	return len(s.BookIDs)
}

// ShelfUpdate carries a partial shelf update. ID, type and membership are not updatable here.
type ShelfUpdate struct {
	Name        *string
	Description *string
	Color       *string
}

// Apply merges the update and bumps UpdatedAt.
func (s *Shelf) Apply(u ShelfUpdate, now time.Time) {
	setIf(&s.Name, u.Name)
	setIf(&s.Description, u.Description)
	setIf(&s.Color, u.Color)
	s.UpdatedAt = now
}

// Normalize repairs a shelf decoded from storage.
func (s *Shelf) Normalize() {
	if s.BookIDs == nil {
		s.BookIDs = []string{}
		return
	}
	// Older documents may carry duplicates.
	s.BookIDs = dedupe(s.BookIDs)
}

// Clone returns a deep copy.
func (s *Shelf) Clone() *Shelf {
	if s == nil {
		return nil
	}
	c := *s
	c.BookIDs = slices.Clone(s.BookIDs)
	if c.BookIDs == nil {
		c.BookIDs = []string{}
	}
	return &c
}

// String implements fmt.Stringer for log output.
func (s *Shelf) String() string {
	return fmt.Sprintf("%s(%s, %d books)", s.ID, s.Type, len(s.BookIDs))
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

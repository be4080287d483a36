// Package domain contains the core entities of the Bookwise reading tracker:
// books adopted into a personal library, the shelves that organize them and
// the reading progress tracked per book.
package domain

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Defaults applied when catalog data leaves a field empty.
const (
	DefaultTitle       = "Unknown Title"
	DefaultAuthor      = "Unknown Author"
	DefaultPublisher   = "Unknown Publisher"
	DefaultDescription = "No description available."
	DefaultLanguage    = "en"
)

// Book is a catalog item adopted into the user's library.
// ID is assigned by the external catalog and never changes once set.
type Book struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Authors       []string   `json:"authors"`
	Publisher     string     `json:"publisher"`
	PublishedDate string     `json:"publishedDate"` // Free-form, often just a year
	Description   string     `json:"description"`
	ISBN          ISBN       `json:"isbn"`
	Pages         int        `json:"pages"`
	Categories    []string   `json:"categories"`
	Language      string     `json:"language"`
	Cover         CoverLinks `json:"cover"`
	PreviewLink   string     `json:"previewLink"`
	InfoLink      string     `json:"infoLink"`
	IsEbook       bool       `json:"isEbook"`
	AverageRating float64    `json:"averageRating"`
	RatingsCount  int        `json:"ratingsCount"`

	// User-owned fields.
	AddedDate  time.Time `json:"addedDate"`
	UserRating float64   `json:"userRating"`
	UserReview string    `json:"userReview"`
	Tags       []string  `json:"tags"` // Set semantics, insertion ordered
	Notes      []Note    `json:"notes"`
}

// ISBN holds the optional identifiers of a book.
type ISBN struct {
	ISBN10 string `json:"isbn10,omitempty"`
	ISBN13 string `json:"isbn13,omitempty"`
}

// CoverLinks holds cover image URLs at three sizes.
type CoverLinks struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
	Large  string `json:"large"`
}

// Note is a free-text annotation on a book, optionally tied to a page.
type Note struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Page      *int      `json:"page"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BookInput is the loosely populated record a catalog lookup produces.
// Zero values mean "not provided" and are replaced by defaults in NewBook.
type BookInput struct {
	ID            string
	Title         string
	Authors       []string
	Publisher     string
	PublishedDate string
	Description   string
	ISBN          ISBN
	Pages         int
	Categories    []string
	Language      string
	Cover         CoverLinks
	PreviewLink   string
	InfoLink      string
	IsEbook       bool
	AverageRating float64
	RatingsCount  int

	AddedDate  time.Time
	UserRating float64
	UserReview string
	Tags       []string
	Notes      []Note
}

// NewBook builds a Book from catalog input, filling every missing field with
// its default so partially populated records never leave a field unset.
// A zero AddedDate becomes now.
func NewBook(in BookInput, now time.Time) *Book {
	b := &Book{
		ID:            in.ID,
		Title:         orDefault(in.Title, DefaultTitle),
		Authors:       slices.Clone(in.Authors),
		Publisher:     orDefault(in.Publisher, DefaultPublisher),
		PublishedDate: in.PublishedDate,
		Description:   orDefault(in.Description, DefaultDescription),
		ISBN:          in.ISBN,
		Pages:         max(in.Pages, 0),
		Categories:    slices.Clone(in.Categories),
		Language:      orDefault(in.Language, DefaultLanguage),
		Cover:         in.Cover,
		PreviewLink:   in.PreviewLink,
		InfoLink:      in.InfoLink,
		IsEbook:       in.IsEbook,
		AverageRating: in.AverageRating,
		RatingsCount:  in.RatingsCount,
		AddedDate:     in.AddedDate,
		UserRating:    in.UserRating,
		UserReview:    in.UserReview,
		Tags:          normalizeTags(in.Tags),
		Notes:         slices.Clone(in.Notes),
	}
	if len(b.Authors) == 0 {
		b.Authors = []string{DefaultAuthor}
	}
	if b.Categories == nil {
		b.Categories = []string{}
	}
	if b.Notes == nil {
		b.Notes = []Note{}
	}
	if b.AddedDate.IsZero() {
		b.AddedDate = now
	}
	return b
}

// Normalize fills defaults on a book decoded from storage.
// Documents written by older versions may lack fields.
func (b *Book) Normalize() {
	if b.Title == "" {
		b.Title = DefaultTitle
	}
	if len(b.Authors) == 0 {
		b.Authors = []string{DefaultAuthor}
	}
	if b.Publisher == "" {
		b.Publisher = DefaultPublisher
	}
	if b.Description == "" {
		b.Description = DefaultDescription
	}
	if b.Language == "" {
		b.Language = DefaultLanguage
	}
	if b.Categories == nil {
		b.Categories = []string{}
	}
	b.Tags = normalizeTags(b.Tags)
	if b.Notes == nil {
		b.Notes = []Note{}
	}
}

// BookUpdate carries a partial update. Nil fields are left untouched.
// The ID is deliberately absent: it cannot be changed.
type BookUpdate struct {
	Title         *string
	Authors       []string
	Publisher     *string
	PublishedDate *string
	Description   *string
	ISBN          *ISBN
	Pages         *int
	Categories    []string
	Language      *string
	Cover         *CoverLinks
	PreviewLink   *string
	InfoLink      *string
	IsEbook       *bool
	AverageRating *float64
	RatingsCount  *int
	UserRating    *float64
	UserReview    *string
	Tags          []string
	Notes         []Note
}

// Apply merges the update into the book, last write wins.
func (b *Book) Apply(u BookUpdate) {
	setIf(&b.Title, u.Title)
	if u.Authors != nil {
		b.Authors = slices.Clone(u.Authors)
	}
	setIf(&b.Publisher, u.Publisher)
	setIf(&b.PublishedDate, u.PublishedDate)
	setIf(&b.Description, u.Description)
	setIf(&b.ISBN, u.ISBN)
	if u.Pages != nil {
		b.Pages = max(*u.Pages, 0)
	}
	if u.Categories != nil {
		b.Categories = slices.Clone(u.Categories)
	}
	setIf(&b.Language, u.Language)
	setIf(&b.Cover, u.Cover)
	setIf(&b.PreviewLink, u.PreviewLink)
	setIf(&b.InfoLink, u.InfoLink)
	setIf(&b.IsEbook, u.IsEbook)
	setIf(&b.AverageRating, u.AverageRating)
	setIf(&b.RatingsCount, u.RatingsCount)
	setIf(&b.UserRating, u.UserRating)
	setIf(&b.UserReview, u.UserReview)
	if u.Tags != nil {
		b.Tags = normalizeTags(u.Tags)
	}
	if u.Notes != nil {
		b.Notes = slices.Clone(u.Notes)
	}
}

// AddTag adds a tag if not already present. Returns false for duplicates and blanks.
func (b *Book) AddTag(tag string) bool {
	tag = normalizeTag(tag)
	if tag == "" || slices.Contains(b.Tags, tag) {
		return false
	}
	b.Tags = append(b.Tags, tag)
	return true
}

// RemoveTag removes a tag. Returns false if it was not present.
func (b *Book) RemoveTag(tag string) bool {
	tag = normalizeTag(tag)
	i := slices.Index(b.Tags, tag)
	if i < 0 {
		return false
	}
	b.Tags = slices.Delete(b.Tags, i, i+1)
	return true
}

// HasTag reports whether the book carries the tag.
func (b *Book) HasTag(tag string) bool {
	return slices.Contains(b.Tags, normalizeTag(tag))
}

// AddNote appends a note.
func (b *Book) AddNote(noteID, content string, page *int, now time.Time) Note {
	note := Note{
		ID:        noteID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if page != nil {
		p := *page
		note.Page = &p
	}
	b.Notes = append(b.Notes, note)
	return note
}

// Clone returns a deep copy.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	c := *b
	c.Authors = slices.Clone(b.Authors)
	c.Categories = slices.Clone(b.Categories)
	c.Tags = slices.Clone(b.Tags)
	c.Notes = make([]Note, len(b.Notes))
	for i, n := range b.Notes {
		c.Notes[i] = n
		if n.Page != nil {
			p := *n.Page
			c.Notes[i].Page = &p
		}
	}
	return &c
}

// normalizeTag trims whitespace and applies NFC so visually identical tags compare equal.
func normalizeTag(tag string) string {
	return norm.NFC.String(strings.TrimSpace(tag))
}

// normalizeTags normalizes and de-duplicates, keeping first occurrence order.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = normalizeTag(t)
		if t == "" || slices.Contains(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

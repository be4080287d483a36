// Package search provides full-text search over the library using Bleve.
// Books are indexed with their descriptive fields plus the user's tags,
// and queries combine stemmed matching, typo tolerance and prefix matching.
package search

import (
	"strings"

	"github.com/bookwise/bookwise/internal/domain"
)

// BookDocument is the indexed form of a library book.
type BookDocument struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Authors     string   `json:"authors"` // Joined for phrase matching
	Description string   `json:"description,omitempty"`
	Publisher   string   `json:"publisher,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Language    string   `json:"language,omitempty"`
	Pages       int      `json:"pages,omitempty"`
	AddedAt     int64    `json:"added_at"` // Unix millis
}

// NewBookDocument builds the index document for a book.
func NewBookDocument(b *domain.Book) *BookDocument {
	return &BookDocument{
		ID:          b.ID,
		Title:       b.Title,
		Authors:     strings.Join(b.Authors, ", "),
		Description: b.Description,
		Publisher:   b.Publisher,
		Categories:  lowerAll(b.Categories),
		Tags:        lowerAll(b.Tags),
		Language:    b.Language,
		Pages:       b.Pages,
		AddedAt:     b.AddedDate.UnixMilli(),
	}
}

// ToMap converts the document to a map with lowercase field names.
// This ensures field names match the Bleve index mapping.
func (d *BookDocument) ToMap() map[string]any {
	m := map[string]any{
		"id":       d.ID,
		"title":    d.Title,
		"authors":  d.Authors,
		"added_at": d.AddedAt,
	}
	if d.Description != "" {
		m["description"] = d.Description
	}
	if d.Publisher != "" {
		m["publisher"] = d.Publisher
	}
	if len(d.Categories) > 0 {
		m["categories"] = d.Categories
	}
	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.Language != "" {
		m["language"] = d.Language
	}
	if d.Pages > 0 {
		m["pages"] = d.Pages
	}
	return m
}

// Keyword fields are matched exactly, so case is normalized on the way in.
func lowerAll(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

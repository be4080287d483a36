// Package catalog normalizes external book catalog records into library
// input. Records follow the Google Books volume shape.
package catalog

import (
	"strings"

	"github.com/bookwise/bookwise/internal/domain"
)

// Industry identifier types carrying ISBNs.
const (
	identifierISBN10 = "ISBN_10"
	identifierISBN13 = "ISBN_13"
)

// Volume is a catalog record as returned by a volumes lookup.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
	AccessInfo AccessInfo `json:"accessInfo"`
}

// VolumeInfo holds the descriptive part of a volume.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Authors             []string             `json:"authors"`
	Publisher           string               `json:"publisher"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"` // May contain HTML
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
	PageCount           int                  `json:"pageCount"`
	Categories          []string             `json:"categories"`
	Language            string               `json:"language"`
	ImageLinks          *ImageLinks          `json:"imageLinks,omitempty"`
	PreviewLink         string               `json:"previewLink"`
	InfoLink            string               `json:"infoLink"`
	AverageRating       float64              `json:"averageRating"`
	RatingsCount        int                  `json:"ratingsCount"`
}

// IndustryIdentifier is a typed identifier such as an ISBN.
type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// ImageLinks holds the cover image URLs a catalog may provide.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
	Small          string `json:"small"`
	Medium         string `json:"medium"`
	Large          string `json:"large"`
}

// AccessInfo holds availability flags.
type AccessInfo struct {
	Embeddable bool `json:"embeddable"`
}

// ToBookInput converts a volume into library input. Missing fields stay
// zero and are defaulted when the book is built.
func ToBookInput(v *Volume) domain.BookInput {
	info := v.VolumeInfo
	return domain.BookInput{
		ID:            v.ID,
		Title:         strings.TrimSpace(info.Title),
		Authors:       info.Authors,
		Publisher:     info.Publisher,
		PublishedDate: info.PublishedDate,
		Description:   DescriptionMarkdown(info.Description),
		ISBN:          ExtractISBN(info.IndustryIdentifiers),
		Pages:         info.PageCount,
		Categories:    info.Categories,
		Language:      info.Language,
		Cover:         coverLinks(info.ImageLinks),
		PreviewLink:   info.PreviewLink,
		InfoLink:      info.InfoLink,
		IsEbook:       v.AccessInfo.Embeddable,
		AverageRating: info.AverageRating,
		RatingsCount:  info.RatingsCount,
	}
}

// ExtractISBN picks the ISBN-10 and ISBN-13 identifiers. Later entries of
// the same type win.
func ExtractISBN(ids []IndustryIdentifier) domain.ISBN {
	var isbn domain.ISBN
	for _, id := range ids {
		switch id.Type {
		case identifierISBN13:
			isbn.ISBN13 = id.Identifier
		case identifierISBN10:
			isbn.ISBN10 = id.Identifier
		}
	}
	return isbn
}

// coverLinks maps catalog image sizes onto the three cover slots.
// The large slot falls back to the thumbnail.
func coverLinks(links *ImageLinks) domain.CoverLinks {
	if links == nil {
		return domain.CoverLinks{}
	}
	return domain.CoverLinks{
		Small:  links.Thumbnail,
		Medium: links.Small,
		Large:  firstNonEmpty(links.Medium, links.Thumbnail),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

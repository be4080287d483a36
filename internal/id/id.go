// Package id generates identifiers for shelves, notes and books created locally.
package id

import (
	"fmt"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet omits '_' and '-' so the separator stays unambiguous.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// suffixLen is the length of the random part.
const suffixLen = 10

// Generate creates a timestamp-derived ID with a random NanoID suffix.
// Format: prefix_unixmillis_suffix (e.g., "shelf_1735689600000_V1StGXR8Z5").
//
// The millisecond timestamp keeps IDs roughly sortable by creation time; the
// suffix prevents two IDs minted within the same millisecond from colliding.
func Generate(prefix string) (string, error) {
	return GenerateAt(prefix, time.Now())
}

// GenerateAt is Generate with an explicit timestamp.
func GenerateAt(prefix string, at time.Time) (string, error) {
	suffix, err := gonanoid.Generate(alphabet, suffixLen)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	return prefix + "_" + strconv.FormatInt(at.UnixMilli(), 10) + "_" + suffix, nil
}

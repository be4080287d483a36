package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/bookwise/bookwise/internal/domain"
	"github.com/bookwise/bookwise/internal/search"
	"github.com/bookwise/bookwise/internal/service"
)

// cli runs commands against one data directory.
type cli struct {
	t       *testing.T
	dataDir string
	backend string
	extra   []string
}

func setupTestCLI(t *testing.T, backend string) *cli {
	t.Helper()
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("CATALOG_DIR", "")
	return &cli{t: t, dataDir: t.TempDir(), backend: backend}
}

func (c *cli) args(args ...string) []string {
	base := []string{
		"--env-file", filepath.Join(c.dataDir, "missing.env"),
		"--data-path", c.dataDir,
		"--storage", c.backend,
	}
	base = append(base, c.extra...)
	return append(base, args...)
}

// run executes a command and returns stdout, failing the test on error.
func (c *cli) run(args ...string) string {
	c.t.Helper()
	out, errOut, code := c.exec("", args...)
	require.Equal(c.t, 0, code, "stderr: %s", errOut)
	return out
}

func (c *cli) exec(stdin string, args ...string) (string, string, int) {
	var out, errOut bytes.Buffer
	code := run(c.args(args...), strings.NewReader(stdin), &out, &errOut)
	return out.String(), errOut.String(), code
}

func (c *cli) json(dest any, args ...string) {
	c.t.Helper()
	out := c.run(append([]string{"-o", "json"}, args...)...)
	require.NoError(c.t, json.Unmarshal([]byte(out), dest), out)
}

func TestCLI_ShelfScenario(t *testing.T) {
	c := setupTestCLI(t, "sqlite")

	c.run("book", "add", "B1", "--title", "Dune", "--author", "Frank Herbert", "--pages", "412")

	var added membership
	c.json(&added, "shelf", "add", "B1", domain.ShelfWantToRead)
	assert.True(t, added.Changed)

	var moved membership
	c.json(&moved, "shelf", "move", "B1", domain.ShelfWantToRead, domain.ShelfCurrentlyReading)
	assert.True(t, moved.Changed)

	var reading []*domain.Book
	c.json(&reading, "books", "--shelf", domain.ShelfCurrentlyReading)
	require.Len(t, reading, 1)
	assert.Equal(t, "Dune", reading[0].Title)

	var removed map[string]string
	c.json(&removed, "book", "remove", "B1")
	assert.Equal(t, "B1", removed["removed"])

	var shelves []*domain.Shelf
	c.json(&shelves, "shelves")
	require.Len(t, shelves, len(domain.DefaultShelfSpecs))
	for _, s := range shelves {
		assert.Empty(t, s.BookIDs, s.ID)
	}
}

func TestCLI_ProgressScenario(t *testing.T) {
	c := setupTestCLI(t, "badger")
	c.run("book", "add", "B2", "--title", "Emma", "--pages", "300")

	var p domain.ReadingProgress
	c.json(&p, "progress", "set", "B2", "150")
	assert.Equal(t, 150, p.CurrentPage)
	assert.Equal(t, 300, p.TotalPages)
	assert.InDelta(t, 50.0, p.Percentage, 0.001)

	c.json(&p, "progress", "set", "B2", "500")
	assert.Equal(t, 300, p.CurrentPage)
	assert.True(t, p.IsCompleted)
	require.NotNil(t, p.FinishDate)

	c.json(&p, "progress", "reset", "B2")
	assert.Equal(t, 0, p.CurrentPage)
	assert.Nil(t, p.FinishDate)

	var result service.SessionResult
	c.json(&result, "read", "B2", "--to", "40")
	assert.Equal(t, 40, result.PagesRead)
	assert.True(t, result.Recorded)

	var view struct {
		CurrentPage int              `json:"currentPage"`
		Stats       domain.BookStats `json:"stats"`
	}
	c.json(&view, "progress", "B2")
	assert.Equal(t, 40, view.CurrentPage)
	assert.Equal(t, 1, view.Stats.TotalSessions)
}

func TestCLI_ReadPromptsForPage(t *testing.T) {
	c := setupTestCLI(t, "sqlite")
	c.run("book", "add", "B3", "--title", "Persuasion", "--pages", "250")

	out, errOut, code := c.exec("25\n", "-o", "json", "read", "B3")

	require.Equal(t, 0, code, errOut)
	assert.Contains(t, errOut, "enter the page you reached")
	var result service.SessionResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, 25, result.PagesRead)
}

func TestCLI_SearchAndStats(t *testing.T) {
	c := setupTestCLI(t, "badger")
	c.run("book", "add", "B1", "--title", "Dune", "--author", "Frank Herbert", "--tag", "sci-fi")
	c.run("book", "add", "B2", "--title", "Emma", "--author", "Jane Austen", "--tag", "classic")

	var found []*domain.Book
	c.json(&found, "search", "herbert")
	require.Len(t, found, 1)
	assert.Equal(t, "B1", found[0].ID)

	c.json(&found, "search", "--tag", "classic")
	require.Len(t, found, 1)
	assert.Equal(t, "B2", found[0].ID)

	var ranked service.FullTextResult
	c.json(&ranked, "search", "--full-text", "austen")
	require.Len(t, ranked.Hits, 1)
	assert.Equal(t, "B2", ranked.Hits[0].Book.ID)

	var stats statsView
	c.json(&stats, "stats")
	assert.Equal(t, 2, stats.Library.TotalBooks)
	assert.Equal(t, len(domain.DefaultShelfSpecs), stats.Library.TotalShelves)
}

func TestCLI_FullTextFiltersAndFacets(t *testing.T) {
	c := setupTestCLI(t, "badger")
	c.run("book", "add", "B1", "--title", "Dune", "--pages", "412", "--category", "Fiction", "--tag", "sci-fi")
	c.run("book", "add", "B2", "--title", "Emma", "--pages", "300", "--category", "Fiction", "--tag", "classic")
	c.run("book", "add", "B3", "--title", "Walden", "--pages", "200", "--category", "Nature", "--tag", "classic")

	var result service.FullTextResult
	c.json(&result, "search", "--full-text", "--category", "fiction", "--sort", "pages", "--order", "asc")

	assert.Equal(t, uint64(2), result.Total)
	require.Len(t, result.Hits, 2)
	assert.Equal(t, "B2", result.Hits[0].Book.ID)
	assert.Equal(t, "B1", result.Hits[1].Book.ID)
	assert.ElementsMatch(t, []search.FacetCount{{Value: "sci-fi", Count: 1}, {Value: "classic", Count: 1}}, result.Facets.Tags)

	c.json(&result, "search", "--full-text", "--tag", "classic", "--sort", "pages", "--order", "asc", "--offset", "1")
	assert.Equal(t, uint64(2), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "B2", result.Hits[0].Book.ID)

	_, errOut, code := c.exec("", "search", "--full-text", "--sort", "rating")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown sort")
}

func TestCLI_ReindexDropsRemovedBooks(t *testing.T) {
	c := setupTestCLI(t, "sqlite")
	c.run("book", "add", "B1", "--title", "Dune")
	c.run("book", "add", "B2", "--title", "Dune Messiah")

	c.extra = []string{"--no-search"}
	c.run("book", "remove", "B1")

	c.extra = nil
	var reindexed map[string]int
	c.json(&reindexed, "reindex")
	assert.Equal(t, 1, reindexed["indexed"])

	var result service.FullTextResult
	c.json(&result, "search", "--full-text", "dune", "--limit", "1")
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "B2", result.Hits[0].Book.ID)
	assert.Equal(t, uint64(1), result.Total)
}

func TestCLI_FullTextDisabled(t *testing.T) {
	c := setupTestCLI(t, "sqlite")
	c.extra = []string{"--no-search"}

	_, errOut, code := c.exec("", "search", "--full-text", "dune")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "full-text search is disabled")
}

func TestCLI_CatalogImport(t *testing.T) {
	c := setupTestCLI(t, "sqlite")
	catalogDir := t.TempDir()
	volume := `{"id": "vol1", "volumeInfo": {"title": "Dune", "authors": ["Frank Herbert"], "pageCount": 412, "description": "<p>Spice.</p>"}}`
	require.NoError(t, os.WriteFile(filepath.Join(catalogDir, "vol1.json"), []byte(volume), 0o644))
	c.extra = []string{"--catalog-dir", catalogDir}

	var book domain.Book
	c.json(&book, "book", "import", "vol1", "--shelf", domain.ShelfWantToRead)

	assert.Equal(t, "vol1", book.ID)
	assert.Equal(t, "Spice.", book.Description)
	var shelved []*domain.Book
	c.json(&shelved, "books", "--shelf", domain.ShelfWantToRead)
	assert.Len(t, shelved, 1)
}

func TestCLI_CatalogDisabled(t *testing.T) {
	c := setupTestCLI(t, "sqlite")

	_, errOut, code := c.exec("", "book", "import", "vol1")

	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, errCatalogDisabled.Error())
}

func TestCLI_CustomShelves(t *testing.T) {
	c := setupTestCLI(t, "sqlite")

	var shelf domain.Shelf
	c.json(&shelf, "shelf", "create", "Beach Reads", "--color", "#ffcc00")
	assert.Equal(t, domain.ShelfCustom, shelf.Type)

	c.json(&shelf, "shelf", "edit", shelf.ID, "--name", "Summer")
	assert.Equal(t, "Summer", shelf.Name)

	var custom []*domain.Shelf
	c.json(&custom, "shelves", "--type", "custom")
	require.Len(t, custom, 1)

	c.run("shelf", "delete", shelf.ID)
	_, errOut, code := c.exec("", "shelf", "delete", domain.ShelfRead)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "cannot be deleted")
}

func TestCLI_YAMLOutput(t *testing.T) {
	c := setupTestCLI(t, "sqlite")
	c.run("book", "add", "B1", "--title", "Dune", "--pages", "412")

	out := c.run("book", "show", "B1")

	var view map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &view))
	assert.Equal(t, "Dune", view["title"])
	assert.Equal(t, 412, view["pages"])
	assert.Contains(t, out, "title: Dune\n")
}

func TestCLI_KeysAndDump(t *testing.T) {
	c := setupTestCLI(t, "badger")
	c.run("book", "add", "B1", "--title", "Dune")

	var keys []string
	c.json(&keys, "keys")
	assert.Contains(t, keys, "bookwise_library")

	var doc map[string]any
	c.json(&doc, "dump", "bookwise_library")
	assert.Contains(t, doc, "books")
	assert.Contains(t, doc, "shelves")
}

func TestCLI_Errors(t *testing.T) {
	c := setupTestCLI(t, "memory")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown book", args: []string{"book", "show", "nope"}, want: "book nope not found"},
		{name: "unknown shelf", args: []string{"books", "--shelf", "nope"}, want: "shelf nope not found"},
		{name: "bad output format", args: []string{"-o", "xml", "books"}, want: "unknown output format"},
		{name: "bad storage backend", args: []string{"--storage", "postgres", "books"}, want: "validation"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, errOut, code := c.exec("", tt.args...)
			assert.Equal(t, 1, code)
			assert.Contains(t, errOut, tt.want)
		})
	}
}

package main

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/bookwise/bookwise/internal/search"
	"github.com/bookwise/bookwise/internal/service"
)

var (
	sortFields = []string{"relevance", "title", "recent", "pages"}
	sortOrders = []string{"asc", "desc"}
)

func newSearchCmd(a *app) *cobra.Command {
	var (
		filters  service.SearchFilters
		fullText bool
		params   = search.DefaultParams()
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Find library books by text, shelf and tags",
		Long: `Find library books.

Without --full-text this is a substring match over titles, authors and
descriptions, optionally narrowed to one shelf and a set of tags.

With --full-text the query runs through the ranked index, which also
tolerates typos, filters by category and page count, sorts, pages through
results and reports tag and category facets.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := ""
			if len(args) == 1 {
				query = args[0]
			}

			if !fullText {
				return a.render(a.library.SearchBooks(query, filters))
			}

			if filters.ShelfID != "" {
				return errors.New("--shelf only applies without --full-text")
			}
			if !slices.Contains(sortFields, params.SortBy) {
				return fmt.Errorf("unknown sort %q (want one of %v)", params.SortBy, sortFields)
			}
			if !slices.Contains(sortOrders, params.SortOrder) {
				return fmt.Errorf("unknown order %q (want asc or desc)", params.SortOrder)
			}
			params.Query = query
			params.Tags = filters.Tags

			result, err := a.library.FullTextSearch(cmd.Context(), params)
			if errors.Is(err, service.ErrSearchDisabled) {
				return errors.New("full-text search is disabled; drop --no-search or set SEARCH_ENABLED=true")
			}
			if err != nil {
				return err
			}
			return a.render(result)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&filters.ShelfID, "shelf", "", "only books on this shelf")
	flags.StringSliceVar(&filters.Tags, "tag", nil, "books with any of these tags (repeatable)")
	flags.BoolVar(&fullText, "full-text", false, "ranked search through the full-text index")
	flags.StringSliceVar(&params.Categories, "category", nil, "full-text: books in any of these categories (repeatable)")
	flags.IntVar(&params.MinPages, "min-pages", 0, "full-text: minimum page count")
	flags.IntVar(&params.MaxPages, "max-pages", 0, "full-text: maximum page count")
	flags.StringVar(&params.SortBy, "sort", params.SortBy, "full-text: relevance, title, recent or pages")
	flags.StringVar(&params.SortOrder, "order", params.SortOrder, "full-text: asc or desc")
	flags.IntVar(&params.Limit, "limit", params.Limit, "full-text: maximum results")
	flags.IntVar(&params.Offset, "offset", 0, "full-text: results to skip")
	flags.BoolVar(&params.IncludeFacets, "facets", params.IncludeFacets, "full-text: include tag and category counts")
	flags.BoolVar(&params.Highlight, "highlight", params.Highlight, "full-text: mark matching title and author terms")
	return cmd
}

func newReindexCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the full-text index from the library",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.library.Reindex(cmd.Context()); err != nil {
				return err
			}
			return a.render(map[string]int{"indexed": len(a.library.Books())})
		},
	}
}

package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bookwise/bookwise/internal/domain"
)

var errCatalogDisabled = errors.New("catalog lookups need --catalog-dir or CATALOG_DIR")

func newBooksCmd(a *app) *cobra.Command {
	var shelfID string
	cmd := &cobra.Command{
		Use:   "books",
		Short: "List library books, optionally from one shelf",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if shelfID == "" {
				return a.render(a.library.Books())
			}
			books := a.library.BooksFromShelf(shelfID)
			if books == nil {
				return fmt.Errorf("shelf %s not found", shelfID)
			}
			return a.render(books)
		},
	}
	cmd.Flags().StringVar(&shelfID, "shelf", "", "only books on this shelf, in shelf order")
	return cmd
}

func newBookCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Show, add and annotate books",
	}
	cmd.AddCommand(
		newBookShowCmd(a),
		newBookAddCmd(a),
		newBookImportCmd(a),
		newBookRemoveCmd(a),
		newBookRateCmd(a),
		newBookTagCmd(a),
		newBookUntagCmd(a),
		newBookNoteCmd(a),
	)
	return cmd
}

func (a *app) requireBook(bookID string) (*domain.Book, error) {
	book := a.library.GetBook(bookID)
	if book == nil {
		return nil, fmt.Errorf("book %s not found", bookID)
	}
	return book, nil
}

type bookView struct {
	*domain.Book
	Shelves  []string                `json:"shelves"`
	Progress *domain.ReadingProgress `json:"progress,omitempty"`
}

func newBookShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show a book with its shelves and progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			book, err := a.requireBook(args[0])
			if err != nil {
				return err
			}
			view := bookView{Book: book, Shelves: []string{}}
			for _, shelf := range a.library.ShelvesForBook(book.ID) {
				view.Shelves = append(view.Shelves, shelf.ID)
			}
			for _, p := range a.progress.AllProgress() {
				if p.BookID == book.ID {
					view.Progress = p
				}
			}
			return a.render(view)
		},
	}
}

func newBookAddCmd(a *app) *cobra.Command {
	var (
		in    domain.BookInput
		shelf string
	)
	cmd := &cobra.Command{
		Use:   "add [book-id]",
		Short: "Add a book by hand; an id is generated when omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 1 {
				in.ID = args[0]
			}
			book := a.library.AddBook(in)
			if book == nil {
				return errors.New("could not add book")
			}
			if shelf != "" && !a.library.AddBookToShelf(book.ID, shelf) {
				a.log.Warn("book not added to shelf", "book_id", book.ID, "shelf_id", shelf)
			}
			return a.render(book)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&in.Title, "title", "", "title")
	flags.StringSliceVar(&in.Authors, "author", nil, "author (repeatable)")
	flags.StringVar(&in.Publisher, "publisher", "", "publisher")
	flags.StringVar(&in.Description, "description", "", "description")
	flags.IntVar(&in.Pages, "pages", 0, "page count")
	flags.StringSliceVar(&in.Categories, "category", nil, "category (repeatable)")
	flags.StringSliceVar(&in.Tags, "tag", nil, "tag (repeatable)")
	flags.StringVar(&shelf, "shelf", "", "also place the book on this shelf")
	return cmd
}

func newBookImportCmd(a *app) *cobra.Command {
	var shelf string
	cmd := &cobra.Command{
		Use:   "import <volume-id>",
		Short: "Add a book from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.catalog.Enabled() {
				return errCatalogDisabled
			}
			book, err := a.library.AddFromCatalog(cmd.Context(), a.catalog.Client, args[0])
			if err != nil {
				return err
			}
			if shelf != "" && !a.library.AddBookToShelf(book.ID, shelf) {
				a.log.Warn("book not added to shelf", "book_id", book.ID, "shelf_id", shelf)
			}
			return a.render(book)
		},
	}
	cmd.Flags().StringVar(&shelf, "shelf", "", "also place the book on this shelf")
	return cmd
}

func newBookRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Remove a book, its shelf memberships and its progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if !a.library.RemoveBook(args[0]) {
				return fmt.Errorf("book %s not found", args[0])
			}
			return a.render(map[string]string{"removed": args[0]})
		},
	}
}

func newBookRateCmd(a *app) *cobra.Command {
	var review string
	cmd := &cobra.Command{
		Use:   "rate <book-id> <rating>",
		Short: "Set your rating and review",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid rating %q: %w", args[1], err)
			}
			update := domain.BookUpdate{UserRating: &rating}
			if cmd.Flags().Changed("review") {
				update.UserReview = &review
			}
			book := a.library.UpdateBook(args[0], update)
			if book == nil {
				return fmt.Errorf("book %s not found", args[0])
			}
			return a.render(book)
		},
	}
	cmd.Flags().StringVar(&review, "review", "", "review text")
	return cmd
}

func newBookTagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tag <book-id> <tag>",
		Short: "Tag a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			book := a.library.AddTag(args[0], args[1])
			if book == nil {
				return fmt.Errorf("book %s not found", args[0])
			}
			return a.render(book.Tags)
		},
	}
}

func newBookUntagCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "untag <book-id> <tag>",
		Short: "Remove a tag from a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			book := a.library.RemoveTag(args[0], args[1])
			if book == nil {
				return fmt.Errorf("book %s not found", args[0])
			}
			return a.render(book.Tags)
		},
	}
}

func newBookNoteCmd(a *app) *cobra.Command {
	var page int
	cmd := &cobra.Command{
		Use:   "note <book-id> <text>",
		Short: "Attach a note to a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var pagePtr *int
			if cmd.Flags().Changed("page") {
				pagePtr = &page
			}
			book := a.library.AddNote(args[0], args[1], pagePtr)
			if book == nil {
				return fmt.Errorf("book %s not found", args[0])
			}
			return a.render(book.Notes[len(book.Notes)-1])
		},
	}
	cmd.Flags().IntVar(&page, "page", 0, "page the note refers to")
	return cmd
}

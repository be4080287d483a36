package main

import (
	"bufio"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bookwise/bookwise/internal/domain"
)

type progressView struct {
	*domain.ReadingProgress
	Stats domain.BookStats `json:"stats"`
}

func newProgressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress [book-id]",
		Short: "Show reading progress for one book or all tracked books",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.render(a.progress.AllProgress())
			}
			book, err := a.requireBook(args[0])
			if err != nil {
				return err
			}
			return a.render(progressView{
				ReadingProgress: a.trackedProgress(book),
				Stats:           a.progress.BookStats(book.ID),
			})
		},
	}
	cmd.AddCommand(
		newProgressSetCmd(a),
		newProgressPercentCmd(a),
		newProgressDoneCmd(a),
		newProgressResetCmd(a),
	)
	return cmd
}

// trackedProgress returns the book's record, seeding the total from the
// book's page count when it is still unknown.
func (a *app) trackedProgress(book *domain.Book) *domain.ReadingProgress {
	p := a.progress.Progress(book.ID)
	if p.TotalPages == 0 && book.Pages > 0 {
		p = a.progress.InitializeProgress(book.ID, book.Pages)
	}
	return p
}

func newProgressSetCmd(a *app) *cobra.Command {
	var total int
	cmd := &cobra.Command{
		Use:   "set <book-id> <page>",
		Short: "Set the current page",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.requireBook(args[0])
			if err != nil {
				return err
			}
			page, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid page %q: %w", args[1], err)
			}
			if !cmd.Flags().Changed("total") {
				total = a.trackedProgress(book).TotalPages
			}
			return a.render(a.progress.UpdatePageProgress(book.ID, page, total))
		},
	}
	cmd.Flags().IntVar(&total, "total", 0, "total pages (defaults to the book's page count)")
	return cmd
}

func newProgressPercentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "percent <book-id> <percent>",
		Short: "Set progress as a percentage of the total pages",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			book, err := a.requireBook(args[0])
			if err != nil {
				return err
			}
			pct, err := strconv.ParseFloat(strings.TrimSuffix(args[1], "%"), 64)
			if err != nil {
				return fmt.Errorf("invalid percent %q: %w", args[1], err)
			}
			if a.trackedProgress(book).TotalPages == 0 {
				return fmt.Errorf("book %s has no page count; use progress set --total", book.ID)
			}
			return a.render(a.progress.UpdatePercentageProgress(book.ID, pct))
		},
	}
}

func newProgressDoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "done <book-id>",
		Short: "Mark a book as read",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			book, err := a.requireBook(args[0])
			if err != nil {
				return err
			}
			a.trackedProgress(book)
			return a.render(a.progress.MarkAsRead(book.ID))
		},
	}
}

func newProgressResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <book-id>",
		Short: "Start a book over",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			book, err := a.requireBook(args[0])
			if err != nil {
				return err
			}
			return a.render(a.progress.ResetProgress(book.ID))
		},
	}
}

func newReadCmd(a *app) *cobra.Command {
	var toPage int
	cmd := &cobra.Command{
		Use:   "read <book-id>",
		Short: "Time a reading session; asks for the page reached when you are done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			book, err := a.requireBook(args[0])
			if err != nil {
				return err
			}
			start := a.trackedProgress(book)
			token := a.progress.StartSession(book.ID)

			page := toPage
			if !cmd.Flags().Changed("to") {
				fmt.Fprintf(cmd.ErrOrStderr(), "reading %q from page %d; enter the page you reached: ", book.Title, start.CurrentPage)
				page, err = readPage(a)
				if err != nil {
					a.progress.FinishSession(token)
					return err
				}
			}

			a.progress.UpdatePageProgress(book.ID, page, 0)
			result, _ := a.progress.FinishSession(token)
			return a.render(result)
		},
	}
	cmd.Flags().IntVar(&toPage, "to", 0, "page reached, skipping the prompt")
	return cmd
}

func readPage(a *app) (int, error) {
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && strings.TrimSpace(line) == "" {
		return 0, errors.New("no page entered")
	}
	page, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("invalid page %q: %w", strings.TrimSpace(line), err)
	}
	return page, nil
}

type statsView struct {
	Library domain.LibraryStats `json:"library"`
	Reading domain.GlobalStats  `json:"reading"`
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Library and reading statistics",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.render(statsView{
				Library: a.library.LibraryStats(),
				Reading: a.progress.GlobalStats(),
			})
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Pages and minutes read per day",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.render(a.progress.ReadingHistory(days))
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "number of days, ending today")
	return cmd
}

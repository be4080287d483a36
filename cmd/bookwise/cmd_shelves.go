package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bookwise/bookwise/internal/domain"
)

func newShelvesCmd(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "shelves",
		Short: "List shelves in display order",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			switch kind {
			case "", "all":
				return a.render(a.library.AllShelves())
			case "default":
				return a.render(a.library.DefaultShelves())
			case "custom":
				return a.render(a.library.CustomShelves())
			default:
				return fmt.Errorf("unknown shelf type %q (want all, default or custom)", kind)
			}
		},
	}
	cmd.Flags().StringVar(&kind, "type", "all", "all, default or custom")
	return cmd
}

func newShelfCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shelf",
		Short: "Create, edit and fill shelves",
	}
	cmd.AddCommand(
		newShelfCreateCmd(a),
		newShelfEditCmd(a),
		newShelfDeleteCmd(a),
		newShelfAddCmd(a),
		newShelfRemoveCmd(a),
		newShelfMoveCmd(a),
		newShelfReorderCmd(a),
	)
	return cmd
}

func newShelfCreateCmd(a *app) *cobra.Command {
	var description, color string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a custom shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			shelf := a.library.CreateShelf(args[0], description, color)
			if shelf == nil {
				return fmt.Errorf("could not create shelf %q", args[0])
			}
			return a.render(shelf)
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "shelf description")
	cmd.Flags().StringVar(&color, "color", "", "display color")
	return cmd
}

func newShelfEditCmd(a *app) *cobra.Command {
	var name, description, color string
	cmd := &cobra.Command{
		Use:   "edit <shelf-id>",
		Short: "Rename or describe a shelf",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var update domain.ShelfUpdate
			if cmd.Flags().Changed("name") {
				update.Name = &name
			}
			if cmd.Flags().Changed("description") {
				update.Description = &description
			}
			if cmd.Flags().Changed("color") {
				update.Color = &color
			}
			shelf := a.library.UpdateShelf(args[0], update)
			if shelf == nil {
				return fmt.Errorf("shelf %s not found", args[0])
			}
			return a.render(shelf)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new name")
	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().StringVar(&color, "color", "", "new color")
	return cmd
}

func newShelfDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <shelf-id>",
		Short: "Delete a custom shelf; its books stay in the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if !a.library.DeleteShelf(args[0]) {
				return fmt.Errorf("shelf %s not found or cannot be deleted", args[0])
			}
			return a.render(map[string]string{"deleted": args[0]})
		},
	}
}

// membership renders the outcome of a membership change.
type membership struct {
	BookID  string `json:"bookId"`
	ShelfID string `json:"shelfId"`
	Changed bool   `json:"changed"`
}

func newShelfAddCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <book-id> <shelf-id>",
		Short: "Put a book on a shelf",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			changed := a.library.AddBookToShelf(args[0], args[1])
			return a.render(membership{BookID: args[0], ShelfID: args[1], Changed: changed})
		},
	}
}

func newShelfRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <book-id> <shelf-id>",
		Short: "Take a book off a shelf",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			changed := a.library.RemoveBookFromShelf(args[0], args[1])
			return a.render(membership{BookID: args[0], ShelfID: args[1], Changed: changed})
		},
	}
}

func newShelfMoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <book-id> <from-shelf-id> <to-shelf-id>",
		Short: "Move a book between shelves",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			changed := a.library.MoveBookBetweenShelves(args[0], args[1], args[2])
			return a.render(membership{BookID: args[0], ShelfID: args[2], Changed: changed})
		},
	}
}

func newShelfReorderCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <shelf-id> <from-index> <to-index>",
		Short: "Move a book to another position on its shelf",
		Args:  cobra.ExactArgs(3),
		RunE: func(_ *cobra.Command, args []string) error {
			from, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[1], err)
			}
			to, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("invalid index %q: %w", args[2], err)
			}
			if !a.library.ReorderBookInShelf(args[0], from, to) {
				return fmt.Errorf("cannot reorder shelf %s from %d to %d", args[0], from, to)
			}
			return a.render(a.library.GetShelf(args[0]))
		},
	}
}

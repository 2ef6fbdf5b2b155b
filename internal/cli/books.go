package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"Bookshelf/internal/catalog"
)

// errReported marks an error whose outcome was already printed.
type errReported struct{ err error }

func (e errReported) Error() string { return e.err.Error() }
func (e errReported) Unwrap() error { return e.err }

func (a *app) newAddCommand() *cobra.Command {
	var rec catalog.Record

	cmd := &cobra.Command{
		Use:     "add",
		Short:   "Add a new book",
		GroupID: "books",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(rec.ID) == "" {
				rec.ID = catalog.NewID()
			}
			rec.Status = catalog.Available

			return a.withLibrary(cmd.Context(), catalog.OpAdd, rec.Title, func(ctx context.Context, lib catalog.Library) (catalog.Record, error) {
				return lib.Add(ctx, rec)
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&rec.ID, "id", "", "book ID (generated when empty)")
	f.StringVar(&rec.Title, "title", "", "book title")
	f.StringVar(&rec.Author, "author", "", "book author")
	f.StringVar(&rec.Category, "category", "", "book category")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("author")
	return cmd
}

func (a *app) newFindCommand() *cobra.Command {
	return a.titleCommand("find TITLE", "Search for a book by title", catalog.OpFind,
		func(lib catalog.Library) func(context.Context, string) (catalog.Record, error) { return lib.Find })
}

func (a *app) newBorrowCommand() *cobra.Command {
	return a.titleCommand("borrow TITLE", "Borrow a book", catalog.OpBorrow,
		func(lib catalog.Library) func(context.Context, string) (catalog.Record, error) { return lib.Borrow })
}

func (a *app) newReturnCommand() *cobra.Command {
	return a.titleCommand("return TITLE", "Return a borrowed book", catalog.OpReturn,
		func(lib catalog.Library) func(context.Context, string) (catalog.Record, error) { return lib.Return })
}

func (a *app) newRemoveCommand() *cobra.Command {
	return a.titleCommand("remove TITLE", "Remove a book", catalog.OpRemove,
		func(lib catalog.Library) func(context.Context, string) (catalog.Record, error) { return lib.Remove })
}

func (a *app) titleCommand(use, short string, op catalog.Op, pick func(catalog.Library) func(context.Context, string) (catalog.Record, error)) *cobra.Command {
	return &cobra.Command{
		Use:     use,
		Short:   short,
		GroupID: "books",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := args[0]
			return a.withLibrary(cmd.Context(), op, title, func(ctx context.Context, lib catalog.Library) (catalog.Record, error) {
				return pick(lib)(ctx, title)
			})
		},
	}
}

func (a *app) newListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"display"},
		Short:   "List every book in the catalog",
		GroupID: "books",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			lib, release, err := a.openLibrary(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			books, err := lib.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, catalog.Message(catalog.OpList, "", nil))
			return renderTable(a.stdout, books)
		},
	}
}

// withLibrary runs fn against the configured library and prints its
// outcome. Warnings are not errors for the exit status.
func (a *app) withLibrary(ctx context.Context, op catalog.Op, title string, fn func(context.Context, catalog.Library) (catalog.Record, error)) error {
	lib, release, err := a.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer release()

	rec, err := fn(ctx, lib)
	printOutcome(a.stdout, op, title, rec, err)

	if catalog.Classify(err) == catalog.Failure {
		return errReported{err: err}
	}
	return nil
}

package cli

import (
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"Bookshelf/internal/catalog"
)

// printOutcome writes the outcome class and message of one operation,
// followed by the record when a search succeeded.
func printOutcome(w io.Writer, op catalog.Op, title string, rec catalog.Record, err error) {
	fmt.Fprintf(w, "[%s] %s\n", catalog.Classify(err), catalog.Message(op, title, err))
	if err == nil && op == catalog.OpFind {
		fmt.Fprintln(w, catalog.Describe(rec))
	}
}

func renderTable(w io.Writer, books []catalog.Record) error {
	t := tablewriter.NewWriter(w)
	t.SetHeader([]string{"ID", "Title", "Author", "Category", "Status"})
	t.SetAutoWrapText(false)
	t.SetAutoFormatHeaders(false)

	for _, b := range books {
		t.Append([]string{b.ID, b.Title, b.Author, b.Category, string(b.Status)})
	}
	t.Render()
	return nil
}

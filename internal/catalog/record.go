package catalog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Status is the availability of a book. Values are written in their
// canonical form and compared case-insensitively on read.
type Status string

const (
	Available Status = "Available"
	Issued    Status = "Issued"
)

// ParseStatus accepts any casing of the two known values.
// An empty string is treated as Available, both for new records and for
// rows loaded with a blank status column.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "available":
		return Available, nil
	case "issued":
		return Issued, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Is reports whether s equals want ignoring case.
func (s Status) Is(want Status) bool {
	return strings.EqualFold(string(s), string(want))
}

type Record struct {
	ID       string `json:"bid"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Category string `json:"category"`
	Status   Status `json:"status"`
}

// Columns is the header row of the backing table.
var Columns = []string{"bid", "title", "author", "category", "status"}

// lineBreaks folds CRLF to LF. The CSV reader does the same inside quoted
// fields, so text is stored in the form it will be read back in.
var lineBreaks = strings.NewReplacer("\r\n", "\n")

func (r Record) normalized() Record {
	r.ID = lineBreaks.Replace(r.ID)
	r.Title = lineBreaks.Replace(r.Title)
	r.Author = lineBreaks.Replace(r.Author)
	r.Category = lineBreaks.Replace(r.Category)
	return r
}

func titleKey(title string) string {
	return strings.ToLower(lineBreaks.Replace(title))
}

func (r Record) sameBook(title, author string) bool {
	return titleKey(r.Title) == titleKey(title) &&
		strings.ToLower(lineBreaks.Replace(r.Author)) == strings.ToLower(lineBreaks.Replace(author))
}

// NewID returns an identifier for records added without one.
func NewID() string {
	return "b_" + uuid.NewString()
}

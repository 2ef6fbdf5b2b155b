package catalog

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/renameio/v2"
)

const csvFileMode = 0o644

// CSVStore keeps the catalog in a delimited-text file with a header row.
type CSVStore struct {
	path string
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Path() string { return s.path }

func (s *CSVStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.path); err != nil {
		return ioErr("stat", s.path, err)
	}
	return nil
}

func (s *CSVStore) Close() error { return nil }

func (s *CSVStore) Load(ctx context.Context) ([]Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, ioErr("open", s.path, err)
	}
	defer f.Close()

	books, err := decodeCSV(f)
	if err != nil {
		return nil, ioErr("read", s.path, err)
	}
	return books, nil
}

// Save overwrites the file with the header and every record. The new
// content is written to a temporary file and renamed over the old one.
func (s *CSVStore) Save(ctx context.Context, books []Record) error {
	var buf bytes.Buffer
	if err := encodeCSV(&buf, books); err != nil {
		return ioErr("encode", s.path, err)
	}
	if err := renameio.WriteFile(s.path, buf.Bytes(), csvFileMode); err != nil {
		return ioErr("write", s.path, err)
	}
	return nil
}

var errMalformed = errors.New("malformed table")

func decodeCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		// An empty file is an empty table; the next save writes the header.
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	idx, err := columnIndex(header)
	if err != nil {
		return nil, err
	}

	books := make([]Record, 0, 64)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		st, err := ParseStatus(row[idx["status"]])
		if err != nil {
			line, _ := cr.FieldPos(idx["status"])
			return nil, fmt.Errorf("%w: line %d: %v", errMalformed, line, err)
		}

		books = append(books, Record{
			ID:       row[idx["bid"]],
			Title:    row[idx["title"]],
			Author:   row[idx["author"]],
			Category: row[idx["category"]],
			Status:   st,
		})
	}
	return books, nil
}

// columnIndex maps each required column to its position in the header.
// Column names match ignoring case; unknown columns are skipped.
func columnIndex(header []string) (map[string]int, error) {
	idx := make(map[string]int, len(Columns))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}

	for _, c := range Columns {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", errMalformed, c)
		}
	}
	return idx, nil
}

func encodeCSV(w io.Writer, books []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, b := range books {
		st, err := ParseStatus(string(b.Status))
		if err != nil {
			return err
		}
		if err := cw.Write([]string{b.ID, b.Title, b.Author, b.Category, string(st)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

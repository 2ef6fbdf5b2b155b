package catalog

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicate      = errors.New("duplicate entry")
	ErrNotFound       = errors.New("book not found")
	ErrAlreadyInState = errors.New("book already in requested state")
	ErrIO             = errors.New("backing store failure")
)

// DuplicateError is returned by Add when a book with the same title and
// author (ignoring case) is already catalogued.
type DuplicateError struct {
	Title  string
	Author string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("Book %s by %s already exists in the library", e.Title, e.Author)
}

func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

type NotFoundError struct {
	Title string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Book '%s' is not available in the library.", e.Title)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// StateError is returned when a borrow or return finds the book already in
// the target state. Status is the book's current status.
type StateError struct {
	Title  string
	Status Status
}

func (e *StateError) Error() string {
	if e.Status.Is(Issued) {
		return fmt.Sprintf("Book '%s' is currently not available.", e.Title)
	}
	return fmt.Sprintf("Book '%s' is already available.", e.Title)
}

func (e *StateError) Is(target error) bool { return target == ErrAlreadyInState }

// IOError wraps a failure to read or write the backing store.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

func ioErr(op, path string, err error) error {
	var ioe *IOError
	if errors.As(err, &ioe) {
		return err
	}
	return &IOError{Op: op, Path: path, Err: err}
}

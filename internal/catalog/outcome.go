package catalog

import (
	"errors"
	"fmt"
)

// Outcome is the class of result shown to the user after an operation.
type Outcome int

const (
	Success Outcome = iota
	Warning
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Warning:
		return "warning"
	default:
		return "error"
	}
}

// Classify maps an operation result to its outcome class. Only a book that
// is already in the requested state is a warning.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return Success
	case errors.Is(err, ErrAlreadyInState):
		return Warning
	default:
		return Failure
	}
}

// Op names a catalog operation.
type Op string

const (
	OpAdd    Op = "add"
	OpFind   Op = "find"
	OpRemove Op = "remove"
	OpBorrow Op = "borrow"
	OpReturn Op = "return"
	OpList   Op = "list"
	OpLoad   Op = "load"
)

// Message is the user-facing text for the result of op on title.
func Message(op Op, title string, err error) string {
	if err != nil {
		return err.Error()
	}
	switch op {
	case OpAdd:
		return fmt.Sprintf("Book '%s' added successfully.", title)
	case OpRemove:
		return fmt.Sprintf("Book '%s' has been removed from the library.", title)
	case OpBorrow:
		return fmt.Sprintf("Book '%s' has been issued.", title)
	case OpReturn:
		return fmt.Sprintf("Book '%s' has been returned and is now available.", title)
	case OpFind:
		return "Book found:"
	default:
		return "Current list of books in the library:"
	}
}

// Describe formats a record the way listings show it.
func Describe(r Record) string {
	return fmt.Sprintf("ID: %s, Title: %s, Author: %s, Category: %s, Status: %s",
		r.ID, r.Title, r.Author, r.Category, r.Status)
}

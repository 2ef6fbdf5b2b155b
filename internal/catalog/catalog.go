// Package catalog keeps the book catalog: an ordered list of records held
// in memory and rewritten to its backing store after every change.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"go.uber.org/zap"
)

type Options struct {
	Log     *zap.Logger
	Metrics *Metrics

	// CreateIfMissing initializes an empty table when the store reports
	// that it does not exist yet.
	CreateIfMissing bool
}

// Catalog is the only writer of its store. Operations are serialized; each
// one runs to completion before the next starts.
type Catalog struct {
	mu      sync.Mutex
	store   Store
	books   []Record
	log     *zap.Logger
	metrics *Metrics
}

// Open creates a Catalog over store and loads its contents.
func Open(ctx context.Context, store Store, opts Options) (*Catalog, error) {
	c := &Catalog{
		store:   store,
		log:     opts.Log,
		metrics: opts.Metrics,
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}

	err := c.Load(ctx)
	if err != nil && opts.CreateIfMissing && errors.Is(err, fs.ErrNotExist) {
		c.log.Info("initializing empty catalog")
		err = c.save(ctx, nil)
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Load replaces the in-memory records with the store's contents. On
// failure the current records are kept.
func (c *Catalog) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	books, err := c.store.Load(ctx)
	c.metrics.observe(string(OpLoad), err)
	if err != nil {
		c.log.Warn("load catalog failed", zap.Error(err))
		return ioErr("load", "", err)
	}

	for i := range books {
		st, err := ParseStatus(string(books[i].Status))
		if err != nil {
			return ioErr("load", "", fmt.Errorf("%w: %q: %v", errMalformed, books[i].Title, err))
		}
		books[i].Status = st
	}

	c.books = books
	c.metrics.setBooks(books)
	c.log.Info("catalog loaded", zap.Int("books", len(books)))
	return nil
}

// save persists books and makes them current. The in-memory records are
// replaced only after the store accepted the new table.
func (c *Catalog) save(ctx context.Context, books []Record) error {
	if err := c.store.Save(ctx, books); err != nil {
		c.log.Error("save catalog failed", zap.Error(err))
		return ioErr("save", "", err)
	}
	c.books = books
	c.metrics.setBooks(books)
	return nil
}

// Add appends r unless a book with the same title and author exists.
// An empty status defaults to Available. CRLF line breaks in text fields
// are stored as LF.
func (c *Catalog) Add(ctx context.Context, r Record) (out Record, err error) {
	defer func() { c.done(OpAdd, r.Title, err) }()

	r = r.normalized()

	st, err := ParseStatus(string(r.Status))
	if err != nil {
		return Record{}, err
	}
	r.Status = st

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, b := range c.books {
		if b.sameBook(r.Title, r.Author) {
			return Record{}, &DuplicateError{Title: r.Title, Author: r.Author}
		}
	}

	next := make([]Record, len(c.books), len(c.books)+1)
	copy(next, c.books)
	next = append(next, r)

	if err := c.save(ctx, next); err != nil {
		return Record{}, err
	}
	return r, nil
}

// Find returns the first book whose title matches ignoring case.
func (c *Catalog) Find(ctx context.Context, title string) (out Record, err error) {
	defer func() { c.metrics.observe(string(OpFind), err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(title)
	if i < 0 {
		return Record{}, &NotFoundError{Title: title}
	}
	return c.books[i], nil
}

func (c *Catalog) Remove(ctx context.Context, title string) (out Record, err error) {
	defer func() { c.done(OpRemove, title, err) }()

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(title)
	if i < 0 {
		return Record{}, &NotFoundError{Title: title}
	}

	removed := c.books[i]
	next := make([]Record, 0, len(c.books)-1)
	next = append(next, c.books[:i]...)
	next = append(next, c.books[i+1:]...)

	if err := c.save(ctx, next); err != nil {
		return Record{}, err
	}
	return removed, nil
}

// Borrow marks an available book as issued.
func (c *Catalog) Borrow(ctx context.Context, title string) (out Record, err error) {
	defer func() { c.done(OpBorrow, title, err) }()
	return c.transition(ctx, title, Available, Issued)
}

// Return marks an issued book as available again.
func (c *Catalog) Return(ctx context.Context, title string) (out Record, err error) {
	defer func() { c.done(OpReturn, title, err) }()
	return c.transition(ctx, title, Issued, Available)
}

func (c *Catalog) transition(ctx context.Context, title string, from, to Status) (Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(title)
	if i < 0 {
		return Record{}, &NotFoundError{Title: title}
	}
	if !c.books[i].Status.Is(from) {
		return Record{}, &StateError{Title: title, Status: c.books[i].Status}
	}

	next := make([]Record, len(c.books))
	copy(next, c.books)
	next[i].Status = to

	if err := c.save(ctx, next); err != nil {
		return Record{}, err
	}
	return next[i], nil
}

// List returns a copy of every record in catalog order.
func (c *Catalog) List(ctx context.Context) ([]Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Record, len(c.books))
	copy(out, c.books)
	c.metrics.observe(string(OpList), nil)
	return out, nil
}

// Ping checks that the backing store is reachable.
func (c *Catalog) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}

// Close releases the backing store. The Catalog must not be used after.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Close()
}

func (c *Catalog) indexOf(title string) int {
	key := titleKey(title)
	for i, b := range c.books {
		if titleKey(b.Title) == key {
			return i
		}
	}
	return -1
}

func (c *Catalog) done(op Op, title string, err error) {
	c.metrics.observe(string(op), err)

	switch Classify(err) {
	case Success:
		c.log.Info("catalog updated", zap.String("op", string(op)), zap.String("title", title))
	case Warning:
		c.log.Info("catalog unchanged", zap.String("op", string(op)), zap.String("title", title), zap.Error(err))
	default:
		if errors.Is(err, ErrIO) {
			return
		}
		c.log.Info("catalog rejected", zap.String("op", string(op)), zap.String("title", title), zap.Error(err))
	}
}

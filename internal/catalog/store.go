package catalog

import "context"

// Store is the backing store of a Catalog. Load returns every record in
// stored order; Save replaces the whole table.
type Store interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, books []Record) error
	Ping(ctx context.Context) error
	Close() error
}

// Library is the set of operations the presentation layers drive. It is
// implemented by *Catalog for local use and by *Client against a running
// server.
type Library interface {
	Add(ctx context.Context, r Record) (Record, error)
	Find(ctx context.Context, title string) (Record, error)
	Remove(ctx context.Context, title string) (Record, error)
	Borrow(ctx context.Context, title string) (Record, error)
	Return(ctx context.Context, title string) (Record, error)
	List(ctx context.Context) ([]Record, error)
}

var (
	_ Library = (*Catalog)(nil)
	_ Library = (*Client)(nil)
)

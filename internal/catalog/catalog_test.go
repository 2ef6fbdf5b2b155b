package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

// flakyStore fails Save or Load on demand.
type flakyStore struct {
	*MemStore
	failSave bool
	failLoad bool
}

func (s *flakyStore) Save(ctx context.Context, books []Record) error {
	if s.failSave {
		return errDiskFull
	}
	return s.MemStore.Save(ctx, books)
}

func (s *flakyStore) Load(ctx context.Context) ([]Record, error) {
	if s.failLoad {
		return nil, errDiskFull
	}
	return s.MemStore.Load(ctx)
}

func openMem(t *testing.T, seed ...Record) (*Catalog, *MemStore) {
	t.Helper()
	store := NewMemStore(seed...)
	c, err := Open(context.Background(), store, Options{})
	require.NoError(t, err)
	return c, store
}

func dune() Record {
	return Record{ID: "1", Title: "Dune", Author: "Herbert", Category: "SciFi"}
}

func TestCatalog_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c, _ := openMem(t)

	added, err := c.Add(ctx, dune())
	require.NoError(t, err)
	assert.Equal(t, Available, added.Status)

	books, _ := c.List(ctx)
	require.Len(t, books, 1)

	b, err := c.Borrow(ctx, "Dune")
	require.NoError(t, err)
	assert.Equal(t, Issued, b.Status)

	_, err = c.Borrow(ctx, "Dune")
	require.ErrorIs(t, err, ErrAlreadyInState)
	got, _ := c.Find(ctx, "Dune")
	assert.Equal(t, Issued, got.Status)

	b, err = c.Return(ctx, "Dune")
	require.NoError(t, err)
	assert.Equal(t, Available, b.Status)

	_, err = c.Remove(ctx, "Dune")
	require.NoError(t, err)
	books, _ = c.List(ctx)
	assert.Empty(t, books)

	_, err = c.Find(ctx, "Dune")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_AddDuplicateIgnoresCase(t *testing.T) {
	ctx := context.Background()
	c, store := openMem(t)

	_, err := c.Add(ctx, dune())
	require.NoError(t, err)

	_, err = c.Add(ctx, Record{ID: "2", Title: "dune", Author: "HERBERT", Category: "SciFi"})
	require.ErrorIs(t, err, ErrDuplicate)
	assert.Equal(t, "Book dune by HERBERT already exists in the library", err.Error())

	books, _ := c.List(ctx)
	assert.Len(t, books, 1)
	assert.Equal(t, 1, store.Saves())
}

func TestCatalog_SameTitleDifferentAuthor(t *testing.T) {
	ctx := context.Background()
	c, _ := openMem(t)

	_, err := c.Add(ctx, dune())
	require.NoError(t, err)
	_, err = c.Add(ctx, Record{ID: "2", Title: "DUNE", Author: "Someone Else"})
	require.NoError(t, err)

	// Lookups by title act on the first match in insertion order.
	b, err := c.Borrow(ctx, "dune")
	require.NoError(t, err)
	assert.Equal(t, "1", b.ID)

	books, _ := c.List(ctx)
	assert.Equal(t, Issued, books[0].Status)
	assert.Equal(t, Available, books[1].Status)
}

func TestCatalog_FindKeepsStoredCase(t *testing.T) {
	ctx := context.Background()
	c, _ := openMem(t)

	_, err := c.Add(ctx, Record{ID: "7", Title: "The Hobbit", Author: "Tolkien", Category: "Fantasy"})
	require.NoError(t, err)

	b, err := c.Find(ctx, "the HOBBIT")
	require.NoError(t, err)
	assert.Equal(t, "The Hobbit", b.Title)
}

func TestCatalog_ReturnNeverBorrowed(t *testing.T) {
	ctx := context.Background()
	c, store := openMem(t, dune())

	_, err := c.Return(ctx, "Dune")
	require.ErrorIs(t, err, ErrAlreadyInState)
	assert.Equal(t, "Book 'Dune' is already available.", err.Error())
	assert.Zero(t, store.Saves())
}

func TestCatalog_NotFound(t *testing.T) {
	ctx := context.Background()
	c, store := openMem(t, dune())

	for name, fn := range map[string]func(context.Context, string) (Record, error){
		"find":   c.Find,
		"remove": c.Remove,
		"borrow": c.Borrow,
		"return": c.Return,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := fn(ctx, "Foundation")
			require.ErrorIs(t, err, ErrNotFound)
			assert.Equal(t, "Book 'Foundation' is not available in the library.", err.Error())
		})
	}
	assert.Zero(t, store.Saves())
}

func TestCatalog_StatusComparedIgnoringCase(t *testing.T) {
	ctx := context.Background()
	c, _ := openMem(t, Record{ID: "1", Title: "Dune", Author: "Herbert", Status: "issued"})

	b, err := c.Return(ctx, "Dune")
	require.NoError(t, err)
	assert.Equal(t, Available, b.Status)
}

func TestCatalog_SaveFailureLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemStore: NewMemStore(dune())}
	c, err := Open(ctx, store, Options{})
	require.NoError(t, err)

	store.failSave = true

	_, err = c.Add(ctx, Record{ID: "2", Title: "Emma", Author: "Austen"})
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, errDiskFull)

	_, err = c.Borrow(ctx, "Dune")
	require.ErrorIs(t, err, ErrIO)

	_, err = c.Remove(ctx, "Dune")
	require.ErrorIs(t, err, ErrIO)

	books, _ := c.List(ctx)
	require.Len(t, books, 1)
	assert.Equal(t, dune().Title, books[0].Title)
	assert.True(t, books[0].Status.Is(Available))
}

func TestCatalog_LoadFailureKeepsRecords(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{MemStore: NewMemStore(dune())}
	c, err := Open(ctx, store, Options{})
	require.NoError(t, err)

	store.failLoad = true
	require.ErrorIs(t, c.Load(ctx), ErrIO)

	books, _ := c.List(ctx)
	assert.Len(t, books, 1)
}

func TestCatalog_ListReturnsCopy(t *testing.T) {
	ctx := context.Background()
	c, _ := openMem(t, dune())

	books, _ := c.List(ctx)
	books[0].Title = "changed"

	_, err := c.Find(ctx, "Dune")
	assert.NoError(t, err)
}

func TestCatalog_EveryMutationPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "books.csv")

	c, err := Open(ctx, NewCSVStore(path), Options{CreateIfMissing: true})
	require.NoError(t, err)

	reloadEquals := func() {
		t.Helper()
		fresh, err := Open(ctx, NewCSVStore(path), Options{})
		require.NoError(t, err)
		want, _ := c.List(ctx)
		got, _ := fresh.List(ctx)
		assert.Equal(t, want, got)
	}

	_, err = c.Add(ctx, dune())
	require.NoError(t, err)
	reloadEquals()

	_, err = c.Add(ctx, Record{ID: "2", Title: "Emma, a Novel", Author: "Austen", Category: "Classic \"Romance\""})
	require.NoError(t, err)
	reloadEquals()

	_, err = c.Borrow(ctx, "Dune")
	require.NoError(t, err)
	reloadEquals()

	_, err = c.Return(ctx, "Dune")
	require.NoError(t, err)
	reloadEquals()

	_, err = c.Remove(ctx, "Dune")
	require.NoError(t, err)
	reloadEquals()
}

func TestOpen_MissingFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "books.csv")

	_, err := Open(ctx, NewCSVStore(path), Options{})
	require.ErrorIs(t, err, ErrIO)
	require.ErrorIs(t, err, os.ErrNotExist)

	c, err := Open(ctx, NewCSVStore(path), Options{CreateIfMissing: true})
	require.NoError(t, err)
	books, _ := c.List(ctx)
	assert.Empty(t, books)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bid,title,author,category,status\n", string(raw))
}

func TestOpen_EmptyFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "books.csv")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	c, err := Open(ctx, NewCSVStore(path), Options{})
	require.NoError(t, err)
	books, _ := c.List(ctx)
	assert.Empty(t, books)

	_, err = c.Add(ctx, dune())
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "bid,title,author,category,status\n1,Dune,Herbert,SciFi,Available\n", string(raw))
}

func TestCatalog_CRLFFieldsReloadUnchanged(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "books.csv")

	c, err := Open(ctx, NewCSVStore(path), Options{CreateIfMissing: true})
	require.NoError(t, err)

	added, err := c.Add(ctx, Record{ID: "1", Title: "A\r\nB", Author: "X\r\nY", Category: "C"})
	require.NoError(t, err)
	assert.Equal(t, "A\nB", added.Title)

	fresh, err := Open(ctx, NewCSVStore(path), Options{})
	require.NoError(t, err)
	want, _ := c.List(ctx)
	got, _ := fresh.List(ctx)
	assert.Equal(t, want, got)

	_, err = fresh.Find(ctx, "a\r\nb")
	require.NoError(t, err)

	_, err = fresh.Add(ctx, Record{ID: "2", Title: "A\nB", Author: "X\nY"})
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestCatalog_Metrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	c, err := Open(ctx, NewMemStore(), Options{Metrics: m})
	require.NoError(t, err)

	_, _ = c.Add(ctx, dune())
	_, _ = c.Borrow(ctx, "Dune")
	_, _ = c.Borrow(ctx, "Dune")
	_, _ = c.Remove(ctx, "Nope")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("borrow", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("borrow", "warning")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("remove", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Books.WithLabelValues("Issued")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Books.WithLabelValues("Available")))
}

package cli

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"Bookshelf/internal/catalog"
	"Bookshelf/internal/config"
)

func openStore(ctx context.Context, cfg *config.Config) (catalog.Store, error) {
	switch cfg.Store {
	case config.StoreCSV:
		return catalog.NewCSVStore(cfg.DataPath), nil
	case config.StoreSQLite:
		return catalog.OpenSQLStore(ctx, catalog.DriverSQLite, cfg.DSN)
	case config.StorePostgres:
		return catalog.OpenSQLStore(ctx, catalog.DriverPostgres, cfg.DSN)
	case config.StoreMemory:
		return catalog.NewMemStore(), nil
	}
	return nil, fmt.Errorf("unknown store %q", cfg.Store)
}

// openCatalog opens the configured store and loads it. reg may be nil.
func (a *app) openCatalog(ctx context.Context, reg prometheus.Registerer) (*catalog.Catalog, error) {
	store, err := openStore(ctx, a.cfg)
	if err != nil {
		return nil, err
	}

	opts := catalog.Options{
		Log:             a.log.Named("catalog"),
		CreateIfMissing: a.cfg.CreateIfMissing,
	}
	if reg != nil {
		opts.Metrics = catalog.NewMetrics(reg)
	}

	c, err := catalog.Open(ctx, store, opts)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return c, nil
}

// openLibrary returns the library the book commands act on: a server
// client when --server is set, the local catalog otherwise. The returned
// func releases it.
func (a *app) openLibrary(ctx context.Context) (catalog.Library, func(), error) {
	if a.cfg.ServerURL != "" {
		return catalog.NewClient(a.cfg.ServerURL), func() {}, nil
	}

	c, err := a.openCatalog(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

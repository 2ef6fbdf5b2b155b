package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
	saveTimeout  = 10 * time.Second
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// SQLStore keeps the catalog in a single table ordered by position. The
// whole table is rewritten on Save, matching the file store's contract.
type SQLStore struct {
	db      *sql.DB
	driver  string
	ownsDB  bool
	placeFn func(n int) string
}

// OpenSQLStore opens dsn with the named driver ("sqlite" or "postgres")
// and creates the books table if needed.
func OpenSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	name := driver
	if driver == DriverPostgres {
		name = "pgx"
	}
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, ioErr("open", driver, err)
	}

	s := NewSQLStore(db, driver)
	s.ownsDB = true
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open handle. The caller keeps ownership of db.
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	s := &SQLStore{db: db, driver: driver, placeFn: questionMark}
	if driver == DriverPostgres {
		s.placeFn = dollar
	}
	return s
}

func questionMark(int) string { return "?" }

func dollar(n int) string { return fmt.Sprintf("$%d", n) }

func (s *SQLStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, func(ctx context.Context) error {
		if err := s.db.PingContext(ctx); err != nil {
			return ioErr("ping", s.driver, err)
		}
		return nil
	})
}

func (s *SQLStore) Close() error {
	if !s.ownsDB {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) migrate(ctx context.Context) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, `
			CREATE TABLE IF NOT EXISTS books (
				position INTEGER NOT NULL,
				bid      TEXT NOT NULL,
				title    TEXT NOT NULL,
				author   TEXT NOT NULL,
				category TEXT NOT NULL,
				status   TEXT NOT NULL
			)
		`)
		if err != nil {
			return ioErr("migrate", s.driver, err)
		}
		return nil
	})
}

func (s *SQLStore) Load(ctx context.Context) ([]Record, error) {
	var out []Record

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT bid, title, author, category, status
			FROM books
			ORDER BY position ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Record, 0, 64)
		for rows.Next() {
			var (
				r  Record
				st string
			)
			if err := rows.Scan(&r.ID, &r.Title, &r.Author, &r.Category, &st); err != nil {
				return err
			}
			if r.Status, err = ParseStatus(st); err != nil {
				return fmt.Errorf("%w: %v", errMalformed, err)
			}
			out = append(out, r)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, ioErr("load", s.driver, err)
	}
	return out, nil
}

func (s *SQLStore) Save(ctx context.Context, books []Record) error {
	err := withTimeout(ctx, saveTimeout, func(ctx context.Context) error {
		return withTx(ctx, s.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM books`); err != nil {
				return err
			}

			stmt, err := tx.PrepareContext(ctx, s.insertSQL())
			if err != nil {
				return err
			}
			defer stmt.Close()

			for i, b := range books {
				st, err := ParseStatus(string(b.Status))
				if err != nil {
					return err
				}
				if _, err := stmt.ExecContext(ctx, i, b.ID, b.Title, b.Author, b.Category, string(st)); err != nil {
					return err
				}
			}
			return nil
		})
	})

	if err != nil {
		return ioErr("save", s.driver, err)
	}
	return nil
}

func (s *SQLStore) insertSQL() string {
	ph := make([]string, 6)
	for i := range ph {
		ph[i] = s.placeFn(i + 1)
	}
	return `INSERT INTO books (position, bid, title, author, category, status) VALUES (` +
		strings.Join(ph, ", ") + `)`
}

func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}

// Package store wraps the file-backed SQLite database that holds the loaded
// table and runs the result query against it.
package store

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// ScalarFunc is a host function callable from SQL expressions.
// Impl must be a func accepted by sqlite3.SQLiteConn.RegisterFunc.
type ScalarFunc struct {
	Name string
	Impl any
	Pure bool
}

// Store is a SQLite database with the registered scalar functions available on every connection
type Store struct {
	db     *sql.DB
	path   string
	closed bool
}

// connector opens SQLite connections through a private driver value so each
// Store carries its own function set without global sql.Register calls.
type connector struct {
	dsn    string
	driver *sqlite3.SQLiteDriver
}

func (c *connector) Connect(_ context.Context) (driver.Conn, error) {
	return c.driver.Open(c.dsn)
}

func (c *connector) Driver() driver.Driver {
	return c.driver
}

// Open opens (creating if needed) the database file at path
func Open(path string, funcs ...ScalarFunc) (*Store, error) {
	drv := &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			for _, f := range funcs {
				if err := conn.RegisterFunc(f.Name, f.Impl, f.Pure); err != nil {
					return fmt.Errorf("failed to register function %s: %w", f.Name, err)
				}
			}
			return nil
		},
	}

	db := sql.OpenDB(&connector{dsn: path, driver: drv})

	// One connection: the pipeline is the only user of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection. Calling it more than once is a no-op.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// TableExists reports whether a table with the given name exists
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up table %s: %w", table, err)
	}
	return n > 0, nil
}

// Count returns the number of rows in table
func (s *Store) Count(ctx context.Context, table string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+QuoteIdent(table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return count, nil
}

// QuoteIdent quotes a SQL identifier, doubling embedded quotes
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

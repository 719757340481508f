package querysql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/siftgo/sift/filter"
)

// DB wraps a SQLite handle configured for query workloads.
// WAL mode keeps readers unblocked while a writer loads data.
type DB struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path. Use ":memory:"
// for an ephemeral database.
//
// The connection is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - foreign key enforcement
//
// Opening is idempotent; the pragmas are safe to reapply.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single connection avoids
	// SQLITE_BUSY and keeps :memory: databases visible to every caller.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	return &DB{db: db}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		// LIKE defaults to case-insensitive ASCII matching; the executable
		// backend compares case-sensitively, and the backends must agree.
		"PRAGMA case_sensitive_like = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	return d.db.Close()
}

// Handle returns the underlying sql.DB for schema setup and loading.
func (d *DB) Handle() *sql.DB {
	return d.db
}

// Exec runs a statement, typically DDL or inserts during loading.
func (d *DB) Exec(ctx context.Context, query string, args ...any) error {
	_, err := d.db.ExecContext(ctx, query, args...)
	return err
}

// Select compiles the criteria with c and returns the matching rows.
// Callers are responsible for closing the returned rows.
func (d *DB) Select(ctx context.Context, c *Compiler, table string, filters []filter.Node, sorts []filter.Sort) (*sql.Rows, error) {
	query, params, err := c.Select(table, filters, sorts)
	if err != nil {
		return nil, err
	}
	return d.db.QueryContext(ctx, query, params...)
}

// Count compiles the criteria with c and returns the number of matching rows.
func (d *DB) Count(ctx context.Context, c *Compiler, table string, filters []filter.Node) (int64, error) {
	query, params, err := c.Count(table, filters)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := d.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

// Package sqlite implements the repository interfaces on top of SQLite.
//
// This is the document store of the application: profiles, program metadata
// and follow relationships live in three tables. Blobs live elsewhere (see
// internal/blob); a program row only carries the blob key.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary
// builds without a C toolchain. The schema is versioned with goose and the
// migration files are embedded into the binary.
//
// SERVER TIMESTAMPS:
// Create methods stamp CreatedAt with the current UTC time when the caller
// leaves it zero, the same way a hosted document store assigns a server
// timestamp on write.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/pressly/goose/v3"
	sqlitedriver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrations embed.FS

// memoryPath is the special SQLite path for a throwaway in-memory database.
const memoryPath = ":memory:"

// DB wraps a sql.DB connection pool and implements the user, program and
// follow repositories.
type DB struct {
	conn *sql.DB
}

// New opens the database at dbPath and applies pending migrations.
//
// dbPath examples:
//   - "data/livt.db" → file-based database (persistent)
//   - ":memory:"     → in-memory database (tests)
//
// Pragmas are passed in the DSN so that every pooled connection gets them;
// foreign_keys in particular is a per-connection setting in SQLite.
func New(ctx context.Context, dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Each connection to ":memory:" is its own empty database, so the pool
	// must never grow beyond one connection.
	if dbPath == memoryPath {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if dbPath != memoryPath {
		// WAL lets readers proceed while a write is in progress. The
		// setting is stored in the file, so one Exec is enough.
		if _, err := conn.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
		}
	}

	db := &DB{conn: conn}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable. Used by the health route.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate applies the embedded goose migrations.
func (db *DB) migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db.conn, "migrations"); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}
	return nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite"
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// The driver error message names the column, e.g.
// "UNIQUE constraint failed: users.email".
func isUniqueViolation(err error) bool {
	var se *sqlitedriver.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}

// isForeignKeyViolation reports whether err is a FOREIGN KEY failure.
func isForeignKeyViolation(err error) bool {
	var se *sqlitedriver.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
	}
	return false
}

// execAffectingOne runs a write that must touch exactly one row. Zero rows
// affected means the record does not exist.
func (db *DB) execAffectingOne(ctx context.Context, notFound error, query string, args ...any) error {
	result, err := db.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

// SchemaVersion returns the highest applied migration version.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	v, err := goose.GetDBVersionContext(ctx, db.conn)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return v, nil
}

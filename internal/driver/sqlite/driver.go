// Package sqlite implements the sqldeck driver contracts for SQLite files,
// backed by database/sql and mattn/go-sqlite3.
//
// SQLite has no server session to configure: auto-commit and isolation
// requests report themselves unsupported and the session's metadata guard
// supplies defaults where optional metadata is missing.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/errs"
)

// Driver resolves and opens SQLite database files.
type Driver struct{}

// New returns the SQLite driver.
func New() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "sqlite" }

func (d *Driver) AcceptsURL(target string) bool {
	return strings.HasPrefix(target, "sqlite://") ||
		strings.HasPrefix(target, "file:") ||
		strings.HasSuffix(target, ".db") ||
		strings.HasSuffix(target, ".sqlite")
}

func (d *Driver) Open(ctx context.Context, target string, props map[string]string) (driver.Conn, error) {
	path := strings.TrimPrefix(target, "sqlite://")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, mapError(err, "open failed")
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, mapError(err, "open failed")
	}

	return &conn{db: db}, nil
}

// conn is one live SQLite connection.
type conn struct {
	db       *sql.DB
	closed   bool
	warnings []string
}

func (c *conn) Metadata() (driver.Metadata, error) {
	return &metadata{db: c.db}, nil
}

// Catalog returns SQLite's fixed primary database name.
func (c *conn) Catalog(ctx context.Context) (string, error) {
	return "main", nil
}

func (c *conn) CurrentSchema(ctx context.Context) (string, error) {
	return "", nil
}

func (c *conn) SetAutoCommit(ctx context.Context, on bool) error {
	return errs.New(errs.ErrKindUnsupported, "sqlite connections do not expose an autocommit toggle")
}

// AutoCommit is always true: SQLite commits each statement unless an
// explicit transaction is open.
func (c *conn) AutoCommit() bool { return true }

func (c *conn) SetIsolation(ctx context.Context, level string) error {
	return errs.New(errs.ErrKindUnsupported, "sqlite connections do not support isolation levels")
}

func (c *conn) Warnings() []string {
	w := c.warnings
	c.warnings = nil
	return w
}

func (c *conn) IsClosed() bool { return c.closed }

func (c *conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	if err := c.db.Close(); err != nil {
		return mapError(err, "close failed")
	}
	return nil
}

// metadata answers metadata queries over the live connection.
type metadata struct {
	db *sql.DB
}

func (m *metadata) IdentifierQuoteString() (string, error) {
	return `"`, nil
}

func (m *metadata) DatabaseProductName() (string, error) {
	return "SQLite", nil
}

func (m *metadata) DatabaseProductVersion() (string, error) {
	var version string
	if err := m.db.QueryRow(`SELECT sqlite_version()`).Scan(&version); err != nil {
		return "", mapError(err, "failed to read sqlite version")
	}
	return version, nil
}

// SQLKeywords is not exposed by the driver; the metadata guard substitutes
// an empty keyword set.
func (m *metadata) SQLKeywords() (string, error) {
	return "", errs.New(errs.ErrKindUnsupported, "sqlite driver reports no keyword list")
}

func (m *metadata) StoresUpperCaseIdentifiers() (bool, error) {
	return false, nil
}

func (m *metadata) DriverName() (string, error) {
	return "mattn/go-sqlite3", nil
}

func (m *metadata) DriverVersion() (string, error) {
	version, _, _ := sqlite3.Version()
	return version, nil
}

// Tables lists objects from sqlite_master, skipping SQLite's internal
// tables. catalog and schemaPattern are ignored: a connection sees one
// database.
func (m *metadata) Tables(ctx context.Context, catalog, schemaPattern, namePattern string, types []string) ([]driver.TableRow, error) {
	if namePattern == "" {
		namePattern = "%"
	}

	wantTables, wantViews := false, false
	for _, t := range types {
		switch strings.ToUpper(t) {
		case "TABLE":
			wantTables = true
		case "VIEW":
			wantViews = true
		}
	}
	if !wantTables && !wantViews {
		wantTables = true
	}

	const q = `
		SELECT name, type
		FROM sqlite_master
		WHERE type IN ('table', 'view')
		  AND name NOT LIKE 'sqlite_%'
		  AND name LIKE ?
		ORDER BY name`

	rows, err := m.db.QueryContext(ctx, q, namePattern)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	var out []driver.TableRow
	for rows.Next() {
		var name, objType string
		if err := rows.Scan(&name, &objType); err != nil {
			return nil, mapError(err, "failed to scan table row")
		}
		if objType == "table" && !wantTables {
			continue
		}
		if objType == "view" && !wantViews {
			continue
		}
		rowType := "TABLE"
		if objType == "view" {
			rowType = "VIEW"
		}
		out = append(out, driver.TableRow{Catalog: "main", Name: name, Type: rowType})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return out, nil
}

// mapError translates sqlite3 errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrCantOpen, sqlite3.ErrNotADB:
			return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
		case sqlite3.ErrPerm, sqlite3.ErrAuth, sqlite3.ErrReadonly:
			return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
		default:
			return errs.Wrap(errs.ErrKindQueryFailed, msg, err)
		}
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// Package driver defines the contracts between the session layer and the
// database engines, plus the registry that resolves a driver for a target URL.
//
// All layers above this package talk only to these interfaces — they never
// import the mysql, postgres, or sqlite packages directly.
package driver

import "context"

// Property keys under which the session injects credentials before Open.
const (
	PropUser     = "user"
	PropPassword = "password"
)

// Driver locates and opens connections for one database engine.
type Driver interface {
	// Name is the identifier used for load-by-name resolution ("mysql", …).
	Name() string

	// AcceptsURL reports whether this driver can handle the target URL.
	AcceptsURL(url string) bool

	// Open establishes a new connection. props carries extra connection
	// properties; credentials arrive under PropUser / PropPassword.
	Open(ctx context.Context, url string, props map[string]string) (Conn, error)
}

// Conn is one live database connection.
// A Conn is driven by a single control flow; it is not safe for concurrent use.
type Conn interface {
	// Metadata returns the connection's metadata handle.
	Metadata() (Metadata, error)

	// Catalog returns the connection's current catalog, "" if none.
	Catalog(ctx context.Context) (string, error)

	// CurrentSchema returns the connection's current schema, "" if none.
	CurrentSchema(ctx context.Context) (string, error)

	// SetAutoCommit toggles auto-commit. Drivers without the concept return
	// an errs.ErrKindUnsupported error.
	SetAutoCommit(ctx context.Context, on bool) error

	// AutoCommit reports the connection's current auto-commit state.
	AutoCommit() bool

	// SetIsolation applies a transaction isolation level by name.
	SetIsolation(ctx context.Context, level string) error

	// Warnings drains and returns warnings accumulated since the last call.
	Warnings() []string

	// IsClosed reports whether Close has been called.
	IsClosed() bool

	// Close releases the connection. Safe to call more than once.
	Close() error
}

// Metadata describes a connected database: its product, its SQL surface,
// and its catalog contents. Individual calls may fail independently —
// drivers with gaps return errs.ErrKindUnsupported rather than guessing.
type Metadata interface {
	// IdentifierQuoteString returns the string used to quote identifiers,
	// "" when the engine supports no quoting.
	IdentifierQuoteString() (string, error)

	// DatabaseProductName returns the engine's product name.
	DatabaseProductName() (string, error)

	// DatabaseProductVersion returns the engine's version string.
	DatabaseProductVersion() (string, error)

	// SQLKeywords returns the engine's non-standard reserved words as a
	// comma-separated list.
	SQLKeywords() (string, error)

	// StoresUpperCaseIdentifiers reports whether unquoted identifiers are
	// folded to upper case.
	StoresUpperCaseIdentifiers() (bool, error)

	// DriverName returns the driver implementation's name.
	DriverName() (string, error)

	// DriverVersion returns the driver implementation's version.
	DriverVersion() (string, error)

	// Tables lists catalog objects matching the patterns, in the order the
	// engine reports them. A "%" namePattern matches everything; an empty
	// schemaPattern means all schemas; types filters on object type
	// (e.g. "TABLE").
	Tables(ctx context.Context, catalog, schemaPattern, namePattern string, types []string) ([]TableRow, error)
}

// TableRow is one row of a Metadata.Tables listing.
type TableRow struct {
	Catalog string
	Schema  string
	Name    string
	Type    string
}

// Package postgres implements the sqldeck driver contracts for PostgreSQL,
// backed by a single pgx connection. The session layer never imports this
// package directly; it arrives through the registry's known-drivers hook.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/errs"
)

// Driver resolves and opens PostgreSQL connections.
type Driver struct{}

// New returns the PostgreSQL driver.
func New() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "postgres" }

func (d *Driver) AcceptsURL(target string) bool {
	return strings.HasPrefix(target, "postgres://") || strings.HasPrefix(target, "postgresql://")
}

// Open dials PostgreSQL with one pgx connection — no pool. The session
// owns exactly one live connection at a time.
func (d *Driver) Open(ctx context.Context, target string, props map[string]string) (driver.Conn, error) {
	cfg, err := pgx.ParseConfig(target)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid postgres URL", err)
	}

	for k, v := range props {
		switch k {
		case driver.PropUser:
			if v != "" {
				cfg.User = v
			}
		case driver.PropPassword:
			if v != "" {
				cfg.Password = v
			}
		default:
			cfg.RuntimeParams[k] = v
		}
	}

	pgconn, err := pgx.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, mapError(err, "open failed")
	}
	return &conn{pg: pgconn, autoCommit: true}, nil
}

// conn is one live PostgreSQL connection.
type conn struct {
	pg         *pgx.Conn
	autoCommit bool
	closed     bool
	warnings   []string
}

func (c *conn) Metadata() (driver.Metadata, error) {
	return &metadata{pg: c.pg}, nil
}

func (c *conn) Catalog(ctx context.Context) (string, error) {
	var name string
	if err := c.pg.QueryRow(ctx, `SELECT current_database()`).Scan(&name); err != nil {
		return "", mapError(err, "failed to read current database")
	}
	return name, nil
}

func (c *conn) CurrentSchema(ctx context.Context) (string, error) {
	var name string
	if err := c.pg.QueryRow(ctx, `SELECT current_schema()`).Scan(&name); err != nil {
		return "", mapError(err, "failed to read current schema")
	}
	return name, nil
}

// SetAutoCommit accepts only the server's native mode. PostgreSQL commits
// every statement unless a transaction is open; client-managed manual
// commit is not emulated here.
func (c *conn) SetAutoCommit(ctx context.Context, on bool) error {
	if !on {
		return errs.New(errs.ErrKindUnsupported, "manual commit mode is not supported on postgres connections")
	}
	c.autoCommit = true
	return nil
}

func (c *conn) AutoCommit() bool { return c.autoCommit }

func (c *conn) SetIsolation(ctx context.Context, level string) error {
	normalized, err := isolationLevel(level)
	if err != nil {
		return err
	}
	_, err = c.pg.Exec(ctx, `SET SESSION CHARACTERISTICS AS TRANSACTION ISOLATION LEVEL `+normalized)
	if err != nil {
		return mapError(err, "failed to set isolation level")
	}
	return nil
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
	if err := c.pg.Close(context.Background()); err != nil {
		return mapError(err, "close failed")
	}
	return nil
}

func isolationLevel(level string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(level))
	normalized = strings.TrimPrefix(normalized, "TRANSACTION_")
	normalized = strings.ReplaceAll(normalized, "_", " ")
	switch normalized {
	case "READ UNCOMMITTED", "READ COMMITTED", "REPEATABLE READ", "SERIALIZABLE":
		return normalized, nil
	}
	return "", errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown isolation level %q", level))
}

// Package mysql implements the sqldeck driver contracts for MySQL, backed
// by database/sql and go-sql-driver. The session layer never imports this
// package directly; it arrives through the registry's known-drivers hook.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/errs"
)

// Driver resolves and opens MySQL connections.
type Driver struct{}

// New returns the MySQL driver.
func New() *Driver { return &Driver{} }

func (d *Driver) Name() string { return "mysql" }

// AcceptsURL accepts mysql:// URLs and raw go-sql-driver DSNs.
func (d *Driver) AcceptsURL(target string) bool {
	if strings.HasPrefix(target, "mysql://") {
		return true
	}
	_, err := mysqldrv.ParseDSN(target)
	return err == nil
}

// Open dials MySQL. The pool is pinned to a single connection: a session
// owns exactly one live connection at a time and server-side session state
// (autocommit, isolation) must stick to it.
func (d *Driver) Open(ctx context.Context, target string, props map[string]string) (driver.Conn, error) {
	cfg, err := buildConfig(target, props)
	if err != nil {
		return nil, err
	}

	connector, err := mysqldrv.NewConnector(cfg)
	if err != nil {
		return nil, mapError(err, "open failed")
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, mapError(err, "open failed")
	}

	return &conn{db: db, autoCommit: true}, nil
}

// buildConfig translates a mysql:// URL or raw DSN plus properties into a
// go-sql-driver config.
func buildConfig(target string, props map[string]string) (*mysqldrv.Config, error) {
	var cfg *mysqldrv.Config

	if strings.HasPrefix(target, "mysql://") {
		u, err := url.Parse(target)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql URL", err)
		}
		cfg = mysqldrv.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			if pw, ok := u.User.Password(); ok {
				cfg.Passwd = pw
			}
		}
	} else {
		parsed, err := mysqldrv.ParseDSN(target)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid mysql DSN", err)
		}
		cfg = parsed
	}

	for k, v := range props {
		switch k {
		case driver.PropUser:
			if v != "" {
				cfg.User = v
			}
		case driver.PropPassword:
			if v != "" {
				cfg.Passwd = v
			}
		default:
			if cfg.Params == nil {
				cfg.Params = make(map[string]string)
			}
			cfg.Params[k] = v
		}
	}
	return cfg, nil
}

// conn is one live MySQL connection.
type conn struct {
	db         *sql.DB
	autoCommit bool
	closed     bool
	warnings   []string
}

func (c *conn) Metadata() (driver.Metadata, error) {
	return &metadata{db: c.db}, nil
}

// Catalog returns the connection's current database. MySQL treats catalog
// and schema as the same namespace.
func (c *conn) Catalog(ctx context.Context) (string, error) {
	var name sql.NullString
	if err := c.db.QueryRowContext(ctx, `SELECT DATABASE()`).Scan(&name); err != nil {
		return "", mapError(err, "failed to read current database")
	}
	return name.String, nil
}

func (c *conn) CurrentSchema(ctx context.Context) (string, error) {
	return c.Catalog(ctx)
}

func (c *conn) SetAutoCommit(ctx context.Context, on bool) error {
	val := 0
	if on {
		val = 1
	}
	if _, err := c.db.ExecContext(ctx, fmt.Sprintf(`SET autocommit = %d`, val)); err != nil {
		return mapError(err, "failed to set autocommit")
	}
	c.autoCommit = on
	return nil
}

func (c *conn) AutoCommit() bool { return c.autoCommit }

func (c *conn) SetIsolation(ctx context.Context, level string) error {
	normalized, err := isolationLevel(level)
	if err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, `SET SESSION TRANSACTION ISOLATION LEVEL `+normalized); err != nil {
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
	if err := c.db.Close(); err != nil {
		return mapError(err, "close failed")
	}
	return nil
}

// isolationLevel normalizes a level name ("READ COMMITTED" or the
// underscore form "TRANSACTION_READ_COMMITTED") into server syntax.
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

// --- error mapping ---

// mapError translates go-sql-driver errors into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *mysqldrv.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(classifyCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message), err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyCode maps MySQL error numbers to error kinds.
func classifyCode(code uint16) errs.ErrKind {
	switch code {
	case 1044, 1045, 1142:
		return errs.ErrKindPermissionDenied
	case 1040, 1046, 1049, 1203:
		return errs.ErrKindConnectionFailed
	case 1054, 1064, 1146:
		return errs.ErrKindQueryFailed
	default:
		return errs.ErrKindQueryFailed
	}
}

// Package session owns the lifecycle of one logical database connection:
// driver resolution, connect and teardown, dialect discovery, and the
// lazily cached view of the catalog's tables.
//
// One Session is driven by one interactive control flow at a time.
// Concurrent calls on the same Session must be serialized by the caller.
package session

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/sqldeck/sqldeck/internal/dialect"
	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/errs"
	"github.com/sqldeck/sqldeck/internal/logger"
)

// Options are the post-connect settings applied best-effort on every
// successful connect.
type Options struct {
	// AutoCommit is applied to the new connection after open.
	AutoCommit bool

	// Isolation is the transaction isolation level name handed to the
	// shell's isolation handler. "" leaves the driver default.
	Isolation string
}

// DefaultOptions mirror the behavior of a fresh interactive session.
func DefaultOptions() Options {
	return Options{AutoCommit: true}
}

// Config is the stored configuration of a Session. Constructing a Session
// performs no I/O; everything here is used lazily by Connect.
type Config struct {
	// URL is the target address, e.g. "postgres://host:5432/app".
	URL string

	// Driver optionally names the driver to load before probing. "" lets
	// the registry probe by URL alone.
	Driver string

	Username string
	Password string

	// Properties are extra connection properties passed through to the
	// driver. Credentials are merged in under driver.PropUser/PropPassword.
	Properties map[string]string

	// Nickname is an optional human-assigned label for the connection.
	Nickname string

	Options Options
}

// Session holds one database connection, its credentials, and the state
// derived from it (dialect, schema cache, completion artifact).
//
// Invariant: conn and meta are both nil or both non-nil; dialect is non-nil
// only while connected (and may be nil even then, after a degraded connect).
type Session struct {
	id    string
	cfg   Config
	reg   *driver.Registry
	shell Shell
	log   *logger.Logger

	conn      driver.Conn
	meta      driver.Metadata // guarded; never the raw handle
	dialect   *dialect.Dialect
	schema    *Schema
	completer Completer
}

// New creates a disconnected Session from cfg. reg must not be nil; a nil
// shell gets a ConsoleShell over log, and a nil log gets logger defaults.
func New(cfg Config, reg *driver.Registry, shell Shell, log *logger.Logger) *Session {
	if log == nil {
		log = logger.New(nil)
	}
	id := uuid.NewString()
	log = log.With().Str("session", id).Str("url", cfg.URL).Logger()
	if shell == nil {
		shell = NewConsoleShell(log)
	}
	return &Session{id: id, cfg: cfg, reg: reg, shell: shell, log: log}
}

// ID returns the session's unique identifier (a log correlation field).
func (s *Session) ID() string { return s.id }

// URL returns the configured target address.
func (s *Session) URL() string { return s.cfg.URL }

// Nickname returns the human-assigned label, "" if none.
func (s *Session) Nickname() string { return s.cfg.Nickname }

// SetNickname assigns a human label to the connection.
func (s *Session) SetNickname(nickname string) { s.cfg.Nickname = nickname }

// Connected reports whether a connection handle is live.
func (s *Session) Connected() bool { return s.conn != nil }

// Dialect returns the dialect built at connect time. It is nil while
// disconnected, and may be nil on a connected session whose dialect
// initialization failed — callers must treat it as optional.
func (s *Session) Dialect() *dialect.Dialect { return s.dialect }

// Metadata returns the guarded metadata handle, nil while disconnected.
func (s *Session) Metadata() driver.Metadata { return s.meta }

// Completer returns the completion artifact, nil until SetCompletions ran.
func (s *Session) Completer() Completer { return s.completer }

// SetCompletions rebuilds the completion artifact through the shell.
// skipMeta builds from dialect keywords only, without catalog lookups.
func (s *Session) SetCompletions(ctx context.Context, skipMeta bool) {
	s.completer = s.shell.BuildCompleter(ctx, s, skipMeta)
}

func (s *Session) String() string { return s.cfg.URL }

// Connect resolves a driver, opens a connection, and derives the session
// state from it.
//
// Only two failures abort: a named driver that cannot be loaded, and no
// driver accepting the URL / the open itself failing. Both leave the
// session fully disconnected. Everything after the handles are stored —
// diagnostics, auto-commit, isolation, dialect — is best-effort: failures
// are reported through the shell and the session stays connected, possibly
// with a nil dialect.
func (s *Session) Connect(ctx context.Context) error {
	if s.cfg.Driver != "" {
		if _, err := s.reg.Load(s.cfg.Driver); err != nil {
			s.shell.Error(err)
			return err
		}
	}

	d, ok := s.reg.DriverFor(s.cfg.URL)
	if !ok {
		s.shell.Output(fmt.Sprintf("no known driver for %s; registering known drivers", s.cfg.URL))
		s.reg.RegisterKnownDrivers()
		if d, ok = s.reg.DriverFor(s.cfg.URL); !ok {
			err := errs.New(errs.ErrKindNoDriver,
				fmt.Sprintf("no registered driver accepts %s (registered: %v)", s.cfg.URL, s.reg.Names()))
			s.shell.Error(err)
			return err
		}
	}

	// At most one connection handle is live per session.
	s.Close()

	props := make(map[string]string, len(s.cfg.Properties)+2)
	for k, v := range s.cfg.Properties {
		props[k] = v
	}
	props[driver.PropUser] = s.cfg.Username
	props[driver.PropPassword] = s.cfg.Password

	conn, err := d.Open(ctx, s.cfg.URL, props)
	if err != nil {
		s.shell.Error(err)
		return err
	}

	raw, err := conn.Metadata()
	if err != nil {
		_ = conn.Close()
		s.shell.Error(err)
		return err
	}
	s.conn = conn
	s.meta = guardMetadata(raw)

	if err := s.debugProduct(); err != nil {
		s.shell.HandleException(err)
	}
	if err := s.debugDriver(); err != nil {
		s.shell.HandleException(err)
	}

	if err := s.applyAutoCommit(ctx); err != nil {
		s.shell.HandleException(err)
	}

	if err := s.shell.Isolation(ctx, s.conn, s.cfg.Options.Isolation); err != nil {
		s.shell.HandleException(err)
	}
	if err := s.initDialect(); err != nil {
		s.shell.HandleException(err)
	}

	s.shell.ShowWarnings(s.conn.Warnings())

	return nil
}

// Connection returns the live handle, connecting first if necessary. After
// a lazy connect succeeds the completion artifact is rebuilt.
func (s *Session) Connection(ctx context.Context) (driver.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	if err := s.Connect(ctx); err != nil {
		return nil, err
	}
	s.SetCompletions(ctx, false)
	return s.conn, nil
}

// Reconnect closes the current connection and establishes a fresh one.
// Unlike Connect's internal best-effort steps, failures here propagate.
func (s *Session) Reconnect(ctx context.Context) error {
	s.Close()
	_, err := s.Connection(ctx)
	return err
}

// Close tears down the connection. Idempotent; close failures are reported
// but the handle, metadata, dialect, and schema fields are reset on every
// teardown path, so a session is never left half-connected.
//
// Without a live handle there is no connected lifetime to discard, and the
// schema cache survives: Connect runs Close before opening, and a lazy
// connect triggered from inside Schema population must not discard the
// cache it is filling.
func (s *Session) Close() {
	if s.conn == nil {
		return
	}

	defer func() {
		s.conn = nil
		s.meta = nil
		s.dialect = nil
		s.schema = nil
	}()

	if s.conn.IsClosed() {
		return
	}
	s.shell.Output(fmt.Sprintf("closing: %s", s.cfg.URL))
	if err := s.conn.Close(); err != nil {
		s.shell.HandleException(err)
	}
}

// CurrentSchema returns the connection's current schema, best-effort:
// "" on any failure, including not being connected.
func (s *Session) CurrentSchema(ctx context.Context) string {
	if s.conn == nil {
		return ""
	}
	schema, err := s.conn.CurrentSchema(ctx)
	if err != nil {
		return ""
	}
	return schema
}

// initDialect reads the dialect inputs from the guarded metadata and
// replaces the session's dialect wholesale. A quote string longer than one
// character is reported as unsupported and treated as absent.
func (s *Session) initDialect() error {
	quote, err := s.meta.IdentifierQuoteString()
	if err != nil {
		return err
	}
	if utf8.RuneCountInString(quote) > 1 {
		s.shell.Error(errs.New(errs.ErrKindUnsupported,
			fmt.Sprintf("identifier quote string is %q; quote strings longer than 1 char are not supported", quote)))
		quote = ""
	}

	product, err := s.meta.DatabaseProductName()
	if err != nil {
		return err
	}
	keywords, err := s.meta.SQLKeywords()
	if err != nil {
		return err
	}
	storesUpper, err := s.meta.StoresUpperCaseIdentifiers()
	if err != nil {
		return err
	}

	s.dialect = dialect.New(dialect.SplitKeywords(keywords), quote, product, storesUpper)
	return nil
}

func (s *Session) debugProduct() error {
	name, err := s.meta.DatabaseProductName()
	if err != nil {
		return err
	}
	version, err := s.meta.DatabaseProductVersion()
	if err != nil {
		return err
	}
	s.shell.Debug(fmt.Sprintf("connected to %s %s", name, version))
	s.log.Debugf("connected to %s %s", name, version)
	return nil
}

func (s *Session) debugDriver() error {
	name, err := s.meta.DriverName()
	if err != nil {
		return err
	}
	version, err := s.meta.DriverVersion()
	if err != nil {
		return err
	}
	s.shell.Debug(fmt.Sprintf("driver: %s %s", name, version))
	return nil
}

func (s *Session) applyAutoCommit(ctx context.Context) error {
	if err := s.conn.SetAutoCommit(ctx, s.cfg.Options.AutoCommit); err != nil {
		return err
	}
	s.shell.AutocommitStatus(s.conn)
	return nil
}

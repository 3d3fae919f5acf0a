package session

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/errs"
)

// --- fakes ---
//
// The connect sequence needs scripted metadata failures (oversized quote
// strings, unsupported optional calls, mid-sequence errors) that no real
// engine produces on demand, so the session tests run against an in-package
// fake driver stack.

type fakeMeta struct {
	quote          string
	quoteErr       error
	product        string
	productVersion string
	productErr     error
	keywords       string
	keywordsErr    error
	storesUpper    bool
	storesUpperErr error
	driverName     string
	driverNameErr  error
	driverVersion  string
	tables         []driver.TableRow
	tablesErr      error
	tablesCalls    int
}

func (m *fakeMeta) IdentifierQuoteString() (string, error) { return m.quote, m.quoteErr }
func (m *fakeMeta) DatabaseProductName() (string, error)   { return m.product, m.productErr }
func (m *fakeMeta) DatabaseProductVersion() (string, error) {
	return m.productVersion, nil
}
func (m *fakeMeta) SQLKeywords() (string, error) { return m.keywords, m.keywordsErr }
func (m *fakeMeta) StoresUpperCaseIdentifiers() (bool, error) {
	return m.storesUpper, m.storesUpperErr
}
func (m *fakeMeta) DriverName() (string, error)    { return m.driverName, m.driverNameErr }
func (m *fakeMeta) DriverVersion() (string, error) { return m.driverVersion, nil }
func (m *fakeMeta) Tables(_ context.Context, _, _, _ string, _ []string) ([]driver.TableRow, error) {
	m.tablesCalls++
	return m.tables, m.tablesErr
}

type fakeConn struct {
	meta       *fakeMeta
	metaErr    error
	catalog    string
	catalogErr error
	schema     string
	schemaErr  error
	autoCommit bool
	acErr      error
	isoErr     error
	warnings   []string
	closed     bool
	closeErr   error
	closeCalls int
}

func (c *fakeConn) Metadata() (driver.Metadata, error) {
	if c.metaErr != nil {
		return nil, c.metaErr
	}
	return c.meta, nil
}
func (c *fakeConn) Catalog(context.Context) (string, error) { return c.catalog, c.catalogErr }
func (c *fakeConn) CurrentSchema(context.Context) (string, error) {
	return c.schema, c.schemaErr
}
func (c *fakeConn) SetAutoCommit(_ context.Context, on bool) error {
	if c.acErr != nil {
		return c.acErr
	}
	c.autoCommit = on
	return nil
}
func (c *fakeConn) AutoCommit() bool                           { return c.autoCommit }
func (c *fakeConn) SetIsolation(context.Context, string) error { return c.isoErr }
func (c *fakeConn) Warnings() []string {
	w := c.warnings
	c.warnings = nil
	return w
}
func (c *fakeConn) IsClosed() bool { return c.closed }
func (c *fakeConn) Close() error {
	c.closeCalls++
	c.closed = true
	return c.closeErr
}

type fakeDriver struct {
	name      string
	prefix    string
	next      func() *fakeConn
	openErr   error
	openCalls int
	lastProps map[string]string
	conns     []*fakeConn
}

func (d *fakeDriver) Name() string               { return d.name }
func (d *fakeDriver) AcceptsURL(url string) bool { return strings.HasPrefix(url, d.prefix) }
func (d *fakeDriver) Open(_ context.Context, _ string, props map[string]string) (driver.Conn, error) {
	d.openCalls++
	d.lastProps = props
	if d.openErr != nil {
		return nil, d.openErr
	}
	conn := d.next()
	d.conns = append(d.conns, conn)
	return conn, nil
}

type recordShell struct {
	outputs    []string
	debugs     []string
	errors     []error
	handled    []error
	warnings   []string
	isolations []string
	completers int
}

func (r *recordShell) Output(msg string)            { r.outputs = append(r.outputs, msg) }
func (r *recordShell) Debug(msg string)             { r.debugs = append(r.debugs, msg) }
func (r *recordShell) Error(err error)              { r.errors = append(r.errors, err) }
func (r *recordShell) HandleException(err error)    { r.handled = append(r.handled, err) }
func (r *recordShell) AutocommitStatus(driver.Conn) {}
func (r *recordShell) Isolation(ctx context.Context, conn driver.Conn, level string) error {
	r.isolations = append(r.isolations, level)
	if level == "" {
		return nil
	}
	return conn.SetIsolation(ctx, level)
}
func (r *recordShell) ShowWarnings(warnings []string) { r.warnings = append(r.warnings, warnings...) }
func (r *recordShell) BuildCompleter(context.Context, *Session, bool) Completer {
	r.completers++
	return &wordCompleter{}
}

func healthyMeta() *fakeMeta {
	return &fakeMeta{
		quote:          `"`,
		product:        "TestDB",
		productVersion: "1.0",
		keywords:       "LIMIT,OFFSET",
		driverName:     "testdrv",
		driverVersion:  "0.1",
		tables: []driver.TableRow{
			{Name: "accounts", Type: "TABLE"},
			{Name: "orders", Type: "TABLE"},
		},
	}
}

func newFixture(meta *fakeMeta) (*Session, *fakeDriver, *recordShell) {
	drv := &fakeDriver{
		name:   "testdrv",
		prefix: "db://",
		next:   func() *fakeConn { return &fakeConn{meta: meta, catalog: "main"} },
	}
	reg := driver.NewRegistry()
	reg.Register(drv)
	shell := &recordShell{}
	sess := New(Config{
		URL:      "db://test",
		Username: "u",
		Password: "p",
		Options:  DefaultOptions(),
	}, reg, shell, nil)
	return sess, drv, shell
}

// --- connect lifecycle ---

func TestConnectSuccess(t *testing.T) {
	sess, drv, _ := newFixture(healthyMeta())

	require.NoError(t, sess.Connect(context.Background()))

	assert.True(t, sess.Connected())
	assert.NotNil(t, sess.Metadata())
	require.NotNil(t, sess.Dialect())
	assert.Equal(t, "TestDB", sess.Dialect().ProductName())
	assert.True(t, sess.Dialect().IsKeyword("limit"))

	// credentials injected under the fixed property keys
	assert.Equal(t, "u", drv.lastProps[driver.PropUser])
	assert.Equal(t, "p", drv.lastProps[driver.PropPassword])

	// auto-commit applied per options
	assert.True(t, drv.conns[0].autoCommit)
}

func TestConnectNamedDriverMissing(t *testing.T) {
	sess, _, shell := newFixture(healthyMeta())
	sess.cfg.Driver = "nosuch"

	err := sess.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.False(t, sess.Connected())
	assert.Nil(t, sess.Metadata())
	assert.Nil(t, sess.Dialect())
	assert.NotEmpty(t, shell.errors)
}

func TestConnectNoDriverNoFallback(t *testing.T) {
	reg := driver.NewRegistry()
	shell := &recordShell{}
	sess := New(Config{URL: "db://test"}, reg, shell, nil)

	err := sess.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsNoDriver(err))
	assert.False(t, sess.Connected())
	assert.Nil(t, sess.Metadata())
}

func TestConnectKnownDriversFallback(t *testing.T) {
	meta := healthyMeta()
	drv := &fakeDriver{
		name:   "testdrv",
		prefix: "db://",
		next:   func() *fakeConn { return &fakeConn{meta: meta} },
	}

	reg := driver.NewRegistry()
	hookCalls := 0
	reg.SetKnownDrivers(func(r *driver.Registry) {
		hookCalls++
		r.Register(drv)
	})

	shell := &recordShell{}
	sess := New(Config{URL: "db://test", Username: "u", Password: "p", Options: DefaultOptions()},
		reg, shell, nil)

	require.NoError(t, sess.Connect(context.Background()))
	assert.Equal(t, 1, hookCalls)
	assert.True(t, sess.Connected())
	require.NotNil(t, sess.Dialect())
	assert.Equal(t, "TestDB", sess.Dialect().ProductName())

	// informational message announced the fallback
	require.NotEmpty(t, shell.outputs)
	assert.Contains(t, shell.outputs[0], "db://test")
}

func TestConnectClosesPriorConnection(t *testing.T) {
	sess, drv, _ := newFixture(healthyMeta())
	ctx := context.Background()

	require.NoError(t, sess.Connect(ctx))
	require.NoError(t, sess.Connect(ctx))

	require.Len(t, drv.conns, 2)
	assert.True(t, drv.conns[0].closed)
	assert.False(t, drv.conns[1].closed)
}

func TestConnectOpenFailure(t *testing.T) {
	sess, drv, shell := newFixture(healthyMeta())
	drv.openErr = errs.New(errs.ErrKindConnectionFailed, "refused")

	err := sess.Connect(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
	assert.False(t, sess.Connected())
	assert.Nil(t, sess.Metadata())
	assert.NotEmpty(t, shell.errors)
}

func TestConnectMetadataFailure(t *testing.T) {
	meta := healthyMeta()
	drv := &fakeDriver{
		name:   "testdrv",
		prefix: "db://",
		next: func() *fakeConn {
			return &fakeConn{meta: meta, metaErr: errs.New(errs.ErrKindQueryFailed, "no metadata")}
		},
	}
	reg := driver.NewRegistry()
	reg.Register(drv)
	sess := New(Config{URL: "db://test"}, reg, &recordShell{}, nil)

	err := sess.Connect(context.Background())
	require.Error(t, err)
	assert.False(t, sess.Connected())
	// the half-opened connection was released
	require.Len(t, drv.conns, 1)
	assert.True(t, drv.conns[0].closed)
}

func TestConnectOversizedQuoteString(t *testing.T) {
	meta := healthyMeta()
	meta.quote = `""`
	sess, _, shell := newFixture(meta)

	require.NoError(t, sess.Connect(context.Background()))

	require.NotNil(t, sess.Dialect())
	_, ok := sess.Dialect().IdentifierQuote()
	assert.False(t, ok)

	require.NotEmpty(t, shell.errors)
	assert.Contains(t, shell.errors[0].Error(), `""`)
	assert.Contains(t, shell.errors[0].Error(), "not supported")
}

func TestConnectEmptyQuoteString(t *testing.T) {
	meta := healthyMeta()
	meta.quote = ""
	sess, _, shell := newFixture(meta)

	require.NoError(t, sess.Connect(context.Background()))
	require.NotNil(t, sess.Dialect())
	_, ok := sess.Dialect().IdentifierQuote()
	assert.False(t, ok)
	assert.Empty(t, shell.errors)
}

func TestConnectDegradedDialect(t *testing.T) {
	// A hard keyword failure is contained: the session stays connected but
	// the dialect is absent.
	meta := healthyMeta()
	meta.keywordsErr = errs.New(errs.ErrKindQueryFailed, "keywords query failed")
	sess, _, shell := newFixture(meta)

	require.NoError(t, sess.Connect(context.Background()))
	assert.True(t, sess.Connected())
	assert.Nil(t, sess.Dialect())
	assert.NotEmpty(t, shell.handled)
}

func TestConnectUnsupportedOptionalMetadata(t *testing.T) {
	// Unsupported optional calls are absorbed by the metadata guard and the
	// dialect is built from guard defaults.
	meta := healthyMeta()
	unsupported := errs.New(errs.ErrKindUnsupported, "not implemented")
	meta.quoteErr = unsupported
	meta.keywordsErr = unsupported
	meta.storesUpperErr = unsupported
	sess, _, shell := newFixture(meta)

	require.NoError(t, sess.Connect(context.Background()))
	require.NotNil(t, sess.Dialect())

	q, ok := sess.Dialect().IdentifierQuote()
	assert.True(t, ok)
	assert.Equal(t, `"`, q)
	assert.Empty(t, sess.Dialect().Keywords())
	assert.False(t, sess.Dialect().StoresUpperCaseIdentifiers())
	assert.Empty(t, shell.handled)
}

func TestConnectBestEffortAutoCommit(t *testing.T) {
	meta := healthyMeta()
	drv := &fakeDriver{
		name:   "testdrv",
		prefix: "db://",
		next: func() *fakeConn {
			return &fakeConn{meta: meta, acErr: errs.New(errs.ErrKindUnsupported, "no autocommit")}
		},
	}
	reg := driver.NewRegistry()
	reg.Register(drv)
	shell := &recordShell{}
	sess := New(Config{URL: "db://test", Options: DefaultOptions()}, reg, shell, nil)

	require.NoError(t, sess.Connect(context.Background()))
	assert.True(t, sess.Connected())
	assert.NotEmpty(t, shell.handled)
}

func TestConnectSurfacesWarnings(t *testing.T) {
	meta := healthyMeta()
	drv := &fakeDriver{
		name:   "testdrv",
		prefix: "db://",
		next: func() *fakeConn {
			return &fakeConn{meta: meta, warnings: []string{"deprecated parameter"}}
		},
	}
	reg := driver.NewRegistry()
	reg.Register(drv)
	shell := &recordShell{}
	sess := New(Config{URL: "db://test", Options: DefaultOptions()}, reg, shell, nil)

	require.NoError(t, sess.Connect(context.Background()))
	assert.Equal(t, []string{"deprecated parameter"}, shell.warnings)
}

// --- getConnection / reconnect / close ---

func TestConnectionLazyConnectRebuildsCompletions(t *testing.T) {
	sess, _, shell := newFixture(healthyMeta())

	conn, err := sess.Connection(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, conn)
	assert.Equal(t, 1, shell.completers)
	assert.NotNil(t, sess.Completer())

	// a second call reuses the handle without rebuilding
	again, err := sess.Connection(context.Background())
	require.NoError(t, err)
	assert.Same(t, conn, again)
	assert.Equal(t, 1, shell.completers)
}

func TestReconnectReplacesState(t *testing.T) {
	sess, drv, _ := newFixture(healthyMeta())
	ctx := context.Background()

	require.NoError(t, sess.Connect(ctx))
	first := sess.Dialect()

	require.NoError(t, sess.Reconnect(ctx))
	require.Len(t, drv.conns, 2)
	assert.True(t, drv.conns[0].closed)
	require.NotNil(t, sess.Dialect())
	assert.NotSame(t, first, sess.Dialect())
}

func TestReconnectPropagatesFailure(t *testing.T) {
	sess, drv, _ := newFixture(healthyMeta())
	require.NoError(t, sess.Connect(context.Background()))

	drv.openErr = errs.New(errs.ErrKindConnectionFailed, "gone")
	err := sess.Reconnect(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
	assert.False(t, sess.Connected())
}

func TestCloseIdempotent(t *testing.T) {
	sess, drv, _ := newFixture(healthyMeta())

	// never connected
	assert.NotPanics(t, func() { sess.Close() })
	assert.False(t, sess.Connected())

	require.NoError(t, sess.Connect(context.Background()))
	sess.Close()
	sess.Close()

	assert.False(t, sess.Connected())
	assert.Nil(t, sess.Metadata())
	assert.Nil(t, sess.Dialect())
	assert.Equal(t, 1, drv.conns[0].closeCalls)
}

func TestCloseResetsFieldsEvenWhenCloseFails(t *testing.T) {
	meta := healthyMeta()
	drv := &fakeDriver{
		name:   "testdrv",
		prefix: "db://",
		next: func() *fakeConn {
			return &fakeConn{meta: meta, closeErr: errs.New(errs.ErrKindConnectionFailed, "broken pipe")}
		},
	}
	reg := driver.NewRegistry()
	reg.Register(drv)
	shell := &recordShell{}
	sess := New(Config{URL: "db://test", Options: DefaultOptions()}, reg, shell, nil)

	require.NoError(t, sess.Connect(context.Background()))
	sess.Close()

	assert.False(t, sess.Connected())
	assert.Nil(t, sess.Metadata())
	assert.NotEmpty(t, shell.handled)
}

func TestCurrentSchemaBestEffort(t *testing.T) {
	meta := healthyMeta()
	drv := &fakeDriver{
		name:   "testdrv",
		prefix: "db://",
		next:   func() *fakeConn { return &fakeConn{meta: meta, schema: "public"} },
	}
	reg := driver.NewRegistry()
	reg.Register(drv)
	sess := New(Config{URL: "db://test", Options: DefaultOptions()}, reg, &recordShell{}, nil)

	assert.Equal(t, "", sess.CurrentSchema(context.Background()))

	require.NoError(t, sess.Connect(context.Background()))
	assert.Equal(t, "public", sess.CurrentSchema(context.Background()))

	drv.conns[0].schemaErr = errs.New(errs.ErrKindQueryFailed, "no current schema")
	assert.Equal(t, "", sess.CurrentSchema(context.Background()))
}

func TestNicknameRoundTrip(t *testing.T) {
	sess, _, _ := newFixture(healthyMeta())
	assert.Equal(t, "", sess.Nickname())
	sess.SetNickname("primary")
	assert.Equal(t, "primary", sess.Nickname())
	assert.Equal(t, "db://test", sess.URL())
}

package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqldeck/sqldeck/internal/driver"
	"github.com/sqldeck/sqldeck/internal/errs"
)

func TestTablesPreservesDriverOrder(t *testing.T) {
	meta := healthyMeta()
	meta.tables = []driver.TableRow{
		{Name: "zebra", Type: "TABLE"},
		{Name: "alpha", Type: "TABLE"},
		{Name: "zebra", Type: "TABLE"}, // driver-reported duplicate survives
	}
	sess, _, _ := newFixture(meta)

	tables := sess.Tables(context.Background(), false)
	require.Len(t, tables, 3)
	assert.Equal(t, "zebra", tables[0].Name)
	assert.Equal(t, "alpha", tables[1].Name)
	assert.Equal(t, "zebra", tables[2].Name)
}

func TestTableNamesSortedAndDeduplicated(t *testing.T) {
	meta := healthyMeta()
	meta.tables = []driver.TableRow{
		{Name: "zebra", Type: "TABLE"},
		{Name: "alpha", Type: "TABLE"},
		{Name: "zebra", Type: "TABLE"},
	}
	sess, _, _ := newFixture(meta)

	names := sess.TableNames(context.Background(), false)
	assert.Equal(t, []string{"alpha", "zebra"}, names)
}

func TestTablesCached(t *testing.T) {
	meta := healthyMeta()
	sess, _, _ := newFixture(meta)
	ctx := context.Background()

	first := sess.Tables(ctx, false)
	require.Len(t, first, 2)
	require.Equal(t, 1, meta.tablesCalls)

	// the underlying catalog changes; the cache does not notice
	meta.tables = append(meta.tables, driver.TableRow{Name: "audit_log", Type: "TABLE"})
	second := sess.Tables(ctx, false)
	assert.Len(t, second, 2)
	assert.Equal(t, 1, meta.tablesCalls)
}

func TestTablesForceRefresh(t *testing.T) {
	meta := healthyMeta()
	sess, _, _ := newFixture(meta)
	ctx := context.Background()

	require.Len(t, sess.Tables(ctx, false), 2)

	meta.tables = append(meta.tables, driver.TableRow{Name: "audit_log", Type: "TABLE"})
	refreshed := sess.Tables(ctx, true)
	assert.Len(t, refreshed, 3)
	assert.Equal(t, 2, meta.tablesCalls)
}

func TestTableLookupCaseInsensitive(t *testing.T) {
	meta := healthyMeta()
	meta.tables = []driver.TableRow{
		{Name: "foo", Type: "TABLE"},
		{Name: "FOO", Type: "TABLE"},
	}
	sess, _, _ := newFixture(meta)
	ctx := context.Background()

	tbl, ok := sess.Table(ctx, "Foo")
	require.True(t, ok)
	// first match in list order wins
	assert.Equal(t, "foo", tbl.Name)

	_, ok = sess.Table(ctx, "bar")
	assert.False(t, ok)
}

func TestTablesEmptyWhenNoDriverResolvable(t *testing.T) {
	reg := driver.NewRegistry()
	sess := New(Config{URL: "db://test"}, reg, &recordShell{}, nil)

	var tables []*Table
	assert.NotPanics(t, func() {
		tables = sess.Tables(context.Background(), false)
	})
	assert.Empty(t, tables)
	assert.False(t, sess.Connected())
}

func TestTablesSwallowsListingFailure(t *testing.T) {
	meta := healthyMeta()
	meta.tablesErr = errs.New(errs.ErrKindQueryFailed, "catalog unavailable")
	sess, _, _ := newFixture(meta)
	ctx := context.Background()

	assert.Empty(t, sess.Tables(ctx, false))

	// the empty result is cached like any other
	meta.tablesErr = nil
	assert.Empty(t, sess.Tables(ctx, false))
	assert.Equal(t, 1, meta.tablesCalls)
}

func TestLazyConnectKeepsSchemaCache(t *testing.T) {
	// Populating the cache on a disconnected session connects lazily; the
	// teardown Connect runs before opening must not discard the Schema
	// being populated.
	meta := healthyMeta()
	sess, _, _ := newFixture(meta)
	ctx := context.Background()

	sc := sess.Schema()
	require.Len(t, sc.Tables(ctx, false), 2)
	assert.True(t, sess.Connected())
	assert.Same(t, sc, sess.Schema())

	require.Len(t, sess.Tables(ctx, false), 2)
	assert.Equal(t, 1, meta.tablesCalls)
}

func TestSchemaDiscardedOnClose(t *testing.T) {
	meta := healthyMeta()
	sess, _, _ := newFixture(meta)
	ctx := context.Background()

	require.NoError(t, sess.Connect(ctx))
	require.Len(t, sess.Tables(ctx, false), 2)
	require.Equal(t, 1, meta.tablesCalls)

	sess.Close()

	// next access allocates a new Schema and repopulates lazily
	meta.tables = append(meta.tables, driver.TableRow{Name: "audit_log", Type: "TABLE"})
	assert.Len(t, sess.Tables(ctx, false), 3)
	assert.Equal(t, 2, meta.tablesCalls)
}

func TestTableNamesSubsetOfTables(t *testing.T) {
	meta := healthyMeta()
	sess, _, _ := newFixture(meta)
	ctx := context.Background()

	names := sess.TableNames(ctx, false)
	inList := make(map[string]bool)
	for _, tbl := range sess.Tables(ctx, false) {
		inList[tbl.Name] = true
	}
	for _, name := range names {
		assert.True(t, inList[name])
	}
}

package session

import (
	"context"
	"sort"
	"strings"
)

// Schema is the lazily populated, connection-scoped view of the catalog's
// tables. It is owned by exactly one Session and discarded wholesale when
// that session closes or reconnects; a new Schema is allocated on next
// access. Table names are cached as the driver reports them — this layer
// guarantees neither uniqueness nor any particular case.
type Schema struct {
	sess   *Session // non-owning back-reference
	tables []*Table
}

// Table is one cached catalog object. Columns stay empty until a
// collaborator loads them on demand; this layer only caches names.
type Table struct {
	Name    string
	Columns []Column
}

// Column is a cached column: its name and whether it belongs to the
// primary key.
type Column struct {
	Name       string
	PrimaryKey bool
}

// Tables returns the cached table list, populating it on first use.
// force discards the cache and repopulates.
//
// Population is best-effort by contract: any failure — including failing to
// establish a connection at all — is swallowed and an empty list is cached,
// so completion and display features degrade instead of blocking the shell.
func (sc *Schema) Tables(ctx context.Context, force bool) []*Table {
	if sc.tables != nil && !force {
		return sc.tables
	}

	sc.tables = []*Table{}

	conn, err := sc.sess.Connection(ctx)
	if err != nil || conn == nil {
		return sc.tables
	}

	catalog, err := conn.Catalog(ctx)
	if err != nil {
		return sc.tables
	}

	rows, err := sc.sess.meta.Tables(ctx, catalog, "", "%", []string{"TABLE"})
	if err != nil {
		return sc.tables
	}

	for _, row := range rows {
		sc.tables = append(sc.tables, &Table{Name: row.Name})
	}
	return sc.tables
}

// Table returns the first cached table whose name matches name
// case-insensitively, or false if none does.
func (sc *Schema) Table(ctx context.Context, name string) (*Table, bool) {
	for _, tbl := range sc.Tables(ctx, false) {
		if strings.EqualFold(name, tbl.Name) {
			return tbl, true
		}
	}
	return nil, false
}

// Schema returns the session's table cache, allocating it on first access.
func (s *Session) Schema() *Schema {
	if s.schema == nil {
		s.schema = &Schema{sess: s}
	}
	return s.schema
}

// Tables returns the cached table list in driver-reported order,
// duplicates included. See Schema.Tables for the population contract.
func (s *Session) Tables(ctx context.Context, force bool) []*Table {
	return s.Schema().Tables(ctx, force)
}

// TableNames returns the cached table names sorted ascending and
// deduplicated.
func (s *Session) TableNames(ctx context.Context, force bool) []string {
	seen := make(map[string]struct{})
	names := make([]string, 0)
	for _, tbl := range s.Schema().Tables(ctx, force) {
		if _, dup := seen[tbl.Name]; dup {
			continue
		}
		seen[tbl.Name] = struct{}{}
		names = append(names, tbl.Name)
	}
	sort.Strings(names)
	return names
}

// Table looks up a cached table by name, case-insensitively, returning the
// first match in list order.
func (s *Session) Table(ctx context.Context, name string) (*Table, bool) {
	return s.Schema().Table(ctx, name)
}

package postgres

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/sqldeck/sqldeck/internal/driver"
)

// metadata answers metadata queries over the live connection.
type metadata struct {
	pg *pgx.Conn
}

func (m *metadata) IdentifierQuoteString() (string, error) {
	return `"`, nil
}

func (m *metadata) DatabaseProductName() (string, error) {
	return "PostgreSQL", nil
}

func (m *metadata) DatabaseProductVersion() (string, error) {
	var version string
	err := m.pg.QueryRow(context.Background(), `SELECT current_setting('server_version')`).Scan(&version)
	if err != nil {
		return "", mapError(err, "failed to read server version")
	}
	return version, nil
}

// SQLKeywords reports the server's reserved words straight from
// pg_get_keywords, excluding unreserved ones.
func (m *metadata) SQLKeywords() (string, error) {
	const q = `
		SELECT COALESCE(string_agg(word, ','), '')
		FROM pg_get_keywords()
		WHERE catcode <> 'U'`

	var list string
	if err := m.pg.QueryRow(context.Background(), q).Scan(&list); err != nil {
		return "", mapError(err, "failed to read keywords")
	}
	return list, nil
}

func (m *metadata) StoresUpperCaseIdentifiers() (bool, error) {
	// Unquoted identifiers fold to lower case on postgres.
	return false, nil
}

func (m *metadata) DriverName() (string, error) {
	return "jackc/pgx", nil
}

func (m *metadata) DriverVersion() (string, error) {
	return "5", nil
}

// Tables lists catalog objects from information_schema, skipping system
// schemas. An empty schemaPattern means every user schema.
func (m *metadata) Tables(ctx context.Context, catalog, schemaPattern, namePattern string, types []string) ([]driver.TableRow, error) {
	if namePattern == "" {
		namePattern = "%"
	}
	if schemaPattern == "" {
		schemaPattern = "%"
	}

	const q = `
		SELECT table_catalog, table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
		  AND table_schema LIKE $1
		  AND table_name LIKE $2
		  AND table_type = ANY($3)
		ORDER BY table_schema, table_name`

	rows, err := m.pg.Query(ctx, q, schemaPattern, namePattern, typeFilter(types))
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	var out []driver.TableRow
	for rows.Next() {
		var cat, schema, name, tableType string
		if err := rows.Scan(&cat, &schema, &name, &tableType); err != nil {
			return nil, mapError(err, "failed to scan table row")
		}
		rowType := "TABLE"
		if tableType == "VIEW" {
			rowType = "VIEW"
		}
		out = append(out, driver.TableRow{
			Catalog: cat,
			Schema:  schema,
			Name:    name,
			Type:    rowType,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err, "error iterating tables")
	}
	return out, nil
}

func typeFilter(types []string) []string {
	var wanted []string
	for _, t := range types {
		switch strings.ToUpper(t) {
		case "TABLE":
			wanted = append(wanted, "BASE TABLE")
		case "VIEW":
			wanted = append(wanted, "VIEW")
		}
	}
	if len(wanted) == 0 {
		wanted = []string{"BASE TABLE"}
	}
	return wanted
}

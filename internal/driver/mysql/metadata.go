package mysql

import (
	"context"
	"database/sql"
	"runtime/debug"
	"strings"

	"github.com/sqldeck/sqldeck/internal/driver"
)

// nonStandardKeywords are MySQL reserved words beyond standard SQL,
// reported the way server drivers traditionally do: a static
// comma-separated list.
const nonStandardKeywords = "ACCESSIBLE,ANALYZE,ASENSITIVE,BEFORE,BIGINT,BINARY,BLOB,CHANGE,CONDITION," +
	"DATABASE,DATABASES,DAY_HOUR,DAY_MICROSECOND,DAY_MINUTE,DAY_SECOND,DELAYED,DETERMINISTIC,DISTINCTROW," +
	"DIV,DUAL,ELSEIF,ENCLOSED,ESCAPED,EXIT,EXPLAIN,FLOAT4,FLOAT8,FORCE,FULLTEXT,GENERATED,HIGH_PRIORITY," +
	"HOUR_MICROSECOND,HOUR_MINUTE,HOUR_SECOND,IF,IGNORE,INDEX,INFILE,INOUT,INT1,INT2,INT3,INT4,INT8," +
	"ITERATE,KEYS,KILL,LEAVE,LIMIT,LINEAR,LINES,LOAD,LOCALTIME,LOCALTIMESTAMP,LOCK,LONG,LONGBLOB," +
	"LONGTEXT,LOOP,LOW_PRIORITY,MAXVALUE,MEDIUMBLOB,MEDIUMINT,MEDIUMTEXT,MIDDLEINT,MINUTE_MICROSECOND," +
	"MINUTE_SECOND,MOD,MODIFIES,NO_WRITE_TO_BINLOG,OPTIMIZE,OPTIMIZER_COSTS,OPTION,OPTIONALLY,OUT," +
	"OUTFILE,PURGE,READ,READS,READ_WRITE,REGEXP,RELEASE,RENAME,REPEAT,REPLACE,REQUIRE,RESIGNAL,RLIKE," +
	"SCHEMA,SCHEMAS,SECOND_MICROSECOND,SENSITIVE,SEPARATOR,SHOW,SIGNAL,SPATIAL,SPECIFIC,SQLEXCEPTION," +
	"SQL_BIG_RESULT,SQL_CALC_FOUND_ROWS,SQL_SMALL_RESULT,SSL,STARTING,STRAIGHT_JOIN,TERMINATED,TINYBLOB," +
	"TINYINT,TINYTEXT,UNDO,UNLOCK,UNSIGNED,USAGE,USE,UTC_DATE,UTC_TIME,UTC_TIMESTAMP,VARBINARY," +
	"VARCHARACTER,VIRTUAL,WHILE,XOR,YEAR_MONTH,ZEROFILL"

// metadata answers metadata queries over the live connection.
type metadata struct {
	db *sql.DB
}

func (m *metadata) IdentifierQuoteString() (string, error) {
	return "`", nil
}

func (m *metadata) DatabaseProductName() (string, error) {
	return "MySQL", nil
}

func (m *metadata) DatabaseProductVersion() (string, error) {
	var version string
	if err := m.db.QueryRow(`SELECT VERSION()`).Scan(&version); err != nil {
		return "", mapError(err, "failed to read server version")
	}
	return version, nil
}

func (m *metadata) SQLKeywords() (string, error) {
	return nonStandardKeywords, nil
}

func (m *metadata) StoresUpperCaseIdentifiers() (bool, error) {
	return false, nil
}

func (m *metadata) DriverName() (string, error) {
	return "go-sql-driver/mysql", nil
}

// DriverVersion reports the go-sql-driver version linked into the binary.
func (m *metadata) DriverVersion() (string, error) {
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range info.Deps {
			if dep.Path == "github.com/go-sql-driver/mysql" {
				return dep.Version, nil
			}
		}
	}
	return "", nil
}

// Tables lists catalog objects from information_schema. catalog filters on
// the database name ("" means current); schemaPattern is ignored beyond
// that because MySQL folds schema and catalog into one namespace.
func (m *metadata) Tables(ctx context.Context, catalog, schemaPattern, namePattern string, types []string) ([]driver.TableRow, error) {
	if namePattern == "" {
		namePattern = "%"
	}

	wanted := typeFilter(types)
	q := `
		SELECT table_schema, table_name, table_type
		FROM information_schema.tables
		WHERE table_schema = COALESCE(NULLIF(?, ''), DATABASE())
		  AND table_name LIKE ?
		  AND table_type IN (` + placeholders(len(wanted)) + `)
		ORDER BY table_schema, table_name`

	args := []any{catalog, namePattern}
	for _, w := range wanted {
		args = append(args, w)
	}
	rows, err := m.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, mapError(err, "failed to list tables")
	}
	defer rows.Close()

	var out []driver.TableRow
	for rows.Next() {
		var schema, name, tableType string
		if err := rows.Scan(&schema, &name, &tableType); err != nil {
			return nil, mapError(err, "failed to scan table row")
		}
		rowType := "TABLE"
		if tableType == "VIEW" {
			rowType = "VIEW"
		}
		out = append(out, driver.TableRow{
			Catalog: schema,
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

// typeFilter maps requested object types onto information_schema
// table_type values. Unknown entries are ignored; an empty request means
// base tables only.
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

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

package query

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/lib/pq"
)

// Dialects by name, as used in configuration and the explain endpoint.
var (
	Cosmos   Dialect = cosmosDialect{}
	SQLite   Dialect = sqliteDialect{table: "trails", column: "doc"}
	Postgres Dialect = postgresDialect{table: "trails", column: "doc"}
)

// DialectByName returns the dialect registered under name.
func DialectByName(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "cosmos":
		return Cosmos, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql":
		return Postgres, nil
	}
	return nil, fmt.Errorf("unknown query dialect %q", name)
}

// cosmosDialect is the SQL-like language of JSON document stores such as Cosmos DB.
type cosmosDialect struct{}

func (cosmosDialect) Name() string { return "cosmos" }

func (cosmosDialect) Select(count bool) string {
	if count {
		return "SELECT VALUE COUNT(1) FROM c"
	}
	return "SELECT * FROM c"
}

func (cosmosDialect) Field(f Field) string { return "c." + f.Path }

func (cosmosDialect) Placeholder(name string, _ int) string { return "@" + name }

func (cosmosDialect) Contains(field, param string) string {
	return "CONTAINS(LOWER(" + field + "), LOWER(" + param + "))"
}

func (cosmosDialect) In(field, param string) string { return field + " IN (" + param + ")" }

func (d cosmosDialect) ArrayContains(f Field, param string) string {
	return "ARRAY_CONTAINS(" + d.Field(f) + ", " + param + ")"
}

func (d cosmosDialect) ArrayNotEmpty(f Field) string {
	return "ARRAY_LENGTH(" + d.Field(f) + ") > 0"
}

func (cosmosDialect) TieBreak() string { return "" }

func (cosmosDialect) Page(p Page) string {
	return fmt.Sprintf("OFFSET %d LIMIT %d", p.Offset, p.Limit)
}

func (cosmosDialect) Args(params []Parameter) []any {
	args := make([]any, len(params))
	for i, p := range params {
		args[i] = p.Value
	}
	return args
}

// sqliteDialect targets trail documents stored as JSON text, queried through JSON1.
type sqliteDialect struct {
	table  string
	column string
}

func (sqliteDialect) Name() string { return "sqlite" }

func (d sqliteDialect) Select(count bool) string {
	if count {
		return "SELECT COUNT(1) FROM " + d.table
	}
	return "SELECT " + d.column + " FROM " + d.table
}

func (d sqliteDialect) jsonPath(f Field) string { return "'$." + f.Path + "'" }

func (d sqliteDialect) Field(f Field) string {
	return "json_extract(" + d.column + ", " + d.jsonPath(f) + ")"
}

func (sqliteDialect) Placeholder(name string, _ int) string { return "@" + name }

// LowerFunc is the SQL function the SQLite store registers on every connection to apply
// Lower. The built-in lower() only folds ASCII.
const LowerFunc = "unicode_lower"

// Contains expects param to be folded with Lower already.
func (sqliteDialect) Contains(field, param string) string {
	return "instr(" + LowerFunc + "(coalesce(" + field + ", '')), " + param + ") > 0"
}

func (sqliteDialect) In(field, param string) string {
	return field + " IN (SELECT value FROM json_each(" + param + "))"
}

func (d sqliteDialect) ArrayContains(f Field, param string) string {
	return "EXISTS (SELECT 1 FROM json_each(" + d.column + ", " + d.jsonPath(f) + ") WHERE value = " + param + ")"
}

func (d sqliteDialect) ArrayNotEmpty(f Field) string {
	return "json_array_length(" + d.column + ", " + d.jsonPath(f) + ") > 0"
}

func (sqliteDialect) TieBreak() string { return "id ASC" }

func (sqliteDialect) Page(p Page) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// Args binds by name; array values are passed as JSON text for json_each.
func (sqliteDialect) Args(params []Parameter) []any {
	args := make([]any, len(params))
	for i, p := range params {
		v := p.Value
		if isSlice(v) {
			b, err := json.Marshal(v)
			if err == nil {
				v = string(b)
			}
		}
		args[i] = sql.Named(strings.TrimPrefix(p.Name, "@"), v)
	}
	return args
}

// postgresDialect targets trail documents stored in a jsonb column.
type postgresDialect struct {
	table  string
	column string
}

func (postgresDialect) Name() string { return "postgres" }

func (d postgresDialect) Select(count bool) string {
	if count {
		return "SELECT COUNT(1) FROM " + d.table
	}
	return "SELECT " + d.column + " FROM " + d.table
}

func (d postgresDialect) path(f Field) string {
	return "'{" + strings.Join(f.Segments(), ",") + "}'"
}

func (d postgresDialect) Field(f Field) string {
	switch f.Kind {
	case KindNumber:
		return "(" + d.column + " #>> " + d.path(f) + ")::numeric"
	case KindBool:
		return "(" + d.column + " #>> " + d.path(f) + ")::boolean"
	case KindArray:
		return "(" + d.column + " #> " + d.path(f) + ")"
	}
	return "(" + d.column + " #>> " + d.path(f) + ")"
}

func (postgresDialect) Placeholder(_ string, pos int) string { return fmt.Sprintf("$%d", pos) }

func (postgresDialect) Contains(field, param string) string {
	return "strpos(lower(" + field + "), lower(" + param + "::text)) > 0"
}

func (postgresDialect) In(field, param string) string { return field + " = ANY(" + param + ")" }

func (d postgresDialect) ArrayContains(f Field, param string) string {
	cast := "::text"
	if f.Elem == KindNumber {
		cast = "::numeric"
	}
	return d.Field(f) + " @> jsonb_build_array(" + param + cast + ")"
}

func (d postgresDialect) ArrayNotEmpty(f Field) string {
	return "jsonb_array_length(" + d.Field(f) + ") > 0"
}

func (postgresDialect) TieBreak() string { return "id ASC" }

func (postgresDialect) Page(p Page) string {
	return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
}

// Args binds positionally; array values are wrapped for lib/pq.
func (postgresDialect) Args(params []Parameter) []any {
	args := make([]any, len(params))
	for i, p := range params {
		if isSlice(p.Value) {
			args[i] = pq.Array(p.Value)
			continue
		}
		args[i] = p.Value
	}
	return args
}

func isSlice(v any) bool {
	if v == nil {
		return false
	}
	return reflect.TypeOf(v).Kind() == reflect.Slice
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	log "github.com/sirupsen/logrus"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/ps"
)

// DefaultAlias is the view name every registered table is reachable under.
const DefaultAlias = "t"

type Options struct {
	// Storage supplies credentials for remote data files.
	Storage ps.Options
	// Alias overrides DefaultAlias.
	Alias string
}

// Source describes a table to expose to SQL.
type Source struct {
	// Name is the table's self-declared logical name; empty when it has none.
	Name string
	// Files are the data files making up the table.
	Files []string
	// Partitioned tables carry partition values in hive-style paths.
	Partitioned bool
	// Schema types the empty relation registered for a table without files.
	Schema *core.Schema
	// DeletionVectors is set when some file has rows deleted by a vector.
	DeletionVectors bool
}

// Engine is a DuckDB session. Views registered on it live until Close.
type Engine struct {
	db    *sql.DB
	alias string
	opts  Options

	remoteOnce sync.Once
	remoteErr  error
}

func NewEngine(opts Options) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open query engine: %w", err)
	}
	// One connection keeps session state (loaded extensions, secrets) in one place.
	db.SetMaxOpenConns(1)

	alias := opts.Alias
	if alias == "" {
		alias = DefaultAlias
	}

	return &Engine{db: db, alias: alias, opts: opts}, nil
}

func (e *Engine) Close() error {
	return e.db.Close()
}

// Alias returns the fallback view name.
func (e *Engine) Alias() string {
	return e.alias
}

// Register creates a view for src under its logical name and under the
// alias. Registering a name again replaces the earlier view. It returns the
// names registered.
func (e *Engine) Register(ctx context.Context, src Source) ([]string, error) {
	expr, err := e.scanExpr(ctx, src)
	if err != nil {
		return nil, err
	}

	names := []string{e.alias}
	if src.Name != "" && src.Name != e.alias {
		names = []string{src.Name, e.alias}
	} else if src.Name == "" {
		log.WithField("alias", e.alias).Info("table has no logical name, registering under the default alias only")
	}

	for _, name := range names {
		stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS %s", quoteIdent(name), expr)
		if _, err := e.db.ExecContext(ctx, stmt); err != nil {
			return nil, &core.QueryError{SQL: stmt, Err: err}
		}
		log.WithFields(log.Fields{"view": name, "files": len(src.Files)}).Debug("registered table")
	}
	return names, nil
}

// Execute runs query unmodified and collects the result.
func (e *Engine) Execute(ctx context.Context, query string) (QueryResult, error) {
	startTime := time.Now()

	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return QueryResult{}, &core.QueryError{SQL: query, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return QueryResult{}, &core.QueryError{SQL: query, Err: err}
	}

	result := QueryResult{Columns: columns, Data: [][]string{}}
	values := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return QueryResult{}, &core.QueryError{SQL: query, Err: err}
		}
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = formatValue(v)
		}
		result.Data = append(result.Data, row)
		result.RecordsRead++
	}
	if err := rows.Err(); err != nil {
		return QueryResult{}, &core.QueryError{SQL: query, Err: err}
	}

	result.ExecutionTimeSec = time.Since(startTime).Seconds()
	return result, nil
}

// Query registers src and runs query against it.
func (e *Engine) Query(ctx context.Context, src Source, query string) (QueryResult, error) {
	if _, err := e.Register(ctx, src); err != nil {
		return QueryResult{}, err
	}
	return e.Execute(ctx, query)
}

func (e *Engine) scanExpr(ctx context.Context, src Source) (string, error) {
	if src.DeletionVectors {
		return "", &core.QueryError{Err: errors.New("tables with deletion vectors cannot be queried")}
	}

	if len(src.Files) == 0 {
		if src.Schema == nil || len(src.Schema.Fields) == 0 {
			return "", &core.QueryError{Err: errors.New("table has no data files and no schema")}
		}
		return emptyRelation(src.Schema), nil
	}

	for _, f := range src.Files {
		if ps.IsRemote(f) {
			if err := e.ensureRemote(ctx); err != nil {
				return "", err
			}
			break
		}
	}

	files := make([]string, len(src.Files))
	for i, f := range src.Files {
		files[i] = quoteLiteral(ps.LocalPath(f))
	}
	return fmt.Sprintf("SELECT * FROM read_parquet([%s], hive_partitioning = %t, union_by_name = true)",
		strings.Join(files, ", "), src.Partitioned), nil
}

// emptyRelation builds a typed relation with no rows.
func emptyRelation(schema *core.Schema) string {
	cols := make([]string, len(schema.Fields))
	for i, f := range schema.Fields {
		cols[i] = fmt.Sprintf("CAST(NULL AS %s) AS %s", duckType(f.Type), quoteIdent(f.Name))
	}
	return "SELECT " + strings.Join(cols, ", ") + " WHERE false"
}

// duckType maps a versioned-table type name to a DuckDB type. Nested types
// are exposed as VARCHAR.
func duckType(typ string) string {
	switch {
	case typ == "string":
		return "VARCHAR"
	case typ == "long":
		return "BIGINT"
	case typ == "integer":
		return "INTEGER"
	case typ == "short":
		return "SMALLINT"
	case typ == "byte":
		return "TINYINT"
	case typ == "float":
		return "FLOAT"
	case typ == "double":
		return "DOUBLE"
	case typ == "boolean":
		return "BOOLEAN"
	case typ == "binary":
		return "BLOB"
	case typ == "date":
		return "DATE"
	case typ == "timestamp":
		return "TIMESTAMPTZ"
	case typ == "timestamp_ntz":
		return "TIMESTAMP"
	case strings.HasPrefix(typ, "decimal("):
		return "DECIMAL" + strings.TrimPrefix(typ, "decimal")
	default:
		return "VARCHAR"
	}
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case *big.Int:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/ps"
)

// DescribeParquet returns the columns of a single parquet file.
func (e *Engine) DescribeParquet(ctx context.Context, path string) (*core.Schema, error) {
	if err := e.prepareFile(ctx, path); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("DESCRIBE SELECT * FROM read_parquet(%s)", quoteLiteral(ps.LocalPath(path)))
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &core.QueryError{SQL: query, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &core.QueryError{SQL: query, Err: err}
	}

	schema := &core.Schema{Fields: []core.Field{}}
	values := make([]sql.NullString, len(columns))
	dest := make([]any, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, &core.QueryError{SQL: query, Err: err}
		}
		field := core.Field{Nullable: true}
		for i, col := range columns {
			switch col {
			case "column_name":
				field.Name = values[i].String
			case "column_type":
				field.Type = strings.ToLower(values[i].String)
			case "null":
				field.Nullable = !strings.EqualFold(values[i].String, "NO")
			}
		}
		schema.Fields = append(schema.Fields, field)
	}
	if err := rows.Err(); err != nil {
		return nil, &core.QueryError{SQL: query, Err: err}
	}
	return schema, nil
}

// ParquetMetadata summarizes a parquet file footer. Key-value metadata
// becomes the configuration, except Arrow's embedded schema.
func (e *Engine) ParquetMetadata(ctx context.Context, path string) (*core.TableMetadata, error) {
	schema, err := e.DescribeParquet(ctx, path)
	if err != nil {
		return nil, err
	}

	lit := quoteLiteral(ps.LocalPath(path))
	query := fmt.Sprintf("SELECT num_rows, num_row_groups, created_by, format_version FROM parquet_file_metadata(%s)", lit)

	var (
		numRows, numRowGroups int64
		createdBy             sql.NullString
		formatVersion         sql.NullInt64
	)
	if err := e.db.QueryRowContext(ctx, query).Scan(&numRows, &numRowGroups, &createdBy, &formatVersion); err != nil {
		return nil, &core.QueryError{SQL: query, Err: err}
	}

	options := map[string]string{"row_groups": strconv.FormatInt(numRowGroups, 10)}
	if createdBy.Valid && createdBy.String != "" {
		options["created_by"] = createdBy.String
	}
	if formatVersion.Valid {
		options["version"] = strconv.FormatInt(formatVersion.Int64, 10)
	}

	kv, err := e.parquetKeyValues(ctx, lit)
	if err != nil {
		return nil, err
	}

	numFiles := int64(1)
	return &core.TableMetadata{
		Format:           core.Format{Provider: "parquet", Options: options},
		Schema:           schema,
		PartitionColumns: []string{},
		Configuration:    kv,
		NumRows:          &numRows,
		NumFiles:         &numFiles,
	}, nil
}

func (e *Engine) parquetKeyValues(ctx context.Context, lit string) (map[string]string, error) {
	query := fmt.Sprintf("SELECT CAST(key AS VARCHAR), CAST(value AS VARCHAR) FROM parquet_kv_metadata(%s)", lit)
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &core.QueryError{SQL: query, Err: err}
	}
	defer rows.Close()

	kv := map[string]string{}
	for rows.Next() {
		var key, value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, &core.QueryError{SQL: query, Err: err}
		}
		if strings.HasPrefix(key.String, "ARROW:") {
			continue
		}
		kv[key.String] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, &core.QueryError{SQL: query, Err: err}
	}
	return kv, nil
}

func (e *Engine) prepareFile(ctx context.Context, path string) error {
	if ps.IsRemote(path) {
		return e.ensureRemote(ctx)
	}
	return nil
}

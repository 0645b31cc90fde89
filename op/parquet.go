package op

import (
	"context"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/db"
)

// ParquetTable is a flat table backed by one parquet file.
type ParquetTable struct {
	ref       string
	engine    *db.Engine
	ownEngine bool
	schema    *core.Schema
}

func openParquetTable(ctx context.Context, ref string, opts Options) (*ParquetTable, error) {
	t := &ParquetTable{ref: ref, engine: opts.Engine}
	if t.engine == nil {
		engine, err := db.NewEngine(db.Options{Storage: opts.Storage})
		if err != nil {
			return nil, openErr(ref, err)
		}
		t.engine = engine
		t.ownEngine = true
	}

	schema, err := t.engine.DescribeParquet(ctx, ref)
	if err != nil {
		t.Close()
		return nil, openErr(ref, err)
	}
	t.schema = schema
	return t, nil
}

func (t *ParquetTable) Kind() core.TableKind {
	return core.FlatKind
}

func (t *ParquetTable) Reference() string {
	return t.ref
}

func (t *ParquetTable) Files(ctx context.Context) ([]string, error) {
	return []string{t.ref}, nil
}

func (t *ParquetTable) Schema(ctx context.Context) (*core.Schema, error) {
	return t.schema, nil
}

func (t *ParquetTable) Version(ctx context.Context) (int64, error) {
	return 0, &core.UnsupportedError{Op: "version", Kind: core.FlatKind}
}

func (t *ParquetTable) Metadata(ctx context.Context) (*core.TableMetadata, error) {
	return t.engine.ParquetMetadata(ctx, t.ref)
}

func (t *ParquetTable) History(ctx context.Context, limit int) ([]core.CommitInfo, error) {
	return nil, &core.UnsupportedError{Op: "history", Kind: core.FlatKind}
}

// Source registers the file under the fallback alias only.
func (t *ParquetTable) Source(ctx context.Context) (db.Source, error) {
	return db.Source{Files: []string{t.ref}, Schema: t.schema}, nil
}

func (t *ParquetTable) Close() error {
	if t.ownEngine {
		return t.engine.Close()
	}
	return nil
}

// Package db is the query side of deltactl.
//
// An Engine is an in-memory DuckDB session. Tables are exposed to SQL by
// registering a Source, which creates a view over the table's parquet data
// files under the table's logical name and under a fallback alias ("t" by
// default):
//
//	engine, err := db.NewEngine(db.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//	result, err := engine.Query(ctx, db.Source{Name: "events", Files: files}, "SELECT COUNT(*) FROM events")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display(os.Stdout)
//
// # Result Types
//
// Every command produces a Result: QueryResult, FilesResult, SchemaResult,
// VersionResult, MetadataResult or HistoryResult. Display renders text,
// WriteJSON renders JSON.
//
// The engine also introspects single parquet files (DescribeParquet,
// ParquetMetadata) for flat tables.
package db

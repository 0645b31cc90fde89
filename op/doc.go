// Package op opens table handles.
//
// Open picks a backend from the reference's extension before any I/O:
//
//	/data/events          versioned table (transaction log under _delta_log/)
//	s3://bucket/events    versioned table on S3
//	/data/dump.parquet    flat table
//	/data/dump.csv        core.ErrUnrecognizedFormat
//
// Both variants implement Table. Operations a flat table cannot answer
// (Version, History) return a *core.UnsupportedError.
//
//	table, err := op.Open(ctx, "/data/events", op.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer table.Close()
//	files, err := table.Files(ctx)
//
// # Architecture
//
// The layering is:
//
//	Commands (deltactl)
//	     ↓
//	Tables (op/)         ← This package
//	     ↓
//	Transaction log (txlog/)   Query engine (db/)
//	     ↓
//	Storage (ps/)
package op

// Package core provides the types shared by every deltactl package.
//
// The package defines the table model (TableKind, Schema, Field,
// TableMetadata, CommitInfo) and the error taxonomy returned by table
// handles and the query engine.
//
// # Table Kinds
//
//   - VersionedKind: a table with a transaction log (files, schema,
//     metadata, version and history are all available)
//   - FlatKind: a single data file (files only; schema and metadata come
//     from the query engine; version and history are unsupported)
//
// # Errors
//
// Callers classify failures with errors.Is and errors.As:
//
//	_, err := op.Open(ctx, "table.csv", opts)
//	if errors.Is(err, core.ErrUnrecognizedFormat) {
//	    // no I/O was attempted
//	}
//
//	var openErr *core.OpenError
//	if errors.As(err, &openErr) {
//	    fmt.Println(openErr.Ref, openErr.Err)
//	}
//
// UnsupportedError matches ErrUnsupported, FormatError matches
// ErrUnrecognizedFormat, and QueryError carries the SQL text that failed.
package core

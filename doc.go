// Package deltactl inspects and queries versioned tables and flat parquet
// files.
//
// A versioned table is a directory (local or on S3) holding parquet data
// files and a transaction log under _delta_log/. A flat table is a single
// .parquet file.
//
// # Quick Start
//
//	instance, err := deltactl.Open(deltactl.Options{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer instance.Close()
//
//	result, err := instance.Execute(ctx, deltactl.Command{Name: deltactl.CmdHistory, Table: "/data/events", Limit: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result.Display(os.Stdout)
//
// # Commands
//
//   - files: data file URIs of the current version
//   - schema: name, type and nullability of every column
//   - version: current version number
//   - metadata: table metadata record
//   - history: commits, newest first, optionally limited
//   - query: SQL against the table, registered under its logical name and
//     under the fallback alias "t"
//
// Version and history are not available for flat tables and fail with
// core.ErrUnsupported.
package deltactl

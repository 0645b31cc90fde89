// Package txlog reads the transaction log of a versioned table.
//
// A versioned table keeps a _delta_log directory next to its data files.
// Every commit is a file named after its zero-padded version
// (00000000000000000042.json) holding newline-delimited JSON actions:
// add and remove record data files entering and leaving the table,
// metaData carries the schema and table properties, protocol the reader
// and writer requirements, and commitInfo describes the operation.
// Periodic checkpoints (NNN.checkpoint.parquet, or multi-part
// NNN.checkpoint.PPPPPPPPPP.TTTTTTTTTT.parquet) hold the full state at a
// version so older commits can be cleaned up.
//
// # Usage
//
//	l, err := txlog.Open(ctx, store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	snap, err := l.Snapshot(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(snap.Version)
//	uris, _ := snap.FileURIs()
//	history, _ := l.History(ctx, 10) // newest first; 0 means no limit
//
// Directory listing is authoritative: _last_checkpoint is not consulted.
// Deletion vectors are carried on add actions but not applied here.
package txlog

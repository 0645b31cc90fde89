// Package ps provides the storage layer for deltactl.
//
// A Store is a read-only view of the location a table lives at. Versioned
// tables need directory listing (to find transaction log entries) and
// whole-object reads; nothing else is required from storage.
//
// # Stores
//
//   - FileStore: a go-billy filesystem, either the local disk (NewLocalStore)
//     or memory (NewMemoryStore, used by tests)
//   - S3Store: an Amazon S3 (or S3-compatible) prefix, using aws-sdk-go-v2
//
// Open picks the store from the location's scheme:
//
//	store, err := ps.Open(ctx, "s3://bucket/tables/events", ps.Options{
//	    Region: "eu-west-1",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	entries, err := store.List(ctx, "_delta_log")
//
// Plain HTTP(S) locations cannot be listed and are rejected with
// ErrUnsupportedScheme; the query engine can still read single files there.
package ps

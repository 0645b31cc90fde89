package op

import (
	"context"
	"errors"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/db"
	"github.com/nickyhof/deltactl/ps"
	"github.com/nickyhof/deltactl/txlog"
)

// DeltaTable is a versioned table pinned to the snapshot read at open.
type DeltaTable struct {
	ref      string
	log      *txlog.Log
	snapshot *txlog.Snapshot
}

func openDeltaTable(ctx context.Context, ref string, opts Options) (*DeltaTable, error) {
	store, err := ps.Open(ctx, ref, opts.Storage)
	if err != nil {
		return nil, openErr(ref, err)
	}

	l, err := txlog.Open(ctx, store)
	if err != nil {
		return nil, openErr(ref, err)
	}

	snapshot, err := l.Snapshot(ctx)
	if err != nil {
		return nil, openErr(ref, err)
	}

	return &DeltaTable{ref: ref, log: l, snapshot: snapshot}, nil
}

func (t *DeltaTable) Kind() core.TableKind {
	return core.VersionedKind
}

func (t *DeltaTable) Reference() string {
	return t.ref
}

// Snapshot returns the replayed log state.
func (t *DeltaTable) Snapshot() *txlog.Snapshot {
	return t.snapshot
}

func (t *DeltaTable) Files(ctx context.Context) ([]string, error) {
	return t.snapshot.FileURIs()
}

func (t *DeltaTable) Schema(ctx context.Context) (*core.Schema, error) {
	return t.snapshot.Schema()
}

func (t *DeltaTable) Version(ctx context.Context) (int64, error) {
	return t.snapshot.Version, nil
}

func (t *DeltaTable) Metadata(ctx context.Context) (*core.TableMetadata, error) {
	return t.snapshot.TableMetadata()
}

func (t *DeltaTable) History(ctx context.Context, limit int) ([]core.CommitInfo, error) {
	return t.log.History(ctx, limit)
}

// LogicalName is the name recorded in the table metadata, if any.
func (t *DeltaTable) LogicalName() string {
	if t.snapshot.Metadata == nil {
		return ""
	}
	return t.snapshot.Metadata.Name
}

func (t *DeltaTable) Source(ctx context.Context) (db.Source, error) {
	files, err := t.snapshot.FileURIs()
	if err != nil {
		return db.Source{}, err
	}

	schema, err := t.snapshot.Schema()
	if err != nil && !errors.Is(err, core.ErrNoSchema) {
		return db.Source{}, err
	}

	src := db.Source{
		Name:   t.LogicalName(),
		Files:  files,
		Schema: schema,
	}
	if t.snapshot.Metadata != nil {
		src.Partitioned = len(t.snapshot.Metadata.PartitionColumns) > 0
	}
	for _, f := range t.snapshot.Files() {
		if f.DeletionVector != nil {
			src.DeletionVectors = true
			break
		}
	}
	return src, nil
}

func (t *DeltaTable) Close() error {
	return nil
}

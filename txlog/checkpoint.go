package txlog

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/nickyhof/deltactl/ps"
)

const checkpointBatchSize = 4096

// readCheckpoint decodes every part of a checkpoint into actions. Each
// parquet row holds one action in one of its top-level struct columns;
// rows are rendered to JSON and decoded like commit lines.
func readCheckpoint(ctx context.Context, store ps.Store, parts []string) ([]Action, error) {
	var actions []Action
	for _, part := range parts {
		data, err := store.Read(ctx, path.Join(LogDir, part))
		if err != nil {
			return nil, err
		}

		partActions, err := decodeCheckpoint(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", part, err)
		}
		actions = append(actions, partActions...)
	}
	return actions, nil
}

func decodeCheckpoint(ctx context.Context, data []byte) ([]Action, error) {
	mem := memory.DefaultAllocator
	tbl, err := pqarrow.ReadTable(ctx, bytes.NewReader(data), parquet.NewReaderProperties(mem),
		pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, err
	}
	defer tbl.Release()

	tr := array.NewTableReader(tbl, checkpointBatchSize)
	defer tr.Release()

	var buf bytes.Buffer
	for tr.Next() {
		if err := array.RecordToJSON(tr.Record(), &buf); err != nil {
			return nil, err
		}
	}

	return DecodeActions(buf.Bytes())
}

package txlog

import (
	"bytes"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
)

// Action is one line of a commit file. Exactly one field is set; actions
// this package does not use (cdc, domainMetadata, ...) decode to an empty
// Action and are skipped.
type Action struct {
	Add        *Add        `json:"add,omitempty"`
	Remove     *Remove     `json:"remove,omitempty"`
	MetaData   *Metadata   `json:"metaData,omitempty"`
	Protocol   *Protocol   `json:"protocol,omitempty"`
	CommitInfo *CommitInfo `json:"commitInfo,omitempty"`
	Txn        *Txn        `json:"txn,omitempty"`
}

type Add struct {
	Path             string          `json:"path"`
	PartitionValues  StringMap       `json:"partitionValues"`
	Size             int64           `json:"size"`
	ModificationTime int64           `json:"modificationTime"`
	DataChange       bool            `json:"dataChange"`
	Stats            string          `json:"stats,omitempty"`
	Tags             StringMap       `json:"tags,omitempty"`
	DeletionVector   *DeletionVector `json:"deletionVector,omitempty"`
}

type Remove struct {
	Path              string          `json:"path"`
	DeletionTimestamp *int64          `json:"deletionTimestamp,omitempty"`
	DataChange        bool            `json:"dataChange"`
	DeletionVector    *DeletionVector `json:"deletionVector,omitempty"`
}

type DeletionVector struct {
	StorageType    string `json:"storageType"`
	PathOrInlineDv string `json:"pathOrInlineDv"`
	Offset         *int32 `json:"offset,omitempty"`
	SizeInBytes    int32  `json:"sizeInBytes"`
	Cardinality    int64  `json:"cardinality"`
}

type Format struct {
	Provider string    `json:"provider"`
	Options  StringMap `json:"options,omitempty"`
}

type Metadata struct {
	ID               string    `json:"id"`
	Name             string    `json:"name,omitempty"`
	Description      string    `json:"description,omitempty"`
	Format           Format    `json:"format"`
	SchemaString     string    `json:"schemaString"`
	PartitionColumns []string  `json:"partitionColumns"`
	Configuration    StringMap `json:"configuration,omitempty"`
	CreatedTime      *int64    `json:"createdTime,omitempty"`
}

type Protocol struct {
	MinReaderVersion int      `json:"minReaderVersion"`
	MinWriterVersion int      `json:"minWriterVersion"`
	ReaderFeatures   []string `json:"readerFeatures,omitempty"`
	WriterFeatures   []string `json:"writerFeatures,omitempty"`
}

type CommitInfo struct {
	Timestamp           *int64         `json:"timestamp,omitempty"`
	Operation           string         `json:"operation,omitempty"`
	OperationParameters map[string]any `json:"operationParameters,omitempty"`
	UserID              string         `json:"userId,omitempty"`
	UserName            string         `json:"userName,omitempty"`
	ClusterID           string         `json:"clusterId,omitempty"`
	ReadVersion         *int64         `json:"readVersion,omitempty"`
	IsolationLevel      string         `json:"isolationLevel,omitempty"`
	IsBlindAppend       *bool          `json:"isBlindAppend,omitempty"`
	EngineInfo          string         `json:"engineInfo,omitempty"`
	OperationMetrics    map[string]any `json:"operationMetrics,omitempty"`
}

type Txn struct {
	AppID       string `json:"appId"`
	Version     int64  `json:"version"`
	LastUpdated *int64 `json:"lastUpdated,omitempty"`
}

// StringMap is a string-to-string map that decodes from a JSON object or
// from the [{"key":..,"value":..}] list form produced for map columns of
// parquet checkpoints. Null values decode as empty strings.
type StringMap map[string]string

func (m *StringMap) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}

	if data[0] == '[' {
		var entries []struct {
			Key   string  `json:"key"`
			Value *string `json:"value"`
		}
		if err := json.Unmarshal(data, &entries); err != nil {
			return err
		}
		out := make(StringMap, len(entries))
		for _, e := range entries {
			if e.Value != nil {
				out[e.Key] = *e.Value
			} else {
				out[e.Key] = ""
			}
		}
		*m = out
		return nil
	}

	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(StringMap, len(raw))
	for k, v := range raw {
		if v != nil {
			out[k] = *v
		} else {
			out[k] = ""
		}
	}
	*m = out
	return nil
}

// DecodeActions parses newline-delimited JSON actions.
func DecodeActions(data []byte) ([]Action, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	var actions []Action
	for {
		var a Action
		err := dec.Decode(&a)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed action %d: %w", len(actions)+1, err)
		}
		actions = append(actions, a)
	}
	return actions, nil
}

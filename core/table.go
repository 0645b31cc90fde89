package core

import (
	"fmt"
	"strings"
	"time"
)

type TableKind int

const (
	// UnknownKind is returned alongside errors; no table has it.
	UnknownKind TableKind = iota
	// VersionedKind is a table with a transaction log and a version history.
	VersionedKind
	// FlatKind is a table made of exactly one data file.
	FlatKind
)

func (k TableKind) String() string {
	switch k {
	case UnknownKind:
		return "unknown"
	case VersionedKind:
		return "versioned"
	case FlatKind:
		return "flat"
	default:
		return fmt.Sprintf("TableKind(%d)", int(k))
	}
}

// Field is one column of a table schema. Type is the rendered type name,
// e.g. "long", "decimal(10,2)" or "struct<a: int, b: string>".
type Field struct {
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Nullable bool           `json:"nullable"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Schema is the ordered list of fields of a table. Order is declaration order
// and is never changed by this module.
type Schema struct {
	Fields []Field `json:"fields"`
}

// Names returns the field names in declaration order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func (s *Schema) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
	}
	return "struct<" + strings.Join(parts, ", ") + ">"
}

type Format struct {
	Provider string            `json:"provider"`
	Options  map[string]string `json:"options,omitempty"`
}

// TableMetadata is the descriptive record of a table.
type TableMetadata struct {
	ID               string            `json:"id,omitempty"`
	Name             string            `json:"name,omitempty"`
	Description      string            `json:"description,omitempty"`
	Format           Format            `json:"format"`
	Schema           *Schema           `json:"schema,omitempty"`
	PartitionColumns []string          `json:"partitionColumns"`
	Configuration    map[string]string `json:"configuration,omitempty"`
	CreatedTime      *time.Time        `json:"createdTime,omitempty"`
	NumRows          *int64            `json:"numRows,omitempty"`
	NumFiles         *int64            `json:"numFiles,omitempty"`
}

// CommitInfo is one entry of a versioned table's history.
type CommitInfo struct {
	Version             int64             `json:"version"`
	Timestamp           time.Time         `json:"timestamp"`
	Operation           string            `json:"operation,omitempty"`
	OperationParameters map[string]any    `json:"operationParameters,omitempty"`
	UserID              string            `json:"userId,omitempty"`
	UserName            string            `json:"userName,omitempty"`
	ClusterID           string            `json:"clusterId,omitempty"`
	ReadVersion         *int64            `json:"readVersion,omitempty"`
	IsolationLevel      string            `json:"isolationLevel,omitempty"`
	IsBlindAppend       *bool             `json:"isBlindAppend,omitempty"`
	EngineInfo          string            `json:"engineInfo,omitempty"`
	OperationMetrics    map[string]string `json:"operationMetrics,omitempty"`
}

package db

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/nickyhof/deltactl/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	FilesResultType
	SchemaResultType
	VersionResultType
	MetadataResultType
	HistoryResultType
)

func (t ResultType) String() string {
	switch t {
	case QueryResultType:
		return "query"
	case FilesResultType:
		return "files"
	case SchemaResultType:
		return "schema"
	case VersionResultType:
		return "version"
	case MetadataResultType:
		return "metadata"
	case HistoryResultType:
		return "history"
	default:
		return "unknown"
	}
}

// Result is the outcome of one command.
type Result interface {
	Type() ResultType
	Display(w io.Writer) error
}

type QueryResult struct {
	Columns          []string   `json:"columns"`
	Data             [][]string `json:"data"`
	RecordsRead      int        `json:"records_read"`
	ExecutionTimeSec float64    `json:"execution_time_sec"`
}

type FilesResult struct {
	Files []string `json:"files"`
}

// SchemaResult holds a nil Schema when the table declares none.
type SchemaResult struct {
	Schema *core.Schema `json:"schema"`
}

type VersionResult struct {
	Version int64 `json:"version"`
}

type MetadataResult struct {
	Metadata *core.TableMetadata `json:"metadata"`
}

type HistoryResult struct {
	Commits []core.CommitInfo `json:"commits"`
}

func (result QueryResult) Type() ResultType    { return QueryResultType }
func (result FilesResult) Type() ResultType    { return FilesResultType }
func (result SchemaResult) Type() ResultType   { return SchemaResultType }
func (result VersionResult) Type() ResultType  { return VersionResultType }
func (result MetadataResult) Type() ResultType { return MetadataResultType }
func (result HistoryResult) Type() ResultType  { return HistoryResultType }

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 1 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	}
	mins := int(secs / 60)
	remainSecs := int(secs) % 60
	if remainSecs == 0 {
		return fmt.Sprintf("%dm", mins)
	}
	return fmt.Sprintf("%dm%ds", mins, remainSecs)
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display(w io.Writer) error {
	if len(result.Columns) > 0 {
		if err := RenderTable(w, result.Columns, result.Data); err != nil {
			return err
		}
	}

	// Compact stats line after data
	_, err := fmt.Fprintf(w, "%d rows (%s)\n", result.RecordsRead, result.ExecutionTime())
	return err
}

func (result FilesResult) Display(w io.Writer) error {
	for _, f := range result.Files {
		if _, err := fmt.Fprintln(w, f); err != nil {
			return err
		}
	}
	return nil
}

func (result SchemaResult) Display(w io.Writer) error {
	if result.Schema == nil {
		_, err := fmt.Fprintln(w, "no schema")
		return err
	}

	rows := make([][]string, len(result.Schema.Fields))
	for i, f := range result.Schema.Fields {
		rows[i] = []string{f.Name, f.Type, strconv.FormatBool(f.Nullable)}
	}
	return RenderTable(w, []string{"NAME", "TYPE", "NULLABLE"}, rows)
}

func (result VersionResult) Display(w io.Writer) error {
	_, err := fmt.Fprintln(w, result.Version)
	return err
}

func (result MetadataResult) Display(w io.Writer) error {
	m := result.Metadata
	if m == nil {
		_, err := fmt.Fprintln(w, "no metadata")
		return err
	}

	var b strings.Builder
	line := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&b, "%s: %s\n", key, value)
		}
	}

	line("id", m.ID)
	line("name", m.Name)
	line("description", m.Description)
	line("format", m.Format.Provider)
	for _, k := range sortedKeys(m.Format.Options) {
		line("format."+k, m.Format.Options[k])
	}
	if len(m.PartitionColumns) > 0 {
		line("partition columns", strings.Join(m.PartitionColumns, ", "))
	}
	if m.CreatedTime != nil {
		line("created", m.CreatedTime.UTC().Format(time.RFC3339))
	}
	if m.NumFiles != nil {
		line("files", strconv.FormatInt(*m.NumFiles, 10))
	}
	if m.NumRows != nil {
		line("rows", strconv.FormatInt(*m.NumRows, 10))
	}
	if m.Schema != nil {
		line("columns", strings.Join(m.Schema.Names(), ", "))
	}
	if len(m.Configuration) > 0 {
		b.WriteString("configuration:\n")
		for _, k := range sortedKeys(m.Configuration) {
			fmt.Fprintf(&b, "  %s = %s\n", k, m.Configuration[k])
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func (result HistoryResult) Display(w io.Writer) error {
	rows := make([][]string, 0, len(result.Commits))
	for _, c := range result.Commits {
		params := ""
		if len(c.OperationParameters) > 0 {
			if data, err := json.Marshal(c.OperationParameters); err == nil {
				params = string(data)
			}
		}
		user := c.UserName
		if user == "" {
			user = c.UserID
		}
		rows = append(rows, []string{
			strconv.FormatInt(c.Version, 10),
			c.Timestamp.UTC().Format(time.RFC3339),
			c.Operation,
			user,
			params,
		})
	}
	return RenderTable(w, []string{"VERSION", "TIMESTAMP", "OPERATION", "USER", "PARAMETERS"}, rows)
}

// WriteJSON writes result as a single JSON document.
func WriteJSON(w io.Writer, result Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

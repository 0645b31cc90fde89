package db

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/ps"
)

func setupTestEngine(t *testing.T) *Engine {
	engine, err := NewEngine(Options{})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

// writeParquet materializes a SELECT into a parquet file.
func writeParquet(t testing.TB, engine *Engine, path, selectSQL string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	stmt := "COPY (" + selectSQL + ") TO " + quoteLiteral(path) + " (FORMAT PARQUET)"
	if _, err := engine.db.Exec(stmt); err != nil {
		t.Fatalf("Failed to write parquet: %v", err)
	}
}

const threeRows = "SELECT * FROM (VALUES (1, 'a'), (2, 'b'), (3, 'c')) v(id, name)"

func TestEngineQueryByNameAndAlias(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "part-0.parquet")
	writeParquet(t, engine, path, threeRows)

	result, err := engine.Query(ctx, Source{Name: "events", Files: []string{path}}, "SELECT COUNT(*) FROM events")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.RecordsRead != 1 || result.Data[0][0] != "3" {
		t.Fatalf("Expected count 3, got %v", result.Data)
	}

	aliased, err := engine.Execute(ctx, "SELECT COUNT(*) FROM t")
	if err != nil {
		t.Fatalf("Execute against alias failed: %v", err)
	}
	if aliased.Data[0][0] != result.Data[0][0] {
		t.Errorf("Alias returned %v, name returned %v", aliased.Data, result.Data)
	}
}

func TestEngineRegisterNames(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.parquet")
	writeParquet(t, engine, path, threeRows)

	names, err := engine.Register(ctx, Source{Files: []string{path}})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if len(names) != 1 || names[0] != DefaultAlias {
		t.Errorf("Expected only the alias, got %v", names)
	}

	names, err = engine.Register(ctx, Source{Name: "t", Files: []string{path}})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if len(names) != 1 {
		t.Errorf("Expected name equal to alias to register once, got %v", names)
	}
}

func TestEngineCustomAlias(t *testing.T) {
	engine, err := NewEngine(Options{Alias: "tbl"})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}
	defer engine.Close()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data.parquet")
	writeParquet(t, engine, path, threeRows)

	result, err := engine.Query(ctx, Source{Files: []string{path}}, "SELECT MAX(id) FROM tbl")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.Data[0][0] != "3" {
		t.Errorf("Expected 3, got %v", result.Data)
	}
}

func TestEngineReRegisterReplaces(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()
	first := filepath.Join(dir, "first.parquet")
	second := filepath.Join(dir, "second.parquet")
	writeParquet(t, engine, first, threeRows)
	writeParquet(t, engine, second, "SELECT 42 AS id, 'z' AS name")

	if _, err := engine.Register(ctx, Source{Name: "events", Files: []string{first}}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	result, err := engine.Query(ctx, Source{Name: "events", Files: []string{second}}, "SELECT COUNT(*) FROM events")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.Data[0][0] != "1" {
		t.Errorf("Expected later registration to win, got %v", result.Data)
	}
}

func TestEngineMultipleFiles(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.parquet")
	b := filepath.Join(dir, "b.parquet")
	writeParquet(t, engine, a, threeRows)
	writeParquet(t, engine, b, "SELECT 4 AS id, 'd' AS name")

	result, err := engine.Query(ctx, Source{Files: []string{"file://" + a, b}}, "SELECT SUM(id) FROM t")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.Data[0][0] != "10" {
		t.Errorf("Expected 10, got %v", result.Data)
	}
}

func TestEnginePartitioned(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "region=eu", "part-0.parquet")
	writeParquet(t, engine, path, threeRows)

	result, err := engine.Query(ctx, Source{Files: []string{path}, Partitioned: true},
		"SELECT DISTINCT region FROM t")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(result.Data) != 1 || result.Data[0][0] != "eu" {
		t.Errorf("Expected partition column region=eu, got %v", result.Data)
	}
}

func TestEngineEmptyRelation(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()
	schema := &core.Schema{Fields: []core.Field{
		{Name: "id", Type: "long", Nullable: true},
		{Name: "amount", Type: "decimal(10,2)", Nullable: true},
		{Name: "tags", Type: "array<string>", Nullable: true},
	}}

	result, err := engine.Query(ctx, Source{Name: "empty", Schema: schema}, "SELECT * FROM empty")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if result.RecordsRead != 0 {
		t.Errorf("Expected no rows, got %d", result.RecordsRead)
	}
	if strings.Join(result.Columns, ",") != "id,amount,tags" {
		t.Errorf("Unexpected columns: %v", result.Columns)
	}
}

func TestEngineRegisterErrors(t *testing.T) {
	engine := setupTestEngine(t)
	ctx := context.Background()

	tests := []struct {
		name string
		src  Source
	}{
		{"no files no schema", Source{Name: "x"}},
		{"deletion vectors", Source{Name: "x", Files: []string{"a.parquet"}, DeletionVectors: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Register(ctx, tt.src)
			var qe *core.QueryError
			if !errors.As(err, &qe) {
				t.Errorf("Expected QueryError, got %v", err)
			}
		})
	}
}

func TestEngineQueryError(t *testing.T) {
	engine := setupTestEngine(t)
	query := "SELECT * FROM no_such_table"

	_, err := engine.Execute(context.Background(), query)
	var qe *core.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("Expected QueryError, got %v", err)
	}
	if qe.SQL != query || !strings.Contains(err.Error(), query) {
		t.Errorf("Expected error to echo SQL, got %v", err)
	}
}

func TestDescribeParquet(t *testing.T) {
	engine := setupTestEngine(t)
	path := filepath.Join(t.TempDir(), "data.parquet")
	writeParquet(t, engine, path, "SELECT 1::INTEGER AS id, 'a' AS name, 2.5::DOUBLE AS score")

	schema, err := engine.DescribeParquet(context.Background(), path)
	if err != nil {
		t.Fatalf("DescribeParquet failed: %v", err)
	}

	want := []core.Field{
		{Name: "id", Type: "integer", Nullable: true},
		{Name: "name", Type: "varchar", Nullable: true},
		{Name: "score", Type: "double", Nullable: true},
	}
	if len(schema.Fields) != len(want) {
		t.Fatalf("Expected %d fields, got %d", len(want), len(schema.Fields))
	}
	for i, f := range want {
		got := schema.Fields[i]
		if got.Name != f.Name || got.Type != f.Type || got.Nullable != f.Nullable {
			t.Errorf("Field %d = %+v, want %+v", i, got, f)
		}
	}
}

func TestParquetMetadata(t *testing.T) {
	engine := setupTestEngine(t)
	path := filepath.Join(t.TempDir(), "data.parquet")
	stmt := "COPY (" + threeRows + ") TO " + quoteLiteral(path) + " (FORMAT PARQUET, KV_METADATA {owner: 'analytics'})"
	if _, err := engine.db.Exec(stmt); err != nil {
		t.Fatalf("Failed to write parquet: %v", err)
	}

	meta, err := engine.ParquetMetadata(context.Background(), path)
	if err != nil {
		t.Fatalf("ParquetMetadata failed: %v", err)
	}
	if meta.NumRows == nil || *meta.NumRows != 3 {
		t.Errorf("Expected 3 rows, got %v", meta.NumRows)
	}
	if meta.NumFiles == nil || *meta.NumFiles != 1 {
		t.Errorf("Expected 1 file, got %v", meta.NumFiles)
	}
	if meta.Format.Provider != "parquet" {
		t.Errorf("Expected parquet format, got %q", meta.Format.Provider)
	}
	if meta.Schema == nil || len(meta.Schema.Fields) != 2 {
		t.Errorf("Expected 2 columns, got %v", meta.Schema)
	}
	if meta.Configuration["owner"] != "analytics" {
		t.Errorf("Expected key-value metadata, got %v", meta.Configuration)
	}
}

func TestDescribeParquetMissingFile(t *testing.T) {
	engine := setupTestEngine(t)
	_, err := engine.DescribeParquet(context.Background(), filepath.Join(t.TempDir(), "missing.parquet"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestS3SecretStatement(t *testing.T) {
	tests := []struct {
		name     string
		opts     ps.Options
		contains []string
		excludes []string
	}{
		{
			name:     "credential chain",
			opts:     ps.Options{},
			contains: []string{"TYPE s3", "PROVIDER credential_chain"},
			excludes: []string{"KEY_ID", "ENDPOINT"},
		},
		{
			name:     "static credentials",
			opts:     ps.Options{Region: "eu-west-1", AccessKey: "AK", SecretKey: "S'K", SessionToken: "tok"},
			contains: []string{"KEY_ID 'AK'", "SECRET 'S''K'", "SESSION_TOKEN 'tok'", "REGION 'eu-west-1'"},
			excludes: []string{"credential_chain"},
		},
		{
			name:     "plain http endpoint",
			opts:     ps.Options{Endpoint: "http://localhost:9000/"},
			contains: []string{"ENDPOINT 'localhost:9000'", "URL_STYLE 'path'", "USE_SSL false"},
		},
		{
			name:     "https endpoint",
			opts:     ps.Options{Endpoint: "https://minio.internal"},
			contains: []string{"ENDPOINT 'minio.internal'", "USE_SSL true"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := s3SecretStatement(tt.opts)
			for _, s := range tt.contains {
				if !strings.Contains(stmt, s) {
					t.Errorf("Expected %q in %s", s, stmt)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(stmt, s) {
					t.Errorf("Did not expect %q in %s", s, stmt)
				}
			}
		})
	}

	if got := redactSecret(s3SecretStatement(ps.Options{AccessKey: "AK", SecretKey: "SK"})); strings.Contains(got, "SK") {
		t.Errorf("Expected credentials to be redacted, got %s", got)
	}
}

func TestDuckType(t *testing.T) {
	tests := map[string]string{
		"long":           "BIGINT",
		"string":         "VARCHAR",
		"timestamp":      "TIMESTAMPTZ",
		"timestamp_ntz":  "TIMESTAMP",
		"decimal(10,2)":  "DECIMAL(10,2)",
		"struct<a: int>": "VARCHAR",
	}
	for in, want := range tests {
		if got := duckType(in); got != want {
			t.Errorf("duckType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		secs float64
		want string
	}{
		{0.0001, "<1ms"},
		{0.25, "250ms"},
		{2.5, "2.5s"},
		{42, "42s"},
		{120, "2m"},
		{125, "2m5s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.secs); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.secs, got, tt.want)
		}
	}
}

func TestResultDisplay(t *testing.T) {
	var buf bytes.Buffer

	if err := (VersionResult{Version: 7}).Display(&buf); err != nil || buf.String() != "7\n" {
		t.Errorf("Version display = %q, %v", buf.String(), err)
	}

	buf.Reset()
	if err := (FilesResult{Files: []string{"/a/1.parquet", "/a/2.parquet"}}).Display(&buf); err != nil {
		t.Fatalf("Files display failed: %v", err)
	}
	if buf.String() != "/a/1.parquet\n/a/2.parquet\n" {
		t.Errorf("Files display = %q", buf.String())
	}

	buf.Reset()
	if err := (SchemaResult{}).Display(&buf); err != nil || buf.String() != "no schema\n" {
		t.Errorf("Empty schema display = %q, %v", buf.String(), err)
	}

	buf.Reset()
	schema := &core.Schema{Fields: []core.Field{
		{Name: "zeta", Type: "long", Nullable: false},
		{Name: "alpha", Type: "string", Nullable: true},
	}}
	if err := (SchemaResult{Schema: schema}).Display(&buf); err != nil {
		t.Fatalf("Schema display failed: %v", err)
	}
	out := buf.String()
	z, a := strings.Index(out, "zeta"), strings.Index(out, "alpha")
	if z < 0 || a < 0 || z > a {
		t.Errorf("Expected fields in declaration order, got:\n%s", out)
	}

	buf.Reset()
	qr := QueryResult{Columns: []string{"n"}, Data: [][]string{{"3"}}, RecordsRead: 1}
	if err := qr.Display(&buf); err != nil {
		t.Fatalf("Query display failed: %v", err)
	}
	if !strings.Contains(buf.String(), "1 rows (<1ms)") {
		t.Errorf("Expected stats line, got:\n%s", buf.String())
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, VersionResult{Version: 12}); err != nil {
		t.Fatalf("WriteJSON failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"version": 12`) {
		t.Errorf("Unexpected JSON: %s", buf.String())
	}
}

package deltactl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nickyhof/deltactl/core"
	"github.com/nickyhof/deltactl/db"
)

// TestFunc is the signature for test functions that work with any table reference
type TestFunc func(t *testing.T, instance *Instance, ref string)

// runWithBothReferences runs a test function with a plain path and a file:// URI
func runWithBothReferences(t *testing.T, testFunc TestFunc) {
	t.Run("Path", func(t *testing.T) {
		instance := setupInstance(t)
		testFunc(t, instance, setupEventsTable(t, instance))
	})

	t.Run("FileURI", func(t *testing.T) {
		instance := setupInstance(t)
		testFunc(t, instance, "file://"+setupEventsTable(t, instance))
	})
}

func setupInstance(t *testing.T) *Instance {
	instance, err := Open(Options{})
	if err != nil {
		t.Fatalf("Failed to open instance: %v", err)
	}
	t.Cleanup(func() { instance.Close() })
	return instance
}

func mustExec(t *testing.T, instance *Instance, stmt string) {
	t.Helper()
	if _, err := instance.Engine().Execute(context.Background(), stmt); err != nil {
		t.Fatalf("Failed to execute %s: %v", stmt, err)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func commitPath(dir string, version int) string {
	return filepath.Join(dir, "_delta_log", fmt.Sprintf("%020d.json", version))
}

const eventsMetaData = `{"metaData":{"id":"0d6c5c8e","name":"events","format":{"provider":"parquet","options":{}},` +
	`"schemaString":"{\"type\":\"struct\",\"fields\":[{\"name\":\"id\",\"type\":\"integer\",\"nullable\":false,\"metadata\":{}},{\"name\":\"kind\",\"type\":\"string\",\"nullable\":true,\"metadata\":{}}]}",` +
	`"partitionColumns":[],"configuration":{},"createdTime":1700000000000}}`

// setupEventsTable writes a table named "events" with three rows spread
// over four commits. Version 3 rewrites the first two files into one.
func setupEventsTable(t *testing.T, instance *Instance) string {
	dir := filepath.Join(t.TempDir(), "events")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("Failed to create table dir: %v", err)
	}

	for i, sel := range []string{
		"SELECT 1 AS id, 'click' AS kind",
		"SELECT 2 AS id, 'view' AS kind",
		"SELECT 3 AS id, 'click' AS kind",
		"SELECT * FROM (VALUES (1, 'click'), (2, 'view')) v(id, kind)",
	} {
		mustExec(t, instance, fmt.Sprintf("COPY (%s) TO '%s' (FORMAT PARQUET)",
			sel, filepath.Join(dir, fmt.Sprintf("part-%05d.parquet", i))))
	}

	addLine := func(i int) string {
		return fmt.Sprintf(`{"add":{"path":"part-%05d.parquet","partitionValues":{},"size":1,"modificationTime":1700000000000,"dataChange":true}}`, i)
	}
	removeLine := func(i int) string {
		return fmt.Sprintf(`{"remove":{"path":"part-%05d.parquet","deletionTimestamp":1700000300000,"dataChange":false}}`, i)
	}
	commitInfo := func(ts int64, op string) string {
		return fmt.Sprintf(`{"commitInfo":{"timestamp":%d,"operation":"%s","operationParameters":{},"isBlindAppend":true}}`, ts, op)
	}

	writeFile(t, commitPath(dir, 0), strings.Join([]string{
		commitInfo(1700000000000, "CREATE TABLE"),
		`{"protocol":{"minReaderVersion":1,"minWriterVersion":2}}`,
		eventsMetaData,
		addLine(0),
	}, "\n"))
	writeFile(t, commitPath(dir, 1), commitInfo(1700000100000, "WRITE")+"\n"+addLine(1))
	writeFile(t, commitPath(dir, 2), commitInfo(1700000200000, "WRITE")+"\n"+addLine(2))
	writeFile(t, commitPath(dir, 3), strings.Join([]string{
		commitInfo(1700000300000, "OPTIMIZE"),
		removeLine(0),
		removeLine(1),
		addLine(3),
	}, "\n"))
	return dir
}

func display(t *testing.T, result db.Result) string {
	t.Helper()
	var buf bytes.Buffer
	if err := result.Display(&buf); err != nil {
		t.Fatalf("Display failed: %v", err)
	}
	return buf.String()
}

// TestIntegrationWorkflow runs every command against one table
func TestIntegrationWorkflow(t *testing.T) {
	runWithBothReferences(t, func(t *testing.T, instance *Instance, ref string) {
		ctx := context.Background()

		result, err := instance.Execute(ctx, Command{Name: CmdVersion, Table: ref})
		if err != nil {
			t.Fatalf("version failed: %v", err)
		}
		if display(t, result) != "3\n" {
			t.Errorf("Expected version 3, got %q", display(t, result))
		}

		result, err = instance.Execute(ctx, Command{Name: CmdFiles, Table: ref})
		if err != nil {
			t.Fatalf("files failed: %v", err)
		}
		files := result.(db.FilesResult).Files
		if len(files) != 2 || !strings.HasSuffix(files[0], "part-00002.parquet") || !strings.HasSuffix(files[1], "part-00003.parquet") {
			t.Errorf("Unexpected files: %v", files)
		}

		result, err = instance.Execute(ctx, Command{Name: CmdSchema, Table: ref})
		if err != nil {
			t.Fatalf("schema failed: %v", err)
		}
		out := display(t, result)
		if !strings.Contains(out, "NULLABLE") || strings.Index(out, "id") > strings.Index(out, "kind") {
			t.Errorf("Unexpected schema output:\n%s", out)
		}

		result, err = instance.Execute(ctx, Command{Name: CmdMetadata, Table: ref})
		if err != nil {
			t.Fatalf("metadata failed: %v", err)
		}
		out = display(t, result)
		if !strings.Contains(out, "name: events") || !strings.Contains(out, "files: 2") {
			t.Errorf("Unexpected metadata output:\n%s", out)
		}

		result, err = instance.Execute(ctx, Command{Name: CmdQuery, Table: ref, SQL: "SELECT COUNT(*) FROM events"})
		if err != nil {
			t.Fatalf("query failed: %v", err)
		}
		if got := result.(db.QueryResult).Data[0][0]; got != "3" {
			t.Errorf("Expected 3 rows, got %s", got)
		}
	})
}

func TestIntegrationQueryAlias(t *testing.T) {
	instance := setupInstance(t)
	ctx := context.Background()
	ref := setupEventsTable(t, instance)

	byName, err := instance.Execute(ctx, Command{Name: CmdQuery, Table: ref, SQL: "SELECT COUNT(*) FROM events"})
	if err != nil {
		t.Fatalf("query by name failed: %v", err)
	}
	byAlias, err := instance.Execute(ctx, Command{Name: CmdQuery, Table: ref, SQL: "SELECT COUNT(*) FROM t"})
	if err != nil {
		t.Fatalf("query by alias failed: %v", err)
	}

	if byName.(db.QueryResult).Data[0][0] != "3" || byAlias.(db.QueryResult).Data[0][0] != "3" {
		t.Errorf("Expected 3 by name and alias, got %v and %v",
			byName.(db.QueryResult).Data, byAlias.(db.QueryResult).Data)
	}
}

func TestIntegrationQueryError(t *testing.T) {
	instance := setupInstance(t)
	ref := setupEventsTable(t, instance)
	sql := "SELECT nope FROM events"

	_, err := instance.Execute(context.Background(), Command{Name: CmdQuery, Table: ref, SQL: sql})
	var qe *core.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("Expected QueryError, got %v", err)
	}
	if !strings.Contains(err.Error(), sql) {
		t.Errorf("Expected SQL to be echoed, got %v", err)
	}
}

func TestIntegrationQueryEmptySQL(t *testing.T) {
	instance := setupInstance(t)
	ref := setupEventsTable(t, instance)

	cmd := Command{Name: CmdQuery, Table: ref, SQL: ""}
	if err := cmd.Validate(); err != nil {
		t.Fatalf("Expected empty SQL to pass validation, got %v", err)
	}

	_, err := instance.Execute(context.Background(), cmd)
	var qe *core.QueryError
	if !errors.As(err, &qe) {
		t.Fatalf("Expected QueryError from the engine, got %v", err)
	}
	if qe.SQL != "" {
		t.Errorf("Expected SQL to be forwarded unchanged, got %q", qe.SQL)
	}
}

// chdir switches the working directory for the rest of the test.
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir failed: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestIntegrationRelativeDirectories(t *testing.T) {
	instance := setupInstance(t)
	ctx := context.Background()
	ref := setupEventsTable(t, instance)

	tests := []struct {
		wd  string
		ref string
	}{
		{ref, "."},
		{ref, "./"},
		{filepath.Join(ref, "_delta_log"), ".."},
		{filepath.Join(ref, "_delta_log"), "../"},
	}

	for _, tt := range tests {
		chdir(t, tt.wd)
		result, err := instance.Execute(ctx, Command{Name: CmdVersion, Table: tt.ref})
		if err != nil {
			t.Fatalf("version %q failed: %v", tt.ref, err)
		}
		if v := result.(db.VersionResult).Version; v != 3 {
			t.Errorf("version %q = %d, want 3", tt.ref, v)
		}
	}
}

func TestIntegrationHistoryLimits(t *testing.T) {
	instance := setupInstance(t)
	ctx := context.Background()
	ref := setupEventsTable(t, instance)

	history := func(limit int) []core.CommitInfo {
		t.Helper()
		result, err := instance.Execute(ctx, Command{Name: CmdHistory, Table: ref, Limit: limit})
		if err != nil {
			t.Fatalf("history(%d) failed: %v", limit, err)
		}
		return result.(db.HistoryResult).Commits
	}

	all := history(0)
	if len(all) != 4 {
		t.Fatalf("Expected 4 commits, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1].Version <= all[i].Version {
			t.Errorf("Expected newest first, got %d before %d", all[i-1].Version, all[i].Version)
		}
	}

	for limit := 1; limit <= 6; limit++ {
		limited := history(limit)
		want := min(limit, len(all))
		if len(limited) != want {
			t.Errorf("history(%d) returned %d commits, want %d", limit, len(limited), want)
			continue
		}
		for i := range limited {
			if limited[i].Version != all[i].Version {
				t.Errorf("history(%d)[%d] = v%d, want v%d", limit, i, limited[i].Version, all[i].Version)
			}
		}
	}

	if all[0].Operation != "OPTIMIZE" || all[3].Operation != "CREATE TABLE" {
		t.Errorf("Unexpected operations: %s, %s", all[0].Operation, all[3].Operation)
	}

	_, err := instance.Execute(ctx, Command{Name: CmdHistory, Table: ref, Limit: -1})
	if !errors.Is(err, core.ErrInvalidLimit) {
		t.Errorf("Expected invalid limit, got %v", err)
	}
}

func TestIntegrationFlatTable(t *testing.T) {
	instance := setupInstance(t)
	ctx := context.Background()
	ref := filepath.Join(t.TempDir(), "dump.parquet")
	mustExec(t, instance, fmt.Sprintf("COPY (SELECT * FROM (VALUES (1, 'a'), (2, 'b')) v(id, name)) TO '%s' (FORMAT PARQUET)", ref))

	result, err := instance.Execute(ctx, Command{Name: CmdFiles, Table: ref})
	if err != nil {
		t.Fatalf("files failed: %v", err)
	}
	if display(t, result) != ref+"\n" {
		t.Errorf("Expected the reference itself, got %q", display(t, result))
	}

	for _, name := range []CommandName{CmdVersion, CmdHistory} {
		_, err := instance.Execute(ctx, Command{Name: name, Table: ref})
		var unsupported *core.UnsupportedError
		if !errors.As(err, &unsupported) || unsupported.Kind != core.FlatKind {
			t.Errorf("%s: expected unsupported error, got %v", name, err)
		}
	}

	result, err = instance.Execute(ctx, Command{Name: CmdQuery, Table: ref, SQL: "SELECT SUM(id) FROM t"})
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if got := result.(db.QueryResult).Data[0][0]; got != "3" {
		t.Errorf("Expected sum 3, got %s", got)
	}
}

func TestIntegrationNoSchema(t *testing.T) {
	instance := setupInstance(t)
	dir := filepath.Join(t.TempDir(), "bare")
	writeFile(t, commitPath(dir, 0), `{"protocol":{"minReaderVersion":1,"minWriterVersion":2}}`+"\n")

	result, err := instance.Execute(context.Background(), Command{Name: CmdSchema, Table: dir})
	if err != nil {
		t.Fatalf("schema failed: %v", err)
	}
	if display(t, result) != "no schema\n" {
		t.Errorf("Expected no schema, got %q", display(t, result))
	}
}

func TestIntegrationOpenErrors(t *testing.T) {
	instance := setupInstance(t)
	ctx := context.Background()

	_, err := instance.Execute(ctx, Command{Name: CmdFiles, Table: "/nonexistent/table.orc"})
	if !errors.Is(err, core.ErrUnrecognizedFormat) {
		t.Errorf("Expected unrecognized format, got %v", err)
	}

	_, err = instance.Execute(ctx, Command{Name: CmdFiles, Table: filepath.Join(t.TempDir(), "missing")})
	var openErr *core.OpenError
	if !errors.As(err, &openErr) {
		t.Errorf("Expected OpenError, got %v", err)
	}
}

func TestCommandValidate(t *testing.T) {
	tests := []struct {
		cmd     Command
		wantErr bool
	}{
		{Command{Name: CmdFiles, Table: "x"}, false},
		{Command{Name: CmdQuery, Table: "x"}, false},
		{Command{Name: CmdHistory, Table: "x", Limit: 0}, false},
		{Command{Name: CmdHistory, Table: "x", Limit: -3}, true},
		{Command{Name: CmdSchema}, true},
		{Command{Name: "optimize", Table: "x"}, true},
	}

	for _, tt := range tests {
		err := tt.cmd.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("Validate(%+v) = %v, wantErr %v", tt.cmd, err, tt.wantErr)
		}
	}

	var unknown *UnknownCommandError
	if _, err := ParseCommandName("drop"); !errors.As(err, &unknown) {
		t.Errorf("Expected UnknownCommandError, got %v", err)
	}
}

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siftgo/sift/querysql"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestFmt_NormalizesShorthand(t *testing.T) {
	out, err := runCommand(t, "fmt", "name:bob,age:gt(30)")
	require.NoError(t, err)
	assert.Equal(t, "name:eq(bob),age:gt(30)\n", out)
}

func TestFmt_JSONEnvelope(t *testing.T) {
	out, err := runCommand(t, "--format", "json", "fmt", "name:bob")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "name:eq(bob)", resp.Data)
}

func TestParse_PrintsNormalizedAndTree(t *testing.T) {
	out, err := runCommand(t, "parse", "and(name:eq(bob),age:gt(30))")
	require.NoError(t, err)
	assert.Contains(t, out, "and(name:eq(bob),age:gt(30))")
	assert.Contains(t, out, `"kind": "and"`)
}

func TestParse_GrammarErrorExitsFailure(t *testing.T) {
	_, err := runCommand(t, "parse", "and(name:eq(bob)")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestRoot_RejectsUnknownFormat(t *testing.T) {
	_, err := runCommand(t, "--format", "xml", "fmt", "name:bob")
	assert.Error(t, err)
}

func TestSQL_CompilesSelect(t *testing.T) {
	out, err := runCommand(t, "sql", "age:gt(30)", "--table", "employees", "--sort", "name")
	require.NoError(t, err)
	assert.Contains(t, out, "SELECT * FROM employees WHERE age > ? ORDER BY name ASC, rowid ASC")
	assert.Contains(t, out, "? = 30")
}

func TestSQL_WithCastConfig(t *testing.T) {
	dir := t.TempDir()
	castPath := filepath.Join(dir, "api.yaml")
	require.NoError(t, os.WriteFile(castPath, []byte("columns:\n  name: full_name\n"), 0o644))

	out, err := runCommand(t, "sql", "name:eq(bob)", "--table", "people", "--cast", castPath)
	require.NoError(t, err)
	assert.Contains(t, out, "full_name = ?")
}

func TestSQL_RequiresTable(t *testing.T) {
	_, err := runCommand(t, "sql", "age:gt(30)")
	assert.Error(t, err)
}

func TestQuery_EndToEnd(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "people.db")
	db, err := querysql.Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.Exec(ctx, "CREATE TABLE people (name TEXT, age INTEGER)"))
	require.NoError(t, db.Exec(ctx, "INSERT INTO people (name, age) VALUES ('Alice', 35), ('Bob', 25)"))
	require.NoError(t, db.Close())

	out, err := runCommand(t, "--format", "json", "query", "age:gt(30)",
		"--db", dbPath, "--table", "people")
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	rows, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "Alice", row["name"])
}

func TestQuery_Count(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "people.db")
	db, err := querysql.Open(dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, db.Exec(ctx, "CREATE TABLE people (name TEXT, age INTEGER)"))
	require.NoError(t, db.Exec(ctx, "INSERT INTO people (name, age) VALUES ('Alice', 35), ('Bob', 25)"))
	require.NoError(t, db.Close())

	out, err := runCommand(t, "query", "age:lt(60)", "--db", dbPath, "--table", "people", "--count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)
}

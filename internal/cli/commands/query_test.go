package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitest "github.com/oojn4/korika/internal/cli/testutil"
	"github.com/oojn4/korika/internal/testutil"
)

func seedHistory(t *testing.T, n int) {
	t.Helper()
	_, statePath := setup(t)
	store := openState(t, statePath)
	records := testutil.Records(n, 5)
	_, err := store.SaveBatch(context.Background(), *testutil.Summary(records), records)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

func TestQueryCommand(t *testing.T) {
	seedHistory(t, 3)

	out, _, err := runCommand(t, NewQueryCommand(),
		"SELECT facility_id, year FROM batch_records ORDER BY seq")
	require.NoError(t, err)
	rows := clitest.MarkdownRows(out)
	require.Len(t, rows, 3)
	assert.Contains(t, out, "| 1 | 2024 |")
	assert.Contains(t, out, "| 3 | 2024 |")

	out, _, err = runCommand(t, NewQueryCommand(), "SELECT COUNT(*) AS n FROM batches WHERE 1 = 0")
	require.NoError(t, err)
	assert.Contains(t, out, "| 0 |")

	out, _, err = runCommand(t, NewQueryCommand(), "SELECT id FROM batches WHERE 1 = 0")
	require.NoError(t, err)
	assert.Contains(t, out, "(0 rows)")
}

func TestQueryCommand_ResolvesSQLArguments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantCmd string
	}{
		{name: "quoted statement", args: []string{"SELECT 1"}, wantCmd: "query"},
		{name: "unquoted words", args: []string{"SELECT", "id", "FROM", "batches"}, wantCmd: "query"},
		{name: "tables subcommand", args: []string{"tables"}, wantCmd: "tables"},
		{name: "schema subcommand", args: []string{"schema", "batches"}, wantCmd: "schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, _, err := NewQueryCommand().Find(tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCmd, cmd.Name())
		})
	}

	seedHistory(t, 2)
	out, _, err := runCommand(t, NewQueryCommand(), "SELECT", "COUNT(*)", "AS", "n", "FROM", "batch_records")
	require.NoError(t, err)
	assert.Contains(t, out, "| 2 |")
}

func TestQueryCommand_Stdin(t *testing.T) {
	seedHistory(t, 2)

	cmd := NewQueryCommand()
	cmd.SetIn(strings.NewReader("SELECT record_count FROM batches"))
	out, _, err := runCommand(t, cmd, "--input", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "| 2 |")
}

func TestQueryCommand_ReadOnly(t *testing.T) {
	seedHistory(t, 2)

	_, _, err := runCommand(t, NewQueryCommand(), "DELETE FROM batch_records")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query failed")
}

func TestQueryCommand_Errors(t *testing.T) {
	setup(t)

	_, _, err := runCommand(t, NewQueryCommand(), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no batch history")

	_, _, err = runCommand(t, NewQueryCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no SQL given")
}

func TestQueryTablesAndSchema(t *testing.T) {
	seedHistory(t, 1)

	out, _, err := runCommand(t, NewQueryCommand(), "tables")
	require.NoError(t, err)
	assert.Contains(t, out, "| batch_records | table |")
	assert.Contains(t, out, "| batches | table |")
	assert.NotContains(t, out, "goose")

	out, _, err = runCommand(t, NewQueryCommand(), "schema", "batch_records")
	require.NoError(t, err)
	assert.Contains(t, out, "| facility_id | INTEGER |")

	_, _, err = runCommand(t, NewQueryCommand(), "schema", "models")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "table not found: models")
}

package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	clitest "github.com/oojn4/korika/internal/cli/testutil"
	"github.com/oojn4/korika/internal/state"
	"github.com/oojn4/korika/internal/testutil"
)

// runCommand executes cmd with args and returns stdout and stderr.
func runCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, string, error) {
	t.Helper()
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// setup starts a fake prediction service and points the configuration at
// it. It returns the service and the state database path.
func setup(t *testing.T, env ...string) (*clitest.Backend, string) {
	t.Helper()
	backend := clitest.NewBackend(t)
	statePath := clitest.SetupConfig(t, backend.URL(), env...)
	return backend, statePath
}

func openState(t *testing.T, path string) *state.SQLiteStore {
	t.Helper()
	store, err := state.Open(path, testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// =============================================================================
// Command Metadata Tests
// =============================================================================

func TestNewCommands(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		use   string
		flags []string
	}{
		{cmd: NewProvincesCommand(), use: "provinces"},
		{cmd: NewFacilitiesCommand(), use: "facilities", flags: []string{"province", "kabupaten"}},
		{cmd: NewTrainCommand(), use: "train"},
		{cmd: NewPredictCommand(), use: "predict <facility-id>", flags: []string{"group", "all-groups"}},
		{cmd: NewPredictAllCommand(), use: "predict-all", flags: []string{"no-save", "all-groups"}},
		{cmd: NewResultsCommand(), use: "results [batch-id]", flags: []string{"search", "facility", "page", "page-size", "group", "all-groups", "format"}},
		{cmd: NewBrowseCommand(), use: "browse [batch-id]", flags: []string{"generate"}},
		{cmd: NewShellCommand(), use: "shell [batch-id]"},
		{cmd: NewHistoryCommand(), use: "history", flags: []string{"limit", "delete"}},
		{cmd: NewQueryCommand(), use: "query [SQL]", flags: []string{"input"}},
		{cmd: NewDoctorCommand(), use: "doctor"},
		{cmd: NewDownloadCommand(), use: "download <filename>", flags: []string{"dest", "force"}},
		{cmd: NewLookupCommand(), use: "lookup <kind>"},
		{cmd: NewArticlesCommand(), use: "articles"},
		{cmd: NewUICommand(), use: "ui", flags: []string{"port", "no-browser", "watch"}},
	}

	for _, tt := range tests {
		t.Run(tt.use, func(t *testing.T) {
			assert.Equal(t, tt.use, tt.cmd.Use)
			assert.NotEmpty(t, tt.cmd.Short, "Short should not be empty")
			for _, flag := range tt.flags {
				assert.NotNil(t, tt.cmd.Flags().Lookup(flag), "flag %q should exist", flag)
			}
		})
	}
}

func TestResultsCommandShorthands(t *testing.T) {
	cmd := NewResultsCommand()
	for short, long := range map[string]string{"s": "search", "f": "facility", "p": "page"} {
		f := cmd.Flags().ShorthandLookup(short)
		require.NotNil(t, f, "shorthand -%s should exist", short)
		assert.Equal(t, long, f.Name)
	}
}

// =============================================================================
// Prediction Service Commands
// =============================================================================

func TestProvincesCommand(t *testing.T) {
	backend, _ := setup(t)

	out, _, err := runCommand(t, NewProvincesCommand())
	require.NoError(t, err)

	assert.Contains(t, out, "| PAPUA | Papua |")
	assert.Contains(t, out, "| NUSA TENGGARA TIMUR | Nusa Tenggara Timur |")
	clitest.AssertNoANSI(t, out)
	assert.Equal(t, 1, backend.Calls("provinces"))
}

func TestProvincesCommand_JSON(t *testing.T) {
	setup(t, "KORIKA_OUTPUT", "json")

	out, _, err := runCommand(t, NewProvincesCommand())
	require.NoError(t, err)

	var provinces []string
	require.NoError(t, json.Unmarshal([]byte(out), &provinces))
	assert.Equal(t, []string{"PAPUA", "NUSA TENGGARA TIMUR"}, provinces)
}

func TestFacilitiesCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantRows int
		want     string
	}{
		{name: "all facilities", wantRows: 2, want: "PKM WAENA"},
		{name: "by regency", args: []string{"--province", "PAPUA", "--kabupaten", "MIMIKA"}, wantRows: 1, want: "PKM TIMIKA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setup(t)

			out, _, err := runCommand(t, NewFacilitiesCommand(), tt.args...)
			require.NoError(t, err)
			assert.Len(t, clitest.MarkdownRows(out), tt.wantRows)
			assert.Contains(t, out, tt.want)
		})
	}
}

func TestFacilitiesCommand_Empty(t *testing.T) {
	setup(t)

	out, _, err := runCommand(t, NewFacilitiesCommand(), "--province", "ACEH")
	require.NoError(t, err)
	assert.Contains(t, out, "No facilities found.")
}

func TestTrainCommand(t *testing.T) {
	backend, _ := setup(t)

	out, _, err := runCommand(t, NewTrainCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "Model trained on 24 months of data")
	assert.Equal(t, 1, backend.Calls("train"))
}

func TestTrainCommand_ApplicationFailure(t *testing.T) {
	backend, _ := setup(t)
	backend.Fail("Not enough historical data")

	_, _, err := runCommand(t, NewTrainCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "training failed")
	assert.Contains(t, err.Error(), "Not enough historical data")
}

func TestPredictCommand(t *testing.T) {
	backend, _ := setup(t)

	out, _, err := runCommand(t, NewPredictCommand(), "1")
	require.NoError(t, err)

	assert.Contains(t, out, "# Facility 1")
	assert.Contains(t, out, "- **Plot**: "+backend.URL()+"/static/plot_1.png")
	assert.Contains(t, out, "prediction_1.xlsx (korika download prediction_1.xlsx)")
	rows := clitest.MarkdownRows(out)
	require.Len(t, rows, 1)
	assert.True(t, strings.HasPrefix(rows[0], "| 1 | 3/2024 |"), "row %q", rows[0])
}

func TestPredictCommand_AllGroups(t *testing.T) {
	setup(t)

	out, _, err := runCommand(t, NewPredictCommand(), "2", "--all-groups")
	require.NoError(t, err)
	for _, title := range []string{"## Main Indicators", "## Age & Medication", "## Parasite Species", "## Other Indicators"} {
		assert.Contains(t, out, title)
	}
}

func TestPredictCommand_InvalidArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{name: "non-numeric id", args: []string{"abc"}, wantErr: `invalid facility id "abc"`},
		{name: "zero id", args: []string{"0"}, wantErr: `invalid facility id "0"`},
		{name: "unknown group", args: []string{"1", "--group", "nope"}, wantErr: "unknown column group"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, _ := setup(t)

			_, _, err := runCommand(t, NewPredictCommand(), tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, 0, backend.Calls("predict"))
		})
	}
}

func TestLookupCommand(t *testing.T) {
	setup(t)

	out, _, err := runCommand(t, NewLookupCommand(), "cities")
	require.NoError(t, err)
	assert.Contains(t, out, "| 9471 | KOTA JAYAPURA | 94 |")

	_, _, err = runCommand(t, NewLookupCommand(), "villages")
	assert.Error(t, err)
}

// =============================================================================
// Batch Commands
// =============================================================================

func TestPredictAllCommand(t *testing.T) {
	backend, statePath := setup(t)

	out, _, err := runCommand(t, NewPredictAllCommand())
	require.NoError(t, err)

	assert.Contains(t, out, "Saved batch")
	assert.Contains(t, out, "(2 records)")
	assert.Contains(t, out, "- **Total facilities**: 3")
	assert.Contains(t, out, "- **Failed facilities**: 3")
	assert.Contains(t, out, "batch_summary.xlsx (korika download batch_summary.xlsx)")
	assert.Contains(t, out, "| 1 | 3/2024 |")
	assert.Contains(t, out, "| 2 | 4/2024 |")
	assert.Contains(t, out, "Showing 1-2 of 2 records")
	clitest.AssertValidMarkdown(t, out)
	assert.Equal(t, 1, backend.Calls("predict-all"))

	store := openState(t, statePath)
	latest, err := store.LatestBatch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 2, latest.RecordCount)
	assert.Equal(t, []int{3}, latest.Summary.FailedFacilityIDs)
}

func TestPredictAllCommand_NoSave(t *testing.T) {
	_, statePath := setup(t)

	out, _, err := runCommand(t, NewPredictAllCommand(), "--no-save")
	require.NoError(t, err)
	assert.Contains(t, out, "# Batch prediction")
	assert.NotContains(t, out, "Saved batch")

	_, err = os.Stat(statePath)
	assert.True(t, os.IsNotExist(err), "no batch history should be created")
}

func TestPredictAllCommand_Failure(t *testing.T) {
	backend, statePath := setup(t)
	backend.Fail("Model has not been trained")

	_, _, err := runCommand(t, NewPredictAllCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Model has not been trained")

	_, err = os.Stat(statePath)
	assert.True(t, os.IsNotExist(err))
}

func TestResultsCommand(t *testing.T) {
	setup(t)
	_, _, err := runCommand(t, NewPredictAllCommand())
	require.NoError(t, err)

	tests := []struct {
		name     string
		args     []string
		wantRows []string
		want     []string
	}{
		{
			name:     "first page of the latest batch",
			wantRows: []string{"| 1 | 3/2024 |", "| 2 | 4/2024 |"},
			want:     []string{"## Main", "Showing 1-2 of 2 records · page 1 of 1 · 10 per page"},
		},
		{
			name:     "search by period",
			args:     []string{"-s", "4/2024"},
			wantRows: []string{"| 2 | 4/2024 |"},
			want:     []string{"Showing 1-1 of 1 records (filtered from 2)"},
		},
		{
			name:     "facility filter",
			args:     []string{"-f", "1"},
			wantRows: []string{"| 1 | 3/2024 |"},
		},
		{
			name:     "no matches",
			args:     []string{"-s", "1999"},
			wantRows: nil,
			want:     []string{"No records match the current filters.", "Showing 0 of 0 records (filtered from 2)"},
		},
		{
			name:     "column group",
			args:     []string{"--group", "species"},
			wantRows: []string{"| 1 | 3/2024 |", "| 2 | 4/2024 |"},
			want:     []string{"## Parasite Species"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := runCommand(t, NewResultsCommand(), tt.args...)
			require.NoError(t, err)

			rows := clitest.MarkdownRows(out)
			require.Len(t, rows, len(tt.wantRows))
			for i, prefix := range tt.wantRows {
				assert.True(t, strings.HasPrefix(rows[i], prefix), "row %d %q should start with %q", i, rows[i], prefix)
			}
			for _, want := range tt.want {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestResultsCommand_Formats(t *testing.T) {
	setup(t)
	_, _, err := runCommand(t, NewPredictAllCommand())
	require.NoError(t, err)

	t.Run("csv", func(t *testing.T) {
		out, _, err := runCommand(t, NewResultsCommand(), "--format", "csv")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 3)
		assert.True(t, strings.HasPrefix(lines[0], "Facility,Period,"))
		assert.True(t, strings.HasPrefix(lines[2], "2,4/2024,"))
	})

	t.Run("json", func(t *testing.T) {
		out, _, err := runCommand(t, NewResultsCommand(), "--format", "json", "-s", "2024", "-f", "2")
		require.NoError(t, err)

		var view struct {
			BatchID  string `json:"batch_id"`
			Query    string `json:"query"`
			Facility *int   `json:"facility"`
			Group    string `json:"group"`
			Page     struct {
				Page     int `json:"page"`
				Filtered int `json:"filtered"`
				Total    int `json:"total"`
			} `json:"page"`
			Records []map[string]any `json:"records"`
		}
		require.NoError(t, json.Unmarshal([]byte(out), &view))
		assert.NotEmpty(t, view.BatchID)
		assert.Equal(t, "2024", view.Query)
		require.NotNil(t, view.Facility)
		assert.Equal(t, 2, *view.Facility)
		assert.Equal(t, "main", view.Group)
		assert.Equal(t, 1, view.Page.Filtered)
		assert.Equal(t, 2, view.Page.Total)
		assert.Len(t, view.Records, 1)
	})

	t.Run("unknown format", func(t *testing.T) {
		_, _, err := runCommand(t, NewResultsCommand(), "--format", "xml")
		assert.Error(t, err)
	})
}

func TestResultsCommand_Errors(t *testing.T) {
	t.Run("no history yet", func(t *testing.T) {
		setup(t)
		_, _, err := runCommand(t, NewResultsCommand())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "run 'korika predict-all' first")
	})

	t.Run("unknown batch", func(t *testing.T) {
		setup(t)
		_, _, err := runCommand(t, NewPredictAllCommand())
		require.NoError(t, err)

		_, _, err = runCommand(t, NewResultsCommand(), "zzzzzz")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `no stored batch matches "zzzzzz"`)
	})

	t.Run("invalid page size", func(t *testing.T) {
		setup(t)
		_, _, err := runCommand(t, NewResultsCommand(), "--page-size", "7")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid page size 7")
	})
}

func TestResultsCommand_Paging(t *testing.T) {
	_, statePath := setup(t)
	store := openState(t, statePath)
	records := testutil.Records(25, 5)
	_, err := store.SaveBatch(context.Background(), *testutil.Summary(records), records)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, _, err := runCommand(t, NewResultsCommand(), "-p", "3")
	require.NoError(t, err)
	assert.Len(t, clitest.MarkdownRows(out), 5)
	assert.Contains(t, out, "Showing 21-25 of 25 records · page 3 of 3 · 10 per page")

	out, _, err = runCommand(t, NewResultsCommand(), "--page-size", "20", "-p", "2")
	require.NoError(t, err)
	assert.Len(t, clitest.MarkdownRows(out), 5)
	assert.Contains(t, out, "page 2 of 2 · 20 per page")
}

func TestHistoryCommand(t *testing.T) {
	_, statePath := setup(t)

	_, _, err := runCommand(t, NewHistoryCommand())
	require.Error(t, err, "history needs a database")

	_, _, err = runCommand(t, NewPredictAllCommand())
	require.NoError(t, err)

	out, _, err := runCommand(t, NewHistoryCommand())
	require.NoError(t, err)
	rows := clitest.MarkdownRows(out)
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0], "| 3 | 2 | 1 | 2 | batch_summary.xlsx |")

	store := openState(t, statePath)
	latest, err := store.LatestBatch(context.Background())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	out, _, err = runCommand(t, NewHistoryCommand(), "--delete", latest.ID[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted batch "+latest.ID[:8])

	out, _, err = runCommand(t, NewHistoryCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "No stored batches.")
}

func TestHistoryCommand_JSON(t *testing.T) {
	setup(t, "KORIKA_OUTPUT", "json")
	_, _, err := runCommand(t, NewPredictAllCommand())
	require.NoError(t, err)

	out, _, err := runCommand(t, NewHistoryCommand())
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &items))
	require.Len(t, items, 1)
	assert.EqualValues(t, 2, items[0]["records"])
	assert.Equal(t, "batch_summary.xlsx", items[0]["summary_filename"])
}

func TestDownloadCommand(t *testing.T) {
	backend, _ := setup(t)

	out, _, err := runCommand(t, NewDownloadCommand(), "batch_summary.xlsx")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved batch_summary.xlsx (11 bytes)")

	data, err := os.ReadFile("batch_summary.xlsx")
	require.NoError(t, err)
	assert.Equal(t, backend.Artifacts["batch_summary.xlsx"], data)

	_, _, err = runCommand(t, NewDownloadCommand(), "batch_summary.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists (use --force to overwrite)")

	_, _, err = runCommand(t, NewDownloadCommand(), "batch_summary.xlsx", "--force")
	require.NoError(t, err)

	_, _, err = runCommand(t, NewDownloadCommand(), "batch_summary.xlsx", "-d", "reports/")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join("reports", "batch_summary.xlsx"))
	assert.NoError(t, err)
}

func TestDownloadCommand_Missing(t *testing.T) {
	setup(t)

	_, _, err := runCommand(t, NewDownloadCommand(), "missing.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "File not found")

	entries, err := os.ReadDir(".")
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".korika-download"), "temp file %s left behind", e.Name())
		assert.NotEqual(t, "missing.xlsx", e.Name())
	}
}

// =============================================================================
// Articles
// =============================================================================

func TestArticlesCommands(t *testing.T) {
	backend, _ := setup(t)

	out, _, err := runCommand(t, NewArticlesCommand(), "list")
	require.NoError(t, err)
	assert.Contains(t, out, "| 1 | Musim hujan | Dinkes |")
	assert.Contains(t, out, "Waspada Gunakan kelambu. |")

	out, _, err = runCommand(t, NewArticlesCommand(), "show", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "# Musim hujan")
	assert.Contains(t, out, "## Waspada")
	assert.Contains(t, out, "**kelambu**")
	assert.NotContains(t, out, "<strong>")

	out, _, err = runCommand(t, NewArticlesCommand(), "show", "1", "--raw")
	require.NoError(t, err)
	assert.Contains(t, out, "<strong>kelambu</strong>")

	cmd := NewArticlesCommand()
	cmd.SetIn(strings.NewReader("<p>Bersihkan genangan air</p>"))
	out, _, err = runCommand(t, cmd, "create", "--title", "Genangan", "--file", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "Created article 2: Genangan")
	assert.Equal(t, 1, backend.Calls("create-article"))

	out, _, err = runCommand(t, NewArticlesCommand(), "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted article 1")
	assert.Equal(t, 1, backend.Calls("delete-article"))
}

func TestArticlesCommands_Errors(t *testing.T) {
	setup(t)

	_, _, err := runCommand(t, NewArticlesCommand(), "show", "99")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Article not found")

	_, _, err = runCommand(t, NewArticlesCommand(), "delete", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid article id "x"`)

	_, _, err = runCommand(t, NewArticlesCommand(), "create")
	assert.Error(t, err, "title is required")
}

package commands

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/output"

	// sqlite driver for history queries.
	_ "modernc.org/sqlite"
)

// openHistoryReadOnly opens the batch history database in read-only mode.
func openHistoryReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("no batch history at %s (run 'korika predict-all' first)", path)
	}
	return sql.Open("sqlite", "file:"+path+"?mode=ro&_pragma=busy_timeout(5000)")
}

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Input string
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run read-only SQL against the batch history",
		Long: `Query the local batch history database directly.

Batches are stored in the batches table and their rows in batch_records,
with the full prediction row as JSON in the data column. The database is
opened read-only.`,
		Example: `  # Average predicted positives per facility in the latest batch
  korika query "SELECT facility_id, AVG(json_extract(data, '$.tot_pos'))
    FROM batch_records
    WHERE batch_id = (SELECT id FROM batches ORDER BY created_at DESC LIMIT 1)
    GROUP BY facility_id"

  # List tables
  korika query tables

  # Show the columns of a table
  korika query schema batch_records`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := querySource(cmd.InOrStdin(), args, opts)
			if err != nil {
				return err
			}
			cc := NewCommandContextWithoutClient(cmd)
			db, err := openHistoryReadOnly(cc.Cfg.StatePath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return runHistoryQuery(cmd.Context(), cc.Renderer, db, q)
		},
	}

	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file (- for stdin)")

	cmd.AddCommand(newQueryTablesCommand())
	cmd.AddCommand(newQuerySchemaCommand())

	return cmd
}

func querySource(stdin io.Reader, args []string, opts *QueryOptions) (string, error) {
	var q string
	switch {
	case len(args) > 0:
		q = strings.Join(args, " ")
	case opts.Input == "-":
		content, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		q = string(content)
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input) //nolint:gosec // user-supplied path is intended
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		q = string(content)
	}
	q = strings.TrimSpace(q)
	if q == "" {
		return "", fmt.Errorf("no SQL given (pass it as an argument or with --input)")
	}
	return q, nil
}

// runHistoryQuery executes q and renders the result set.
func runHistoryQuery(ctx context.Context, r *output.Renderer, db *sql.DB, q string) error {
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	var (
		table   [][]string
		objects []map[string]any
	)
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fmt.Errorf("failed to scan row: %w", err)
		}

		row := make([]string, len(cols))
		obj := make(map[string]any, len(cols))
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			obj[cols[i]] = v
			row[i] = formatValue(v)
		}
		table = append(table, row)
		objects = append(objects, obj)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		if objects == nil {
			objects = []map[string]any{}
		}
		return r.JSON(objects)
	}
	if len(table) == 0 {
		r.Muted("(0 rows)")
		return nil
	}
	return r.Table(cols, table)
}

func formatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(v)
}

func newQueryTablesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables in the batch history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := NewCommandContextWithoutClient(cmd)
			db, err := openHistoryReadOnly(cc.Cfg.StatePath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			return runHistoryQuery(cmd.Context(), cc.Renderer, db,
				`SELECT name, type FROM sqlite_master
				 WHERE type IN ('table', 'view') AND name NOT LIKE 'sqlite_%' AND name NOT LIKE 'goose_%'
				 ORDER BY name`)
		},
	}
}

func newQuerySchemaCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := NewCommandContextWithoutClient(cmd)
			db, err := openHistoryReadOnly(cc.Cfg.StatePath)
			if err != nil {
				return err
			}
			defer func() { _ = db.Close() }()

			var exists int
			err = db.QueryRowContext(cmd.Context(),
				`SELECT COUNT(*) FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, args[0]).Scan(&exists)
			if err != nil {
				return fmt.Errorf("failed to look up %s: %w", args[0], err)
			}
			if exists == 0 {
				return fmt.Errorf("table not found: %s", args[0])
			}

			return runHistoryQuery(cmd.Context(), cc.Renderer, db,
				fmt.Sprintf(`SELECT name, type, "notnull" AS not_null, pk FROM pragma_table_info('%s') ORDER BY cid`,
					strings.ReplaceAll(args[0], "'", "''")))
		},
	}
}

package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/output"
)

// HistoryOptions holds options for the history command.
type HistoryOptions struct {
	Limit  int
	Delete string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	opts := &HistoryOptions{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List stored batch predictions",
		Example: `  korika history
  korika history --limit 5
  korika history --delete 3f2a9c1e`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHistory(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "Maximum number of batches to show (0 for all)")
	cmd.Flags().StringVar(&opts.Delete, "delete", "", "Delete the batch with this id or id prefix")

	return cmd
}

func runHistory(cmd *cobra.Command, opts *HistoryOptions) error {
	cc := NewCommandContextWithoutClient(cmd)
	r := cc.Renderer

	store, err := cc.OpenExistingStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()

	if opts.Delete != "" {
		batch, err := store.ResolveBatch(ctx, opts.Delete)
		if err != nil {
			return err
		}
		if err := store.DeleteBatch(ctx, batch.ID); err != nil {
			return fmt.Errorf("failed to delete batch: %w", err)
		}
		r.Success("Deleted batch " + shortID(batch.ID))
		return nil
	}

	batches, err := store.ListBatches(ctx, opts.Limit)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		type item struct {
			ID          string `json:"id"`
			CreatedAt   string `json:"created_at"`
			Total       int    `json:"total_facilities"`
			Successful  int    `json:"successful_predictions"`
			Failed      int    `json:"failed_predictions"`
			Records     int    `json:"records"`
			SummaryFile string `json:"summary_filename,omitempty"`
		}
		items := make([]item, len(batches))
		for i, b := range batches {
			items[i] = item{
				ID:          b.ID,
				CreatedAt:   b.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				Total:       b.Summary.TotalFacilities,
				Successful:  b.Summary.SuccessfulPredictions,
				Failed:      b.Summary.FailedPredictions,
				Records:     b.RecordCount,
				SummaryFile: b.Summary.SummaryFilename,
			}
		}
		return r.JSON(items)
	}

	if len(batches) == 0 {
		r.Muted("No stored batches. Run 'korika predict-all' to create one.")
		return nil
	}

	rows := make([][]string, len(batches))
	for i, b := range batches {
		rows[i] = []string{
			shortID(b.ID),
			b.CreatedAt.Local().Format("2006-01-02 15:04"),
			strconv.Itoa(b.Summary.TotalFacilities),
			strconv.Itoa(b.Summary.SuccessfulPredictions),
			strconv.Itoa(b.Summary.FailedPredictions),
			strconv.Itoa(b.RecordCount),
			b.Summary.SummaryFilename,
		}
	}
	return r.Table(
		[]string{"Batch", "Created", "Facilities", "Successful", "Failed", "Records", "Summary file"},
		rows,
		output.Caption(fmt.Sprintf("state: %s", store.Path())),
	)
}

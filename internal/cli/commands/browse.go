package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/results"
	"github.com/oojn4/korika/internal/state"
	"github.com/oojn4/korika/internal/tui"
)

// BrowseOptions holds options for the browse command.
type BrowseOptions struct {
	Generate bool
}

// NewBrowseCommand creates the browse command.
func NewBrowseCommand() *cobra.Command {
	opts := &BrowseOptions{}

	cmd := &cobra.Command{
		Use:   "browse [batch-id]",
		Short: "Browse batch results interactively",
		Long: `Open a full-screen browser over a stored batch prediction. Press g to
generate a new batch, / to search, f to cycle the facility filter, ← and →
to page, [ and ] to change the page size and tab to switch column groups.`,
		Example: `  korika browse
  korika browse --generate`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return runBrowse(cmd, ref, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Generate, "generate", false, "Generate a new batch on start")

	return cmd
}

// batchFetcher runs a batch prediction and stores it.
func batchFetcher(cc *CommandContext, store state.Store) tui.FetchFunc {
	return func(ctx context.Context) (*tui.Batch, error) {
		summary, records, err := cc.Client.PredictAll(ctx)
		if err != nil {
			return nil, err
		}
		stored, err := store.SaveBatch(ctx, *summary, records)
		if err != nil {
			return nil, fmt.Errorf("failed to save batch: %w", err)
		}
		return &tui.Batch{ID: stored.ID, Summary: summary, Records: records}, nil
	}
}

func runBrowse(cmd *cobra.Command, ref string, opts *BrowseOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	st := initialState(cc.Cfg)
	tuiOpts := []tui.Option{tui.WithFetcher(batchFetcher(cc, store))}

	batch, err := store.ResolveBatch(ctx, ref)
	if err != nil {
		return err
	}
	if batch != nil {
		st = results.Reduce(st, results.FetchSucceeded{Summary: &batch.Summary, Records: batch.Records})
		tuiOpts = append(tuiOpts, tui.WithBatchID(batch.ID))
	}
	if opts.Generate {
		tuiOpts = append(tuiOpts, tui.WithGenerateOnStart())
	}

	return tui.Run(ctx, tui.New(ctx, st, tuiOpts...), cmd.InOrStdin(), cmd.OutOrStdout())
}

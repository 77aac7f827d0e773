package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/output"
	"github.com/oojn4/korika/internal/results"
	"github.com/oojn4/korika/internal/state"
)

// PredictAllOptions holds options for the predict-all command.
type PredictAllOptions struct {
	NoSave    bool
	AllGroups bool
}

// NewPredictAllCommand creates the predict-all command.
func NewPredictAllCommand() *cobra.Command {
	opts := &PredictAllOptions{}

	cmd := &cobra.Command{
		Use:   "predict-all",
		Short: "Generate predictions for every facility",
		Long: `Run a batch prediction over every facility, store the batch in the local
history and print its summary followed by the first page of results.

Use 'korika results' to page through a stored batch afterwards.`,
		Example: `  korika predict-all
  korika predict-all --no-save -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPredictAll(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.NoSave, "no-save", false, "Do not store the batch in the local history")
	cmd.Flags().BoolVar(&opts.AllGroups, "all-groups", false, "Show every column group")

	return cmd
}

func runPredictAll(cmd *cobra.Command, opts *PredictAllOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	r := cc.Renderer

	st := results.Reduce(initialState(cc.Cfg), results.FetchStarted{})
	cc.Logger.Info("running batch prediction", "base_url", cc.Client.BaseURL())

	summary, records, err := cc.Client.PredictAll(ctx)
	if err != nil {
		return fmt.Errorf("batch prediction failed: %w", err)
	}
	st = results.Reduce(st, results.FetchSucceeded{Summary: summary, Records: records})

	var stored *state.StoredBatch
	if !opts.NoSave {
		store, err := cc.OpenStore()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		stored, err = store.SaveBatch(ctx, *summary, records)
		if err != nil {
			return fmt.Errorf("failed to save batch: %w", err)
		}
		if r.EffectiveMode() != output.ModeJSON && r.EffectiveMode() != output.ModeCSV {
			r.Success(fmt.Sprintf("Saved batch %s (%d records)", shortID(stored.ID), stored.RecordCount))
			r.Println("")
		}
	}

	return renderResults(r, stored, st, opts.AllGroups)
}

package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/output"
	"github.com/oojn4/korika/internal/results"
	"github.com/oojn4/korika/internal/state"
)

// ResultsOptions holds options for the results command.
type ResultsOptions struct {
	Search    string
	Facility  string
	Page      int
	PageSize  int
	Group     string
	AllGroups bool
	Format    string
}

// NewResultsCommand creates the results command.
func NewResultsCommand() *cobra.Command {
	opts := &ResultsOptions{}

	cmd := &cobra.Command{
		Use:   "results [batch-id]",
		Short: "Search, filter and page through a stored batch",
		Long: `Show one page of a stored batch prediction. Without a batch id the most
recent batch is used; a unique id prefix is enough.

The search matches the facility id, the month/year period or the total
positive count. Changing the search or facility filter starts from page 1.`,
		Example: `  # First page of the latest batch
  korika results

  # Facility 1042 only, parasite species columns
  korika results --facility 1042 --group species

  # Third page, 20 per page, as CSV
  korika results --page 3 --page-size 20 --format csv`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := ""
			if len(args) == 1 {
				ref = args[0]
			}
			return runResults(cmd, ref, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Search, "search", "s", "", "Search by facility id, period or total positive")
	cmd.Flags().StringVarP(&opts.Facility, "facility", "f", "", "Only this facility id (\"all\" clears)")
	cmd.Flags().IntVarP(&opts.Page, "page", "p", 1, "Page number")
	cmd.Flags().IntVar(&opts.PageSize, "page-size", 0, fmt.Sprintf("Records per page (one of %v)", results.PageSizes))
	cmd.Flags().StringVar(&opts.Group, "group", "", "Column group: main, age, species, other")
	cmd.Flags().BoolVar(&opts.AllGroups, "all-groups", false, "Show every column group")
	cmd.Flags().StringVar(&opts.Format, "format", "", "Output format override (text, markdown, json, csv)")
	_ = cmd.RegisterFlagCompletionFunc("group", completeGroups)

	return cmd
}

// resultsActions turns command-line options into reducer actions, in the
// order a user would apply them: search, facility, page size, then page.
func resultsActions(opts *ResultsOptions) ([]results.Action, error) {
	var actions []results.Action

	if opts.Search != "" {
		actions = append(actions, results.SearchChanged{Query: opts.Search})
	}
	if opts.Facility != "" {
		id, err := results.ParseFacility(opts.Facility)
		if err != nil {
			return nil, err
		}
		actions = append(actions, results.FacilityChanged{ID: id})
	}
	if opts.PageSize != 0 {
		if !results.ValidPageSize(opts.PageSize) {
			return nil, fmt.Errorf("invalid page size %d (want one of %v)", opts.PageSize, results.PageSizes)
		}
		actions = append(actions, results.PageSizeChanged{Size: opts.PageSize})
	}
	if opts.Page < 1 {
		return nil, fmt.Errorf("invalid page %d", opts.Page)
	}
	actions = append(actions, results.PageChanged{Page: opts.Page})
	if opts.Group != "" {
		g, err := resolveGroup(opts.Group, "")
		if err != nil {
			return nil, err
		}
		actions = append(actions, results.GroupChanged{Group: g})
	}
	return actions, nil
}

// loadBatch resolves a stored batch reference, turning an empty history
// into an actionable error.
func loadBatch(cmd *cobra.Command, cc *CommandContext, ref string) (*state.StoredBatch, error) {
	store, err := cc.OpenExistingStore()
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	batch, err := store.ResolveBatch(cmd.Context(), ref)
	if errors.Is(err, state.ErrNotFound) {
		return nil, fmt.Errorf("no stored batch matches %q (see 'korika history')", ref)
	}
	if err != nil {
		return nil, err
	}
	if batch == nil {
		return nil, errors.New("no stored batches (run 'korika predict-all' first)")
	}
	return batch, nil
}

// batchState loads a stored batch into a fresh results state.
func batchState(cc *CommandContext, batch *state.StoredBatch) results.State {
	summary := batch.Summary
	return results.Reduce(initialState(cc.Cfg), results.FetchSucceeded{
		Summary: &summary,
		Records: batch.Records,
	})
}

func runResults(cmd *cobra.Command, ref string, opts *ResultsOptions) error {
	actions, err := resultsActions(opts)
	if err != nil {
		return err
	}

	cc := NewCommandContextWithoutClient(cmd)
	r := cc.Renderer
	if opts.Format != "" {
		mode, err := output.ParseMode(opts.Format)
		if err != nil {
			return err
		}
		r = r.WithMode(mode)
	}

	batch, err := loadBatch(cmd, cc, ref)
	if err != nil {
		return err
	}

	st := batchState(cc, batch)
	for _, a := range actions {
		st = results.Reduce(st, a)
	}
	cc.Logger.Debug("rendering results",
		"batch", batch.ID,
		"page", st.Page(),
		"filtered", len(st.Filtered()))

	return renderResults(r, batch, st, opts.AllGroups)
}

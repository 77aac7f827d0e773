package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/output"
	"github.com/oojn4/korika/internal/prediction"
)

// PredictOptions holds options for the predict command.
type PredictOptions struct {
	Group     string
	AllGroups bool
}

// NewPredictCommand creates the predict command.
func NewPredictCommand() *cobra.Command {
	opts := &PredictOptions{}

	cmd := &cobra.Command{
		Use:   "predict <facility-id>",
		Short: "Predict cases for a single facility",
		Example: `  korika predict 1042
  korika predict 1042 --group species
  korika predict 1042 --all-groups`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.Group, "group", "", "Column group: main, age, species, other")
	cmd.Flags().BoolVar(&opts.AllGroups, "all-groups", false, "Show every column group")
	_ = cmd.RegisterFlagCompletionFunc("group", completeGroups)

	return cmd
}

func completeGroups(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, len(prediction.Groups))
	for i, g := range prediction.Groups {
		names[i] = string(g)
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// resolveGroup picks the column group from a flag value, falling back to
// the configured default.
func resolveGroup(flag, configured string) (prediction.Group, error) {
	if flag == "" {
		flag = configured
	}
	if flag == "" {
		return prediction.GroupMain, nil
	}
	return prediction.ParseGroup(flag)
}

func runPredict(cmd *cobra.Command, arg string, opts *PredictOptions) error {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid facility id %q", arg)
	}

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	group, err := resolveGroup(opts.Group, cc.Cfg.Results.Group)
	if err != nil {
		return err
	}

	res, err := cc.Client.PredictFacility(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("prediction for facility %d failed: %w", id, err)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(map[string]any{
			"facility_id": res.FacilityID,
			"plot_url":    res.PlotURL,
			"filename":    res.Filename,
			"predictions": res.Records,
		})
	}

	groups := []prediction.Group{group}
	if opts.AllGroups {
		groups = prediction.Groups
	}

	csv := r.EffectiveMode() == output.ModeCSV
	if !csv {
		r.Header(1, fmt.Sprintf("Facility %d", res.FacilityID))
		if res.PlotURL != "" {
			r.KeyValue("Plot", cc.Client.BaseURL()+res.PlotURL)
		}
		if res.Filename != "" {
			r.KeyValue("Download", fmt.Sprintf("%s (korika download %s)", res.Filename, res.Filename))
		}
		r.Println("")
	}

	if len(res.Records) == 0 {
		if !csv {
			r.Muted("No predictions returned.")
		}
		return nil
	}

	for _, g := range groups {
		rows := make([][]string, len(res.Records))
		for i, rec := range res.Records {
			rows[i] = prediction.Row(rec, g)
		}
		if !csv {
			r.Header(2, g.Title())
		}
		if err := r.Table(prediction.Headers(g), rows, output.AlignRightFrom(len(prediction.IdentityHeaders))); err != nil {
			return err
		}
	}
	return nil
}

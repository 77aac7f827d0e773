package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/output"
)

// FacilitiesOptions holds options for the facilities command.
type FacilitiesOptions struct {
	Province  string
	Kabupaten string
}

// NewFacilitiesCommand creates the facilities command.
func NewFacilitiesCommand() *cobra.Command {
	opts := &FacilitiesOptions{}

	cmd := &cobra.Command{
		Use:   "facilities",
		Short: "List health facilities",
		Long: `List health facilities (faskes), optionally narrowed to a province
and regency (kabupaten). Province and regency names are matched by the
prediction service as given.`,
		Example: `  korika facilities --province PAPUA
  korika facilities --province PAPUA --kabupaten MIMIKA`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runFacilities(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Province, "province", "", "Only facilities in this province")
	cmd.Flags().StringVar(&opts.Kabupaten, "kabupaten", "", "Only facilities in this regency")

	return cmd
}

func runFacilities(cmd *cobra.Command, opts *FacilitiesOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	facilities, err := cc.Client.GetFacilities(cmd.Context(), opts.Province, opts.Kabupaten)
	if err != nil {
		return fmt.Errorf("failed to list facilities: %w", err)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(facilities)
	}
	if len(facilities) == 0 {
		r.Muted("No facilities found.")
		return nil
	}

	rows := make([][]string, len(facilities))
	for i, f := range facilities {
		rows[i] = []string{strconv.Itoa(f.ID), f.Name, f.Province, f.Kabupaten}
	}
	return r.Table([]string{"ID", "Name", "Province", "Kabupaten"}, rows,
		output.Caption(fmt.Sprintf("%d facilities", len(facilities))))
}

package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oojn4/korika/internal/cli/output"
)

// NewProvincesCommand creates the provinces command.
func NewProvincesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "provinces",
		Short: "List provinces known to the prediction service",
		Example: `  korika provinces
  korika provinces -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProvinces(cmd)
		},
	}
}

func runProvinces(cmd *cobra.Command) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	provinces, err := cc.Client.ListProvinces(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list provinces: %w", err)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(provinces)
	}
	if len(provinces) == 0 {
		r.Muted("No provinces found.")
		return nil
	}

	caser := cases.Title(language.Indonesian)
	rows := make([][]string, len(provinces))
	for i, p := range provinces {
		rows[i] = []string{p, caser.String(strings.ToLower(p))}
	}
	return r.Table([]string{"Code", "Province"}, rows)
}

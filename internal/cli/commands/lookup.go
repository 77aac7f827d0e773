package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/api"
	"github.com/oojn4/korika/internal/cli/output"
)

// NewLookupCommand creates the lookup command.
func NewLookupCommand() *cobra.Command {
	kinds := make([]string, len(api.MasterKinds))
	for i, k := range api.MasterKinds {
		kinds[i] = string(k)
	}

	return &cobra.Command{
		Use:       "lookup <kind>",
		Short:     "List master data (provinces, cities, universities)",
		Example:   `  korika lookup cities`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: kinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(cmd, args[0])
		},
	}
}

func runLookup(cmd *cobra.Command, arg string) error {
	kind, err := api.ParseMasterKind(arg)
	if err != nil {
		return err
	}

	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	items, err := cc.Client.ListMasterData(cmd.Context(), kind)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", kind, err)
	}

	r := cc.Renderer
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(items)
	}
	if len(items) == 0 {
		r.Muted(fmt.Sprintf("No %s found.", kind))
		return nil
	}

	rows := make([][]string, len(items))
	for i, it := range items {
		parent := ""
		if it.ParentID != 0 {
			parent = strconv.Itoa(it.ParentID)
		}
		rows[i] = []string{strconv.Itoa(it.ID), it.Name, parent}
	}
	return r.Table([]string{"ID", "Name", "Parent"}, rows)
}

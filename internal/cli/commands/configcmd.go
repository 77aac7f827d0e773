package commands

import (
	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/cli/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand() *cobra.Command {
	var showSecrets bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration korika is using after merging defaults, the
config file, KORIKA_ environment variables and flags.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *getConfig()
			if cfg.UI.SessionSecret != "" && !showSecrets {
				cfg.UI.SessionSecret = "********"
			}

			content, err := marshalConfig(&cfg)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if path := config.GetConfigFileUsed(); path != "" {
				_, _ = w.Write([]byte("# config file: " + path + "\n"))
			}
			_, err = w.Write(content)
			return err
		},
	}

	cmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print secrets instead of masking them")
	return cmd
}

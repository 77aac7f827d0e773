package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/oojn4/korika/internal/cli/config"
	"github.com/oojn4/korika/internal/cli/output"
)

const configHeader = `# korika configuration
#
# Every key can be overridden with a KORIKA_ environment variable, using a
# double underscore between levels (KORIKA_API__BASE_URL), or with the
# matching global flag (--base-url, --state, --output, --verbose).

`

// NewInitCommand creates the init command.
func NewInitCommand() *cobra.Command {
	var force bool
	var baseURL string

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a starter korika.yaml",
		Long: `Write a korika.yaml with the default settings into the given directory
(the current directory by default).

The file points korika at the prediction service, sets where the batch
history database lives, and holds the initial results view settings and
dashboard options.`,
		Example: `  # Initialize in current directory
  korika init

  # Point at a remote prediction service
  korika init --api https://predict.example.org

  # Overwrite an existing config
  korika init --force`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			return runInit(r, dir, baseURL, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite existing configuration")
	cmd.Flags().StringVar(&baseURL, "api", "", "Prediction service base URL to write")

	return cmd
}

func runInit(r *output.Renderer, dir, baseURL string, force bool) error {
	if dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	configPath := filepath.Join(dir, config.ConfigFileNames[0])
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
	}

	cfg := config.Default()
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	content, err := marshalConfig(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, append([]byte(configHeader), content...), 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	r.StatusLine(configPath, "success", "")
	r.Println("")
	r.Success("korika initialized!")
	r.Println("")
	r.Println("Next steps:")
	r.Println("  1. Check api.base_url points at your prediction service")
	r.Println("  2. Run 'korika train' to train the model")
	r.Println("  3. Run 'korika predict-all' to generate a batch")
	r.Println("  4. Run 'korika browse' or 'korika ui' to explore the results")
	return nil
}

func marshalConfig(cfg *config.Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

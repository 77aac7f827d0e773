package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oojn4/korika/internal/api"
	"github.com/oojn4/korika/internal/cli/config"
	"github.com/oojn4/korika/internal/cli/output"
	"github.com/oojn4/korika/internal/state"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Client   *api.Client
}

// NewCommandContext creates a CommandContext with an API client and renderer.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	cc := NewCommandContextWithoutClient(cmd)

	client, err := newClient(cc.Cfg, cc.Logger)
	if err != nil {
		return nil, err
	}
	cc.Client = client
	return cc, nil
}

// NewCommandContextWithoutClient creates a CommandContext for commands that
// only read local state.
func NewCommandContextWithoutClient(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
	}
}

// OpenStore opens the batch history database.
func (c *CommandContext) OpenStore() (*state.SQLiteStore, error) {
	store, err := state.Open(c.Cfg.StatePath, c.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open batch history: %w", err)
	}
	return store, nil
}

// OpenExistingStore opens the batch history database, failing with a hint
// when it has never been created.
func (c *CommandContext) OpenExistingStore() (*state.SQLiteStore, error) {
	if _, err := os.Stat(c.Cfg.StatePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("no batch history at %s (run 'korika predict-all' first)", c.Cfg.StatePath)
	}
	return c.OpenStore()
}

// getConfig returns the loaded configuration, or the defaults when a
// command runs outside the root command.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

func newClient(cfg *config.Config, logger *slog.Logger) (*api.Client, error) {
	client, err := api.New(cfg.API.BaseURL,
		api.WithLogger(logger),
		api.WithUserAgent(cfg.API.UserAgent),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create api client: %w", err)
	}
	return client, nil
}

// historyFile returns the path of a readline history file kept next to the
// batch history database.
func historyFile(cfg *config.Config, name string) string {
	return filepath.Join(filepath.Dir(cfg.StatePath), name)
}

// Package config loads korika's layered configuration: defaults, a
// korika.yaml file, KORIKA_* environment variables and explicitly set
// command-line flags, in increasing order of precedence.
package config

// Config holds all CLI configuration options.
type Config struct {
	API          APIConfig     `koanf:"api" yaml:"api"`
	StatePath    string        `koanf:"state_path" yaml:"state_path"`
	Verbose      bool          `koanf:"verbose" yaml:"verbose"`
	OutputFormat string        `koanf:"output" yaml:"output"`
	Results      ResultsConfig `koanf:"results" yaml:"results"`
	UI           UIConfig      `koanf:"ui" yaml:"ui"`

	// ProjectRoot is the directory relative paths are resolved against:
	// the config file's directory, or the working directory.
	ProjectRoot string `koanf:"-" yaml:"-"`
}

// APIConfig configures the prediction service client.
type APIConfig struct {
	BaseURL   string `koanf:"base_url" yaml:"base_url"`
	UserAgent string `koanf:"user_agent" yaml:"user_agent,omitempty"`
}

// ResultsConfig holds the initial view settings for batch results.
type ResultsConfig struct {
	PageSize int    `koanf:"page_size" yaml:"page_size"`
	Group    string `koanf:"group" yaml:"group"`
}

// UIConfig holds configuration for the dashboard server.
type UIConfig struct {
	Port          int    `koanf:"port" yaml:"port"`
	AutoOpen      bool   `koanf:"auto_open" yaml:"auto_open"`
	Watch         bool   `koanf:"watch" yaml:"watch"`
	SessionSecret string `koanf:"session_secret" yaml:"session_secret,omitempty"`
}

// Default configuration values.
const (
	DefaultBaseURL   = "http://localhost:5000"
	DefaultStateFile = ".korika/state.db"
	DefaultOutput    = "auto" // TTY=text, non-TTY=markdown
	DefaultPageSize  = 10
	DefaultGroup     = "main"
	DefaultUIPort    = 8765
)

// ConfigFileNames are searched for, in order, when no --config is given.
var ConfigFileNames = []string{"korika.yaml", "korika.yml"}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultBaseURL,
		},
		StatePath:    DefaultStateFile,
		OutputFormat: DefaultOutput,
		Results: ResultsConfig{
			PageSize: DefaultPageSize,
			Group:    DefaultGroup,
		},
		UI: UIConfig{
			Port:     DefaultUIPort,
			AutoOpen: true,
			Watch:    true,
		},
	}
}

// defaultsMap mirrors Default for the koanf confmap provider.
func defaultsMap() map[string]any {
	d := Default()
	return map[string]any{
		"api.base_url":      d.API.BaseURL,
		"api.user_agent":    d.API.UserAgent,
		"state_path":        d.StatePath,
		"verbose":           d.Verbose,
		"output":            d.OutputFormat,
		"results.page_size": d.Results.PageSize,
		"results.group":     d.Results.Group,
		"ui.port":           d.UI.Port,
		"ui.auto_open":      d.UI.AutoOpen,
		"ui.watch":          d.UI.Watch,
		"ui.session_secret": d.UI.SessionSecret,
	}
}

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/oojn4/korika/internal/cli/output"
	"github.com/oojn4/korika/internal/prediction"
	"github.com/oojn4/korika/internal/results"
)

// Validate checks the configuration for values no command can work with.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required\nHint: set it in korika.yaml, KORIKA_API__BASE_URL or --base-url")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.base_url %q must be an http(s) URL", c.API.BaseURL)
	}

	if c.StatePath == "" {
		return fmt.Errorf("state_path is required")
	}

	if _, err := output.ParseMode(c.OutputFormat); err != nil {
		return err
	}

	if !results.ValidPageSize(c.Results.PageSize) {
		return fmt.Errorf("results.page_size %d is not one of %s", c.Results.PageSize, pageSizeList())
	}
	if _, err := prediction.ParseGroup(c.Results.Group); err != nil {
		return fmt.Errorf("results.group: %w", err)
	}

	if c.UI.Port < 0 || c.UI.Port > 65535 {
		return fmt.Errorf("ui.port %d is out of range", c.UI.Port)
	}
	return nil
}

func pageSizeList() string {
	parts := make([]string, len(results.PageSizes))
	for i, n := range results.PageSizes {
		parts[i] = fmt.Sprint(n)
	}
	return strings.Join(parts, ", ")
}

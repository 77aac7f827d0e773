package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oojn4/korika/internal/cli"
)

func TestCommandAreas_CoverEveryCommand(t *testing.T) {
	for _, cmd := range cli.NewRootCmd().Commands() {
		if !documented(cmd) {
			continue
		}
		_, ok := areaOf(cmd.Name())
		assert.True(t, ok, "command %s has no area", cmd.Name())
	}
}

func TestGenerateCLIDocs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, generateCLIDocs(dir))

	index, err := os.ReadFile(filepath.Join(dir, "index.md"))
	require.NoError(t, err)
	s := string(index)

	assert.Contains(t, s, "## Batch predictions")
	assert.Contains(t, s, "## Front ends")
	assert.Less(t, strings.Index(s, "[`predict-all`]"), strings.Index(s, "## Batch history"))
	assert.Contains(t, s, "`KORIKA_API__BASE_URL`")
	assert.Contains(t, s, "`KORIKA_UI__SESSION_SECRET`")
	assert.Contains(t, s, "`tables`, `schema`")

	page, err := os.ReadFile(filepath.Join(dir, "query.md"))
	require.NoError(t, err)
	assert.Contains(t, string(page), "## query schema")
	assert.Contains(t, string(page), "## See Also")
	assert.Contains(t, string(page), "[`history`](/cli/history)")
}

package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oojn4/korika/internal/cli/config"
)

// settingDocs describes each configuration key.
var settingDocs = map[string]string{
	"api.base_url":      "Base URL of the prediction service",
	"api.user_agent":    "User-Agent header sent to the prediction service",
	"state_path":        "SQLite batch history, relative to the config file directory",
	"verbose":           "Enable debug logging",
	"output":            "Output mode: auto, text, markdown, json or csv",
	"results.page_size": "Initial rows per page: 5, 10, 20, 50 or 100",
	"results.group":     "Initial column group: main, age, species or other",
	"ui.port":           "Dashboard HTTP port",
	"ui.auto_open":      "Open the dashboard in a browser on start",
	"ui.watch":          "Push updates to open dashboards when the batch history changes",
	"ui.session_secret": "Cookie signing secret; random per run when empty",
}

// generateConfigDocs writes configuration.md from the built-in defaults.
func generateConfigDocs(outDir string) error {
	log.Printf("Generating configuration docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	defaults := config.Default()

	w := NewMarkdownWriter()
	w.Frontmatter("Configuration", "korika configuration reference")
	w.GeneratedMarker()

	w.Header(1, "Configuration")
	w.Paragraph(fmt.Sprintf("korika reads %s from the working directory or any parent directory. "+
		"Environment variables override the file and explicitly set flags override both.",
		strings.Join(quoted(config.ConfigFileNames), " or ")))

	w.Header(2, "Settings")
	var rows [][]string
	for _, s := range settings(reflect.ValueOf(defaults).Elem(), "") {
		rows = append(rows, []string{
			InlineCode(s.key),
			InlineCode(envName(s.key)),
			s.def,
			cleanDescription(settingDocs[s.key]),
		})
	}
	w.Table([]string{"Key", "Environment", "Default", "Description"}, rows)

	w.Header(2, "Example")
	example, err := yaml.Marshal(defaults)
	if err != nil {
		return fmt.Errorf("failed to render example: %w", err)
	}
	w.CodeBlock("yaml", string(example))

	w.Paragraph("String values may reference environment variables as " + InlineCode("${NAME}") + ".")

	return os.WriteFile(filepath.Join(outDir, "configuration.md"), w.Bytes(), 0600)
}

type setting struct {
	key string
	def string
}

// settings flattens a config struct into dotted koanf keys.
func settings(v reflect.Value, prefix string) []setting {
	var out []setting
	t := v.Type()
	for i := range t.NumField() {
		tag := t.Field(i).Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		key := prefix + tag
		fv := v.Field(i)
		if fv.Kind() == reflect.Struct {
			out = append(out, settings(fv, key+".")...)
			continue
		}
		def := fmt.Sprint(fv.Interface())
		if def != "" {
			def = InlineCode(def)
		}
		out = append(out, setting{key: key, def: def})
	}
	return out
}

func envName(key string) string {
	return "KORIKA_" + strings.ToUpper(strings.ReplaceAll(key, ".", "__"))
}

func quoted(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = InlineCode(n)
	}
	return out
}

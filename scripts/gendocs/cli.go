package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/oojn4/korika/internal/cli"
	"github.com/oojn4/korika/internal/cli/config"
)

// commandArea groups top-level commands on the index page.
type commandArea struct {
	Title    string
	Intro    string
	Commands []string
}

var commandAreas = []commandArea{
	{
		Title:    "Batch predictions",
		Intro:    "Train the model, run predictions against the service and fetch the summary workbook.",
		Commands: []string{"train", "predict", "predict-all", "download"},
	},
	{
		Title:    "Batch history",
		Intro:    "Every predict-all run is stored locally. These commands read it back.",
		Commands: []string{"results", "history", "query"},
	},
	{
		Title:    "Front ends",
		Intro:    "Interactive views over the latest or a chosen batch.",
		Commands: []string{"browse", "shell", "ui"},
	},
	{
		Title:    "Reference data",
		Intro:    "Provinces, facilities, lookup tables and articles served by the prediction service.",
		Commands: []string{"provinces", "facilities", "lookup", "articles"},
	},
	{
		Title:    "Setup",
		Intro:    "Project configuration and diagnostics.",
		Commands: []string{"init", "config", "doctor", "version", "completion"},
	},
}

// areaOf returns the area a command is listed under.
func areaOf(name string) (commandArea, bool) {
	for _, a := range commandAreas {
		if slices.Contains(a.Commands, name) {
			return a, true
		}
	}
	return commandArea{}, false
}

func documented(cmd *cobra.Command) bool {
	return !cmd.Hidden && cmd.Name() != "help" && cmd.Name() != "__complete"
}

// generateCLIDocs writes index.md and one page per top-level command.
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	byName := make(map[string]*cobra.Command)
	for _, cmd := range root.Commands() {
		if !documented(cmd) {
			continue
		}
		if _, ok := areaOf(cmd.Name()); !ok {
			return fmt.Errorf("command %s is not listed in any area", cmd.Name())
		}
		byName[cmd.Name()] = cmd
	}

	if err := os.WriteFile(filepath.Join(outDir, "index.md"), cliIndex(root, byName), 0600); err != nil {
		return fmt.Errorf("failed to write index: %w", err)
	}
	log.Printf("  Generated index.md")

	for name, cmd := range byName {
		if err := os.WriteFile(filepath.Join(outDir, name+".md"), commandPage(cmd, byName), 0600); err != nil {
			return fmt.Errorf("failed to write page for %s: %w", name, err)
		}
		log.Printf("  Generated %s.md", name)
	}
	return nil
}

func cliIndex(root *cobra.Command, byName map[string]*cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for korika")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph(cleanDescription(root.Long))
	w.CodeBlock("bash", "go install github.com/oojn4/korika/cmd/korika@latest\nkorika <command> [options]")

	for _, area := range commandAreas {
		var rows [][]string
		for _, name := range area.Commands {
			cmd, ok := byName[name]
			if !ok {
				continue
			}
			rows = append(rows, []string{
				fmt.Sprintf("[%s](/cli/%s)", InlineCode(name), name),
				cleanDescription(cmd.Short),
				subcommandNames(cmd),
			})
		}
		if len(rows) == 0 {
			continue
		}
		w.Header(2, area.Title)
		w.Paragraph(area.Intro)
		w.Table([]string{"Command", "Description", "Subcommands"}, rows)
	}

	w.Header(2, "Global Options")
	writeFlagsTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	w.Paragraph("Every configuration key can be set from the environment. Nested keys use a double underscore. " +
		"Explicitly set flags take precedence.")
	var envRows [][]string
	for _, s := range settings(reflect.ValueOf(config.Default()).Elem(), "") {
		envRows = append(envRows, []string{
			InlineCode(envName(s.key)),
			InlineCode(s.key),
			cleanDescription(settingDocs[s.key]),
		})
	}
	w.Table([]string{"Variable", "Key", "Description"}, envRows)

	w.Paragraph("Commands exit with status 1 and print the error to stderr when they fail. " +
		InlineCode("korika doctor") + " checks the configuration, the prediction service and the batch history in one go.")

	return w.Bytes()
}

func subcommandNames(cmd *cobra.Command) string {
	var names []string
	for _, sub := range cmd.Commands() {
		if documented(sub) {
			names = append(names, InlineCode(sub.Name()))
		}
	}
	return strings.Join(names, ", ")
}

func commandPage(cmd *cobra.Command, byName map[string]*cobra.Command) []byte {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.Name(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.Name())
	writeCommand(w, cmd, 2)

	for _, sub := range cmd.Commands() {
		if !documented(sub) {
			continue
		}
		w.Header(2, cmd.Name()+" "+sub.Name())
		writeCommand(w, sub, 3)
	}

	if area, ok := areaOf(cmd.Name()); ok {
		var related []string
		for _, name := range area.Commands {
			if name != cmd.Name() && byName[name] != nil {
				related = append(related, fmt.Sprintf("[%s](/cli/%s): %s",
					InlineCode(name), name, cleanDescription(byName[name].Short)))
			}
		}
		if len(related) > 0 {
			w.Header(2, "See Also")
			w.BulletList(related)
		}
	}
	return w.Bytes()
}

// writeCommand documents one command with its sections at level.
func writeCommand(w *MarkdownWriter, cmd *cobra.Command, level int) {
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	usage := cmd.UseLine()
	if cmd.HasAvailableSubCommands() && cmd.Runnable() {
		usage += "\n" + cmd.CommandPath() + " <subcommand> [options]"
	}
	w.Header(level, "Usage")
	w.CodeBlock("bash", usage)

	if len(cmd.Aliases) > 0 {
		w.Paragraph("Aliases: " + strings.Join(quoted(cmd.Aliases), ", "))
	}
	if cmd.HasAvailableLocalFlags() {
		w.Header(level, "Options")
		writeFlagsTable(w, cmd.LocalFlags())
	}
	if cmd.Example != "" {
		w.Header(level, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
}

// writeFlagsTable lists the visible flags of a set.
func writeFlagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := "--" + f.Name
		if f.Shorthand != "" {
			name = "-" + f.Shorthand + ", " + name
		}
		def := f.DefValue
		if def != "" && f.Value.Type() != "bool" {
			def = InlineCode(def)
		}
		rows = append(rows, []string{InlineCode(name), f.Value.Type(), def, cleanDescription(f.Usage)})
	})
	if len(rows) > 0 {
		w.Table([]string{"Flag", "Type", "Default", "Description"}, rows)
	}
}

// dedent strips the indentation shared by every non-blank line.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if common < 0 || n < common {
			common = n
		}
	}
	for i, line := range lines {
		if len(line) >= common && common > 0 {
			lines[i] = line[common:]
		}
	}
	return strings.TrimRight(strings.Join(lines, "\n"), " \n")
}

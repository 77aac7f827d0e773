package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/oojn4/korika/internal/cli/config"
	"github.com/oojn4/korika/internal/cli/output"
)

// Health check statuses.
const (
	checkPass  = "pass"
	checkWarn  = "warn"
	checkError = "error"
)

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Checks     []HealthCheck `json:"checks"`
	IssueCount int           `json:"issue_count"`
}

// HealthCheck is a single health check result.
type HealthCheck struct {
	Group  string `json:"group"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, service and batch history",
		Long: `Check that korika is ready to use.

The doctor command reports on:
- Configuration: which file was loaded and where the history lives
- Service: whether the prediction service answers
- History: whether the batch history opens and what it holds

It exits with an error when any check fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}

			out := runDoctorChecks(cmd.Context(), cc)
			switch cc.Renderer.EffectiveMode() {
			case output.ModeJSON:
				if err := cc.Renderer.JSON(out); err != nil {
					return err
				}
			case output.ModeMarkdown:
				renderDoctorMarkdown(cc.Renderer, out)
			default:
				renderDoctorText(cc.Renderer, out)
			}

			if out.IssueCount > 0 {
				return fmt.Errorf("%d check(s) failed", out.IssueCount)
			}
			return nil
		},
	}
}

func runDoctorChecks(ctx context.Context, cc *CommandContext) *DoctorOutput {
	out := &DoctorOutput{}
	add := func(group, name, status, detail string) {
		out.Checks = append(out.Checks, HealthCheck{Group: group, Name: name, Status: status, Detail: detail})
		if status == checkError {
			out.IssueCount++
		}
	}

	if path := config.GetConfigFileUsed(); path != "" {
		add("configuration", "Config file", checkPass, path)
	} else {
		add("configuration", "Config file", checkWarn, "none found, using defaults (run 'korika init')")
	}
	add("configuration", "Prediction service", checkPass, cc.Client.BaseURL())

	if provinces, err := cc.Client.ListProvinces(ctx); err != nil {
		add("service", "Reachable", checkError, err.Error())
	} else {
		add("service", "Reachable", checkPass, fmt.Sprintf("%d provinces", len(provinces)))
	}

	path := cc.Cfg.StatePath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		add("history", "Database", checkWarn, fmt.Sprintf("not created yet at %s (run 'korika predict-all')", path))
		return out
	}
	store, err := cc.OpenStore()
	if err != nil {
		add("history", "Database", checkError, err.Error())
		return out
	}
	defer func() { _ = store.Close() }()

	version, err := store.MigrationVersion()
	if err != nil {
		add("history", "Database", checkError, err.Error())
		return out
	}
	add("history", "Database", checkPass, fmt.Sprintf("%s (schema version %d)", path, version))

	batches, err := store.ListBatches(ctx, 0)
	switch {
	case err != nil:
		add("history", "Batches", checkError, err.Error())
	case len(batches) == 0:
		add("history", "Batches", checkWarn, "no batches stored")
	default:
		latest := batches[0]
		add("history", "Batches", checkPass, fmt.Sprintf("%d stored, latest %s from %s",
			len(batches), shortID(latest.ID), latest.CreatedAt.Local().Format("2006-01-02 15:04")))
	}

	return out
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()
	titleCaser := cases.Title(language.English)

	currentGroup := ""
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			if currentGroup != "" {
				r.Println("")
			}
			currentGroup = check.Group
			r.Println(styles.Bold.Render(titleCaser.String(currentGroup)))
		}
		status := "success"
		switch check.Status {
		case checkWarn:
			status = "warning"
		case checkError:
			status = "failed"
		}
		r.StatusLine(check.Name, status, check.Detail)
	}
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# korika doctor")
	r.Println("")

	titleCaser := cases.Title(language.English)
	currentGroup := ""
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			if currentGroup != "" {
				r.Println("")
			}
			currentGroup = check.Group
			r.Println("## " + titleCaser.String(currentGroup))
			r.Println("")
		}
		line := fmt.Sprintf("- **[%s]** %s", strings.ToUpper(check.Status), check.Name)
		if check.Detail != "" {
			line += ": " + check.Detail
		}
		r.Println(line)
	}
}

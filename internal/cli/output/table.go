package output

import (
	"encoding/csv"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableOption configures Table.
type TableOption func(*tableConfig)

type tableConfig struct {
	rightAlignFrom int
	caption        string
}

// AlignRightFrom right-aligns every column from index i onwards. Metric
// tables use it to line up numbers.
func AlignRightFrom(i int) TableOption {
	return func(c *tableConfig) { c.rightAlignFrom = i }
}

// Caption adds a caption under text tables.
func Caption(s string) TableOption {
	return func(c *tableConfig) { c.caption = s }
}

// Table renders rows under headers in the effective mode. JSON mode emits an
// array of objects keyed by header.
func (r *Renderer) Table(headers []string, rows [][]string, opts ...TableOption) error {
	cfg := tableConfig{rightAlignFrom: -1}
	for _, opt := range opts {
		opt(&cfg)
	}

	switch r.EffectiveMode() {
	case ModeJSON:
		objects := make([]map[string]string, len(rows))
		for i, row := range rows {
			obj := make(map[string]string, len(headers))
			for j, h := range headers {
				if j < len(row) {
					obj[h] = row[j]
				}
			}
			objects[i] = obj
		}
		return r.JSON(objects)

	case ModeCSV:
		w := csv.NewWriter(r.out)
		if err := w.Write(headers); err != nil {
			return fmt.Errorf("failed to write csv header: %w", err)
		}
		if err := w.WriteAll(rows); err != nil {
			return fmt.Errorf("failed to write csv rows: %w", err)
		}
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	t.SetStyle(style)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	t.AppendHeader(header)

	for _, row := range rows {
		tr := make(table.Row, len(row))
		for i, v := range row {
			tr[i] = v
		}
		t.AppendRow(tr)
	}

	if cfg.rightAlignFrom >= 0 {
		var configs []table.ColumnConfig
		for i := cfg.rightAlignFrom; i < len(headers); i++ {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
		t.SetColumnConfigs(configs)
	}

	if r.EffectiveMode() == ModeMarkdown {
		t.RenderMarkdown()
		r.Println("")
		return nil
	}

	if cfg.caption != "" {
		t.SetCaption(cfg.caption)
	}
	t.Render()
	return nil
}

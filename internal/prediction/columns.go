package prediction

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Group identifies one of the thematic column groups a record is shown in.
type Group string

// Column groups, in tab order.
const (
	GroupMain    Group = "main"
	GroupAgeMed  Group = "age"
	GroupSpecies Group = "species"
	GroupOther   Group = "other"
)

// Groups lists every column group in display order.
var Groups = []Group{GroupMain, GroupAgeMed, GroupSpecies, GroupOther}

// Title returns the human readable tab title for a group.
func (g Group) Title() string {
	switch g {
	case GroupMain:
		return "Main Indicators"
	case GroupAgeMed:
		return "Age & Medication"
	case GroupSpecies:
		return "Parasite Species"
	case GroupOther:
		return "Other Indicators"
	default:
		return string(g)
	}
}

// Next returns the group after g, wrapping around.
func (g Group) Next() Group {
	for i, candidate := range Groups {
		if candidate == g {
			return Groups[(i+1)%len(Groups)]
		}
	}
	return GroupMain
}

// ParseGroup resolves a group name. Matching is case-insensitive and also
// accepts the tab title.
func ParseGroup(s string) (Group, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, g := range Groups {
		if s == string(g) || s == strings.ToLower(g.Title()) {
			return g, nil
		}
	}
	switch s {
	case "age-medication", "medication":
		return GroupAgeMed, nil
	case "parasite", "parasites":
		return GroupSpecies, nil
	}
	return "", fmt.Errorf("unknown column group %q (want one of: main, age, species, other)", s)
}

// Column is one metric column inside a group.
type Column struct {
	Key   string
	Label string
	Value func(Record) float64
}

var groupColumns = map[Group][]Column{
	GroupMain: {
		{"tot_pos", "Total Positive", func(r Record) float64 { return r.TotalPositive }},
		{"konfirmasi_lab_mikroskop", "Lab Microscopy", func(r Record) float64 { return r.LabMicroscopy }},
		{"konfirmasi_lab_rdt", "Lab RDT", func(r Record) float64 { return r.LabRDT }},
		{"konfirmasi_lab_pcr", "Lab PCR", func(r Record) float64 { return r.LabPCR }},
		{"kematian_malaria", "Deaths", func(r Record) float64 { return r.Deaths }},
	},
	GroupAgeMed: {
		{"pos_0_4", "Age 0-4", func(r Record) float64 { return r.Age0to4 }},
		{"pos_5_14", "Age 5-14", func(r Record) float64 { return r.Age5to14 }},
		{"pos_15_64", "Age 15-64", func(r Record) float64 { return r.Age15to64 }},
		{"pos_diatas_64", "Age 64+", func(r Record) float64 { return r.AgeOver64 }},
		{"obat_standar", "Standard Med", func(r Record) float64 { return r.MedStandard }},
		{"obat_nonprogram", "Non-program Med", func(r Record) float64 { return r.MedNonProgram }},
		{"obat_primaquin", "Primaquine", func(r Record) float64 { return r.MedPrimaquine }},
	},
	GroupSpecies: {
		{"p_falciparum", "P. falciparum", func(r Record) float64 { return r.Falciparum }},
		{"p_vivax", "P. vivax", func(r Record) float64 { return r.Vivax }},
		{"p_ovale", "P. ovale", func(r Record) float64 { return r.Ovale }},
		{"p_malariae", "P. malariae", func(r Record) float64 { return r.Malariae }},
		{"p_knowlesi", "P. knowlesi", func(r Record) float64 { return r.Knowlesi }},
		{"p_mix", "Mixed", func(r Record) float64 { return r.Mixed }},
	},
	GroupOther: {
		{"kasus_indigenous", "Indigenous", func(r Record) float64 { return r.Indigenous }},
		{"kasus_impor", "Imported", func(r Record) float64 { return r.Imported }},
		{"kasus_induced", "Induced", func(r Record) float64 { return r.Induced }},
		{"kasus_relaps", "Relapse", func(r Record) float64 { return r.Relapse }},
	},
}

// Columns returns the metric columns of a group. Unknown groups fall back
// to the main indicators.
func (g Group) Columns() []Column {
	if cols, ok := groupColumns[g]; ok {
		return cols
	}
	return groupColumns[GroupMain]
}

// IdentityHeaders are the leading columns shown in every group.
var IdentityHeaders = []string{"Facility", "Period"}

var numberPrinter = message.NewPrinter(language.Indonesian)

// FormatMetric rounds a metric to the nearest whole case and formats it
// with Indonesian digit grouping ("1.234").
func FormatMetric(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return numberPrinter.Sprintf("%d", int64(math.Round(v)))
}

// Row formats a record as a table row for the given group: identity
// columns first, then the group's metrics.
func Row(r Record, g Group) []string {
	cols := g.Columns()
	row := make([]string, 0, len(IdentityHeaders)+len(cols))
	row = append(row, fmt.Sprintf("%d", r.FacilityID), r.Period())
	for _, c := range cols {
		row = append(row, FormatMetric(c.Value(r)))
	}
	return row
}

// Headers returns the header row for a group.
func Headers(g Group) []string {
	cols := g.Columns()
	headers := make([]string, 0, len(IdentityHeaders)+len(cols))
	headers = append(headers, IdentityHeaders...)
	for _, c := range cols {
		headers = append(headers, c.Label)
	}
	return headers
}

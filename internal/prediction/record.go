// Package prediction defines the shapes exchanged with the surveillance
// prediction service: facility-month records, batch summaries, facilities
// and the thematic column groups used to display records.
package prediction

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// Record is one facility-month observation or forecast.
//
// Metric values may be fractional when they come from the model. They are
// kept as received and only rounded when formatted for display.
type Record struct {
	FacilityID int `json:"id_faskes" mapstructure:"id_faskes"`
	Year       int `json:"tahun" mapstructure:"tahun"`
	Month      int `json:"bulan" mapstructure:"bulan"`

	// Main indicators
	TotalPositive float64 `json:"tot_pos" mapstructure:"tot_pos"`
	LabMicroscopy float64 `json:"konfirmasi_lab_mikroskop" mapstructure:"konfirmasi_lab_mikroskop"`
	LabRDT        float64 `json:"konfirmasi_lab_rdt" mapstructure:"konfirmasi_lab_rdt"`
	LabPCR        float64 `json:"konfirmasi_lab_pcr" mapstructure:"konfirmasi_lab_pcr"`
	Deaths        float64 `json:"kematian_malaria" mapstructure:"kematian_malaria"`

	// Age buckets and medication
	Age0to4       float64 `json:"pos_0_4" mapstructure:"pos_0_4"`
	Age5to14      float64 `json:"pos_5_14" mapstructure:"pos_5_14"`
	Age15to64     float64 `json:"pos_15_64" mapstructure:"pos_15_64"`
	AgeOver64     float64 `json:"pos_diatas_64" mapstructure:"pos_diatas_64"`
	MedStandard   float64 `json:"obat_standar" mapstructure:"obat_standar"`
	MedNonProgram float64 `json:"obat_nonprogram" mapstructure:"obat_nonprogram"`
	MedPrimaquine float64 `json:"obat_primaquin" mapstructure:"obat_primaquin"`

	// Parasite species
	Falciparum float64 `json:"p_falciparum" mapstructure:"p_falciparum"`
	Vivax      float64 `json:"p_vivax" mapstructure:"p_vivax"`
	Ovale      float64 `json:"p_ovale" mapstructure:"p_ovale"`
	Malariae   float64 `json:"p_malariae" mapstructure:"p_malariae"`
	Knowlesi   float64 `json:"p_knowlesi" mapstructure:"p_knowlesi"`
	Mixed      float64 `json:"p_mix" mapstructure:"p_mix"`

	// Transmission type
	Indigenous float64 `json:"kasus_indigenous" mapstructure:"kasus_indigenous"`
	Imported   float64 `json:"kasus_impor" mapstructure:"kasus_impor"`
	Induced    float64 `json:"kasus_induced" mapstructure:"kasus_induced"`
	Relapse    float64 `json:"kasus_relaps" mapstructure:"kasus_relaps"`
}

// Period returns the "{month}/{year}" label used for display and search.
func (r Record) Period() string {
	return fmt.Sprintf("%d/%d", r.Month, r.Year)
}

// BatchSummary is the metadata returned with a batch prediction run.
// Successful + Failed is expected to equal Total but is not checked.
type BatchSummary struct {
	TotalFacilities       int    `json:"total_facilities"`
	SuccessfulPredictions int    `json:"successful_predictions"`
	FailedPredictions     int    `json:"failed_predictions"`
	FailedFacilityIDs     []int  `json:"failed_facilities"`
	SummaryFilename       string `json:"summary_filename,omitempty"`
}

// HasArtifact reports whether the batch produced a downloadable summary.
func (s BatchSummary) HasArtifact() bool {
	return s.SummaryFilename != ""
}

// Facility is a health service location (faskes).
type Facility struct {
	ID        int    `json:"id_faskes"`
	Name      string `json:"nama_faskes"`
	Province  string `json:"provinsi"`
	Kabupaten string `json:"kabupaten"`
}

// FacilityPrediction is the result of predicting a single facility.
type FacilityPrediction struct {
	FacilityID int
	Records    []Record
	PlotURL    string
	Filename   string
}

// DecodeRecords converts loosely typed rows into records.
//
// The prediction service serialises numbers inconsistently (integers,
// floats, occasionally numeric strings), so decoding is weakly typed.
// Unknown keys are ignored.
func DecodeRecords(rows []map[string]any) ([]Record, error) {
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		var rec Record
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &rec,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create decoder: %w", err)
		}
		if err := dec.Decode(row); err != nil {
			return nil, fmt.Errorf("prediction row %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

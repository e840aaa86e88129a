package model

// StudyRow mirrors the flat one-row-per-series projection shared by the
// warehouse query and the parquet snapshot export. Study-level columns
// repeat on every series row. Dates stay as strings here and are parsed
// during study assembly.
type StudyRow struct {
	StudyUID   string `parquet:"study_uid"`
	PatientID  string `parquet:"patient_id"`
	StudyDate  string `parquet:"study_date,optional"`
	ReportText string `parquet:"report_text,optional"`

	SeriesUID          string   `parquet:"series_uid"`
	Modality           string   `parquet:"modality,optional"`
	AcquisitionDate    string   `parquet:"acquisition_date,optional"`
	SeriesDescription  string   `parquet:"series_description,optional"`
	BodyPartExamined   string   `parquet:"body_part_examined,optional"`
	SliceThickness     *float64 `parquet:"slice_thickness,optional"`
	ContrastBolusAgent string   `parquet:"contrast_bolus_agent,optional"`
}

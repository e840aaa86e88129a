package model

import "time"

// Modality is a DICOM modality code, e.g. "CT" or "PT".
type Modality string

const (
	ModalityCT Modality = "CT"
	ModalityPT Modality = "PT"
)

// SeriesRecord is one acquisition run within a study. Optional DICOM fields
// are pointers: absent means unknown, which never fails a predicate.
type SeriesRecord struct {
	SeriesUID          string
	Modality           Modality
	AcquisitionDate    *time.Time
	SeriesDescription  string
	BodyPartExamined   string
	SliceThickness     *float64
	ContrastBolusAgent string
}

// Study is one imaging encounter, a read-only projection of warehouse data.
type Study struct {
	StudyUID   string
	PatientID  string
	StudyDate  *time.Time
	ReportText string
	Series     []SeriesRecord
}

// Modalities returns the set of modalities across all series.
func (s *Study) Modalities() map[Modality]bool {
	set := make(map[Modality]bool, 2)
	for _, sr := range s.Series {
		if sr.Modality != "" {
			set[sr.Modality] = true
		}
	}
	return set
}

// IsPETCT reports whether the study carries both PT and CT series.
func (s *Study) IsPETCT() bool {
	m := s.Modalities()
	return m[ModalityPT] && m[ModalityCT]
}

// IsCTOnly reports whether every series in the study is CT.
func (s *Study) IsCTOnly() bool {
	m := s.Modalities()
	return len(m) == 1 && m[ModalityCT]
}

// ModalityDate resolves the acquisition date for one modality: the most
// recent acquisition date among matching series, falling back to the study
// date. Returns nil when neither is present, which excludes the study from
// pairing.
func (s *Study) ModalityDate(mod Modality) *time.Time {
	var latest *time.Time
	for i := range s.Series {
		sr := &s.Series[i]
		if sr.Modality != mod || sr.AcquisitionDate == nil {
			continue
		}
		if latest == nil || sr.AcquisitionDate.After(*latest) {
			latest = sr.AcquisitionDate
		}
	}
	if latest != nil {
		return latest
	}
	return s.StudyDate
}

package warehouse

import (
	"testing"

	"github.com/gradienthealth/studyselect/internal/model"
)

func TestAssembleStudies_GroupsByStudyUID(t *testing.T) {
	thick := 2.5
	rows := []model.StudyRow{
		{StudyUID: "s1", PatientID: "p1", StudyDate: "2024-03-01", ReportText: "PET report",
			SeriesUID: "s1.2", Modality: "CT", SliceThickness: &thick},
		{StudyUID: "s1", PatientID: "p1", StudyDate: "2024-03-01", ReportText: "PET report",
			SeriesUID: "s1.1", Modality: "PT", AcquisitionDate: "2024-03-02"},
		{StudyUID: "s2", PatientID: "p1", StudyDate: "2024-02-10", ReportText: "CT report",
			SeriesUID: "s2.1", Modality: "CT", BodyPartExamined: "CHEST"},
	}

	studies := AssembleStudies(rows)
	if len(studies) != 2 {
		t.Fatalf("got %d studies, want 2", len(studies))
	}

	s1 := studies[0]
	if s1.StudyUID != "s1" {
		t.Fatalf("first study is %s, want s1", s1.StudyUID)
	}
	if len(s1.Series) != 2 {
		t.Fatalf("s1 has %d series, want 2", len(s1.Series))
	}
	if s1.Series[0].SeriesUID != "s1.1" || s1.Series[1].SeriesUID != "s1.2" {
		t.Errorf("series not sorted by UID: %s, %s", s1.Series[0].SeriesUID, s1.Series[1].SeriesUID)
	}
	if !s1.IsPETCT() {
		t.Error("s1 should be PET/CT")
	}
	if s1.Series[1].SliceThickness == nil || *s1.Series[1].SliceThickness != 2.5 {
		t.Errorf("slice thickness not carried: %v", s1.Series[1].SliceThickness)
	}

	d := s1.ModalityDate(model.ModalityPT)
	if d == nil || d.Format("2006-01-02") != "2024-03-02" {
		t.Errorf("PT date should come from acquisition date, got %v", d)
	}
	cd := s1.ModalityDate(model.ModalityCT)
	if cd == nil || cd.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("CT date should fall back to study date, got %v", cd)
	}

	if !studies[1].IsCTOnly() {
		t.Error("s2 should be CT-only")
	}
}

func TestAssembleStudies_SkipsRowsMissingIdentifiers(t *testing.T) {
	rows := []model.StudyRow{
		{StudyUID: "", PatientID: "p1", SeriesUID: "x.1"},
		{StudyUID: "s1", PatientID: "p1", SeriesUID: ""},
		{StudyUID: "s1", PatientID: "p1", SeriesUID: "s1.1", Modality: "CT"},
	}

	studies := AssembleStudies(rows)
	if len(studies) != 1 {
		t.Fatalf("got %d studies, want 1", len(studies))
	}
	if len(studies[0].Series) != 1 {
		t.Errorf("got %d series, want 1", len(studies[0].Series))
	}
}

func TestAssembleStudies_SortsByPatientThenStudy(t *testing.T) {
	rows := []model.StudyRow{
		{StudyUID: "s9", PatientID: "p2", SeriesUID: "s9.1"},
		{StudyUID: "s2", PatientID: "p1", SeriesUID: "s2.1"},
		{StudyUID: "s1", PatientID: "p1", SeriesUID: "s1.1"},
	}

	studies := AssembleStudies(rows)
	var got []string
	for _, s := range studies {
		got = append(got, s.StudyUID)
	}
	want := []string{"s1", "s2", "s9"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestAssembleStudies_UnparseableDatesBecomeNil(t *testing.T) {
	rows := []model.StudyRow{
		{StudyUID: "s1", PatientID: "p1", StudyDate: "not-a-date",
			SeriesUID: "s1.1", Modality: "CT", AcquisitionDate: "also bad"},
	}

	studies := AssembleStudies(rows)
	if studies[0].StudyDate != nil {
		t.Errorf("bad study date should parse to nil, got %v", studies[0].StudyDate)
	}
	if studies[0].Series[0].AcquisitionDate != nil {
		t.Errorf("bad acquisition date should parse to nil, got %v", studies[0].Series[0].AcquisitionDate)
	}
	if studies[0].ModalityDate(model.ModalityCT) != nil {
		t.Error("study with no usable dates should have nil modality date")
	}
}

package warehouse

import (
	"os"
	"path/filepath"
	"testing"

	goparquet "github.com/parquet-go/parquet-go"

	"github.com/gradienthealth/studyselect/internal/logging"
	"github.com/gradienthealth/studyselect/internal/model"
)

func writeSnapshot(t *testing.T, rows []model.StudyRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "studies.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create snapshot: %v", err)
	}
	w := goparquet.NewGenericWriter[model.StudyRow](f)
	if _, err := w.Write(rows); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}
	return path
}

func TestOpenSnapshot_RoundTrip(t *testing.T) {
	thick := 1.25
	rows := []model.StudyRow{
		{StudyUID: "s1", PatientID: "p1", StudyDate: "2024-03-01", ReportText: "PET report",
			SeriesUID: "s1.1", Modality: "PT", AcquisitionDate: "2024-03-01"},
		{StudyUID: "s2", PatientID: "p1", StudyDate: "2024-02-01", ReportText: "CT report",
			SeriesUID: "s2.1", Modality: "CT", SeriesDescription: "CT CHEST WO",
			BodyPartExamined: "CHEST", SliceThickness: &thick},
	}
	path := writeSnapshot(t, rows)

	r, err := OpenSnapshot(path)
	if err != nil {
		t.Fatalf("OpenSnapshot: %v", err)
	}
	defer r.Close()

	if r.NumRows() != 2 {
		t.Errorf("NumRows = %d, want 2", r.NumRows())
	}
	got, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("read %d rows, want 2", len(got))
	}
	if got[1].SliceThickness == nil || *got[1].SliceThickness != 1.25 {
		t.Errorf("slice thickness not round-tripped: %v", got[1].SliceThickness)
	}
	if got[0].Modality != "PT" || got[1].BodyPartExamined != "CHEST" {
		t.Errorf("fields not round-tripped: %+v", got)
	}
}

func TestOpenSnapshot_RejectsWrongSchema(t *testing.T) {
	type wrongRow struct {
		ID   string `parquet:"id"`
		Name string `parquet:"name"`
	}
	path := filepath.Join(t.TempDir(), "wrong.parquet")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := goparquet.NewGenericWriter[wrongRow](f)
	if _, err := w.Write([]wrongRow{{ID: "1", Name: "x"}}); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if _, err := OpenSnapshot(path); err == nil {
		t.Fatal("expected schema validation error for wrong columns")
	}
}

func TestLoadSnapshotStudies_AssemblesGroups(t *testing.T) {
	rows := []model.StudyRow{
		{StudyUID: "s1", PatientID: "p1", StudyDate: "2024-03-01",
			SeriesUID: "s1.1", Modality: "PT", AcquisitionDate: "2024-03-01"},
		{StudyUID: "s1", PatientID: "p1", StudyDate: "2024-03-01",
			SeriesUID: "s1.2", Modality: "CT", AcquisitionDate: "2024-03-01"},
		{StudyUID: "s2", PatientID: "p1", StudyDate: "2024-02-01",
			SeriesUID: "s2.1", Modality: "CT"},
	}
	path := writeSnapshot(t, rows)

	studies, err := LoadSnapshotStudies(path, logging.Setup("text"))
	if err != nil {
		t.Fatalf("LoadSnapshotStudies: %v", err)
	}
	if len(studies) != 2 {
		t.Fatalf("got %d studies, want 2", len(studies))
	}
	if !studies[0].IsPETCT() {
		t.Error("s1 should assemble as PET/CT")
	}
	if !studies[1].IsCTOnly() {
		t.Error("s2 should assemble as CT-only")
	}
}

// mkstudies generates a synthetic parquet study snapshot for local pipeline
// runs and demos: a handful of patients, each with a PET/CT study and a mix
// of qualifying and disqualifying prior CTs.
// Usage: go run ./cmd/mkstudies --out testdata/studies-small.parquet --patients 20
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	goparquet "github.com/parquet-go/parquet-go"

	"github.com/gradienthealth/studyselect/internal/model"
)

func main() {
	out := flag.String("out", "testdata/studies-small.parquet", "output parquet")
	patients := flag.Int("patients", 20, "number of patients to generate")
	seed := flag.Int64("seed", 7, "random seed")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))
	base := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	var rows []model.StudyRow
	for p := 0; p < *patients; p++ {
		patientID := fmt.Sprintf("pat%03d", p)
		petDate := base.AddDate(0, 0, -rng.Intn(90))
		rows = append(rows, petctStudy(patientID, p, petDate)...)

		// Every patient gets a prior CT; some qualify, some are screening
		// or abdominal studies the pairing engine should skip.
		nPriors := 1 + rng.Intn(3)
		for c := 0; c < nPriors; c++ {
			daysBack := 5 + rng.Intn(80)
			ctDate := petDate.AddDate(0, 0, -daysBack)
			rows = append(rows, priorCTStudy(patientID, p, c, ctDate, rng)...)
		}
	}

	f, err := os.Create(*out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	writer := goparquet.NewGenericWriter[model.StudyRow](f)
	if _, err := writer.Write(rows); err != nil {
		fmt.Fprintf(os.Stderr, "write: %v\n", err)
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close writer: %v\n", err)
		os.Exit(1)
	}

	studies := make(map[string]bool)
	for _, r := range rows {
		studies[r.StudyUID] = true
	}
	fmt.Printf("Wrote %d series rows (%d studies, %d patients) to %s\n",
		len(rows), len(studies), *patients, *out)
}

func petctStudy(patientID string, p int, date time.Time) []model.StudyRow {
	uid := fmt.Sprintf("1.2.826.0.1.%d.1", p)
	day := date.Format("2006-01-02")
	report := "Indication: indeterminate pulmonary nodule on prior CT. " +
		"FDG PET/CT skull base to mid-thigh. No hypermetabolic lymphadenopathy."
	thin := 3.0
	return []model.StudyRow{
		{
			StudyUID: uid, PatientID: patientID, StudyDate: day, ReportText: report,
			SeriesUID: uid + ".1", Modality: "PT", AcquisitionDate: day,
			SeriesDescription: "PET WB",
		},
		{
			StudyUID: uid, PatientID: patientID, StudyDate: day, ReportText: report,
			SeriesUID: uid + ".2", Modality: "CT", AcquisitionDate: day,
			SeriesDescription: "CT AC", SliceThickness: &thin,
		},
	}
}

func priorCTStudy(patientID string, p, c int, date time.Time, rng *rand.Rand) []model.StudyRow {
	uid := fmt.Sprintf("1.2.826.0.1.%d.2.%d", p, c)
	day := date.Format("2006-01-02")

	desc := "CT CHEST WITHOUT CONTRAST"
	body := "CHEST"
	contrast := ""
	report := "CT chest without contrast. 6 mm nodule in the right upper lobe."
	switch rng.Intn(4) {
	case 1:
		desc = "CT ABDOMEN PELVIS WITH CONTRAST"
		body = "ABDOMEN"
		contrast = "OMNIPAQUE"
		report = "CT abdomen and pelvis with contrast. Unremarkable."
	case 2:
		desc = "LOW DOSE CT LUNG SCREENING"
		report = "Annual low dose screening CT. Lung-RADS 2."
	}

	thickness := []float64{1.25, 2.5, 5.0}[rng.Intn(3)]
	return []model.StudyRow{
		{
			StudyUID: uid, PatientID: patientID, StudyDate: day, ReportText: report,
			SeriesUID: uid + ".1", Modality: "CT", AcquisitionDate: day,
			SeriesDescription: desc, BodyPartExamined: body,
			SliceThickness: &thickness, ContrastBolusAgent: contrast,
		},
		{
			StudyUID: uid, PatientID: patientID, StudyDate: day, ReportText: report,
			SeriesUID: uid + ".2", Modality: "CT", AcquisitionDate: day,
			SeriesDescription: "SCOUT", BodyPartExamined: body,
		},
	}
}

package artifact

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/gradienthealth/studyselect/internal/extract"
	"github.com/gradienthealth/studyselect/internal/model"
	"github.com/gradienthealth/studyselect/internal/normalize"
)

// Artifact filenames within a run directory. Each stage command reads its
// predecessor's file, so stages are independently re-runnable.
const (
	CandidatePairsFile = "candidate_pairs.csv"
	ExtractedPairsFile = "extracted_pairs.csv"
	SelectedPairsFile  = "selected_pairs.csv"
	AuditLogFile       = "audit_log.csv"
)

var candidateHeader = []string{
	"pet_study_uid", "ct_study_uid", "patient_id",
	"pet_date", "ct_date", "days_between",
	"pet_report", "ct_report",
}

var extractedHeader = append(append([]string{}, candidateHeader...),
	"ct_extraction_error", "pet_extraction_error",
	"ct_regions", "ct_contrast_agent", "ct_lung_nodules",
	"pet_clinical_reason", "pet_primary_diagnosis",
	"pet_lung_hypermetabolic", "pet_lymph_hypermetabolic", "pet_other_hypermetabolic",
	"pet_tracer", "pet_scan_region", "pet_blood_glucose", "pet_waiting_time",
)

// WriteCandidatePairs writes the pairing engine's output in emission order.
func WriteCandidatePairs(path string, pairs []model.CandidatePair) error {
	rows := make([][]string, 0, len(pairs))
	for _, p := range pairs {
		rows = append(rows, candidateRow(p))
	}
	return writeCSV(path, candidateHeader, rows)
}

// ReadCandidatePairs reads a candidate_pairs.csv back into pairs.
func ReadCandidatePairs(path string) ([]model.CandidatePair, error) {
	records, err := readCSV(path, candidateHeader)
	if err != nil {
		return nil, err
	}
	pairs := make([]model.CandidatePair, 0, len(records))
	for i, rec := range records {
		p, err := parseCandidateRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		pairs = append(pairs, p)
	}
	return pairs, nil
}

// WriteExtractedPairs writes extraction results, one row per pair, with
// the per-role structured fields as JSON-encoded list columns.
func WriteExtractedPairs(path string, results []extract.Result) error {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, extractedRow(r))
	}
	return writeCSV(path, extractedHeader, rows)
}

// ReadExtractedPairs reads an extracted_pairs.csv back into results. The
// raw service responses are not round-tripped; they live in the per-study
// extraction artifacts.
func ReadExtractedPairs(path string) ([]extract.Result, error) {
	records, err := readCSV(path, extractedHeader)
	if err != nil {
		return nil, err
	}
	results := make([]extract.Result, 0, len(records))
	for i, rec := range records {
		r, err := parseExtractedRow(rec)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i+2, err)
		}
		results = append(results, r)
	}
	return results, nil
}

// WriteSelectedPairs writes the extracted columns restricted to selected
// pairs. decisions must be index-aligned with results.
func WriteSelectedPairs(path string, results []extract.Result, decisions []model.SelectionDecision) error {
	rows := make([][]string, 0, len(results))
	for i, r := range results {
		if decisions[i].Selected {
			rows = append(rows, extractedRow(r))
		}
	}
	return writeCSV(path, extractedHeader, rows)
}

// WriteAuditLog writes one row per candidate pair with the exhaustive
// semicolon-joined reason list.
func WriteAuditLog(path string, decisions []model.SelectionDecision) error {
	header := []string{"pet_study_uid", "ct_study_uid", "selected", "reasons"}
	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		reasons := make([]string, 0, len(d.Reasons))
		for _, r := range d.Reasons {
			reasons = append(reasons, string(r))
		}
		rows = append(rows, []string{
			d.PETStudyUID, d.CTStudyUID,
			strconv.FormatBool(d.Selected),
			strings.Join(reasons, ";"),
		})
	}
	return writeCSV(path, header, rows)
}

func candidateRow(p model.CandidatePair) []string {
	return []string{
		p.PETStudyUID, p.CTStudyUID, p.PatientID,
		normalize.FormatDate(p.PETDate), normalize.FormatDate(p.CTDate),
		strconv.Itoa(p.DaysBetween),
		p.PETReport, p.CTReport,
	}
}

func parseCandidateRow(rec []string) (model.CandidatePair, error) {
	var p model.CandidatePair
	p.PETStudyUID, p.CTStudyUID, p.PatientID = rec[0], rec[1], rec[2]

	petDate := normalize.ParseDate(rec[3])
	ctDate := normalize.ParseDate(rec[4])
	if petDate == nil || ctDate == nil {
		return p, fmt.Errorf("unparseable pair dates %q / %q", rec[3], rec[4])
	}
	p.PETDate, p.CTDate = *petDate, *ctDate

	days, err := strconv.Atoi(rec[5])
	if err != nil {
		return p, fmt.Errorf("parse days_between: %w", err)
	}
	p.DaysBetween = days
	p.PETReport, p.CTReport = rec[6], rec[7]
	return p, nil
}

func extractedRow(r extract.Result) []string {
	row := candidateRow(r.Pair)

	var ctErr, petErr string
	ct := model.CTFields{}
	pet := model.PETFields{}
	if r.CT != nil {
		if r.CT.Status == model.ExtractionError {
			ctErr = r.CT.ErrorDetail
		} else if r.CT.CT != nil {
			ct = *r.CT.CT
		}
	}
	if r.PET != nil {
		if r.PET.Status == model.ExtractionError {
			petErr = r.PET.ErrorDetail
		} else if r.PET.PET != nil {
			pet = *r.PET.PET
		}
	}

	return append(row,
		ctErr, petErr,
		jsonList(ct.Regions), ct.ContrastAgent, jsonList(ct.LungNodules),
		pet.ClinicalReason, pet.PrimaryDiagnosis,
		jsonList(pet.LungHypermetabolic), jsonList(pet.LymphHypermetabolic), jsonList(pet.OtherHypermetabolic),
		pet.Tracer, pet.ScanRegion, pet.BloodGlucose, pet.WaitingTime,
	)
}

func parseExtractedRow(rec []string) (extract.Result, error) {
	pair, err := parseCandidateRow(rec[:8])
	if err != nil {
		return extract.Result{}, err
	}
	r := extract.Result{Pair: pair}

	ctErr, petErr := rec[8], rec[9]
	if ctErr != "" {
		r.CT = &model.ExtractionRecord{
			StudyUID: pair.CTStudyUID, Role: model.RoleCT,
			Status: model.ExtractionError, ErrorDetail: ctErr,
		}
	} else {
		regions, err := parseList(rec[10])
		if err != nil {
			return r, fmt.Errorf("parse ct_regions: %w", err)
		}
		nodules, err := parseList(rec[12])
		if err != nil {
			return r, fmt.Errorf("parse ct_lung_nodules: %w", err)
		}
		r.CT = &model.ExtractionRecord{
			StudyUID: pair.CTStudyUID, Role: model.RoleCT,
			Status: model.ExtractionSuccess,
			CT: &model.CTFields{
				Regions:       regions,
				ContrastAgent: rec[11],
				LungNodules:   nodules,
			},
		}
	}

	if petErr != "" {
		r.PET = &model.ExtractionRecord{
			StudyUID: pair.PETStudyUID, Role: model.RolePET,
			Status: model.ExtractionError, ErrorDetail: petErr,
		}
	} else {
		lung, err := parseList(rec[15])
		if err != nil {
			return r, fmt.Errorf("parse pet_lung_hypermetabolic: %w", err)
		}
		lymph, err := parseList(rec[16])
		if err != nil {
			return r, fmt.Errorf("parse pet_lymph_hypermetabolic: %w", err)
		}
		other, err := parseList(rec[17])
		if err != nil {
			return r, fmt.Errorf("parse pet_other_hypermetabolic: %w", err)
		}
		r.PET = &model.ExtractionRecord{
			StudyUID: pair.PETStudyUID, Role: model.RolePET,
			Status: model.ExtractionSuccess,
			PET: &model.PETFields{
				ClinicalReason:      rec[13],
				PrimaryDiagnosis:    rec[14],
				LungHypermetabolic:  lung,
				LymphHypermetabolic: lymph,
				OtherHypermetabolic: other,
				Tracer:              rec[18],
				ScanRegion:          rec[19],
				BloodGlucose:        rec[20],
				WaitingTime:         rec[21],
			},
		}
	}
	return r, nil
}

func jsonList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func parseList(s string) ([]string, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(s), &items); err != nil {
		return nil, err
	}
	return items, nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}

func readCSV(path string, wantHeader []string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: missing header row", path)
	}
	header := records[0]
	if len(header) != len(wantHeader) {
		return nil, fmt.Errorf("%s: header has %d columns, want %d", path, len(header), len(wantHeader))
	}
	for i, col := range wantHeader {
		if header[i] != col {
			return nil, fmt.Errorf("%s: column %d is %q, want %q", path, i, header[i], col)
		}
	}
	return records[1:], nil
}

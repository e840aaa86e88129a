package extract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gradienthealth/studyselect/internal/model"
)

// Store persists one JSON artifact per (study_uid, role) under the run
// directory. Artifacts are content-addressed by study UID, not by pair, so
// a re-run can skip studies that already extracted successfully.
type Store struct {
	dir string
}

// storedRecord is the on-disk envelope for one extraction.
type storedRecord struct {
	StudyUID    string            `json:"study_uid"`
	Role        model.Role        `json:"role"`
	Status      model.ExtractionStatus `json:"status"`
	ErrorDetail string            `json:"error_detail,omitempty"`
	CT          *model.CTFields   `json:"ct_fields,omitempty"`
	PET         *model.PETFields  `json:"pet_fields,omitempty"`
	RawResponse string            `json:"raw_response,omitempty"`
}

// NewStore creates the extractions directory tree under runDir.
func NewStore(runDir string) (*Store, error) {
	dir := filepath.Join(runDir, "extractions")
	for _, role := range []model.Role{model.RoleCT, model.RolePET} {
		if err := os.MkdirAll(filepath.Join(dir, string(role)), 0o755); err != nil {
			return nil, fmt.Errorf("create extractions dir: %w", err)
		}
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(studyUID string, role model.Role) string {
	return filepath.Join(s.dir, string(role), studyUID+".json")
}

// Save writes the terminal record before the orchestrator reports it.
func (s *Store) Save(rec *model.ExtractionRecord) error {
	data, err := json.MarshalIndent(storedRecord{
		StudyUID:    rec.StudyUID,
		Role:        rec.Role,
		Status:      rec.Status,
		ErrorDetail: rec.ErrorDetail,
		CT:          rec.CT,
		PET:         rec.PET,
		RawResponse: rec.RawResponse,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal extraction record: %w", err)
	}
	if err := os.WriteFile(s.path(rec.StudyUID, rec.Role), data, 0o644); err != nil {
		return fmt.Errorf("write extraction artifact: %w", err)
	}
	return nil
}

// Load returns a previously persisted successful record, or nil when the
// study has no reusable artifact. Error records are not reused: a re-run
// gets a fresh attempt at studies that failed.
func (s *Store) Load(studyUID string, role model.Role) *model.ExtractionRecord {
	data, err := os.ReadFile(s.path(studyUID, role))
	if err != nil {
		return nil
	}
	var sr storedRecord
	if err := json.Unmarshal(data, &sr); err != nil || sr.Status != model.ExtractionSuccess {
		return nil
	}
	return &model.ExtractionRecord{
		StudyUID:    sr.StudyUID,
		Role:        sr.Role,
		Status:      sr.Status,
		ErrorDetail: sr.ErrorDetail,
		CT:          sr.CT,
		PET:         sr.PET,
		RawResponse: sr.RawResponse,
	}
}

package model

// Role distinguishes the two independent extraction calls made per pair.
// CT and PET report text and schemas are never mixed in one request.
type Role string

const (
	RoleCT  Role = "ct"
	RolePET Role = "pet"
)

// ExtractionStatus is the terminal outcome of one (study, role) extraction.
type ExtractionStatus string

const (
	ExtractionSuccess ExtractionStatus = "success"
	ExtractionError   ExtractionStatus = "error"
)

// CTFields is the structured schema extracted from a diagnostic CT report.
// JSON tags match the keys the extraction prompt instructs the model to emit.
type CTFields struct {
	Regions       []string `json:"CT_Regions"`
	ContrastAgent string   `json:"CT_Contrast_Agent"`
	LungNodules   []string `json:"Lung_Nodules"`
}

// PETFields is the structured schema extracted from a PET/CT report. The
// tracer/glucose/timing fields are informational only and never feed rules.
type PETFields struct {
	ClinicalReason      string   `json:"Clinical_Reason"`
	PrimaryDiagnosis    string   `json:"Primary_Diagnosis"`
	LungHypermetabolic  []string `json:"Lung_Hypermetabolic_Regions"`
	LymphHypermetabolic []string `json:"Lymph_Nodes_Hypermetabolic_Regions"`
	OtherHypermetabolic []string `json:"Other_Hypermetabolic_Regions"`
	Tracer              string   `json:"PET_Tracer"`
	ScanRegion          string   `json:"PET_Scan_Region"`
	BloodGlucose        string   `json:"PET_Blood_Glucose_Level"`
	WaitingTime         string   `json:"PET_Waiting_Time"`
}

// ExtractionRecord is the terminal result of one (study, role) extraction.
// Exactly one of CT or PET is set on success, matching Role. Records are
// keyed by (StudyUID, Role): a study shared by several pairs is extracted
// once and the record reused.
type ExtractionRecord struct {
	StudyUID    string
	Role        Role
	Status      ExtractionStatus
	CT          *CTFields
	PET         *PETFields
	ErrorDetail string
	RawResponse string
}
